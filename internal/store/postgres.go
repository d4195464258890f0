package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/yourorg/hoa-scout/internal/hoa"
)

// pgUndefinedFunction is the SQLSTATE raised when distinct_hoa_cities() has
// not been installed.
const pgUndefinedFunction = "42883"

type Store struct{ DB *sql.DB }

func Open(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)
	return &Store{DB: db}, nil
}

func (s *Store) Ping(ctx context.Context) error { return s.DB.PingContext(ctx) }

func (s *Store) Close() error { return s.DB.Close() }

func (s *Store) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS hoas (
            id                  TEXT PRIMARY KEY,
            name                TEXT NOT NULL,
            address             TEXT NOT NULL DEFAULT '',
            city                TEXT,
            state               TEXT NOT NULL DEFAULT '',
            zip                 TEXT NOT NULL DEFAULT '',
            management_company  TEXT,
            monthly_fee         NUMERIC,
            overall_score       NUMERIC,
            public_records      JSONB,
            created_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
            updated_at          TIMESTAMPTZ NOT NULL DEFAULT now()
        );`,
		`CREATE INDEX IF NOT EXISTS idx_hoas_name ON hoas(lower(name));`,
		`CREATE INDEX IF NOT EXISTS idx_hoas_city ON hoas(city);`,
		`CREATE OR REPLACE FUNCTION distinct_hoa_cities()
        RETURNS TABLE(city TEXT) LANGUAGE sql STABLE AS $$
            SELECT DISTINCT h.city FROM hoas h
            WHERE h.city IS NOT NULL AND btrim(h.city) <> ''
        $$;`,
	}
	for _, q := range stmts {
		if _, err := s.DB.ExecContext(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

const hoaColumns = `id, name, address, COALESCE(city, ''), state, zip, management_company,
    monthly_fee::float8, overall_score::float8, public_records, created_at, updated_at`

// GetHOA loads one HOA. A missing row is reported as hoa.ErrNotFound.
func (s *Store) GetHOA(ctx context.Context, id string) (*hoa.HOA, error) {
	var (
		h       hoa.HOA
		mgmt    sql.NullString
		fee     sql.NullFloat64
		score   sql.NullFloat64
		records []byte
	)
	err := s.DB.QueryRowContext(ctx, `SELECT `+hoaColumns+` FROM hoas WHERE id = $1`, id).Scan(
		&h.ID, &h.Name, &h.Address, &h.City, &h.State, &h.Zip, &mgmt, &fee, &score, &records, &h.CreatedAt, &h.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, hoa.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get hoa %s: %w", id, err)
	}
	if mgmt.Valid {
		h.ManagementCompany = &mgmt.String
	}
	if fee.Valid {
		h.MonthlyFee = &fee.Float64
	}
	if score.Valid {
		h.OverallScore = &score.Float64
	}
	if len(records) > 0 && string(records) != "null" {
		var pr hoa.PublicRecords
		if err := json.Unmarshal(records, &pr); err != nil {
			return nil, fmt.Errorf("decode public_records for %s: %w", id, err)
		}
		h.PublicRecords = &pr
	}
	return &h, nil
}

// EnrichmentUpdate is the write produced by one enrichment run. Nil column
// pointers leave the stored column as is.
type EnrichmentUpdate struct {
	Records           *hoa.PublicRecords
	ManagementCompany *string
	MonthlyFee        *float64
}

func (s *Store) UpdateEnrichment(ctx context.Context, id string, in EnrichmentUpdate) error {
	payload, err := json.Marshal(in.Records)
	if err != nil {
		return fmt.Errorf("encode public_records: %w", err)
	}
	res, err := s.DB.ExecContext(ctx, `
        UPDATE hoas
        SET public_records = $2::jsonb,
            management_company = COALESCE($3, management_company),
            monthly_fee = COALESCE($4, monthly_fee),
            updated_at = now()
        WHERE id = $1`,
		id, string(payload), sqlNullString(in.ManagementCompany), sqlNullFloat(in.MonthlyFee),
	)
	if err != nil {
		return fmt.Errorf("update enrichment for %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return hoa.ErrNotFound
	}
	return nil
}

// SearchHOAs does a case-insensitive substring match on name, ordered by name.
func (s *Store) SearchHOAs(ctx context.Context, query string, limit int) ([]hoa.Summary, error) {
	rows, err := s.DB.QueryContext(ctx, `
        SELECT id, name, COALESCE(city, ''), state, zip, management_company
        FROM hoas
        WHERE name ILIKE $1 ESCAPE '\'
        ORDER BY name ASC
        LIMIT $2`,
		"%"+escapeLike(query)+"%", limit,
	)
	if err != nil {
		return nil, fmt.Errorf("search hoas: %w", err)
	}
	defer rows.Close()

	out := make([]hoa.Summary, 0, limit)
	for rows.Next() {
		var (
			sum  hoa.Summary
			mgmt sql.NullString
		)
		if err := rows.Scan(&sum.ID, &sum.Name, &sum.City, &sum.State, &sum.Zip, &mgmt); err != nil {
			return nil, fmt.Errorf("scan hoa summary: %w", err)
		}
		if mgmt.Valid {
			sum.ManagementCompany = &mgmt.String
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}

// DistinctCities returns raw city values. The distinct_hoa_cities() function
// is authoritative; a plain column scan is used only where the function is
// not installed.
func (s *Store) DistinctCities(ctx context.Context) ([]string, error) {
	out, err := s.queryStrings(ctx, `SELECT city FROM distinct_hoa_cities()`)
	if err == nil {
		return out, nil
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgUndefinedFunction {
		return nil, fmt.Errorf("distinct cities: %w", err)
	}
	out, err = s.queryStrings(ctx, `SELECT city FROM hoas WHERE city IS NOT NULL`)
	if err != nil {
		return nil, fmt.Errorf("distinct cities fallback: %w", err)
	}
	return out, nil
}

// GetScore returns overall_score, nil while analysis has not completed.
func (s *Store) GetScore(ctx context.Context, id string) (*float64, error) {
	var score sql.NullFloat64
	err := s.DB.QueryRowContext(ctx, `SELECT overall_score::float8 FROM hoas WHERE id = $1`, id).Scan(&score)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, hoa.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get score %s: %w", id, err)
	}
	if !score.Valid {
		return nil, nil
	}
	return &score.Float64, nil
}

func (s *Store) SetScore(ctx context.Context, id string, score float64) error {
	res, err := s.DB.ExecContext(ctx, `UPDATE hoas SET overall_score = $2, updated_at = now() WHERE id = $1`, id, score)
	if err != nil {
		return fmt.Errorf("set score %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return hoa.ErrNotFound
	}
	return nil
}

// ListEnrichmentCandidates returns ids of HOAs never enriched or enriched at
// or before staleBefore, least recently touched first.
func (s *Store) ListEnrichmentCandidates(ctx context.Context, staleBefore time.Time, limit int) ([]string, error) {
	rows, err := s.DB.QueryContext(ctx, `
        SELECT id FROM hoas
        WHERE public_records IS NULL
           OR COALESCE((public_records->>'enriched')::boolean, false) = false
           OR public_records->>'enrichedAt' IS NULL
           OR (public_records->>'enrichedAt')::timestamptz <= $1
        ORDER BY updated_at ASC
        LIMIT $2`,
		staleBefore, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list enrichment candidates: %w", err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *Store) queryStrings(ctx context.Context, q string) ([]string, error) {
	rows, err := s.DB.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var v sql.NullString
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		if v.Valid {
			out = append(out, v.String)
		}
	}
	return out, rows.Err()
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }

func sqlNullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func sqlNullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}
