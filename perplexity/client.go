package perplexity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/yourorg/hoa-scout/internal/hoa"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL = "https://api.perplexity.ai"
	DefaultModel   = "sonar"
	// SourceLabel is recorded as the source of enrichment data.
	SourceLabel = "Perplexity AI Search"
)

var (
	ErrRateLimited  = errors.New("perplexity rate limit exceeded")
	ErrUnauthorized = errors.New("perplexity rejected the api key")
)

type Config struct {
	APIKey            string
	BaseURL           string
	Model             string
	Timeout           time.Duration
	MaxRetries        int
	RequestsPerSecond float64
	Logger            *zap.Logger
}

type Client struct {
	key     string
	baseURL string
	model   string
	http    *retryablehttp.Client
	limiter *rate.Limiter
}

func NewClient(cfg Config) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryWaitMin = 500 * time.Millisecond
	rc.RetryWaitMax = 4 * time.Second
	rc.RetryMax = cfg.MaxRetries
	if rc.RetryMax < 0 {
		rc.RetryMax = 0
	}
	rc.HTTPClient.Timeout = cfg.Timeout
	if rc.HTTPClient.Timeout <= 0 {
		rc.HTTPClient.Timeout = 20 * time.Second
	}
	// Hand the final response back so status codes can be mapped below.
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	rc.Logger = nil
	if cfg.Logger != nil {
		rc.Logger = leveled{cfg.Logger.Named("perplexity").Sugar()}
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	return &Client{
		key:     cfg.APIKey,
		baseURL: baseURL,
		model:   model,
		http:    rc,
		limiter: rate.NewLimiter(limit, 1),
	}
}

// Source is the label stored with enrichment produced by this client.
func (c *Client) Source() string { return SourceLabel }

// LookupHOA asks the search model for public facts about an HOA. A reply
// that cannot be read as JSON is reported as found=false, not as an error.
func (c *Client) LookupHOA(ctx context.Context, q hoa.LookupQuery) (hoa.LookupResult, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return hoa.LookupResult{}, err
	}
	body, err := json.Marshal(chatRequest{
		Model:       c.model,
		Temperature: 0.1,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt(q)},
		},
	})
	if err != nil {
		return hoa.LookupResult{}, err
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return hoa.LookupResult{}, err
	}
	req.Header.Set("accept", "application/json")
	req.Header.Set("content-type", "application/json")
	req.Header.Set("authorization", "Bearer "+c.key)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return hoa.LookupResult{}, fmt.Errorf("perplexity request: %w", err)
	}
	defer resp.Body.Close()
	raw, err := ioReadAllLimit(resp.Body, 1<<20)
	elapsed := time.Since(start)
	if err != nil {
		return hoa.LookupResult{}, fmt.Errorf("perplexity read: %w", err)
	}
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return hoa.LookupResult{}, ErrRateLimited
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return hoa.LookupResult{}, ErrUnauthorized
	case resp.StatusCode >= 400:
		return hoa.LookupResult{}, fmt.Errorf("perplexity error %d: %s", resp.StatusCode, truncate(string(raw), 300))
	}

	var cr chatResponse
	if err := json.Unmarshal(raw, &cr); err != nil {
		return hoa.LookupResult{}, fmt.Errorf("perplexity decode: %w", err)
	}
	if len(cr.Choices) == 0 {
		return hoa.LookupResult{}, errors.New("perplexity returned no choices")
	}
	res := mapAnswer(cr.Choices[0].Message.Content)
	res.Success = true
	res.Citations = append([]string(nil), cr.Citations...)
	res.ResponseTime = elapsed
	res.Raw = raw
	return res, nil
}

func ioReadAllLimit(r io.Reader, limit int64) ([]byte, error) {
	b, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(b)) > limit {
		return nil, errors.New("payload too large")
	}
	return b, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

type leveled struct{ s *zap.SugaredLogger }

func (l leveled) Error(msg string, kv ...interface{}) { l.s.Errorw(msg, kv...) }
func (l leveled) Info(msg string, kv ...interface{})  { l.s.Debugw(msg, kv...) }
func (l leveled) Debug(msg string, kv ...interface{}) { l.s.Debugw(msg, kv...) }
func (l leveled) Warn(msg string, kv ...interface{})  { l.s.Warnw(msg, kv...) }
