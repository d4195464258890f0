package env

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGetters(t *testing.T) {
	t.Setenv("HS_STR", "  value ")
	t.Setenv("HS_INT", "42")
	t.Setenv("HS_BAD_INT", "forty")
	t.Setenv("HS_FLOAT", "2.5")
	t.Setenv("HS_DUR", "90s")
	t.Setenv("HS_DUR_SECS", "15")
	t.Setenv("HS_BOOL", "yes")
	t.Setenv("HS_BOOL_OFF", "0")

	assert.Equal(t, "value", Get("HS_STR", "def"))
	assert.Equal(t, "def", Get("HS_UNSET", "def"))
	assert.Equal(t, 42, GetInt("HS_INT", 1))
	assert.Equal(t, 1, GetInt("HS_BAD_INT", 1))
	assert.InDelta(t, 2.5, GetFloat("HS_FLOAT", 0), 0.0001)
	assert.Equal(t, 90*time.Second, GetDuration("HS_DUR", time.Minute))
	assert.Equal(t, 15*time.Second, GetDuration("HS_DUR_SECS", time.Minute))
	assert.Equal(t, time.Minute, GetDuration("HS_UNSET", time.Minute))
	assert.True(t, GetBool("HS_BOOL", false))
	assert.False(t, GetBool("HS_BOOL_OFF", true))
	assert.True(t, GetBool("HS_UNSET", true))
}
