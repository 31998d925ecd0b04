package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lookupFrom(values map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	}
}

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse(lookupFrom(map[string]string{
		"DATABASE_URL": "postgres://localhost/budget",
		"JWT_SECRET":   "s3cret",
	}))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "demo", cfg.DemoUsername)
	assert.Equal(t, time.Hour, cfg.Sync.CheckInterval)
	assert.Equal(t, 24*time.Hour, cfg.Sync.StaleAfter)
	assert.Equal(t, int64(1), cfg.Sync.DefaultUserID)
	assert.False(t, cfg.Sync.SerializeLegs)
	assert.Equal(t, 800, cfg.Sync.PruneThreshold)
	assert.Equal(t, 4, cfg.Sync.RetentionMonths)
	assert.Equal(t, 30, cfg.Sync.DaysPerMonth)
	assert.Equal(t, 30*time.Second, cfg.ShutdownGrace)
	assert.False(t, cfg.AirtableConfigured())
}

func TestParseOverrides(t *testing.T) {
	cfg, err := Parse(lookupFrom(map[string]string{
		"DATABASE_URL":          "postgres://localhost/budget",
		"JWT_SECRET":            "s3cret",
		"ALLOWED_ORIGINS":       "https://a.example, https://b.example,",
		"AIRTABLE_ACCESS_TOKEN": "pat123",
		"AIRTABLE_DB_ID":        "app123",
		"SYNC_CHECK_INTERVAL":   "15m",
		"SYNC_DEFAULT_USER_ID":  "7",
		"SYNC_SERIALIZE_LEGS":   "true",
		"PRUNE_THRESHOLD":       "500",
	}))
	require.NoError(t, err)

	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.True(t, cfg.AirtableConfigured())
	assert.Equal(t, 15*time.Minute, cfg.Sync.CheckInterval)
	assert.Equal(t, int64(7), cfg.Sync.DefaultUserID)
	assert.True(t, cfg.Sync.SerializeLegs)
	assert.Equal(t, 500, cfg.Sync.PruneThreshold)
}

func TestParseRequiresDatabaseURL(t *testing.T) {
	_, err := Parse(lookupFrom(map[string]string{}))
	assert.EqualError(t, err, "DATABASE_URL is required")
}

func TestParseRequiresJWTSecret(t *testing.T) {
	for name, values := range map[string]map[string]string{
		"unset": {"DATABASE_URL": "postgres://localhost/budget"},
		"empty": {"DATABASE_URL": "postgres://localhost/budget", "JWT_SECRET": ""},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(lookupFrom(values))
			assert.EqualError(t, err, "JWT_SECRET is required")
		})
	}
}

func TestParseRejectsMalformedValues(t *testing.T) {
	_, err := Parse(lookupFrom(map[string]string{
		"DATABASE_URL":        "postgres://localhost/budget",
		"PRUNE_THRESHOLD":     "lots",
		"SYNC_CHECK_INTERVAL": "hourly",
	}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PRUNE_THRESHOLD")
	assert.Contains(t, err.Error(), "SYNC_CHECK_INTERVAL")
}
