package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "")
	t.Setenv("CAPACITY_MODE", "")
	t.Setenv("NOTIFY_SENDER", "")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, StorageLocal, cfg.StorageDriver)
	assert.Equal(t, CapacityAtomic, cfg.CapacityMode)
	assert.Equal(t, SenderLog, cfg.NotifySender)
	assert.Equal(t, 5, cfg.NotifyMaxAttempts)
	assert.Equal(t, 30*time.Second, cfg.NotifyRetryEvery)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "MONGO")
	t.Setenv("MONGODB_CONNSTRING", "mongodb://localhost:27017")
	t.Setenv("CAPACITY_MODE", "legacy")
	t.Setenv("NOTIFY_RETRY_EVERY", "5s")
	t.Setenv("RATE_LIMIT_RPS", "0.5")
	t.Setenv("SMTP_PORT", "not-a-number")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, StorageMongo, cfg.StorageDriver)
	assert.Equal(t, "mongodb://localhost:27017", cfg.MongoConnString)
	assert.Equal(t, CapacityLegacy, cfg.CapacityMode)
	assert.Equal(t, 5*time.Second, cfg.NotifyRetryEvery)
	assert.Equal(t, 0.5, cfg.RateLimitRPS)
	assert.Equal(t, 587, cfg.SMTPPort)
}

func TestFromEnvRejectsInvalidCombinations(t *testing.T) {
	tests := []struct {
		description string
		env         map[string]string
	}{
		{"mongo without conn string", map[string]string{"STORAGE_DRIVER": "mongo"}},
		{"postgres without dsn", map[string]string{"STORAGE_DRIVER": "postgres"}},
		{"unknown driver", map[string]string{"STORAGE_DRIVER": "sqlite"}},
		{"unknown capacity mode", map[string]string{"CAPACITY_MODE": "optimistic"}},
		{"smtp without host", map[string]string{"NOTIFY_SENDER": "smtp"}},
		{"unknown sender", map[string]string{"NOTIFY_SENDER": "pigeon"}},
		{"zero attempts", map[string]string{"NOTIFY_MAX_ATTEMPTS": "0"}},
		{"rate limit without burst", map[string]string{"RATE_LIMIT_RPS": "2", "RATE_LIMIT_BURST": "0"}},
	}

	for _, test := range tests {
		t.Run(test.description, func(t *testing.T) {
			t.Setenv("MONGODB_CONNSTRING", "")
			t.Setenv("POSTGRES_DSN", "")
			t.Setenv("SMTP_HOST", "")
			for k, v := range test.env {
				t.Setenv(k, v)
			}
			_, err := FromEnv()
			assert.Errorf(t, err, test.description)
		})
	}
}

func TestGetSecret(t *testing.T) {
	t.Setenv("TOUR_SECRET", "value")

	val, err := GetSecret("TOUR_SECRET")
	require.NoError(t, err)
	assert.Equal(t, "value", val)

	_, err = GetSecret("TOUR_SECRET_MISSING_FOR_SURE")
	assert.Error(t, err)
}

func TestFromEnvRateLimitDisabledAllowsZeroBurst(t *testing.T) {
	t.Setenv("RATE_LIMIT_RPS", "0")
	t.Setenv("RATE_LIMIT_BURST", "0")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, 0.0, cfg.RateLimitRPS)
}
