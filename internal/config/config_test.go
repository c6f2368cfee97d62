package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("JWT_KEY", "k")
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("EMAIL_DRIVER", "log")
}

func TestLoad_Defaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Addr())
	assert.Equal(t, []string{"http://localhost:5173"}, cfg.CORSOrigins)
	assert.Equal(t, 5*time.Minute, cfg.OTPTTL)
	assert.Equal(t, time.Minute, cfg.AnalyticsInterval)
	assert.Equal(t, 5, cfg.OTPRatePerMinute)
	assert.Equal(t, []string{"admin", "academic_head"}, cfg.PrivilegedRoles)
	assert.Equal(t, "smart_notice", cfg.MongoDB)
}

func TestLoad_Overrides(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("PORT", "9000")
	t.Setenv("OTP_TTL", "90s")
	t.Setenv("CORS_ORIGINS", "https://a.edu, https://b.edu ,")
	t.Setenv("PRIVILEGED_ROLES", "dean")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Addr())
	assert.Equal(t, 90*time.Second, cfg.OTPTTL)
	assert.Equal(t, []string{"https://a.edu", "https://b.edu"}, cfg.CORSOrigins)
	assert.Equal(t, []string{"dean"}, cfg.PrivilegedRoles)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"missing jwt key", map[string]string{"JWT_KEY": ""}, "JWT_KEY"},
		{"mongo without uri", map[string]string{"STORE_DRIVER": "mongo"}, "MONGO_URI"},
		{"bad driver", map[string]string{"STORE_DRIVER": "sqlite"}, "STORE_DRIVER"},
		{"bad duration", map[string]string{"OTP_TTL": "soon"}, "OTP_TTL"},
		{"resend without key", map[string]string{"EMAIL_DRIVER": "resend"}, "RESEND_API_KEY"},
		{"negative ttl", map[string]string{"OTP_TTL": "-1m"}, "positive"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			setBaseEnv(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}
