package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFromFile_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
notifications:
  remote:
    base_url: http://intake.local/api/
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "intake-notifications", cfg.App.Name)
	assert.Equal(t, ":8080", cfg.App.HTTPAddress)
	assert.Equal(t, RelayProviderEmailJS, cfg.Notifications.Relay.Provider)
	assert.Equal(t, DefaultRelayURL, cfg.Notifications.Relay.URL)
	assert.Equal(t, "http://intake.local/api", cfg.Notifications.Remote.BaseURL)
	assert.Equal(t, DefaultFromName, cfg.Notifications.Defaults.FromName)
	assert.Equal(t, DefaultFromEmail, cfg.Notifications.Defaults.FromEmail)
	assert.Equal(t, 5*time.Minute, cfg.Notifications.AdminCacheTTL())
	assert.Equal(t, 5*time.Second, cfg.Notifications.RemoteTimeout())
	assert.Equal(t, 10*time.Second, cfg.Notifications.RelayTimeout())
	assert.False(t, cfg.Database.Postgres.Enabled())
	assert.False(t, cfg.Database.Redis.Enabled())
}

func TestLoadFromFile_ExpandsEnvPlaceholders(t *testing.T) {
	t.Setenv("TEST_NOTIFY_SERVICE_ID", "svc-from-env")
	t.Setenv("TEST_NOTIFY_UNSET", "")
	path := writeConfig(t, `
notifications:
  relay:
    service_id: ${TEST_NOTIFY_SERVICE_ID}
    template_id: ${TEST_NOTIFY_UNSET}
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	values := cfg.Notifications.RelayValues()
	assert.Equal(t, "svc-from-env", values["service_id"])
	assert.Equal(t, "", values["template_id"])
}

func TestLoadFromFile_Validation(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{
			name: "unknown provider",
			body: `
notifications:
  relay:
    provider: carrier-pigeon
`,
			wantErr: "not supported",
		},
		{
			name: "ses without region",
			body: `
notifications:
  relay:
    provider: SES
`,
			wantErr: "integrations.aws.region",
		},
		{
			name: "alerts without region",
			body: `
notifications:
  alerts:
    sns_topic_arn: arn:aws:sns:ap-southeast-1:123:alerts
`,
			wantErr: "sns_topic_arn",
		},
		{
			name: "postgres host without database",
			body: `
database:
  postgres:
    host: localhost
    user: intake
`,
			wantErr: "database.postgres.database",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("AWS_REGION", "")
			_, err := LoadFromFile(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadFromFile_SESWithRegion(t *testing.T) {
	t.Setenv("AWS_REGION", "ap-southeast-3")
	cfg, err := LoadFromFile(writeConfig(t, `
notifications:
  relay:
    provider: ses
`))
	require.NoError(t, err)
	assert.Equal(t, RelayProviderSES, cfg.Notifications.Relay.Provider)
	assert.Equal(t, "ap-southeast-3", cfg.Integrations.AWS.Region)
}

func TestGetWorkerConfig(t *testing.T) {
	cfg := &Config{Workers: map[string]WorkerConfig{
		"notify-submission-created": {Enabled: false, MaxJobsActive: 2, Timeout: 1000, MaxRetries: 1},
	}}

	assert.Equal(t, 2, GetWorkerConfig(cfg, "notify-submission-created").MaxJobsActive)
	assert.False(t, GetWorkerConfig(cfg, "notify-submission-created").Enabled)

	fallback := GetWorkerConfig(cfg, "unknown")
	assert.True(t, fallback.Enabled)
	assert.Equal(t, 5, fallback.MaxJobsActive)
}

func TestPostgresDSN(t *testing.T) {
	p := PostgresConfig{Host: "db", Port: 5432, User: "u", Password: "p", Database: "intake", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=intake sslmode=disable", p.GetDSN())
}
