package resolver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"intake-notifications/internal/common/auth"
	commonhttp "intake-notifications/internal/common/http"
	"intake-notifications/internal/common/logger"
	"intake-notifications/internal/models"
)

type remoteFixture struct {
	configured bool
	fullStatus int
	fullBody   string
	authHeader string
}

func newRemoteServer(t *testing.T, f *remoteFixture) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case statusPath:
			if f.configured {
				_, _ = w.Write([]byte(`{"configured":true}`))
			} else {
				_, _ = w.Write([]byte(`{"configured":false}`))
			}
		case fullConfigPath:
			f.authHeader = r.Header.Get("Authorization")
			if f.fullStatus != 0 {
				w.WriteHeader(f.fullStatus)
			}
			_, _ = w.Write([]byte(f.fullBody))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func completeEnv() Lookup {
	return StaticLookup(MechanismProcessEnv, map[string]string{
		VarServiceID:  "env-svc",
		VarTemplateID: "env-tpl",
		VarPublicKey:  "env-pub",
	})
}

func TestResolve_RemoteBeatsEnvironment(t *testing.T) {
	fixture := &remoteFixture{
		configured: true,
		fullBody:   `{"serviceId":"svc1","templateId":"tpl1","publicKey":"pub1","privateKey":"priv1","fromName":null}`,
	}
	server := newRemoteServer(t, fixture)

	r := New(logger.NewTestLogger(t),
		NewRemoteStrategy(server.URL, commonhttp.NewClient(time.Second), auth.StaticToken("tok")),
		NewEnvironmentStrategy(completeEnv()),
	)

	cfg := r.Resolve(context.Background())
	require.NotNil(t, cfg)
	assert.Equal(t, "svc1", cfg.ServiceID)
	assert.Equal(t, "tpl1", cfg.TemplateID)
	assert.Equal(t, "pub1", cfg.PublicKey)
	assert.Equal(t, "priv1", cfg.PrivateKey)
	assert.Equal(t, SourceRemote, cfg.Source)
	assert.Equal(t, "Bearer tok", fixture.authHeader)
}

func TestResolve_FallsBackToEnvironment(t *testing.T) {
	tests := []struct {
		name    string
		fixture *remoteFixture
	}{
		{name: "remote not configured", fixture: &remoteFixture{configured: false}},
		{name: "full config server error", fixture: &remoteFixture{configured: true, fullStatus: http.StatusInternalServerError, fullBody: `{}`}},
		{name: "full config malformed", fixture: &remoteFixture{configured: true, fullBody: `{"serviceId":`}},
		{name: "full config wrong types", fixture: &remoteFixture{configured: true, fullBody: `{"serviceId":1,"templateId":"t","publicKey":"p"}`}},
		{name: "full config incomplete", fixture: &remoteFixture{configured: true, fullBody: `{"serviceId":"s","templateId":"t","publicKey":"  "}`}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := newRemoteServer(t, tt.fixture)
			r := New(logger.NewNoOpLogger(),
				NewRemoteStrategy(server.URL, commonhttp.NewClient(time.Second), nil),
				NewEnvironmentStrategy(completeEnv()),
			)

			cfg := r.Resolve(context.Background())
			require.NotNil(t, cfg)
			assert.Equal(t, "env-svc", cfg.ServiceID)
			assert.Equal(t, SourceEnvironment, cfg.Source)
		})
	}
}

func TestResolve_RemoteUnreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	r := New(logger.NewNoOpLogger(),
		NewRemoteStrategy(url, commonhttp.NewClient(time.Second), nil),
		NewEnvironmentStrategy(completeEnv()),
	)
	cfg := r.Resolve(context.Background())
	require.NotNil(t, cfg)
	assert.Equal(t, SourceEnvironment, cfg.Source)
}

func TestResolve_TwoOfThreeEverywhereIsUnresolved(t *testing.T) {
	fixture := &remoteFixture{configured: true, fullBody: `{"serviceId":"svc1","templateId":"tpl1","publicKey":""}`}
	server := newRemoteServer(t, fixture)

	r := New(logger.NewNoOpLogger(),
		NewRemoteStrategy(server.URL, commonhttp.NewClient(time.Second), nil),
		NewEnvironmentStrategy(
			StaticLookup(MechanismProcessEnv, map[string]string{VarServiceID: "a", VarTemplateID: "b"}),
			StaticLookup(MechanismDotEnv, map[string]string{VarPublicKey: "undefined"}),
			ConfigFile(map[string]string{"public_key": "your_public_key"}),
		),
	)

	assert.Nil(t, r.Resolve(context.Background()))
}

func TestResolve_NoStrategies(t *testing.T) {
	assert.Nil(t, New(logger.NewNoOpLogger()).Resolve(context.Background()))
}

type panickingStrategy struct{}

func (panickingStrategy) Name() string { return "broken" }

func (panickingStrategy) Resolve(context.Context) (*models.NotificationConfig, error) {
	panic("boom")
}

func TestResolve_PanickingStrategyIsIsolated(t *testing.T) {
	r := New(logger.NewNoOpLogger(), panickingStrategy{}, NewEnvironmentStrategy(completeEnv()))

	var cfg *models.NotificationConfig
	assert.NotPanics(t, func() { cfg = r.Resolve(context.Background()) })
	require.NotNil(t, cfg)
	assert.Equal(t, SourceEnvironment, cfg.Source)
}

func TestNewRemoteStrategy_EmptyBaseURL(t *testing.T) {
	assert.Nil(t, NewRemoteStrategy("", commonhttp.NewClient(time.Second), nil))
}

func TestEnvironmentStrategy_MechanismOrder(t *testing.T) {
	dir := t.TempDir()
	dotenv := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(dotenv, []byte(
		"EMAILJS_SERVICE_ID=dotenv-svc\nEMAILJS_TEMPLATE_ID=dotenv-tpl\nEMAILJS_PUBLIC_KEY=<your public key>\n",
	), 0o600))

	t.Setenv(VarServiceID, "proc-svc")
	t.Setenv(VarTemplateID, "null")
	t.Setenv(VarPublicKey, "")

	strategy := NewEnvironmentStrategy(
		ProcessEnv(),
		DotEnvFile(dotenv),
		ConfigFile(map[string]string{"public_key": "file-pub", "from_name": "Dinas Kominfo"}),
	)

	snap := strategy.Inspect()
	assert.Equal(t, "proc-svc", snap.Values[VarServiceID])
	assert.Equal(t, MechanismProcessEnv, snap.Sources[VarServiceID])
	assert.Equal(t, "dotenv-tpl", snap.Values[VarTemplateID])
	assert.Equal(t, MechanismDotEnv, snap.Sources[VarTemplateID])
	assert.Equal(t, "file-pub", snap.Values[VarPublicKey])
	assert.Equal(t, MechanismConfigFile, snap.Sources[VarPublicKey])
	assert.Equal(t, MechanismConfigFile, snap.Sources[VarFromName])
	assert.False(t, snap.Found(VarPrivateKey))

	cfg, err := strategy.Resolve(context.Background())
	require.NoError(t, err)
	assert.True(t, cfg.IsComplete())
	assert.Equal(t, "Dinas Kominfo", cfg.FromName)

	// godotenv.Read must not leak into the process environment.
	assert.Equal(t, "null", os.Getenv(VarTemplateID))
}

func TestEnvironmentStrategy_NothingFound(t *testing.T) {
	strategy := NewEnvironmentStrategy(DotEnvFile(filepath.Join(t.TempDir(), "missing.env")))
	cfg, err := strategy.Resolve(context.Background())
	require.NoError(t, err)
	assert.Nil(t, cfg)
}

func TestIsSentinel(t *testing.T) {
	for _, v := range []string{"", "  ", "undefined", "NULL", "None", "changeme", "your_service_id", "YOUR_KEY", "<public-key>"} {
		assert.True(t, IsSentinel(v), v)
	}
	for _, v := range []string{"service_abc", "pub-key", "template_x1"} {
		assert.False(t, IsSentinel(v), v)
	}
}
