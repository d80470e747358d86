package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"intake-notifications/internal/common/config"
	"intake-notifications/internal/notification/resolver"
)

type relayStub struct {
	mu         sync.Mutex
	recipients []string
}

func newRelayServer(t *testing.T, stub *relayStub) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			ServiceID      string            `json:"service_id"`
			TemplateParams map[string]string `json:"template_params"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		stub.mu.Lock()
		stub.recipients = append(stub.recipients, body.TemplateParams["to_email"])
		stub.mu.Unlock()
		_, _ = w.Write([]byte("OK"))
	}))
	t.Cleanup(server.Close)
	return server
}

func clearRelayEnv(t *testing.T) {
	for _, name := range resolver.AllVars {
		t.Setenv(name, "")
	}
}

func testConfig(relayURL, remoteURL string) *config.Config {
	cfg := &config.Config{}
	cfg.Observability.ServiceName = "intake-notifications-test"
	cfg.Notifications.Relay.Provider = config.RelayProviderEmailJS
	cfg.Notifications.Relay.URL = relayURL
	cfg.Notifications.Remote.BaseURL = remoteURL
	cfg.Notifications.Defaults.FromName = config.DefaultFromName
	cfg.Notifications.Defaults.FromEmail = config.DefaultFromEmail
	return cfg
}

func TestNew_ConfigFileFallbackDrivesTestSend(t *testing.T) {
	clearRelayEnv(t)
	stub := &relayStub{}
	relayServer := newRelayServer(t, stub)

	cfg := testConfig(relayServer.URL, "")
	cfg.Notifications.Relay.ServiceID = "svc1"
	cfg.Notifications.Relay.TemplateID = "tpl1"
	cfg.Notifications.Relay.PublicKey = "pub1"

	a, err := New(context.Background(), cfg, zaptest.NewLogger(t), Options{})
	require.NoError(t, err)
	defer a.Close()

	env := a.Harness.CheckEnvironment()
	assert.True(t, env.Configured)
	assert.Equal(t, resolver.MechanismConfigFile, env.Sources[resolver.VarServiceID])

	require.True(t, a.Service.Bootstrap(context.Background()))
	assert.Equal(t, resolver.SourceEnvironment, a.Service.GetConfig().Source)

	res := a.Service.Test(context.Background(), "ops@test.com")
	assert.True(t, res.Success, res.Message)
	assert.Equal(t, []string{"ops@test.com"}, stub.recipients)
}

func TestNew_RemoteConfigAndAdminDirectory(t *testing.T) {
	clearRelayEnv(t)
	stub := &relayStub{}
	relayServer := newRelayServer(t, stub)

	remote := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/notification-status":
			_, _ = w.Write([]byte(`{"configured":true}`))
		case "/notification-full-config":
			_, _ = w.Write([]byte(`{"serviceId":"remote-svc","templateId":"remote-tpl","publicKey":"remote-pub"}`))
		case "/admin-emails":
			_, _ = w.Write([]byte(`{"emails":["admin@test.com","ops@test.com"]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer remote.Close()

	cfg := testConfig(relayServer.URL, remote.URL)
	cfg.Notifications.Relay.ServiceID = "file-svc"
	cfg.Notifications.Relay.TemplateID = "file-tpl"
	cfg.Notifications.Relay.PublicKey = "file-pub"

	a, err := New(context.Background(), cfg, zaptest.NewLogger(t), Options{})
	require.NoError(t, err)
	defer a.Close()

	require.True(t, a.Service.Bootstrap(context.Background()))
	assert.Equal(t, "remote-svc", a.Service.GetConfig().ServiceID)

	ready := a.Harness.CheckReadiness(context.Background())
	assert.True(t, ready.Ready)
	assert.Equal(t, 2, ready.AdminEmailCount)

	flow := a.Harness.RunFullFlow(context.Background(), "")
	assert.True(t, flow.Success, flow.Message)
	assert.Equal(t, []string{"admin@test.com"}, stub.recipients)
}

func TestNew_UnresolvedLeavesServiceUnconfigured(t *testing.T) {
	clearRelayEnv(t)

	a, err := New(context.Background(), testConfig("http://127.0.0.1:1", ""), zaptest.NewLogger(t), Options{})
	require.NoError(t, err)
	defer a.Close()

	assert.False(t, a.Service.Bootstrap(context.Background()))
	assert.False(t, a.Service.IsConfigured())
	assert.False(t, a.Harness.CheckReadiness(context.Background()).Ready)
}

func TestBootstrapWithin(t *testing.T) {
	t.Run("first attempt finishes inside the wait", func(t *testing.T) {
		clearRelayEnv(t)
		cfg := testConfig("http://127.0.0.1:1", "")
		cfg.Notifications.Relay.ServiceID = "svc1"
		cfg.Notifications.Relay.TemplateID = "tpl1"
		cfg.Notifications.Relay.PublicKey = "pub1"

		a, err := New(context.Background(), cfg, zaptest.NewLogger(t), Options{})
		require.NoError(t, err)
		defer a.Close()

		configured, finished := a.BootstrapWithin(context.Background(), 5*time.Second)
		assert.True(t, finished)
		assert.True(t, configured)
	})

	t.Run("unresolved is reported as finished", func(t *testing.T) {
		clearRelayEnv(t)
		a, err := New(context.Background(), testConfig("http://127.0.0.1:1", ""), zaptest.NewLogger(t), Options{})
		require.NoError(t, err)
		defer a.Close()

		configured, finished := a.BootstrapWithin(context.Background(), 5*time.Second)
		assert.True(t, finished)
		assert.False(t, configured)
	})

	t.Run("slow remote runs out the wait and resolves later", func(t *testing.T) {
		clearRelayEnv(t)
		release := make(chan struct{})
		remote := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			<-release
			w.Header().Set("Content-Type", "application/json")
			switch r.URL.Path {
			case "/notification-status":
				_, _ = w.Write([]byte(`{"configured":true}`))
			case "/notification-full-config":
				_, _ = w.Write([]byte(`{"serviceId":"remote-svc","templateId":"remote-tpl","publicKey":"remote-pub"}`))
			default:
				w.WriteHeader(http.StatusNotFound)
			}
		}))
		defer remote.Close()

		a, err := New(context.Background(), testConfig("http://127.0.0.1:1", remote.URL), zap.NewNop(), Options{})
		require.NoError(t, err)
		defer a.Close()

		start := time.Now()
		configured, finished := a.BootstrapWithin(context.Background(), 50*time.Millisecond)
		assert.False(t, finished)
		assert.False(t, configured)
		assert.Less(t, time.Since(start), 2*time.Second)

		close(release)
		assert.Eventually(t, a.Service.IsConfigured, 5*time.Second, 10*time.Millisecond)
		assert.Equal(t, "remote-svc", a.Service.GetConfig().ServiceID)
	})
}
