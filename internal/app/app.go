// Package app wires the notification pipeline from configuration. Both the
// worker process and notifyctl build on it.
package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"intake-notifications/internal/common/auth"
	awsclients "intake-notifications/internal/common/aws"
	"intake-notifications/internal/common/config"
	"intake-notifications/internal/common/database"
	commonhttp "intake-notifications/internal/common/http"
	"intake-notifications/internal/common/logger"
	"intake-notifications/internal/common/observability"
	"intake-notifications/internal/notification/alert"
	"intake-notifications/internal/notification/audit"
	"intake-notifications/internal/notification/diagnostics"
	"intake-notifications/internal/notification/dispatch"
	"intake-notifications/internal/notification/recipients"
	"intake-notifications/internal/notification/relay"
	"intake-notifications/internal/notification/resolver"
	"intake-notifications/internal/notification/service"
	"intake-notifications/internal/notification/template"
)

// Options toggles the parts only long-running processes need.
type Options struct {
	// Telemetry enables the Prometheus meter and the Jaeger exporter.
	Telemetry bool
	// Audit enables the Postgres delivery log.
	Audit bool
	// Location is used to render submission timestamps. Defaults to Asia/Jakarta.
	Location *time.Location
}

type App struct {
	Config *config.Config
	Logger logger.Logger
	Obs    *observability.Observability

	Environment *resolver.EnvironmentStrategy
	Resolver    *resolver.Resolver
	Builder     template.Builder
	Service     *service.Service
	Directory   *recipients.Directory
	Harness     *diagnostics.Harness

	audit    *audit.Store
	redis    *database.RedisClient
	postgres *database.PostgresClient
	zap      *zap.Logger
}

// New builds every collaborator. Optional backends (Redis, Postgres, SNS)
// that fail to come up are logged and left out.
func New(ctx context.Context, cfg *config.Config, zapLog *zap.Logger, opts Options) (*App, error) {
	a := &App{
		Config: cfg,
		Logger: logger.NewZapAdapter(zapLog),
		zap:    zapLog,
	}

	if opts.Telemetry {
		a.Obs = observability.New(cfg.Observability.ServiceName, cfg.Observability.JaegerEndpoint, a.Logger)
	} else {
		a.Obs = observability.NewNoop()
	}

	loc := opts.Location
	if loc == nil {
		loc = defaultLocation()
	}
	a.Builder = template.NewDefaultBuilder(loc)

	transport, err := newTransport(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var tokens auth.TokenSource
	if cfg.Auth.KeycloakEnabled() {
		kc := cfg.Auth.Keycloak
		tokens = auth.NewKeycloakClient(kc.URL, kc.Realm, kc.ClientID, kc.ClientSecret)
	}

	remoteClient := commonhttp.NewClient(cfg.Notifications.RemoteTimeout())

	// Remote first, local environment second.
	lookups := []resolver.Lookup{resolver.ProcessEnv()}
	if cfg.Notifications.DotEnvPath != "" {
		lookups = append(lookups, resolver.DotEnvFile(cfg.Notifications.DotEnvPath))
	}
	lookups = append(lookups, resolver.ConfigFile(cfg.Notifications.RelayValues()))
	a.Environment = resolver.NewEnvironmentStrategy(lookups...)

	var strategies []resolver.Strategy
	if remote := resolver.NewRemoteStrategy(cfg.Notifications.Remote.BaseURL, remoteClient, tokens); remote != nil {
		strategies = append(strategies, remote)
	}
	strategies = append(strategies, a.Environment)
	a.Resolver = resolver.New(a.Logger, strategies...)

	dirOpts := recipients.Options{
		BaseURL:  cfg.Notifications.Remote.BaseURL,
		Client:   remoteClient,
		Tokens:   tokens,
		CacheTTL: cfg.Notifications.AdminCacheTTL(),
		Logger:   a.Logger,
	}
	if cfg.Database.Redis.Enabled() {
		if rc := a.connectRedis(ctx); rc != nil {
			dirOpts.Cache = rc.GetClient()
		}
	}
	a.Directory = recipients.NewDirectory(dirOpts)

	svcOpts := service.Options{
		Resolver:         a.Resolver,
		Builder:          a.Builder,
		Dispatcher:       dispatch.New(transport, a.Logger, a.Obs.Tracer()),
		Obs:              a.Obs,
		Logger:           a.Logger,
		DefaultFromName:  cfg.Notifications.Defaults.FromName,
		DefaultFromEmail: cfg.Notifications.Defaults.FromEmail,
	}
	if opts.Audit && cfg.Database.Postgres.Enabled() {
		if store := a.connectAudit(ctx); store != nil {
			svcOpts.Audit = store
		}
	}
	if topic := cfg.Notifications.Alerts.SNSTopicARN; topic != "" {
		snsClient, err := awsclients.NewSNSClient(ctx, cfg.Integrations.AWS.Region)
		if err != nil {
			a.Logger.Warn("operator alerts disabled", map[string]interface{}{"error": err.Error()})
		} else {
			svcOpts.Alerts = alert.NewPublisher(snsClient, topic)
		}
	}
	a.Service = service.New(svcOpts)

	a.Harness = diagnostics.NewHarness(a.Environment, a.Service, a.Directory, a.Builder, a.Logger)
	return a, nil
}

func newTransport(ctx context.Context, cfg *config.Config) (relay.Transport, error) {
	switch cfg.Notifications.Relay.Provider {
	case config.RelayProviderSES:
		sesClient, err := awsclients.NewSESClient(ctx, cfg.Integrations.AWS.Region)
		if err != nil {
			return nil, fmt.Errorf("create SES client: %w", err)
		}
		return relay.NewSESRelay(sesClient), nil
	default:
		return relay.NewEmailJSRelay(cfg.Notifications.Relay.URL, commonhttp.NewClient(cfg.Notifications.RelayTimeout())), nil
	}
}

func (a *App) connectRedis(ctx context.Context) *database.RedisClient {
	rc, err := database.NewRedis(a.Config.Database.Redis)
	if err == nil {
		err = rc.Ping(ctx)
	}
	if err != nil {
		a.Logger.Warn("admin email cache disabled", map[string]interface{}{"error": err.Error()})
		if rc != nil {
			_ = rc.Close()
		}
		return nil
	}
	a.redis = rc
	return rc
}

func (a *App) connectAudit(ctx context.Context) *audit.Store {
	pg, err := database.NewPostgres(a.Config.Database.Postgres)
	if err == nil {
		err = pg.Ping(ctx)
	}
	var store *audit.Store
	if err == nil {
		store = audit.NewStore(pg.GetDB())
		err = store.EnsureSchema(ctx)
	}
	if err != nil {
		a.Logger.Warn("delivery audit log disabled", map[string]interface{}{"error": err.Error()})
		if pg != nil {
			_ = pg.Close()
		}
		return nil
	}
	a.postgres = pg
	a.audit = store
	return store
}

// BootstrapWithin runs the first configuration resolution and waits up to
// wait for it. finished is false when the wait ran out; resolution then
// carries on in the background.
func (a *App) BootstrapWithin(ctx context.Context, wait time.Duration) (configured, finished bool) {
	done := make(chan bool, 1)
	go func() {
		done <- a.Service.Bootstrap(ctx)
	}()

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case configured = <-done:
		return configured, true
	case <-timer.C:
	case <-ctx.Done():
	}

	go func() {
		if <-done {
			a.Logger.Info("notification service configured after startup wait", map[string]interface{}{
				"source": a.Service.GetConfig().Source,
			})
		}
	}()
	return false, false
}

// AuditLog returns the delivery log, connecting on first use.
func (a *App) AuditLog(ctx context.Context) (*audit.Store, error) {
	if a.audit != nil {
		return a.audit, nil
	}
	if !a.Config.Database.Postgres.Enabled() {
		return nil, fmt.Errorf("delivery audit log needs database.postgres.host")
	}
	if store := a.connectAudit(ctx); store != nil {
		return store, nil
	}
	return nil, fmt.Errorf("delivery audit log unavailable")
}

// Close releases the backends opened by New.
func (a *App) Close() {
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.postgres != nil {
		_ = a.postgres.Close()
	}
	a.Obs.Shutdown()
	_ = a.zap.Sync()
}

func defaultLocation() *time.Location {
	loc, err := time.LoadLocation("Asia/Jakarta")
	if err != nil {
		return time.FixedZone("WIB", 7*60*60)
	}
	return loc
}
