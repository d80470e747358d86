// Package resolver finds a usable relay configuration by asking an ordered
// list of sources and keeping the first complete answer.
package resolver

import (
	"context"
	"fmt"

	"intake-notifications/internal/common/errors"
	"intake-notifications/internal/common/logger"
	"intake-notifications/internal/common/metrics"
	"intake-notifications/internal/models"
)

// Source labels recorded on resolved configurations and metrics.
const (
	SourceRemote      = "remote"
	SourceEnvironment = "environment"
	SourceManual      = "manual"
	sourceNone        = "none"
)

// Strategy is one configuration source. A nil config with a nil error means
// the source had nothing to offer.
type Strategy interface {
	Name() string
	Resolve(ctx context.Context) (*models.NotificationConfig, error)
}

type Resolver struct {
	strategies []Strategy
	logger     logger.Logger
}

// New builds a resolver that consults strategies in the given order.
func New(log logger.Logger, strategies ...Strategy) *Resolver {
	return &Resolver{
		strategies: strategies,
		logger:     log.WithFields(map[string]interface{}{"component": "config-resolver"}),
	}
}

// Resolve returns the first complete configuration, or nil when no source
// produced one. Source failures are logged and never returned.
func (r *Resolver) Resolve(ctx context.Context) *models.NotificationConfig {
	var lastMissing []string

	for _, s := range r.strategies {
		cfg, err := r.try(ctx, s)
		if err != nil {
			r.logger.Warn("configuration source failed", map[string]interface{}{
				"source": s.Name(),
				"error":  err.Error(),
			})
			continue
		}
		if cfg == nil {
			r.logger.Debug("configuration source returned nothing", map[string]interface{}{"source": s.Name()})
			continue
		}
		if !cfg.IsComplete() {
			lastMissing = cfg.MissingRequired()
			r.logger.Info("configuration source incomplete", map[string]interface{}{
				"source":  s.Name(),
				"missing": lastMissing,
			})
			continue
		}

		out := *cfg
		out.Source = s.Name()
		metrics.ConfigResolutions.WithLabelValues(s.Name()).Inc()
		r.logger.Info("notification configuration resolved", map[string]interface{}{
			"source":        s.Name(),
			"serviceId":     out.ServiceID,
			"hasPrivateKey": out.PrivateKey != "",
		})
		return &out
	}

	if lastMissing == nil {
		lastMissing = (*models.NotificationConfig)(nil).MissingRequired()
	}
	unresolved := errors.NewConfigUnresolvedError(lastMissing)
	metrics.ConfigResolutions.WithLabelValues(sourceNone).Inc()
	r.logger.Warn(unresolved.Message, map[string]interface{}{
		"code":    unresolved.Code,
		"details": unresolved.Details,
	})
	return nil
}

// try isolates a single strategy so a panicking source cannot break the chain.
func (r *Resolver) try(ctx context.Context, s Strategy) (cfg *models.NotificationConfig, err error) {
	defer func() {
		if p := recover(); p != nil {
			cfg, err = nil, fmt.Errorf("panic in %s source: %v", s.Name(), p)
		}
	}()
	return s.Resolve(ctx)
}
