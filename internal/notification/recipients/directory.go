// Package recipients loads the administrator address list from the intake
// API, with a Redis read-through cache in front of it.
package recipients

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"intake-notifications/internal/common/auth"
	"intake-notifications/internal/common/errors"
	commonhttp "intake-notifications/internal/common/http"
	"intake-notifications/internal/common/logger"
	"intake-notifications/internal/common/metrics"
)

const (
	CacheKey        = "notify:admin-emails"
	adminEmailsPath = "/admin-emails"
)

type adminEmailsResponse struct {
	Emails []string `json:"emails"`
}

type Directory struct {
	baseURL  string
	client   *commonhttp.Client
	tokens   auth.TokenSource
	cache    redis.Cmdable
	cacheTTL time.Duration
	logger   logger.Logger
}

// Options configures a Directory. Cache and Tokens are optional.
type Options struct {
	BaseURL  string
	Client   *commonhttp.Client
	Tokens   auth.TokenSource
	Cache    redis.Cmdable
	CacheTTL time.Duration
	Logger   logger.Logger
}

func NewDirectory(opts Options) *Directory {
	return &Directory{
		baseURL:  strings.TrimRight(opts.BaseURL, "/"),
		client:   opts.Client,
		tokens:   opts.Tokens,
		cache:    opts.Cache,
		cacheTTL: opts.CacheTTL,
		logger:   opts.Logger.WithFields(map[string]interface{}{"component": "admin-directory"}),
	}
}

// AdminEmails returns the de-duplicated administrator addresses. An empty list is not an error.
func (d *Directory) AdminEmails(ctx context.Context) ([]string, error) {
	if emails, ok := d.fromCache(ctx); ok {
		metrics.AdminDirectoryLookups.WithLabelValues("cache").Inc()
		return emails, nil
	}

	emails, err := d.fetch(ctx)
	if err != nil {
		metrics.AdminDirectoryLookups.WithLabelValues("error").Inc()
		return nil, errors.NewAdminDirectoryUnavailableError(err)
	}
	metrics.AdminDirectoryLookups.WithLabelValues("remote").Inc()

	d.store(ctx, emails)
	return emails, nil
}

// Invalidate drops the cached list.
func (d *Directory) Invalidate(ctx context.Context) error {
	if d.cache == nil {
		return nil
	}
	return d.cache.Del(ctx, CacheKey).Err()
}

func (d *Directory) fetch(ctx context.Context) ([]string, error) {
	if d.baseURL == "" {
		return nil, fmt.Errorf("admin directory URL is not configured")
	}

	headers := map[string]string{}
	if d.tokens != nil {
		token, err := d.tokens.Token(ctx)
		if err != nil {
			return nil, fmt.Errorf("access token: %w", err)
		}
		headers["Authorization"] = "Bearer " + token
	}

	var resp adminEmailsResponse
	if err := d.client.GetJSON(ctx, d.baseURL+adminEmailsPath, headers, &resp); err != nil {
		return nil, err
	}
	return Normalize(resp.Emails), nil
}

func (d *Directory) fromCache(ctx context.Context) ([]string, bool) {
	if d.cache == nil {
		return nil, false
	}

	raw, err := d.cache.Get(ctx, CacheKey).Result()
	if err != nil {
		if !stderrors.Is(err, redis.Nil) {
			d.logger.Warn("admin email cache read failed", map[string]interface{}{"error": err.Error()})
		}
		return nil, false
	}

	var emails []string
	if err := json.Unmarshal([]byte(raw), &emails); err != nil {
		d.logger.Warn("admin email cache entry is corrupt", map[string]interface{}{"error": err.Error()})
		return nil, false
	}
	return emails, true
}

func (d *Directory) store(ctx context.Context, emails []string) {
	if d.cache == nil || len(emails) == 0 {
		return
	}

	data, err := json.Marshal(emails)
	if err != nil {
		return
	}
	if err := d.cache.Set(ctx, CacheKey, data, d.cacheTTL).Err(); err != nil {
		d.logger.Warn("admin email cache write failed", map[string]interface{}{"error": err.Error()})
	}
}

// Normalize trims addresses, drops blanks and removes case-insensitive
// duplicates while keeping first-seen order.
func Normalize(emails []string) []string {
	out := make([]string, 0, len(emails))
	seen := make(map[string]struct{}, len(emails))
	for _, e := range emails {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		key := strings.ToLower(e)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, e)
	}
	return out
}
