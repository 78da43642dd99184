package middleware

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/sadhanapeeth/sadhana-backend/api/responses"
	"github.com/sadhanapeeth/sadhana-backend/pkg/config"
	pkgerrors "github.com/sadhanapeeth/sadhana-backend/pkg/errors"
	"github.com/sadhanapeeth/sadhana-backend/pkg/logger"
)

// RateLimiter is the counter store backing the fixed-window limiter.
type RateLimiter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// DownloadRateLimit throttles per-user download issuance. A user with no
// context identity falls through untouched; the auth middleware has
// already rejected anonymous traffic on these routes.
func DownloadRateLimit(cfg config.RateLimitConfig, store RateLimiter, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if store == nil || cfg.DownloadLimit <= 0 || cfg.DownloadWindow <= 0 {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			userID := UserIDFromContext(ctx)
			if userID == "" {
				next.ServeHTTP(w, r)
				return
			}

			scope := fmt.Sprintf("download:%s", userID)
			allowed, count, err := store.FixedWindowAllow(ctx, scope, int64(cfg.DownloadLimit), cfg.DownloadWindow)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
				return
			}
			if !allowed {
				if logg != nil {
					logCtx := logg.WithFields(ctx, map[string]any{
						"attempts":       count,
						"limit":          cfg.DownloadLimit,
						"window_seconds": int(cfg.DownloadWindow.Seconds()),
					})
					logg.Warn(logCtx, "download.rate_limit.blocked")
				}
				responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "download rate limit exceeded"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
