package middleware

import (
	"bytes"
	"context"
	"crypto/sha1"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/parking-lot-billing/internal/config"
)

// captureWriter tees the response body into a bounded buffer.
type captureWriter struct {
	http.ResponseWriter
	status int
	buf    bytes.Buffer
	limit  int
	over   bool
}

func (cw *captureWriter) WriteHeader(code int) {
	cw.status = code
	cw.ResponseWriter.WriteHeader(code)
}

func (cw *captureWriter) Write(b []byte) (int, error) {
	if !cw.over {
		if cw.limit > 0 && cw.buf.Len()+len(b) > cw.limit {
			cw.over = true
			cw.buf.Reset()
		} else {
			cw.buf.Write(b)
		}
	}
	return cw.ResponseWriter.Write(b)
}

// CacheKey is the Redis key of a cached GET response for path and query.
func CacheKey(cfg config.CacheConfig, path, rawQuery string) string {
	sum := sha1.Sum([]byte(path + "?" + rawQuery))
	return fmt.Sprintf("%s:%x", cfg.Prefix, sum[:])
}

// NewRedisCache caches successful JSON GET responses for cfg.TTL.  Bodies
// larger than cfg.MaxBodyBytes are served but not stored.
func NewRedisCache(cfg config.CacheConfig, rdb *redis.Client) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			r := c.Request()
			if r.Method != http.MethodGet {
				return next(c)
			}
			key := CacheKey(cfg, r.URL.Path, r.URL.RawQuery)

			if body, err := rdb.Get(r.Context(), key).Bytes(); err == nil {
				c.Response().Header().Set("X-Cache", "HIT")
				return c.JSONBlob(http.StatusOK, body)
			}

			cw := &captureWriter{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: cfg.MaxBodyBytes}
			c.Response().Writer = cw
			c.Response().Header().Set("X-Cache", "MISS")
			if err := next(c); err != nil {
				return err
			}
			if cw.status == http.StatusOK && !cw.over && cw.buf.Len() > 0 {
				_ = rdb.Set(context.Background(), key, cw.buf.Bytes(), ttl).Err()
			}
			return nil
		}
	}
}

// PurgeCached drops the cached response for path without a query string.
// Gate handlers call it after occupancy changed.
func PurgeCached(ctx context.Context, rdb *redis.Client, cfg config.CacheConfig, path string) {
	if rdb == nil || !cfg.Enabled {
		return
	}
	_ = rdb.Del(ctx, CacheKey(cfg, path, "")).Err()
}
