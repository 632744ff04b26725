package middleware

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/university-events/internal/config"
)

// teeWriter forwards the response to the client and keeps a copy of up
// to limit bytes.  overflow is set once the body outgrows the copy.
type teeWriter struct {
	http.ResponseWriter
	status   int
	kept     bytes.Buffer
	limit    int
	overflow bool
}

func (w *teeWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *teeWriter) Write(b []byte) (int, error) {
	if !w.overflow {
		if w.limit > 0 && w.kept.Len()+len(b) > w.limit {
			w.overflow = true
			w.kept.Reset()
		} else {
			w.kept.Write(b)
		}
	}
	return w.ResponseWriter.Write(b)
}

// storedResponse is what the cache keeps per key.
type storedResponse struct {
	Status int         `json:"status"`
	Header http.Header `json:"header"`
	Body   []byte      `json:"body"`
}

func (sr storedResponse) replay(c echo.Context) {
	h := c.Response().Header()
	for k, vals := range sr.Header {
		if strings.EqualFold(k, echo.HeaderContentLength) {
			continue
		}
		for _, v := range vals {
			h.Add(k, v)
		}
	}
	h.Set("X-Cache", "HIT")
	c.Response().WriteHeader(sr.Status)
	_, _ = c.Response().Write(sr.Body)
}

// cacheKey hashes the parts of the request the strategy cares about
// under the configured prefix, so CachePurger can find every entry.
func cacheKey(cfg config.CacheConfig, c echo.Context) string {
	r := c.Request()
	parts := []string{c.Path()}
	switch strings.ToLower(cfg.KeyStrategy) {
	case "route":
	case "method_route":
		parts = append(parts, r.Method)
	case "method_route_query":
		parts = append(parts, r.Method, r.URL.RawQuery)
	default: // route_query
		parts = append(parts, r.URL.RawQuery)
	}
	sum := sha1.Sum([]byte(strings.Join(parts, "\x00")))
	return fmt.Sprintf("%s:%x", cfg.Prefix, sum)
}

// NewRedisCache serves repeated reads of the wrapped routes from Redis.
// Only 200 responses are stored, headers included, for cfg.TTL.
func NewRedisCache(cfg config.CacheConfig, rdb *redis.Client) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 15 * time.Second
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !cfg.Methods[strings.ToUpper(c.Request().Method)] {
				return next(c)
			}
			ctx := c.Request().Context()
			key := cacheKey(cfg, c)

			if raw, err := rdb.Get(ctx, key).Bytes(); err == nil {
				var sr storedResponse
				if json.Unmarshal(raw, &sr) == nil {
					sr.replay(c)
					return nil
				}
			}

			tw := &teeWriter{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: cfg.MaxBodyBytes}
			c.Response().Writer = tw
			c.Response().Header().Set("X-Cache", "MISS")

			if err := next(c); err != nil {
				return err
			}
			if tw.status != http.StatusOK || tw.overflow {
				return nil
			}
			hdr := c.Response().Header().Clone()
			hdr.Del("X-Cache")
			raw, err := json.Marshal(storedResponse{Status: tw.status, Header: hdr, Body: tw.kept.Bytes()})
			if err != nil {
				return nil
			}
			if err := rdb.Set(context.WithoutCancel(ctx), key, raw, ttl).Err(); err != nil {
				logrus.WithError(err).WithField("key", key).Warn("cache store failed")
			}
			return nil
		}
	}
}

// CachePurger drops every cached response under a prefix.  Handlers call
// it after writes that change what the cached listing shows.
type CachePurger struct {
	rdb    *redis.Client
	prefix string
}

// NewCachePurger returns nil when there is no Redis to purge; a nil
// purger is safe to call.
func NewCachePurger(cfg config.CacheConfig, rdb *redis.Client) *CachePurger {
	if !cfg.Enabled || rdb == nil {
		return nil
	}
	return &CachePurger{rdb: rdb, prefix: cfg.Prefix}
}

func (p *CachePurger) Purge(ctx context.Context) {
	if p == nil {
		return
	}
	iter := p.rdb.Scan(ctx, 0, p.prefix+":*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		logrus.WithError(err).Warn("cache purge scan failed")
		return
	}
	if len(keys) > 0 {
		if err := p.rdb.Del(ctx, keys...).Err(); err != nil {
			logrus.WithError(err).Warn("cache purge failed")
		}
	}
}
