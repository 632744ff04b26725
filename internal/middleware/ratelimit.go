package middleware

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/university-events/internal/config"
)

// takeScript refills the bucket at KEYS[1] by whole intervals, then tries
// to take one token.  Returns {allowed, left, wait_ms}.
var takeScript = redis.NewScript(`
local cap, per, every = tonumber(ARGV[2]), tonumber(ARGV[3]), tonumber(ARGV[4])
local now = tonumber(ARGV[1])
local left = tonumber(redis.call('HGET', KEYS[1], 'left') or cap)
local since = tonumber(redis.call('HGET', KEYS[1], 'since') or now)

local steps = math.floor(math.max(0, now - since) / every)
if steps > 0 then
	left = math.min(cap, left + steps * per)
	since = since + steps * every
end

local wait = 0
local ok = 0
if left > 0 then
	ok = 1
	left = left - 1
else
	wait = math.max(0, every - (now - since))
end
redis.call('HSET', KEYS[1], 'left', left, 'since', since)
redis.call('EXPIRE', KEYS[1], tonumber(ARGV[5]))
return { ok, left, wait }
`)

// maxPeekBytes bounds how much of a request body the limiter reads when
// it keys on the submitted email.
const maxPeekBytes = 64 << 10

type verdict struct {
	allowed bool
	left    int64
	wait    time.Duration
}

type bucket struct {
	rdb *redis.Client
	cfg config.RateLimitConfig
}

func (b bucket) take(ctx context.Context, key string) (verdict, error) {
	res, err := takeScript.Run(ctx, b.rdb, []string{key},
		time.Now().UnixMilli(),
		b.cfg.Capacity,
		b.cfg.RefillTokens,
		b.cfg.RefillInterval.Milliseconds(),
		int64(b.cfg.TTL/time.Second),
	).Int64Slice()
	if err != nil {
		return verdict{}, err
	}
	if len(res) != 3 {
		return verdict{}, fmt.Errorf("bucket script returned %d values", len(res))
	}
	return verdict{allowed: res[0] == 1, left: res[1], wait: time.Duration(res[2]) * time.Millisecond}, nil
}

// NewTokenBucket throttles the routes it wraps, the login and
// registration endpoints, to slow down credential guessing.  With the
// "ip_email" strategy attempts are counted per address and per target
// account, so spreading guesses over many IPs does not help.  Without
// Redis or when disabled it is a no-op, and a Redis error lets the
// request through.
func NewTokenBucket(cfg config.RateLimitConfig, rdb *redis.Client) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	b := bucket{rdb: rdb, cfg: cfg}
	log := logrus.WithField("component", "ratelimit")

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(cfg.Capacity))

			for _, key := range rateKeys(cfg, c) {
				v, err := b.take(ctx, key)
				if err != nil {
					log.WithError(err).WithField("key", key).Warn("redis error, allowing request")
					continue
				}
				h.Set("X-RateLimit-Remaining", strconv.FormatInt(v.left, 10))
				if cfg.Debug {
					h.Add("X-RateLimit-Key", key)
				}
				if !v.allowed {
					secs := int(math.Ceil(v.wait.Seconds()))
					h.Set("Retry-After", strconv.Itoa(secs))
					log.WithFields(logrus.Fields{"key": key, "wait": v.wait}).Debug("blocked")
					return c.JSON(http.StatusTooManyRequests, echo.Map{
						"errors":      []string{"Too many attempts. Please wait and try again."},
						"retry_after": secs,
					})
				}
			}
			return next(c)
		}
	}
}

// rateKeys lists the buckets a request draws from.  Every key must have
// a token left for the request to pass.
func rateKeys(cfg config.RateLimitConfig, c echo.Context) []string {
	ip := c.RealIP()
	if ip == "" {
		ip = "unknown"
	}
	route := c.Request().Method + " " + c.Path()
	join := func(parts ...string) string { return cfg.Prefix + ":" + strings.Join(parts, ":") }

	switch strings.ToLower(cfg.KeyStrategy) {
	case "ip":
		return []string{join("ip", ip)}
	case "user":
		return []string{join("user", userID(c))}
	case "route":
		return []string{join("route", route)}
	case "ip_email":
		keys := []string{join("ip", ip, "route", route)}
		if email := submittedEmail(c); email != "" {
			sum := sha1.Sum([]byte(email))
			keys = append(keys, join("email", fmt.Sprintf("%x", sum[:8]), "route", route))
		}
		return keys
	default: // ip_route
		return []string{join("ip", ip, "route", route)}
	}
}

// submittedEmail reads the email field from a JSON or form body and puts
// the body back for the handler.  Addresses are lowercased so case
// variants share a bucket.
func submittedEmail(c echo.Context) string {
	r := c.Request()
	if r.Body == nil {
		return ""
	}
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxPeekBytes))
	r.Body = io.NopCloser(io.MultiReader(bytes.NewReader(raw), r.Body))
	if err != nil || len(raw) == 0 {
		return ""
	}

	var email string
	if strings.HasPrefix(r.Header.Get(echo.HeaderContentType), echo.MIMEApplicationForm) {
		if vals, err := url.ParseQuery(string(raw)); err == nil {
			email = vals.Get("email")
		}
	} else {
		var body struct {
			Email string `json:"email"`
		}
		if json.Unmarshal(raw, &body) == nil {
			email = body.Email
		}
	}
	return strings.ToLower(strings.TrimSpace(email))
}
