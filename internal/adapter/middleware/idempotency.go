package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const (
	HeaderIdempotencyKey = "Idempotency-Key"
	HeaderRequestAt      = "X-Request-At"
	HeaderReplayed       = "Idempotent-Replayed"

	// pendingTTL bounds how long a crashed handler can hold a key.
	pendingTTL   = 60 * time.Second
	maxClockSkew = 10 * time.Minute
	storeTimeout = 2 * time.Second
)

type storedResponse struct {
	Pending     bool      `json:"pending"`
	Status      int       `json:"status,omitempty"`
	ContentType string    `json:"content_type,omitempty"`
	Body        []byte    `json:"body,omitempty"`
	Fingerprint string    `json:"fingerprint"`
	SentAt      time.Time `json:"sent_at"`
	StoredAt    time.Time `json:"stored_at"`
}

// replayStore keeps one storedResponse per replay key in Redis.
type replayStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func (s replayStore) reserve(ctx context.Context, key string, r storedResponse) (bool, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return false, err
	}
	return s.rdb.SetNX(ctx, key, b, pendingTTL).Result()
}

func (s replayStore) get(ctx context.Context, key string) (storedResponse, error) {
	var r storedResponse
	b, err := s.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return r, err
	}
	err = json.Unmarshal(b, &r)
	return r, err
}

func (s replayStore) complete(ctx context.Context, key string, r storedResponse) error {
	b, err := json.Marshal(r)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, key, b, s.ttl).Err()
}

func (s replayStore) release(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, key).Err()
}

// IdempotencyMiddleware replays the stored response of a mutating request
// whose Idempotency-Key the same caller already used on the same route.
// Requests without the header pass straight through. Must run after JWTAuth.
func IdempotencyMiddleware(rdb *redis.Client, ttl time.Duration, log logrus.FieldLogger) echo.MiddlewareFunc {
	if log == nil {
		log = logrus.StandardLogger()
	}
	store := replayStore{rdb: rdb, ttl: ttl}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			switch req.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				return next(c)
			}

			raw := req.Header.Get(HeaderIdempotencyKey)
			if raw == "" {
				return next(c)
			}
			key, ok := normalizeKey(raw)
			if !ok {
				return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid " + HeaderIdempotencyKey + " format"})
			}
			sentAt, err := parseRequestAt(req.Header.Get(HeaderRequestAt))
			if err != nil {
				return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
			}
			if !withinSkew(sentAt, time.Now().UTC()) {
				return c.JSON(http.StatusBadRequest, map[string]string{"error": HeaderRequestAt + " too skewed"})
			}
			caller, ok := CallerFrom(c)
			if !ok {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "missing caller"})
			}

			var body []byte
			if req.Body != nil {
				body, _ = io.ReadAll(req.Body)
			}
			req.Body = io.NopCloser(bytes.NewReader(body))

			route := c.Path()
			rk := replayKey(caller.ID, req.Method, route, key)
			fp := fingerprint(req.Method, route, body)
			entry := log.WithFields(logrus.Fields{"key": rk, "caller": caller.ID})

			ctx, cancel := context.WithTimeout(req.Context(), storeTimeout)
			defer cancel()

			reserved, err := store.reserve(ctx, rk, storedResponse{Pending: true, Fingerprint: fp, SentAt: sentAt, StoredAt: time.Now().UTC()})
			if err != nil {
				entry.WithError(err).Warn("idempotency store unavailable")
				return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "idempotency store unavailable"})
			}
			if !reserved {
				prev, err := store.get(ctx, rk)
				if err != nil {
					entry.WithError(err).Warn("idempotency entry unreadable")
				}
				switch {
				case prev.Fingerprint != "" && prev.Fingerprint != fp:
					return c.JSON(http.StatusConflict, map[string]string{"error": HeaderIdempotencyKey + " reused with different body"})
				case !prev.Pending && prev.Status != 0:
					c.Response().Header().Set(HeaderReplayed, "true")
					ct := prev.ContentType
					if ct == "" {
						ct = echo.MIMEApplicationJSONCharsetUTF8
					}
					return c.Blob(prev.Status, ct, prev.Body)
				default:
					return c.JSON(http.StatusConflict, map[string]string{"error": "request is already in progress"})
				}
			}

			cw := &captureWriter{ResponseWriter: c.Response().Writer, status: http.StatusOK}
			c.Response().Writer = cw
			if err := next(c); err != nil {
				c.Error(err)
			}

			// server errors are not final: free the key so the client may retry
			if cw.status >= http.StatusInternalServerError {
				if err := store.release(context.Background(), rk); err != nil {
					entry.WithError(err).Warn("idempotency key not released")
				}
				return nil
			}
			done := storedResponse{
				Status:      cw.status,
				ContentType: cw.Header().Get(echo.HeaderContentType),
				Body:        cw.body.Bytes(),
				Fingerprint: fp,
				SentAt:      sentAt,
				StoredAt:    time.Now().UTC(),
			}
			if err := store.complete(context.Background(), rk, done); err != nil {
				entry.WithError(err).Warn("idempotency response not stored")
			}
			return nil
		}
	}
}
