package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"loan-tracker/pkg/id"
)

var reKeyUUID = regexp.MustCompile(`^[a-f0-9]{8}-[a-f0-9]{4}-[1-5][a-f0-9]{3}-[89ab][a-f0-9]{3}-[a-f0-9]{12}$`)

// normalizeKey lowercases an Idempotency-Key and reports whether it is a UUID or 32-char hex.
func normalizeKey(raw string) (string, bool) {
	k := strings.ToLower(strings.TrimSpace(raw))
	return k, reKeyUUID.MatchString(k) || id.Valid(k)
}

// replayKey scopes a client key to the caller and the route, so two admins
// (or two endpoints) never share a stored response.
func replayKey(callerID, method, route, key string) string {
	return "idem:" + callerID + ":" + strings.ToLower(method) + ":" + route + ":" + key
}

func fingerprint(method, route string, body []byte) string {
	h := sha256.New()
	h.Write([]byte(method))
	h.Write([]byte{0})
	h.Write([]byte(route))
	h.Write([]byte{0})
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

// parseRequestAt accepts epoch seconds, epoch milliseconds, or RFC3339 with a zone.
func parseRequestAt(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, errors.New("missing " + HeaderRequestAt)
	}
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		if n > 1e12 {
			return time.UnixMilli(n).UTC(), nil
		}
		return time.Unix(n, 0).UTC(), nil
	}
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, errors.New(HeaderRequestAt + " must be epoch (s/ms) or RFC3339 with timezone")
}

func withinSkew(at, now time.Time) bool {
	d := now.Sub(at)
	if d < 0 {
		d = -d
	}
	return d <= maxClockSkew
}

// captureWriter tees the response so it can be stored for replay.
type captureWriter struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (w *captureWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *captureWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}
