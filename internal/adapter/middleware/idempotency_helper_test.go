package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func Test_normalizeKey(t *testing.T) {
	valid := map[string]string{
		"3f9a6a1b-3d54-4fbe-8b3a-6b3e8d6b2c88": "3f9a6a1b-3d54-4fbe-8b3a-6b3e8d6b2c88",
		"3F9A6A1B-3D54-4FBE-8B3A-6B3E8D6B2C88": "3f9a6a1b-3d54-4fbe-8b3a-6b3e8d6b2c88",
		"  " + strings.Repeat("a", 32) + " ":   strings.Repeat("a", 32),
		"3f9a6a1b3d544fbe8b3a6b3e8d6b2c88":     "3f9a6a1b3d544fbe8b3a6b3e8d6b2c88",
	}
	for in, want := range valid {
		got, ok := normalizeKey(in)
		if !ok || got != want {
			t.Fatalf("normalizeKey(%q) = %q, %v; want %q", in, got, ok, want)
		}
	}

	for _, in := range []string{
		"",
		"3f9a6a1b3d544fbe8b3a6b3e8d6b2c8",      // 31 chars
		"3f9a6a1b3d544fbe8b3a6b3e8d6b2c880",    // 33 chars
		"zzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzz",     // non-hex
		"3f9a6a1b-3d54-9fbe-8b3a-6b3e8d6b2c88", // version 9
	} {
		if _, ok := normalizeKey(in); ok {
			t.Fatalf("normalizeKey should reject %q", in)
		}
	}
}

func Test_replayKeyScopesCallerAndRoute(t *testing.T) {
	k := strings.Repeat("a", 32)
	base := replayKey("admin-1", "POST", "/api/loans/:loan_id/repayment", k)
	if base != "idem:admin-1:post:/api/loans/:loan_id/repayment:"+k {
		t.Fatalf("replayKey = %q", base)
	}
	if base == replayKey("admin-2", "POST", "/api/loans/:loan_id/repayment", k) {
		t.Fatalf("callers must not share keys")
	}
	if base == replayKey("admin-1", "POST", "/api/loans/:loan_id/process", k) {
		t.Fatalf("routes must not share keys")
	}
}

func Test_fingerprint(t *testing.T) {
	a := fingerprint("POST", "/x", []byte(`{"amount":"10"}`))
	if len(a) != 64 || a != fingerprint("POST", "/x", []byte(`{"amount":"10"}`)) {
		t.Fatalf("fingerprint not stable: %q", a)
	}
	if a == fingerprint("POST", "/x", []byte(`{"amount":"11"}`)) || a == fingerprint("POST", "/y", []byte(`{"amount":"10"}`)) {
		t.Fatalf("fingerprint must cover body and route")
	}
}

func Test_parseRequestAt(t *testing.T) {
	now := time.Now().UTC()

	sec, err := parseRequestAt(strconv.FormatInt(now.Unix(), 10))
	if err != nil || !sec.Equal(time.Unix(now.Unix(), 0).UTC()) {
		t.Fatalf("epoch seconds: %v %v", sec, err)
	}
	ms, err := parseRequestAt(strconv.FormatInt(now.UnixMilli(), 10))
	if err != nil || !ms.Equal(time.UnixMilli(now.UnixMilli()).UTC()) {
		t.Fatalf("epoch ms: %v %v", ms, err)
	}
	zoned, err := parseRequestAt("2025-09-05T10:00:00+07:00")
	if err != nil || !zoned.Equal(time.Date(2025, 9, 5, 3, 0, 0, 0, time.UTC)) || zoned.Location() != time.UTC {
		t.Fatalf("rfc3339: %v %v", zoned, err)
	}
	if _, err := parseRequestAt("2025-09-05T10:00:00.123456789Z"); err != nil {
		t.Fatalf("rfc3339nano: %v", err)
	}

	for _, bad := range []string{"", "   ", "2025-09-05T10:00:00", "yesterday"} {
		if _, err := parseRequestAt(bad); err == nil {
			t.Fatalf("parseRequestAt(%q) should fail", bad)
		}
	}
}

func Test_withinSkew(t *testing.T) {
	now := time.Now().UTC()
	if !withinSkew(now.Add(-maxClockSkew), now) || !withinSkew(now.Add(maxClockSkew), now) {
		t.Fatalf("boundary must be accepted")
	}
	if withinSkew(now.Add(-maxClockSkew-time.Second), now) || withinSkew(now.Add(maxClockSkew+time.Second), now) {
		t.Fatalf("outside window must be rejected")
	}
}

func Test_captureWriter(t *testing.T) {
	rec := httptest.NewRecorder()
	cw := &captureWriter{ResponseWriter: rec, status: http.StatusOK}
	cw.WriteHeader(http.StatusAccepted)
	_, _ = cw.Write([]byte("hello"))

	if cw.status != http.StatusAccepted || cw.body.String() != "hello" {
		t.Fatalf("captured %d %q", cw.status, cw.body.String())
	}
	if rec.Code != http.StatusAccepted || rec.Body.String() != "hello" {
		t.Fatalf("passthrough %d %q", rec.Code, rec.Body.String())
	}
}

func Test_replayStore(t *testing.T) {
	mr, rdb := newMiniredisClient(t)
	defer mr.Close()
	s := replayStore{rdb: rdb, ttl: 5 * time.Minute}
	ctx := context.Background()

	ok, err := s.reserve(ctx, "k", storedResponse{Pending: true, Fingerprint: "f"})
	if err != nil || !ok {
		t.Fatalf("first reserve: %v %v", ok, err)
	}
	if ttl := mr.TTL("k"); ttl != pendingTTL {
		t.Fatalf("pending ttl = %v", ttl)
	}
	if ok, _ := s.reserve(ctx, "k", storedResponse{Pending: true}); ok {
		t.Fatalf("second reserve must fail")
	}

	if err := s.complete(ctx, "k", storedResponse{Status: 201, Body: []byte(`{"ok":true}`), Fingerprint: "f"}); err != nil {
		t.Fatalf("complete: %v", err)
	}
	got, err := s.get(ctx, "k")
	if err != nil || got.Pending || got.Status != 201 || string(got.Body) != `{"ok":true}` {
		t.Fatalf("get = %+v %v", got, err)
	}
	if ttl := mr.TTL("k"); ttl != 5*time.Minute {
		t.Fatalf("final ttl = %v", ttl)
	}

	if err := s.release(ctx, "k"); err != nil {
		t.Fatalf("release: %v", err)
	}
	if _, err := s.get(ctx, "k"); !errors.Is(err, redis.Nil) {
		t.Fatalf("after release: %v", err)
	}
}
