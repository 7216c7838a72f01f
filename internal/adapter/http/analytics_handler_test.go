package http

import (
	"bytes"
	stdhttp "net/http"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"loan-tracker/internal/usecase/analytics"
)

func TestAnalytics_SnapshotAndStats(t *testing.T) {
	s := newServer(t)
	l := s.submit(t, owner)
	s.do(t, stdhttp.MethodPost, "/api/loans/"+l.LoanID+"/process", map[string]any{"action": "approve"}, &admin)
	s.do(t, stdhttp.MethodPost, "/api/loans/"+l.LoanID+"/repayment", map[string]any{"amount": "1000"}, &admin)

	if rec := s.do(t, stdhttp.MethodGet, "/api/admin/analytics", nil, &owner); rec.Code != stdhttp.StatusForbidden {
		t.Fatalf("user analytics: %d", rec.Code)
	}

	rec := s.do(t, stdhttp.MethodGet, "/api/admin/analytics", nil, &admin)
	if rec.Code != stdhttp.StatusOK {
		t.Fatalf("snapshot: %d %s", rec.Code, rec.Body.String())
	}
	snap := decode[analytics.Snapshot](t, rec)
	if len(snap.Months) != analytics.WindowMonths {
		t.Fatalf("months = %v", snap.Months)
	}
	current := time.Now().UTC().Format("2006-01")
	last := len(snap.Months) - 1
	if snap.Months[last] != current || snap.MonthlyLoans[last] != 1 || snap.MonthlyRepayments[last] != 1 {
		t.Fatalf("current month bucket: %+v", snap)
	}
	if snap.StatusDistribution.Approved != 1 {
		t.Fatalf("distribution = %+v", snap.StatusDistribution)
	}

	rec = s.do(t, stdhttp.MethodGet, "/api/admin/analytics?now=2020-03-10", nil, &admin)
	if rec.Code != stdhttp.StatusOK {
		t.Fatalf("snapshot with now: %d", rec.Code)
	}
	old := decode[analytics.Snapshot](t, rec)
	if old.Months[0] != "2019-10" || old.Months[5] != "2020-03" || old.MonthlyLoans[5] != 0 {
		t.Fatalf("historic snapshot: %+v", old)
	}

	if rec := s.do(t, stdhttp.MethodGet, "/api/admin/analytics?now=yesterday", nil, &admin); rec.Code != stdhttp.StatusBadRequest {
		t.Fatalf("bad now: %d", rec.Code)
	}

	rec = s.do(t, stdhttp.MethodGet, "/api/admin/stats", nil, &admin)
	if rec.Code != stdhttp.StatusOK {
		t.Fatalf("stats: %d", rec.Code)
	}
	st := decode[analytics.Stats](t, rec)
	if st.TotalLoans != 1 || st.TotalCashDisbursed.String() != "5000" || len(st.RecentLoans) != 1 {
		t.Fatalf("stats = %+v", st)
	}
}

func TestAnalytics_LatestWithoutCache(t *testing.T) {
	s := newServer(t)
	s.submit(t, owner)

	rec := s.do(t, stdhttp.MethodGet, "/api/admin/analytics/latest", nil, &admin)
	if rec.Code != stdhttp.StatusOK {
		t.Fatalf("latest: %d %s", rec.Code, rec.Body.String())
	}
	if snap := decode[analytics.Snapshot](t, rec); snap.StatusDistribution.Pending != 1 {
		t.Fatalf("latest = %+v", snap)
	}
}

func TestAnalytics_ReportIsWorkbook(t *testing.T) {
	s := newServer(t)
	s.submit(t, owner)

	rec := s.do(t, stdhttp.MethodGet, "/api/admin/analytics/report.xlsx", nil, &admin)
	if rec.Code != stdhttp.StatusOK {
		t.Fatalf("report: %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != xlsxMIME {
		t.Fatalf("content type = %q", ct)
	}
	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()
	if idx, _ := f.GetSheetIndex("Monthly"); idx < 0 {
		t.Fatalf("missing Monthly sheet: %v", f.GetSheetList())
	}
}
