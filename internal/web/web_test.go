package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"dualcal/internal/calendar"
	"dualcal/internal/config"
	"dualcal/internal/ics"
)

var testNow = time.Date(2024, time.March, 15, 12, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T, mutate func(*config.Config), opts ...Option) http.Handler {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Timezone = "UTC"
	cfg.RateLimit = config.RateLimitConfig{}
	if mutate != nil {
		mutate(cfg)
	}
	opts = append([]Option{WithClock(func() time.Time { return testNow })}, opts...)
	return NewServer(cfg, opts...).Handler()
}

func do(t *testing.T, h http.Handler, method, target string, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeMonth(t *testing.T, rec *httptest.ResponseRecorder) monthResponse {
	t.Helper()
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp monthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode month response: %v", err)
	}
	return resp
}

func sessionCookieOf(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == sessionCookie {
			return c
		}
	}
	t.Fatalf("expected %s cookie to be set", sessionCookie)
	return nil
}

func findCell(t *testing.T, cells []cellDTO, day time.Time) cellDTO {
	t.Helper()
	for _, c := range cells {
		if c.Date.Equal(day) {
			return c
		}
	}
	t.Fatalf("expected a cell for %s", day.Format("2006-01-02"))
	return cellDTO{}
}

func TestHealth(t *testing.T) {
	rec := do(t, newTestServer(t, nil), http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK || rec.Body.String() != "OK" {
		t.Fatalf("expected 200 OK, got %d %q", rec.Code, rec.Body.String())
	}
}

func TestMonthStartsOnToday(t *testing.T) {
	h := newTestServer(t, nil)
	rec := do(t, h, http.MethodGet, "/api/month", nil)
	resp := decodeMonth(t, rec)
	if len(rec.Result().Cookies()) != 0 {
		t.Fatalf("expected no cookie on a read without a session, got %v", rec.Result().Cookies())
	}

	if resp.Title != "March 2024" {
		t.Fatalf("expected title March 2024, got %q", resp.Title)
	}
	if resp.Subtitle != calendar.JalaliMonthName(12)+" 1402" {
		t.Fatalf("expected Esfand 1402 subtitle, got %q", resp.Subtitle)
	}
	if len(resp.Cells) != 42 || resp.Rows != 6 {
		t.Fatalf("expected 42 cells in 6 rows, got %d/%d", len(resp.Cells), resp.Rows)
	}

	today := findCell(t, resp.Cells, time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC))
	if !today.IsToday || !today.InPrimaryMonth || today.SecondaryLabel != "25" {
		t.Fatalf("unexpected today cell: %+v", today.DayCell)
	}
}

func TestTransitionsAreScopedToSession(t *testing.T) {
	h := newTestServer(t, nil)
	cookie := sessionCookieOf(t, do(t, h, http.MethodPost, "/api/month/today", nil))

	current := decodeMonth(t, do(t, h, http.MethodGet, "/api/month", cookie))
	if current.Title != "March 2024" {
		t.Fatalf("expected March 2024 for the new session, got %q", current.Title)
	}

	next := decodeMonth(t, do(t, h, http.MethodPost, "/api/month/next", cookie))
	if next.Title != "April 2024" {
		t.Fatalf("expected April 2024 after next, got %q", next.Title)
	}

	toggled := decodeMonth(t, do(t, h, http.MethodPost, "/api/month/toggle", cookie))
	if toggled.State.Primary != calendar.Jalali {
		t.Fatalf("expected jalali primary after toggle, got %v", toggled.State.Primary)
	}
	if toggled.Title != calendar.JalaliMonthName(1)+" 1403" {
		t.Fatalf("expected Farvardin 1403 title, got %q", toggled.Title)
	}
	if toggled.Weekdays[0] != "شنبه" {
		t.Fatalf("expected Jalali week to start on Saturday, got %q", toggled.Weekdays[0])
	}

	// A request without the cookie sees today's month.
	fresh := decodeMonth(t, do(t, h, http.MethodGet, "/api/month", nil))
	if fresh.Title != "March 2024" {
		t.Fatalf("expected March 2024 without a session, got %q", fresh.Title)
	}

	still := decodeMonth(t, do(t, h, http.MethodGet, "/api/month", cookie))
	if still.State.Primary != calendar.Jalali || still.Title != calendar.JalaliMonthName(1)+" 1403" {
		t.Fatalf("expected the session to keep Farvardin 1403, got %q", still.Title)
	}

	back := decodeMonth(t, do(t, h, http.MethodPost, "/api/month/today", cookie))
	if back.Title != calendar.JalaliMonthName(12)+" 1402" {
		t.Fatalf("expected today to return to Esfand 1402, got %q", back.Title)
	}
}

func TestTransitionRequiresPost(t *testing.T) {
	rec := do(t, newTestServer(t, nil), http.MethodGet, "/api/month/next", nil)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}

func TestSelect(t *testing.T) {
	h := newTestServer(t, nil)

	resp := decodeMonth(t, do(t, h, http.MethodPost, "/api/month/select?date=2024-05-20", nil))
	if resp.Title != "May 2024" {
		t.Fatalf("expected May 2024 after selecting a May day, got %q", resp.Title)
	}
	if !resp.State.Anchor.Equal(time.Date(2024, time.May, 20, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected anchor 2024-05-20, got %s", resp.State.Anchor)
	}

	jalali := decodeMonth(t, do(t, h, http.MethodPost, "/api/month/select?date=1403/01/01&system=jalali", nil))
	if !jalali.State.Anchor.Equal(time.Date(2024, time.March, 20, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected 1403/01/01 to select 2024-03-20, got %s", jalali.State.Anchor)
	}

	bad := do(t, h, http.MethodPost, "/api/month/select?date=2024-02-30", nil)
	if bad.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid date, got %d", bad.Code)
	}
}

func TestConvert(t *testing.T) {
	h := newTestServer(t, nil)

	rec := do(t, h, http.MethodGet, "/api/convert?from=jalali&date=1402/12/25", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp convertResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	g := resp.Gregorian
	if g.Year != 2024 || g.Month != 3 || g.Day != 15 || g.Weekday != "Fri" {
		t.Fatalf("expected Fri 2024-03-15, got %+v", g)
	}
	if resp.Jalali.Numeric != "1402/12/25" {
		t.Fatalf("expected jalali numeric 1402/12/25, got %q", resp.Jalali.Numeric)
	}

	for _, target := range []string{
		"/api/convert?from=jalali&date=1402/13/01",
		"/api/convert?from=hebrew&date=2024-03-15",
		"/api/convert",
	} {
		if rec := do(t, h, http.MethodGet, target, nil); rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 for %s, got %d", target, rec.Code)
		}
	}
}

func TestMonthCellsCarryEvents(t *testing.T) {
	store := ics.NewStore(nil, nil, time.UTC)
	store.SetEvents([]ics.ParsedEvent{{
		Source:  ics.Source{ID: "team"},
		UID:     "standup@test",
		Summary: "Standup",
		Start:   time.Date(2024, time.March, 5, 9, 0, 0, 0, time.UTC),
		End:     time.Date(2024, time.March, 5, 9, 15, 0, 0, time.UTC),
	}})

	h := newTestServer(t, nil, WithStore(store))
	resp := decodeMonth(t, do(t, h, http.MethodGet, "/api/month", nil))

	cell := findCell(t, resp.Cells, time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC))
	if len(cell.Events) != 1 || cell.Events[0].Summary != "Standup" {
		t.Fatalf("expected Standup on March 5, got %+v", cell.Events)
	}
	other := findCell(t, resp.Cells, time.Date(2024, time.March, 6, 0, 0, 0, 0, time.UTC))
	if len(other.Events) != 0 {
		t.Fatalf("expected no events on March 6, got %+v", other.Events)
	}
	if resp.EventsUpdatedAt == nil {
		t.Fatalf("expected events_updated_at to be set")
	}
}

func TestBasicAuth(t *testing.T) {
	h := newTestServer(t, func(cfg *config.Config) {
		cfg.BasicAuth = &config.BasicAuthConfig{Username: "admin", Password: "secret"}
	})

	if rec := do(t, h, http.MethodGet, "/health", nil); rec.Code != http.StatusOK {
		t.Fatalf("expected /health to bypass auth, got %d", rec.Code)
	}
	if rec := do(t, h, http.MethodGet, "/api/month", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without credentials, got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/month", nil)
	req.SetBasicAuth("admin", "secret")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with credentials, got %d", rec.Code)
	}
}

func TestRateLimit(t *testing.T) {
	h := newTestServer(t, func(cfg *config.Config) {
		cfg.RateLimit = config.RateLimitConfig{RPS: 0.001, Burst: 1}
	})

	if rec := do(t, h, http.MethodGet, "/api/month", nil); rec.Code != http.StatusOK {
		t.Fatalf("expected first request to pass, got %d", rec.Code)
	}
	if rec := do(t, h, http.MethodGet, "/api/month", nil); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if rec := do(t, h, http.MethodGet, "/health", nil); rec.Code != http.StatusOK {
		t.Fatalf("expected /health to bypass rate limiting, got %d", rec.Code)
	}
}

func TestMetrics(t *testing.T) {
	h := newTestServer(t, nil)
	do(t, h, http.MethodGet, "/api/month", nil)
	do(t, h, http.MethodPost, "/api/month/next", nil)

	rec := do(t, h, http.MethodGet, "/metrics", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{
		`dualcal_grids_rendered_total{primary="gregorian"} 2`,
		`http_requests_total{method="GET",path="/api/month",status="200"} 1`,
		`dualcal_sessions_active 1`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected metrics to contain %q", want)
		}
	}
}

func newSessionServer(t *testing.T, opts ...Option) *Server {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Timezone = "UTC"
	cfg.RateLimit = config.RateLimitConfig{}
	opts = append([]Option{WithClock(func() time.Time { return testNow })}, opts...)
	return NewServer(cfg, opts...)
}

func TestReadsWithoutCookieOpenNoSessions(t *testing.T) {
	s := newSessionServer(t)
	h := s.Handler()

	for i := 0; i < 5000; i++ {
		rec := do(t, h, http.MethodGet, "/api/month", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, rec.Code)
		}
	}
	unknown := &http.Cookie{Name: sessionCookie, Value: "not-a-session"}
	for i := 0; i < 100; i++ {
		do(t, h, http.MethodGet, "/api/month", unknown)
	}

	if n := s.sessionCount(); n != 0 {
		t.Fatalf("expected 0 sessions after cookieless reads, got %v", n)
	}
}

func TestSessionsAreCapped(t *testing.T) {
	now := testNow
	s := newSessionServer(t, WithMaxSessions(50), WithClock(func() time.Time { return now }))
	h := s.Handler()

	first := sessionCookieOf(t, do(t, h, http.MethodPost, "/api/month/next", nil))
	var last *http.Cookie
	for i := 0; i < 500; i++ {
		now = now.Add(time.Second)
		last = sessionCookieOf(t, do(t, h, http.MethodPost, "/api/month/next", nil))
		if n := s.sessionCount(); n > 50 {
			t.Fatalf("expected at most 50 sessions, got %v", n)
		}
	}
	if n := s.sessionCount(); n != 50 {
		t.Fatalf("expected 50 sessions at the cap, got %v", n)
	}

	// The oldest session was evicted; the newest still holds its state.
	if s.lookupSession(cookieRequest(first)) != nil {
		t.Fatalf("expected the least recently seen session to be evicted")
	}
	resp := decodeMonth(t, do(t, h, http.MethodGet, "/api/month", last))
	if resp.Title != "April 2024" {
		t.Fatalf("expected the newest session to keep April 2024, got %q", resp.Title)
	}
}

func TestIdleSessionsAreSwept(t *testing.T) {
	now := testNow
	s := newSessionServer(t, WithClock(func() time.Time { return now }))
	h := s.Handler()

	for i := 0; i < 10; i++ {
		do(t, h, http.MethodPost, "/api/month/today", nil)
	}
	now = now.Add(sessionIdleTTL + time.Hour)
	do(t, h, http.MethodPost, "/api/month/today", nil)

	if n := s.sessionCount(); n != 1 {
		t.Fatalf("expected idle sessions to be swept leaving 1, got %v", n)
	}
}

func cookieRequest(c *http.Cookie) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/month", nil)
	req.AddCookie(c)
	return req
}
