package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"dualcal/internal/calendar"
	"dualcal/internal/config"
	"dualcal/internal/ics"
	appLog "dualcal/internal/log"
)

const (
	sessionCookie        = "dualcal_session"
	sessionIdleTTL       = 24 * time.Hour
	sessionSweepInterval = 10 * time.Minute
	defaultMaxSessions   = 10000
)

// Server exposes the dual calendar view over a JSON API. Every browser
// session owns one Navigator; the server never shares view state between
// sessions.
type Server struct {
	cfg     *config.Config
	cals    *calendar.Calendars
	store   *ics.Store
	clock   func() time.Time
	mux     *http.ServeMux
	limiter *rate.Limiter
	metrics *metrics

	sessionsMu  sync.Mutex
	sessions    map[string]*session
	maxSessions int
	lastSweep   time.Time
}

// session serializes transitions so each request sees one complete
// state snapshot.
type session struct {
	mu       sync.Mutex
	nav      *calendar.Navigator
	lastSeen time.Time
}

// Option configures a Server.
type Option func(*Server)

// WithClock replaces time.Now for "today" and session bookkeeping.
func WithClock(clock func() time.Time) Option {
	return func(s *Server) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithStore attaches ICS events to the day cells.
func WithStore(store *ics.Store) Option {
	return func(s *Server) {
		s.store = store
	}
}

// WithMaxSessions bounds the number of sessions held in memory. When full,
// the least recently seen session is dropped to make room.
func WithMaxSessions(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxSessions = n
		}
	}
}

// NewServer constructs a new Server.
func NewServer(cfg *config.Config, opts ...Option) *Server {
	s := &Server{
		cfg:      cfg,
		cals:     cfg.Calendars(),
		clock:    time.Now,
		mux:         http.NewServeMux(),
		sessions:    make(map[string]*session),
		maxSessions: defaultMaxSessions,
	}
	for _, opt := range opts {
		opt(s)
	}
	if cfg.RateLimit.RPS > 0 {
		burst := cfg.RateLimit.Burst
		if burst <= 0 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit.RPS), burst)
	}
	s.metrics = newMetrics(s.sessionCount)
	s.registerRoutes()
	return s
}

// Handler returns the full middleware chain around the routes.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		h = s.basicAuthMiddleware(h)
	}
	if s.limiter != nil {
		h = s.rateLimitMiddleware(h)
	}
	return s.metricsMiddleware(h)
}

// ListenAndServe serves on cfg.Listen until ctx is canceled, then shuts
// down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+s.cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		appLog.Info("shutting down HTTP server")
		return srv.Shutdown(shutdownCtx)
	}
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	// Empty username or password disables auth.
	return s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="DualCal", charset="UTF-8"`)
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" && !s.limiter.Allow() {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/api/month", s.handleMonth)
	s.mux.HandleFunc("/api/month/next", s.transition((*calendar.Navigator).Next))
	s.mux.HandleFunc("/api/month/prev", s.transition((*calendar.Navigator).Prev))
	s.mux.HandleFunc("/api/month/today", s.transition((*calendar.Navigator).Today))
	s.mux.HandleFunc("/api/month/toggle", s.transition((*calendar.Navigator).Toggle))
	s.mux.HandleFunc("/api/month/select", s.handleSelect)
	s.mux.HandleFunc("/api/convert", s.handleConvert)
	s.mux.Handle("/metrics", s.metrics.handler())
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// lookupSession returns the session named by the request cookie, or nil.
func (s *Server) lookupSession(r *http.Request) *session {
	c, err := r.Cookie(sessionCookie)
	if err != nil {
		return nil
	}
	s.sessionsMu.Lock()
	defer s.sessionsMu.Unlock()
	sess, ok := s.sessions[c.Value]
	if !ok {
		return nil
	}
	sess.lastSeen = s.clock()
	return sess
}

// openSession returns the caller's session, creating one (and its cookie)
// when the request carries no known id. Only state-changing requests open
// sessions; reads without one are served from a fresh navigator.
func (s *Server) openSession(w http.ResponseWriter, r *http.Request) *session {
	if sess := s.lookupSession(r); sess != nil {
		return sess
	}

	now := s.clock()
	id := uuid.NewString()
	sess := &session{nav: s.newNavigator(), lastSeen: now}

	s.sessionsMu.Lock()
	s.evictLocked(now)
	s.sessions[id] = sess
	s.sessionsMu.Unlock()

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	appLog.Debug("session created", "session", id)
	return sess
}

// evictLocked drops idle sessions at most once per sweep interval, and the
// least recently seen one whenever the map is full. Callers hold sessionsMu.
func (s *Server) evictLocked(now time.Time) {
	if now.Sub(s.lastSweep) >= sessionSweepInterval {
		s.lastSweep = now
		for key, old := range s.sessions {
			if now.Sub(old.lastSeen) > sessionIdleTTL {
				delete(s.sessions, key)
			}
		}
	}
	if len(s.sessions) < s.maxSessions {
		return
	}

	var oldestKey string
	var oldest time.Time
	for key, sess := range s.sessions {
		if oldestKey == "" || sess.lastSeen.Before(oldest) {
			oldestKey, oldest = key, sess.lastSeen
		}
	}
	delete(s.sessions, oldestKey)
	appLog.Debug("session evicted", "session", oldestKey, "max", s.maxSessions)
}

func (s *Server) newNavigator() *calendar.Navigator {
	return calendar.NewNavigator(s.cals, s.cfg.PrimarySystem(), calendar.WithClock(s.clock))
}

func (s *Server) sessionCount() float64 {
	s.sessionsMu.Lock()
	defer s.sessionsMu.Unlock()
	return float64(len(s.sessions))
}

// handleMonth returns the session's current view, or today's month for a
// caller without a session.
//
// GET /api/month
func (s *Server) handleMonth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	sess := s.lookupSession(r)
	if sess == nil {
		s.writeView(w, s.newNavigator().View())
		return
	}

	sess.mu.Lock()
	view := sess.nav.View()
	sess.mu.Unlock()

	s.writeView(w, view)
}

// transition adapts a Navigator method into a POST endpoint returning
// the resulting view.
func (s *Server) transition(apply func(*calendar.Navigator) calendar.ViewState) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		sess := s.openSession(w, r)

		sess.mu.Lock()
		apply(sess.nav)
		view := sess.nav.View()
		sess.mu.Unlock()

		s.writeView(w, view)
	}
}

// handleSelect moves the anchor to a clicked day.
//
// POST /api/month/select?date=2024-03-20[&system=jalali]
//   - date:   YYYY-MM-DD (also / or . separated)
//   - system: calendar the date fields are read in, default gregorian
func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	day, err := s.parseDateQuery(r, "system")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	sess := s.openSession(w, r)

	sess.mu.Lock()
	sess.nav.Select(day)
	view := sess.nav.View()
	sess.mu.Unlock()

	s.writeView(w, view)
}

// handleConvert reports one day in both calendar systems.
//
// GET /api/convert?from=jalali&date=1402/12/25
func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	day, err := s.parseDateQuery(r, "from")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, convertResponse{
		Gregorian: newDateDTO(s.cals.For(calendar.Gregorian), day),
		Jalali:    newDateDTO(s.cals.For(calendar.Jalali), day),
	})
}

func (s *Server) parseDateQuery(r *http.Request, systemParam string) (time.Time, error) {
	q := r.URL.Query()
	sys := calendar.Gregorian
	if name := q.Get(systemParam); name != "" {
		parsed, err := calendar.ParseSystem(name)
		if err != nil {
			return time.Time{}, err
		}
		sys = parsed
	}
	raw := q.Get("date")
	if raw == "" {
		return time.Time{}, errors.New("missing date parameter")
	}
	return calendar.ParseDate(s.cals.For(sys), raw)
}

// writeView attaches events to the cells and writes the month response.
func (s *Server) writeView(w http.ResponseWriter, view calendar.View) {
	s.metrics.gridsRendered.WithLabelValues(view.State.Primary.String()).Inc()

	resp := monthResponse{
		State:    view.State,
		Title:    view.Title,
		Subtitle: view.Subtitle,
		Weekdays: view.Weekdays,
		Window:   view.Window,
		Rows:     view.Rows,
		Cells:    make([]cellDTO, 0, len(view.Cells)),
	}

	var idx ics.DayIndex
	if s.store != nil {
		occ, err := s.store.Occurrences(view.Window.GridStart, view.Window.GridEnd)
		if err != nil {
			appLog.Error("month view: event expansion failed", err)
		}
		if len(occ) > 0 {
			days := make([]time.Time, 0, len(view.Cells))
			for _, c := range view.Cells {
				days = append(days, c.Date)
			}
			idx = ics.IndexDays(occ, days)
		}
		if updated := s.store.UpdatedAt(); !updated.IsZero() {
			resp.EventsUpdatedAt = &updated
		}
	}

	for _, c := range view.Cells {
		cell := cellDTO{DayCell: c}
		for _, occ := range idx.On(c.Date) {
			cell.Events = append(cell.Events, eventDTO{
				SourceID: occ.SourceID,
				Summary:  occ.Summary,
				AllDay:   occ.AllDay,
				Start:    occ.Start,
				End:      occ.End,
			})
		}
		resp.Cells = append(resp.Cells, cell)
	}

	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
