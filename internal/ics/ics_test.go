package ics

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

const sampleICS = `BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//dualcal//test//EN
BEGIN:VEVENT
UID:single@test
DTSTAMP:20240101T000000Z
DTSTART:20240305T090000Z
DTEND:20240305T100000Z
SUMMARY:Dentist
END:VEVENT
BEGIN:VEVENT
UID:weekly@test
DTSTAMP:20240101T000000Z
DTSTART:20240304T170000Z
DTEND:20240304T180000Z
RRULE:FREQ=WEEKLY;COUNT=4
EXDATE:20240311T170000Z
SUMMARY:Class
END:VEVENT
BEGIN:VEVENT
UID:weekly@test
DTSTAMP:20240101T000000Z
RECURRENCE-ID:20240318T170000Z
DTSTART:20240318T190000Z
DTEND:20240318T200000Z
SUMMARY:Class (moved)
END:VEVENT
BEGIN:VEVENT
UID:allday@test
DTSTAMP:20240101T000000Z
DTSTART;VALUE=DATE:20240320
DTEND;VALUE=DATE:20240321
SUMMARY:Nowruz
END:VEVENT
BEGIN:VEVENT
DTSTAMP:20240101T000000Z
DTSTART:20240301T000000Z
SUMMARY:No UID
END:VEVENT
END:VCALENDAR
`

func sampleBody() []byte {
	return []byte(strings.ReplaceAll(sampleICS, "\n", "\r\n"))
}

func march2024Days() []time.Time {
	days := make([]time.Time, 0, 31)
	for d := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC); d.Month() == time.March; d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

func TestParseICS(t *testing.T) {
	events, err := ParseICS(Source{ID: "test"}, sampleBody(), time.UTC)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 4 {
		t.Fatalf("expected 4 events (one without UID skipped), got %d", len(events))
	}

	byUID := map[string][]ParsedEvent{}
	for _, ev := range events {
		byUID[ev.UID] = append(byUID[ev.UID], ev)
	}

	allDay := byUID["allday@test"][0]
	if !allDay.AllDay || !allDay.Start.Equal(time.Date(2024, time.March, 20, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected all-day event on 2024-03-20, got %+v", allDay)
	}

	var base, override ParsedEvent
	for _, ev := range byUID["weekly@test"] {
		if ev.IsOverride {
			override = ev
		} else {
			base = ev
		}
	}
	if base.RawRRule != "FREQ=WEEKLY;COUNT=4" || len(base.ExDates) != 1 {
		t.Fatalf("expected rrule and one exdate, got %q %v", base.RawRRule, base.ExDates)
	}
	if override.Recurrence == nil || !override.Recurrence.Equal(time.Date(2024, time.March, 18, 17, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected override recurrence id 2024-03-18T17:00Z, got %v", override.Recurrence)
	}
}

func TestParseICSEmptyBody(t *testing.T) {
	if _, err := ParseICS(Source{ID: "x"}, nil, time.UTC); !errors.Is(err, ErrEmptyBody) {
		t.Fatalf("expected ErrEmptyBody, got %v", err)
	}
}

func TestExpandAndIndex(t *testing.T) {
	events, err := ParseICS(Source{ID: "test"}, sampleBody(), time.UTC)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	res, err := ExpandOccurrences(events, ExpandConfig{
		DisplayLocation: time.UTC,
		RangeStart:      time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC),
		RangeEnd:        time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	if len(res.Occurrences) != 5 {
		t.Fatalf("expected 5 occurrences, got %d: %+v", len(res.Occurrences), res.Occurrences)
	}
	for i := 1; i < len(res.Occurrences); i++ {
		if res.Occurrences[i].Start.Before(res.Occurrences[i-1].Start) {
			t.Fatalf("expected occurrences sorted by start")
		}
	}

	idx := IndexDays(res.Occurrences, march2024Days())
	if got := idx.On(time.Date(2024, time.March, 11, 0, 0, 0, 0, time.UTC)); len(got) != 0 {
		t.Fatalf("expected EXDATE to remove March 11, got %+v", got)
	}
	moved := idx.On(time.Date(2024, time.March, 18, 0, 0, 0, 0, time.UTC))
	if len(moved) != 1 || moved[0].Summary != "Class (moved)" || moved[0].Start.Hour() != 19 {
		t.Fatalf("expected moved class at 19:00 on March 18, got %+v", moved)
	}
	nowruz := idx.On(time.Date(2024, time.March, 20, 0, 0, 0, 0, time.UTC))
	if len(nowruz) != 1 || !nowruz[0].AllDay {
		t.Fatalf("expected one all-day event on March 20, got %+v", nowruz)
	}
	if got := idx.On(time.Date(2024, time.March, 21, 0, 0, 0, 0, time.UTC)); len(got) != 0 {
		t.Fatalf("expected all-day event to end before March 21, got %+v", got)
	}
}

func TestExpandRejectsInvertedRange(t *testing.T) {
	_, err := ExpandOccurrences(nil, ExpandConfig{
		RangeStart: time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC),
		RangeEnd:   time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC),
	})
	if err == nil {
		t.Fatalf("expected error for inverted range")
	}
}

func TestExpandCapsRunawayRules(t *testing.T) {
	ev := ParsedEvent{
		Source:   Source{ID: "t"},
		UID:      "daily@test",
		Start:    time.Date(2024, time.January, 1, 8, 0, 0, 0, time.UTC),
		End:      time.Date(2024, time.January, 1, 9, 0, 0, 0, time.UTC),
		RawRRule: "FREQ=DAILY",
	}
	res, err := ExpandOccurrences([]ParsedEvent{ev}, ExpandConfig{
		DisplayLocation:        time.UTC,
		RangeStart:             time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
		RangeEnd:               time.Date(2024, time.December, 31, 0, 0, 0, 0, time.UTC),
		MaxOccurrencesPerEvent: 10,
	})
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	if len(res.Occurrences) != 10 || len(res.TruncatedEvents) != 1 {
		t.Fatalf("expected 10 occurrences and one truncated uid, got %d / %v", len(res.Occurrences), res.TruncatedEvents)
	}
}

func TestFetcherUsesETagAndFallsBackToCache(t *testing.T) {
	var hits, notModified int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		if r.Header.Get("If-None-Match") == `"v1"` {
			atomic.AddInt32(&notModified, 1)
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"v1"`)
		_, _ = w.Write(sampleBody())
	}))

	f := NewFetcher(t.TempDir())
	src := Source{ID: "feed", URL: srv.URL + "/private.ics?token=secret"}
	ctx := context.Background()

	first, err := f.FetchOne(ctx, src)
	if err != nil || first.FromCache {
		t.Fatalf("expected fresh fetch, got fromCache=%v err=%v", first.FromCache, err)
	}

	second, err := f.FetchOne(ctx, src)
	if err != nil || !second.FromCache || atomic.LoadInt32(&notModified) != 1 {
		t.Fatalf("expected 304 served from cache, got fromCache=%v err=%v", second.FromCache, err)
	}
	if string(second.Body) != string(first.Body) {
		t.Fatalf("expected cached body to match")
	}

	srv.Close()
	third, err := f.FetchOne(ctx, src)
	if err != nil || !third.FromCache {
		t.Fatalf("expected cached fallback when server is gone, got fromCache=%v err=%v", third.FromCache, err)
	}
}

func TestFetchAllReportsFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	results, errs := NewFetcher(t.TempDir()).FetchAll(context.Background(), []Source{{ID: "bad", URL: srv.URL}})
	if len(results) != 0 || len(errs) != 1 {
		t.Fatalf("expected one error and no results, got %d results %d errors", len(results), len(errs))
	}
}

func TestStoreRefresh(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(sampleBody())
	}))
	defer srv.Close()

	store := NewStore(NewFetcher(t.TempDir()), []Source{{ID: "feed", URL: srv.URL}}, time.UTC)
	if err := store.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if store.UpdatedAt().IsZero() {
		t.Fatalf("expected UpdatedAt to be set")
	}

	occ, err := store.Occurrences(
		time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC),
	)
	if err != nil {
		t.Fatalf("occurrences: %v", err)
	}
	if len(occ) != 2 {
		t.Fatalf("expected dentist + first class in early March, got %d", len(occ))
	}
}

func TestRedactURL(t *testing.T) {
	got := redactURL("https://calendar.example.com/path/private.ics?token=abcd")
	if got != "https://calendar.example.com/...(redacted)" {
		t.Fatalf("unexpected redaction %q", got)
	}
	if got := redactURL("::not a url"); got != "ics://...(redacted)" {
		t.Fatalf("unexpected redaction %q", got)
	}
}
