package ics

import (
	"context"
	"errors"
	"sync"
	"time"

	"dualcal/internal/config"
	appLog "dualcal/internal/log"
	"dualcal/internal/model"
)

// SourcesFromConfig converts configured subscriptions, skipping entries
// without a URL.
func SourcesFromConfig(cfgs []config.ICSConfig) []Source {
	sources := make([]Source, 0, len(cfgs))
	for _, c := range cfgs {
		if c.URL == "" {
			continue
		}
		id := c.ID
		if id == "" {
			id = c.URL
		}
		sources = append(sources, Source{ID: id, URL: c.URL})
	}
	return sources
}

// Store keeps the most recently parsed events of all sources. Readers
// always see a complete set from one refresh.
type Store struct {
	fetcher *Fetcher
	sources []Source
	loc     *time.Location

	mu        sync.RWMutex
	events    []ParsedEvent
	updatedAt time.Time
}

func NewStore(fetcher *Fetcher, sources []Source, loc *time.Location) *Store {
	if loc == nil {
		loc = time.Local
	}
	return &Store{fetcher: fetcher, sources: sources, loc: loc}
}

// Refresh fetches and parses every source. A failing source keeps the
// refresh going; its error is joined into the returned error.
func (s *Store) Refresh(ctx context.Context) error {
	if len(s.sources) == 0 {
		return nil
	}

	results, errs := s.fetcher.FetchAll(ctx, s.sources)
	parsed := make([]ParsedEvent, 0)
	for _, res := range results {
		events, err := ParseICS(res.Source, res.Body, s.loc)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		parsed = append(parsed, events...)
	}

	s.mu.Lock()
	s.events = parsed
	s.updatedAt = time.Now()
	s.mu.Unlock()

	appLog.Info("ics store refreshed", "sources", len(s.sources), "events", len(parsed), "errors", len(errs))
	return errors.Join(errs...)
}

// Occurrences expands the stored events over [from, to].
func (s *Store) Occurrences(from, to time.Time) ([]model.Occurrence, error) {
	s.mu.RLock()
	events := s.events
	s.mu.RUnlock()

	if len(events) == 0 {
		return nil, nil
	}
	res, err := ExpandOccurrences(events, ExpandConfig{
		DisplayLocation: s.loc,
		RangeStart:      from,
		RangeEnd:        to,
	})
	if err != nil {
		return nil, err
	}
	return res.Occurrences, nil
}

// UpdatedAt is the time of the last refresh, zero before the first.
func (s *Store) UpdatedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.updatedAt
}

// SetEvents replaces the stored events directly.
func (s *Store) SetEvents(events []ParsedEvent) {
	s.mu.Lock()
	s.events = events
	s.updatedAt = time.Now()
	s.mu.Unlock()
}
