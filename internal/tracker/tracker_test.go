package tracker

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"wardtrack/server/internal/model"
	"wardtrack/server/internal/registry"
)

var testNow = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

// memStore is an in-memory SightingStore for exercising the service without
// SQLite. Error fields force failures for specific MACs or for all inserts.
type memStore struct {
	mu        sync.Mutex
	sightings []model.Sighting
	nextID    int64

	insertErr  error
	readErrFor map[string]error
}

func (m *memStore) InsertSighting(_ context.Context, sighting model.Sighting) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.insertErr != nil {
		return 0, m.insertErr
	}

	m.nextID++
	sighting.ID = m.nextID
	m.sightings = append(m.sightings, sighting)
	return sighting.ID, nil
}

func (m *memStore) LatestSighting(_ context.Context, mac string) (*model.Sighting, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.readErrFor[mac]; err != nil {
		return nil, err
	}

	var latest *model.Sighting
	for i := range m.sightings {
		s := m.sightings[i]
		if s.MAC != mac {
			continue
		}
		if latest == nil || s.Timestamp.After(latest.Timestamp) {
			copied := s
			latest = &copied
		}
	}
	return latest, nil
}

func (m *memStore) SightingsSince(_ context.Context, mac string, cutoff time.Time, limit int) ([]model.Sighting, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.readErrFor[mac]; err != nil {
		return nil, err
	}

	var matched []model.Sighting
	for _, s := range m.sightings {
		if s.MAC == mac && !s.Timestamp.Before(cutoff) {
			matched = append(matched, s)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].Timestamp.After(matched[j].Timestamp)
	})
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

func newTestService(store *memStore) *Service {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := New(registry.Default(), store, 5*time.Minute, logger)
	svc.now = func() time.Time { return testNow }
	return svc
}
