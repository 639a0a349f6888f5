package tracker

import (
	"context"
	"math"
	"time"

	"wardtrack/server/internal/mac"
	"wardtrack/server/internal/model"
)

const (
	defaultHistoryHours = 24
	defaultHistoryLimit = 100
)

// TagHistory returns the windowed sighting history and statistics for one
// registered tag. Non-positive hours or limit fall back to the defaults.
// Statistics cover the fetched page only: when the window holds more rows
// than the limit, older rows are not included in the averages.
func (s *Service) TagHistory(ctx context.Context, address string, hours, limit int) (model.TagHistory, error) {
	normalized, err := mac.Normalize(address)
	if err != nil {
		return model.TagHistory{}, &TagNotFoundError{MAC: address}
	}

	tag, ok := s.registry.Lookup(normalized)
	if !ok {
		return model.TagHistory{}, &TagNotFoundError{MAC: normalized}
	}

	if hours <= 0 {
		hours = defaultHistoryHours
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}

	cutoff := s.now().UTC().Add(-time.Duration(hours) * time.Hour)

	sightings, err := s.store.SightingsSince(ctx, tag.MAC, cutoff, limit)
	if err != nil {
		return model.TagHistory{}, &StorageError{MAC: tag.MAC, Op: "sightings_since", Err: err}
	}
	if sightings == nil {
		sightings = []model.Sighting{}
	}

	return model.TagHistory{
		Tag: model.TagIdentity{
			Name: tag.Name,
			MAC:  tag.MAC,
			Type: tag.Type,
		},
		TimeRangeHours: hours,
		SightingCount:  len(sightings),
		Statistics:     summarize(sightings),
		Sightings:      sightings,
	}, nil
}

// summarize computes RSSI statistics over a newest-first page of sightings.
func summarize(sightings []model.Sighting) model.HistoryStats {
	if len(sightings) == 0 {
		return model.HistoryStats{}
	}

	sum := 0
	minRSSI := sightings[0].RSSI
	maxRSSI := sightings[0].RSSI
	for _, sighting := range sightings {
		sum += sighting.RSSI
		if sighting.RSSI < minRSSI {
			minRSSI = sighting.RSSI
		}
		if sighting.RSSI > maxRSSI {
			maxRSSI = sighting.RSSI
		}
	}

	avg := math.Round(float64(sum)/float64(len(sightings))*100) / 100
	firstSeen := sightings[len(sightings)-1].Timestamp
	lastSeen := sightings[0].Timestamp

	return model.HistoryStats{
		AverageRSSI: &avg,
		MinRSSI:     &minRSSI,
		MaxRSSI:     &maxRSSI,
		FirstSeen:   &firstSeen,
		LastSeen:    &lastSeen,
	}
}
