package tracker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTagHistoryStatistics(t *testing.T) {
	store := &memStore{}
	for i, rssi := range []int{-60, -70, -50, -90, -65} {
		seedSighting(store, "AA:BB:CC:DD:EE:01", rssi, testNow.Add(-time.Duration(i)*time.Minute))
	}
	svc := newTestService(store)

	history, err := svc.TagHistory(context.Background(), "AA:BB:CC:DD:EE:01", 24, 100)
	require.NoError(t, err)

	assert.Equal(t, "WHEELCHAIR_A", history.Tag.Name)
	assert.Equal(t, "equipment", history.Tag.Type)
	assert.Equal(t, 24, history.TimeRangeHours)
	assert.Equal(t, 5, history.SightingCount)
	require.Len(t, history.Sightings, 5)

	stats := history.Statistics
	require.NotNil(t, stats.AverageRSSI)
	assert.InDelta(t, -67.0, *stats.AverageRSSI, 0.001)
	require.NotNil(t, stats.MinRSSI)
	assert.Equal(t, -90, *stats.MinRSSI)
	require.NotNil(t, stats.MaxRSSI)
	assert.Equal(t, -50, *stats.MaxRSSI)

	// Newest first: last seen is the page head, first seen its tail.
	require.NotNil(t, stats.LastSeen)
	assert.True(t, testNow.Equal(*stats.LastSeen))
	require.NotNil(t, stats.FirstSeen)
	assert.True(t, testNow.Add(-4*time.Minute).Equal(*stats.FirstSeen))
}

func TestTagHistoryAverageRounding(t *testing.T) {
	store := &memStore{}
	for i, rssi := range []int{-60, -61, -61} {
		seedSighting(store, "AA:BB:CC:DD:EE:01", rssi, testNow.Add(-time.Duration(i)*time.Minute))
	}
	svc := newTestService(store)

	history, err := svc.TagHistory(context.Background(), "AA:BB:CC:DD:EE:01", 24, 100)
	require.NoError(t, err)
	require.NotNil(t, history.Statistics.AverageRSSI)
	assert.Equal(t, -60.67, *history.Statistics.AverageRSSI)
}

func TestTagHistoryWindowExcludesOldRows(t *testing.T) {
	store := &memStore{}
	seedSighting(store, "AA:BB:CC:DD:EE:01", -60, testNow.Add(-time.Hour))
	seedSighting(store, "AA:BB:CC:DD:EE:01", -70, testNow.Add(-30*time.Hour))
	svc := newTestService(store)

	history, err := svc.TagHistory(context.Background(), "AA:BB:CC:DD:EE:01", 24, 100)
	require.NoError(t, err)
	assert.Equal(t, 1, history.SightingCount)
}

func TestTagHistoryStatsBiasedToLimitedPage(t *testing.T) {
	store := &memStore{}
	// Oldest row has the weakest signal and falls off the 2-row page.
	seedSighting(store, "AA:BB:CC:DD:EE:01", -95, testNow.Add(-3*time.Minute))
	seedSighting(store, "AA:BB:CC:DD:EE:01", -60, testNow.Add(-2*time.Minute))
	seedSighting(store, "AA:BB:CC:DD:EE:01", -50, testNow.Add(-time.Minute))
	svc := newTestService(store)

	history, err := svc.TagHistory(context.Background(), "AA:BB:CC:DD:EE:01", 24, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, history.SightingCount)
	require.NotNil(t, history.Statistics.MinRSSI)
	assert.Equal(t, -60, *history.Statistics.MinRSSI)
}

func TestTagHistoryEmptyWindow(t *testing.T) {
	svc := newTestService(&memStore{})

	history, err := svc.TagHistory(context.Background(), "AA:BB:CC:DD:EE:01", 24, 100)
	require.NoError(t, err)

	assert.Equal(t, 0, history.SightingCount)
	assert.NotNil(t, history.Sightings)
	assert.Nil(t, history.Statistics.AverageRSSI)
	assert.Nil(t, history.Statistics.MinRSSI)
	assert.Nil(t, history.Statistics.MaxRSSI)
	assert.Nil(t, history.Statistics.FirstSeen)
	assert.Nil(t, history.Statistics.LastSeen)
}

func TestTagHistoryDefaults(t *testing.T) {
	svc := newTestService(&memStore{})

	history, err := svc.TagHistory(context.Background(), "AA:BB:CC:DD:EE:01", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 24, history.TimeRangeHours)
}

func TestTagHistoryNotFound(t *testing.T) {
	svc := newTestService(&memStore{})

	_, err := svc.TagHistory(context.Background(), "FF:FF:FF:FF:FF:FE", 24, 100)
	var notFound *TagNotFoundError
	require.ErrorAs(t, err, &notFound)

	_, err = svc.TagHistory(context.Background(), "junk", 24, 100)
	require.ErrorAs(t, err, &notFound)
}

func TestTagHistoryStorageFailure(t *testing.T) {
	store := &memStore{readErrFor: map[string]error{
		"AA:BB:CC:DD:EE:01": errors.New("locked"),
	}}
	svc := newTestService(store)

	_, err := svc.TagHistory(context.Background(), "AA:BB:CC:DD:EE:01", 24, 100)
	var storage *StorageError
	require.ErrorAs(t, err, &storage)
}
