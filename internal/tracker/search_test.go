package tracker

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchTagsByName(t *testing.T) {
	svc := newTestService(&memStore{})

	for _, query := range []string{"nurse", "NURSE", "Nurse"} {
		result := svc.SearchTags(context.Background(), SearchQuery{Query: query})
		assert.Equal(t, 2, result.TotalFound, "query %q", query)
		require.Len(t, result.Tags, 2)

		names := []string{result.Tags[0].Name, result.Tags[1].Name}
		assert.ElementsMatch(t, []string{"NURSE_1", "NURSE_2"}, names)
	}
}

func TestSearchTagsByMACSubstring(t *testing.T) {
	svc := newTestService(&memStore{})

	result := svc.SearchTags(context.Background(), SearchQuery{Query: "dd:ee:0a"})
	assert.Equal(t, 1, result.TotalFound)
	require.Len(t, result.Tags, 1)
	assert.Equal(t, "IV_PUMP_1", result.Tags[0].Name)
}

func TestSearchTagsByType(t *testing.T) {
	svc := newTestService(&memStore{})

	result := svc.SearchTags(context.Background(), SearchQuery{Type: "Patient"})
	assert.Equal(t, 3, result.TotalFound)
	assert.Equal(t, 3, result.Returned)

	// Exact match, not substring.
	result = svc.SearchTags(context.Background(), SearchQuery{Type: "pat"})
	assert.Equal(t, 0, result.TotalFound)
}

func TestSearchTagsPresenceFilter(t *testing.T) {
	store := &memStore{}
	seedSighting(store, "AA:BB:CC:DD:EE:07", -60, testNow) // NURSE_1 present
	svc := newTestService(store)

	present := true
	result := svc.SearchTags(context.Background(), SearchQuery{Query: "nurse", IsPresent: &present})
	assert.Equal(t, 2, result.TotalFound)
	assert.Equal(t, 1, result.Returned)
	require.Len(t, result.Tags, 1)
	assert.Equal(t, "NURSE_1", result.Tags[0].Name)

	absent := false
	result = svc.SearchTags(context.Background(), SearchQuery{Query: "nurse", IsPresent: &absent})
	assert.Equal(t, 1, result.Returned)
	assert.Equal(t, "NURSE_2", result.Tags[0].Name)
}

func TestSearchTagsLimitBoundsStatusComputation(t *testing.T) {
	svc := newTestService(&memStore{})

	result := svc.SearchTags(context.Background(), SearchQuery{Limit: 2})
	assert.Equal(t, svc.Registry().Size(), result.TotalFound)
	assert.Equal(t, 2, result.Returned)
}

func TestSearchTagsLimitAppliedBeforePresenceFilter(t *testing.T) {
	store := &memStore{}
	// Only the third roster tag is present; with limit 2 it is never
	// status-checked, so a presence search returns nothing.
	seedSighting(store, "AA:BB:CC:DD:EE:03", -60, testNow)
	svc := newTestService(store)

	present := true
	result := svc.SearchTags(context.Background(), SearchQuery{IsPresent: &present, Limit: 2})
	assert.Equal(t, svc.Registry().Size(), result.TotalFound)
	assert.Equal(t, 0, result.Returned)
}

func TestSearchTagsSkipsStatusFailures(t *testing.T) {
	store := &memStore{readErrFor: map[string]error{
		"AA:BB:CC:DD:EE:07": errors.New("io timeout"),
	}}
	svc := newTestService(store)

	result := svc.SearchTags(context.Background(), SearchQuery{Query: "nurse"})
	assert.Equal(t, 2, result.TotalFound)
	assert.Equal(t, 1, result.Returned)
	require.Len(t, result.Tags, 1)
	assert.Equal(t, "NURSE_2", result.Tags[0].Name)
}

func TestSearchTagsNoFilters(t *testing.T) {
	svc := newTestService(&memStore{})

	result := svc.SearchTags(context.Background(), SearchQuery{})
	assert.Equal(t, svc.Registry().Size(), result.TotalFound)
	assert.Equal(t, svc.Registry().Size(), result.Returned)
}
