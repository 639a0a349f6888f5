package tracker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wardtrack/server/internal/mac"
	"wardtrack/server/internal/model"
)

func TestIngestKnownTag(t *testing.T) {
	store := &memStore{}
	svc := newTestService(store)

	result, err := svc.Ingest(context.Background(), model.RawPacket{
		MAC:       "aa:bb:cc:dd:ee:01",
		RSSI:      float64(-65),
		GatewayIP: "10.0.0.5",
	})
	require.NoError(t, err)

	assert.Equal(t, "ok", result.Status)
	assert.True(t, result.KnownTag)
	assert.Equal(t, "AA:BB:CC:DD:EE:01", result.MAC)
	require.NotNil(t, result.TagName)
	assert.Equal(t, "WHEELCHAIR_A", *result.TagName)
	require.NotNil(t, result.TagInfo)
	assert.Equal(t, "equipment", result.TagInfo.Type)
	assert.Equal(t, int64(1), result.SightingID)
	assert.Equal(t, testNow, result.Timestamp)
	assert.Equal(t, -65, result.RSSI)

	require.Len(t, store.sightings, 1)
	stored := store.sightings[0]
	require.NotNil(t, stored.TagName)
	assert.Equal(t, "WHEELCHAIR_A", *stored.TagName)
	require.NotNil(t, stored.GatewayIP)
	assert.Equal(t, "10.0.0.5", *stored.GatewayIP)
}

func TestIngestUnknownMACStillPersists(t *testing.T) {
	store := &memStore{}
	svc := newTestService(store)

	result, err := svc.Ingest(context.Background(), model.RawPacket{
		MAC:  "FF:FF:FF:FF:FF:FE",
		RSSI: -70,
	})
	require.NoError(t, err)

	assert.False(t, result.KnownTag)
	assert.Nil(t, result.TagName)
	assert.Nil(t, result.TagInfo)
	require.Len(t, store.sightings, 1)
	assert.Nil(t, store.sightings[0].TagName)
	assert.Nil(t, store.sightings[0].GatewayIP)
}

func TestIngestValidationFailureWritesNothing(t *testing.T) {
	store := &memStore{}
	svc := newTestService(store)

	_, err := svc.Ingest(context.Background(), model.RawPacket{MAC: "nope", RSSI: -70})
	var invalid *mac.InvalidMACError
	require.ErrorAs(t, err, &invalid)
	assert.Empty(t, store.sightings)

	_, err = svc.Ingest(context.Background(), model.RawPacket{
		MAC:       "AA:BB:CC:DD:EE:01",
		RSSI:      -70,
		GatewayIP: "not-an-ip",
	})
	require.Error(t, err)
	assert.Empty(t, store.sightings)
}

func TestIngestExplicitTimestamp(t *testing.T) {
	store := &memStore{}
	svc := newTestService(store)

	result, err := svc.Ingest(context.Background(), model.RawPacket{
		MAC:       "AA:BB:CC:DD:EE:02",
		RSSI:      -55,
		Timestamp: "2024-03-10 09:30:00",
	})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 10, 9, 30, 0, 0, time.UTC), result.Timestamp)
}

func TestIngestStorageFailure(t *testing.T) {
	cause := errors.New("disk full")
	store := &memStore{insertErr: cause}
	svc := newTestService(store)

	_, err := svc.Ingest(context.Background(), model.RawPacket{
		MAC:  "AA:BB:CC:DD:EE:01",
		RSSI: -70,
	})

	var storage *StorageError
	require.ErrorAs(t, err, &storage)
	assert.Equal(t, "AA:BB:CC:DD:EE:01", storage.MAC)
	assert.ErrorIs(t, err, cause)
}

func TestIngestBatchPartialFailure(t *testing.T) {
	store := &memStore{}
	svc := newTestService(store)

	result := svc.IngestBatch(context.Background(), []model.RawPacket{
		{MAC: "AA:BB:CC:DD:EE:01", RSSI: -60},
		{MAC: "garbage", RSSI: -60},
		{MAC: "FF:FF:FF:FF:FF:FE", RSSI: -80},
	})

	assert.Equal(t, 3, result.Total)
	assert.Equal(t, 2, result.Successful)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, 1, result.Errors[0].Index)
	assert.Equal(t, "garbage", result.Errors[0].MAC)
	assert.NotEmpty(t, result.Errors[0].Error)
	require.Len(t, result.Results, 2)
	assert.Len(t, store.sightings, 2)
}

func TestIngestBatchMissingMACLabeledUnknown(t *testing.T) {
	store := &memStore{}
	svc := newTestService(store)

	result := svc.IngestBatch(context.Background(), []model.RawPacket{
		{RSSI: -60},
	})

	require.Len(t, result.Errors, 1)
	assert.Equal(t, "unknown", result.Errors[0].MAC)
}

func TestIngestBatchEmpty(t *testing.T) {
	svc := newTestService(&memStore{})

	result := svc.IngestBatch(context.Background(), nil)
	assert.Equal(t, 0, result.Total)
	assert.NotNil(t, result.Errors)
	assert.NotNil(t, result.Results)
}
