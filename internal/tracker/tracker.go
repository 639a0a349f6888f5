// Package tracker implements the ingestion-and-presence core: packet
// ingestion (single and batch), presence derivation, history aggregation,
// and roster search. The service owns no state of its own; it is a stateless
// orchestrator over the read-only registry and the sighting store.
package tracker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"wardtrack/server/internal/model"
	"wardtrack/server/internal/registry"
)

// SightingStore is the persistence contract the tracker needs. Inserts must
// be durable before returning and reads must reflect prior completed inserts.
type SightingStore interface {
	InsertSighting(ctx context.Context, sighting model.Sighting) (int64, error)
	LatestSighting(ctx context.Context, mac string) (*model.Sighting, error)
	SightingsSince(ctx context.Context, mac string, cutoff time.Time, limit int) ([]model.Sighting, error)
}

// TagNotFoundError reports a query for a MAC that is not normalizable or not
// in the roster.
type TagNotFoundError struct {
	MAC string
}

func (e *TagNotFoundError) Error() string {
	return fmt.Sprintf("tag not found: %s", e.MAC)
}

// StorageError reports a store read or write that could not complete.
type StorageError struct {
	MAC string
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage failure (%s, mac=%s): %v", e.Op, e.MAC, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Service wires the registry and store together. Safe for concurrent use;
// the registry is immutable and the store manages its own concurrency.
type Service struct {
	registry        *registry.Registry
	store           SightingStore
	presenceTimeout time.Duration
	logger          *slog.Logger
	now             func() time.Time
}

// New constructs the tracker service. presenceTimeout is how long after its
// last sighting a tag still counts as present.
func New(reg *registry.Registry, store SightingStore, presenceTimeout time.Duration, logger *slog.Logger) *Service {
	return &Service{
		registry:        reg,
		store:           store,
		presenceTimeout: presenceTimeout,
		logger:          logger,
		now:             time.Now,
	}
}

// Registry exposes the roster for transport-layer listings.
func (s *Service) Registry() *registry.Registry {
	return s.registry
}
