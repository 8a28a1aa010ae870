// Package store persists and loads bird survey observations.
package store

import (
	"context"

	"github.com/parksurvey/birdboard/internal/model"
)

// Store defines the persistence interface for the observation table.
type Store interface {
	// LoadObservations fetches every row of the observation table with
	// derived Year/Month filled in. The dashboard loads once per session
	// and works on the in-memory set from then on.
	LoadObservations(ctx context.Context) ([]model.Observation, error)

	// InsertObservations bulk-inserts survey rows, assigning IDs to rows
	// that lack one. Returns the number of rows written.
	InsertObservations(ctx context.Context, obs []model.Observation) (int64, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
