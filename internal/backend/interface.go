// Package backend builds the remote store and replicator named by the
// application config.
package backend

import (
	"context"

	"peatracker/internal/config"
	"peatracker/internal/services"
	"peatracker/internal/store"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// RemoteResult contains the remote store and an optional cleanup function.
// Remote is nil for the none backend.
type RemoteResult struct {
	Remote  store.Remote
	Cleanup CleanupFunc
}

// ReplicatorResult contains the replicator and an optional cleanup function.
type ReplicatorResult struct {
	Replicator services.Replicator
	Cleanup    CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	// CreateRemote connects the store selected by cfg.RemoteBackend.
	CreateRemote(ctx context.Context, cfg *config.Config) (*RemoteResult, error)
	// CreateReplicator builds the replicator selected by cfg.ReplicationMode.
	CreateReplicator(ctx context.Context, cfg *config.Config, remote store.Remote) (*ReplicatorResult, error)
}
