package snapshot

import (
	"context"
	"errors"
	"fmt"

	"github.com/gatewarden/gatewarden/pkg/iam"
	"github.com/gatewarden/gatewarden/pkg/logging"
)

// Gateway ties a graph to a store. It is invoked only at process
// boundaries: Load once at startup, Save once at shutdown.
type Gateway struct {
	sys   *iam.System
	store Store
}

// NewGateway creates a Gateway.
func NewGateway(sys *iam.System, store Store) *Gateway {
	return &Gateway{sys: sys, store: store}
}

// Load reads the stored snapshot and rebuilds the graph from it, replacing
// any existing state. A store holding no snapshot is a first run, not a
// failure: the graph starts empty and is populated through the admin
// surface. Any other load failure is fatal for the caller: there is no
// safe default graph to run with.
func (g *Gateway) Load(ctx context.Context) error {
	snap, err := g.store.Load(ctx)
	if errors.Is(err, ErrNoSnapshot) {
		logging.App.Warn("No stored snapshot, starting with an empty graph")
		return nil
	}
	if err != nil {
		return fmt.Errorf("loading snapshot: %w", err)
	}
	if err := Restore(g.sys, snap); err != nil {
		return fmt.Errorf("restoring snapshot: %w", err)
	}
	logging.App.Info("Loaded snapshot",
		"saved_at", snap.SavedAt,
		"resources", len(snap.Resources),
		"roles", len(snap.Roles))
	return nil
}

// Save captures the graph and writes it to the store, replacing the prior
// snapshot wholesale. The capture holds the graph's read lock only while
// copying; the store write runs without any graph lock, so a slow store
// never blocks decision queries.
func (g *Gateway) Save(ctx context.Context) error {
	snap := Capture(g.sys)
	if err := g.store.Save(ctx, snap); err != nil {
		return fmt.Errorf("saving snapshot: %w", err)
	}
	logging.App.Info("Saved snapshot",
		"resources", len(snap.Resources),
		"roles", len(snap.Roles))
	return nil
}
