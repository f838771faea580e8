package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/kestrelbio/poabatch/internal/scheduler"
)

// Run scopes disposition writes to one scheduling run. Implements
// scheduler.Recorder.
type Run struct {
	store *Store
	id    string
}

// BeginRun inserts a run row and returns a recorder for it. Run ids are
// UUIDv7, so they sort by start time.
func (s *Store) BeginRun(ctx context.Context, mode scheduler.Mode) (*Run, error) {
	id := uuid.Must(uuid.NewV7()).String()

	modeName := "consensus"
	if mode == scheduler.ModeMSA {
		modeName = "msa"
	}

	_, err := s.db.ExecContext(ctx, `INSERT INTO runs (id, mode) VALUES (?, ?)`, id, modeName)
	if err != nil {
		return nil, fmt.Errorf("begin run: %w", err)
	}
	return &Run{store: s, id: id}, nil
}

// ID returns the run's identifier.
func (r *Run) ID() string { return r.id }

// Record writes one terminal disposition. The (run, group) primary key
// enforces the completeness invariant: a second disposition for the same
// group is a scheduler bug and fails loudly.
func (r *Run) Record(d scheduler.Disposition) error {
	_, err := r.store.db.Exec(`
		INSERT INTO dispositions (run_id, group_id, batch, outcome, reason)
		VALUES (?, ?, ?, ?, ?)
	`, r.id, d.GroupID, d.Batch, d.Outcome.String(), d.Reason)
	if err != nil {
		return fmt.Errorf("record disposition: %w", err)
	}
	return nil
}
