package store

import (
	"context"
	"fmt"

	"github.com/kestrelbio/poabatch/internal/scheduler"
)

// DispositionRow is one stored disposition.
type DispositionRow struct {
	GroupID int
	Batch   int
	Outcome scheduler.Outcome
	Reason  string
}

// Dispositions returns every disposition of a run, ordered by group id.
func (s *Store) Dispositions(ctx context.Context, runID string) ([]DispositionRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT group_id, batch, outcome, reason
		FROM dispositions
		WHERE run_id = ?
		ORDER BY group_id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query dispositions: %w", err)
	}
	defer rows.Close()

	var out []DispositionRow
	for rows.Next() {
		var row DispositionRow
		var outcome string
		if err := rows.Scan(&row.GroupID, &row.Batch, &outcome, &row.Reason); err != nil {
			return nil, fmt.Errorf("scan disposition: %w", err)
		}
		row.Outcome, err = parseOutcome(outcome)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate dispositions: %w", err)
	}
	return out, nil
}

func parseOutcome(s string) (scheduler.Outcome, error) {
	switch s {
	case "processed":
		return scheduler.OutcomeProcessed, nil
	case "output_failed":
		return scheduler.OutcomeOutputFailed, nil
	case "skipped":
		return scheduler.OutcomeSkipped, nil
	default:
		return 0, fmt.Errorf("unknown outcome %q in store", s)
	}
}
