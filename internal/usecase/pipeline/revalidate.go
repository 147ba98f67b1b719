package pipeline

import (
	"rosterflow/internal/domain/normalize"
	"rosterflow/internal/domain/roster"
	"rosterflow/internal/domain/validate"
)

// revalidate re-normalizes and re-validates a record set in place. Rows
// already in canonical form pass through unchanged, so applying this to an
// edited version only touches the edited cells.
func (s *Service) revalidate(rows []roster.Record, sender string) ([]roster.Issue, error) {
	policy := s.policies.NormalizePolicy(sender)

	var deltas []normalize.Delta
	for i := range rows {
		fields, rowDeltas := normalize.Row(rows[i].Fields, rows[i].RowIndex, policy)
		rows[i].Fields = fields
		deltas = append(deltas, rowDeltas...)
	}

	return validate.Run(rows, deltas, validate.Config{
		Now:             s.now(),
		DuplicateWinner: s.opts.DuplicateWinner,
	}), nil
}
