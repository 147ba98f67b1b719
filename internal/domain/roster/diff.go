package roster

// ChangeKind classifies a diff entry.
type ChangeKind string

const (
	ChangeModified ChangeKind = "modified"
	ChangeAdded    ChangeKind = "added"
	ChangeRemoved  ChangeKind = "removed"
)

// Change is one per-row, per-field difference between two versions.
// For added/removed rows one entry is emitted per non-empty field.
type Change struct {
	Kind     ChangeKind
	RowIndex int
	Field    string
	Before   string
	After    string
}

// Diff compares two record sets field by field. Rows are matched by the
// identifier column when both sides carry one, else by position.
func Diff(before, after []Record) []Change {
	matchedB := make(map[int]bool, len(before))
	pairs := make([][2]*Record, 0, len(after))

	byID := make(map[string]int, len(before))
	for i := range before {
		if id := before[i].Fields[IdentifierColumn]; id != "" {
			if _, dup := byID[id]; !dup {
				byID[id] = i
			}
		}
	}

	for i := range after {
		a := &after[i]
		if id := a.Fields[IdentifierColumn]; id != "" {
			if bi, ok := byID[id]; ok && !matchedB[bi] {
				matchedB[bi] = true
				pairs = append(pairs, [2]*Record{&before[bi], a})
				continue
			}
		}
		// positional fallback
		if i < len(before) && !matchedB[i] && before[i].Fields[IdentifierColumn] == "" && a.Fields[IdentifierColumn] == "" {
			matchedB[i] = true
			pairs = append(pairs, [2]*Record{&before[i], a})
			continue
		}
		pairs = append(pairs, [2]*Record{nil, a})
	}

	var changes []Change
	for _, p := range pairs {
		b, a := p[0], p[1]
		if b == nil {
			for _, col := range Columns {
				if v := a.Fields[col]; v != "" {
					changes = append(changes, Change{Kind: ChangeAdded, RowIndex: a.RowIndex, Field: col, After: v})
				}
			}
			continue
		}
		for _, col := range Columns {
			if b.Fields[col] != a.Fields[col] {
				changes = append(changes, Change{
					Kind:     ChangeModified,
					RowIndex: a.RowIndex,
					Field:    col,
					Before:   b.Fields[col],
					After:    a.Fields[col],
				})
			}
		}
	}

	for i := range before {
		if matchedB[i] {
			continue
		}
		for _, col := range Columns {
			if v := before[i].Fields[col]; v != "" {
				changes = append(changes, Change{Kind: ChangeRemoved, RowIndex: before[i].RowIndex, Field: col, Before: v})
			}
		}
	}

	return changes
}
