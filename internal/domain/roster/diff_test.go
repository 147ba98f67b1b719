package roster

import "testing"

func row(idx int, npi, name string) Record {
	f := NewFieldMap()
	f["Provider NPI"] = npi
	f["Provider Name"] = name
	return Record{RowIndex: idx, Fields: f, Confidence: 1, Method: MethodRule}
}

func TestDiffMatchesByIdentifier(t *testing.T) {
	before := []Record{row(0, "1234567893", "Jane Doe"), row(1, "1111111111", "John Roe")}
	// same providers, reordered, one name changed
	after := []Record{row(0, "1111111111", "John Roe"), row(1, "1234567893", "Jane D. Doe")}

	changes := Diff(before, after)
	if len(changes) != 1 {
		t.Fatalf("Diff() len = %d, want 1: %#v", len(changes), changes)
	}
	c := changes[0]
	if c.Kind != ChangeModified || c.Field != "Provider Name" || c.Before != "Jane Doe" || c.After != "Jane D. Doe" {
		t.Fatalf("Diff() change = %#v", c)
	}
}

func TestDiffAddedAndRemovedRows(t *testing.T) {
	before := []Record{row(0, "1234567893", "Jane Doe")}
	after := []Record{row(0, "1234567893", "Jane Doe"), row(1, "1111111111", "John Roe")}

	changes := Diff(before, after)
	for _, c := range changes {
		if c.Kind != ChangeAdded {
			t.Fatalf("Diff() kind = %s, want added", c.Kind)
		}
	}
	if len(changes) != 2 {
		t.Fatalf("Diff() len = %d, want 2 (npi + name)", len(changes))
	}

	changes = Diff(after, before)
	for _, c := range changes {
		if c.Kind != ChangeRemoved {
			t.Fatalf("Diff() kind = %s, want removed", c.Kind)
		}
	}
}

func TestDiffPositionalFallback(t *testing.T) {
	b := Record{RowIndex: 0, Fields: NewFieldMap()}
	b.Fields["Provider Name"] = "Jane Doe"
	a := Record{RowIndex: 0, Fields: NewFieldMap()}
	a.Fields["Provider Name"] = "John Roe"

	changes := Diff([]Record{b}, []Record{a})
	if len(changes) != 1 || changes[0].Kind != ChangeModified {
		t.Fatalf("Diff() = %#v", changes)
	}
}

func TestRequiredFillRate(t *testing.T) {
	f := NewFieldMap()
	if got := RequiredFillRate(f); got != 0 {
		t.Fatalf("RequiredFillRate(empty) = %v", got)
	}
	f["Provider NPI"] = "1234567893"
	f["Provider Name"] = "Jane Doe"
	if got := RequiredFillRate(f); got != 0.5 {
		t.Fatalf("RequiredFillRate(half) = %v", got)
	}
}

func TestShouldEscalate(t *testing.T) {
	if ShouldEscalate(0.8, 0.7) {
		t.Fatalf("ShouldEscalate(0.8, 0.7) = true")
	}
	if !ShouldEscalate(0.5, 0.7) {
		t.Fatalf("ShouldEscalate(0.5, 0.7) = false")
	}
}
