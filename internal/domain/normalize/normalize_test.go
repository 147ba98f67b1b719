package normalize

import (
	"testing"

	"rosterflow/internal/domain/roster"
)

func TestPhone(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"(555) 234-5678", "+15552345678", true},
		{"555.234.5678", "+15552345678", true},
		{"1-555-234-5678", "+15552345678", true},
		{"+15552345678", "+15552345678", true},
		{"234-5678", "", false},
		{"not a phone", "", false},
		{"055-234-5678", "", false},
	}
	for _, tc := range cases {
		got, ok := Phone(tc.in)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("Phone(%q) = %q, %v; want %q, %v", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestPhoneIdempotent(t *testing.T) {
	first, ok := Phone("(555) 234-5678")
	if !ok {
		t.Fatalf("Phone() failed")
	}
	second, ok := Phone(first)
	if !ok || second != first {
		t.Fatalf("Phone(Phone(x)) = %q, %v; want %q", second, ok, first)
	}
}

func TestDateMonthFirstBias(t *testing.T) {
	got, ok := Date("3/4/2021", MonthFirst)
	if !ok || got != "03/04/2021" {
		t.Fatalf("Date() = %q, %v", got, ok)
	}
	got, ok = Date("3/4/2021", DayFirst)
	if !ok || got != "04/03/2021" {
		t.Fatalf("Date(DMY) = %q, %v", got, ok)
	}
}

func TestDateUnambiguousComponentWins(t *testing.T) {
	// 25 cannot be a month, regardless of policy.
	got, ok := Date("25/12/2021", MonthFirst)
	if !ok || got != "12/25/2021" {
		t.Fatalf("Date() = %q, %v", got, ok)
	}
}

func TestDateCanonicalInputStable(t *testing.T) {
	// The canonical form is accepted as-is even under a day-first policy.
	got, ok := Date("03/04/2021", DayFirst)
	if !ok || got != "03/04/2021" {
		t.Fatalf("Date(canonical) = %q, %v", got, ok)
	}
}

func TestDateISOAndTextual(t *testing.T) {
	if got, ok := Date("2021-12-05", MonthFirst); !ok || got != "12/05/2021" {
		t.Fatalf("Date(iso) = %q, %v", got, ok)
	}
	if got, ok := Date("January 5, 2021", MonthFirst); !ok || got != "01/05/2021" {
		t.Fatalf("Date(textual) = %q, %v", got, ok)
	}
}

func TestDateInvalid(t *testing.T) {
	for _, in := range []string{"02/31/2021", "13/13/2021", "soon", ""} {
		if _, ok := Date(in, MonthFirst); ok {
			t.Fatalf("Date(%q) ok = true", in)
		}
	}
}

func TestNPIChecksum(t *testing.T) {
	// 1234567893 is the canonical NPI check example.
	digits, valid := NPI("1234567893")
	if digits != "1234567893" || !valid {
		t.Fatalf("NPI() = %q, %v", digits, valid)
	}
	digits, valid = NPI("1234567894")
	if digits != "1234567894" || valid {
		t.Fatalf("NPI(bad check) = %q, %v", digits, valid)
	}
	if _, valid := NPI("12345"); valid {
		t.Fatalf("NPI(short) valid = true")
	}
	digits, valid = NPI("NPI: 1234-5678-93")
	if digits != "1234567893" || !valid {
		t.Fatalf("NPI(formatted) = %q, %v", digits, valid)
	}
}

func TestAddress(t *testing.T) {
	got, confidence := Address("123  Main   Street, Springfield, IL 62704")
	if got != "123 Main St, Springfield, IL 62704" {
		t.Fatalf("Address() = %q", got)
	}
	if confidence < 0.9 {
		t.Fatalf("Address() confidence = %v", confidence)
	}

	// Unstructured input is kept, at reduced confidence.
	got, confidence = Address("somewhere downtown")
	if got != "somewhere downtown" {
		t.Fatalf("Address(unstructured) = %q", got)
	}
	if confidence > 0.5 {
		t.Fatalf("Address(unstructured) confidence = %v", confidence)
	}
}

func TestAddressIdempotent(t *testing.T) {
	first, c1 := Address("123 Main Street, Springfield, IL 62704")
	second, c2 := Address(first)
	if second != first || c1 != c2 {
		t.Fatalf("Address(Address(x)) = %q (%v), want %q (%v)", second, c2, first, c1)
	}
}

func TestRowNeverDropsFields(t *testing.T) {
	fields := roster.NewFieldMap()
	fields["Provider NPI"] = "1234567894" // bad checksum
	fields["Phone Number"] = "garbage"
	fields["Effective Date"] = "soon"
	fields["Provider Name"] = "  jane   doe "

	out, deltas := Row(fields, 0, Policy{})

	if out["Provider NPI"] != "1234567894" {
		t.Fatalf("npi dropped: %q", out["Provider NPI"])
	}
	if out["Phone Number"] != "garbage" {
		t.Fatalf("phone dropped: %q", out["Phone Number"])
	}
	if out["Effective Date"] != "soon" {
		t.Fatalf("date dropped: %q", out["Effective Date"])
	}
	if out["Provider Name"] != "jane doe" {
		t.Fatalf("name = %q", out["Provider Name"])
	}

	failed := FailedFields(deltas)
	for _, field := range []string{"Provider NPI", "Phone Number", "Effective Date"} {
		if _, ok := failed[0][field]; !ok {
			t.Fatalf("missing failure delta for %s", field)
		}
	}
}

func TestRowIdempotent(t *testing.T) {
	fields := roster.NewFieldMap()
	fields["Provider NPI"] = "1234-567-893"
	fields["Phone Number"] = "(555) 234-5678"
	fields["Effective Date"] = "2021-06-01"
	fields["Complete Address"] = "123 Main Street, Springfield, IL 62704"

	once, _ := Row(fields, 0, Policy{})
	twice, deltas := Row(once, 0, Policy{})

	for _, col := range roster.Columns {
		if once[col] != twice[col] {
			t.Fatalf("field %s not stable: %q vs %q", col, once[col], twice[col])
		}
	}
	if len(FailedFields(deltas)) != 0 {
		t.Fatalf("second run produced failure deltas: %#v", deltas)
	}
}
