package domain

import "testing"

// FuzzParseIDs checks that every id kind agrees on what it accepts and that
// anything accepted is non-nil and stable under String.
func FuzzParseIDs(f *testing.F) {
	for _, seed := range []string{
		"",
		"550e8400-e29b-41d4-a716-446655440000",
		"00000000-0000-0000-0000-000000000000",
		"{550e8400-e29b-41d4-a716-446655440000}",
		"'; DROP TABLE records;--",
		"\x00\x01\x02",
	} {
		f.Add(seed)
	}

	f.Fuzz(func(t *testing.T, input string) {
		rec, err := ParseRecordID(input)
		if err != nil {
			for kind, parse := range idParsers {
				if _, other := parse(input); other == nil {
					t.Fatalf("%s accepted %q which record rejected", kind, input)
				}
			}
			return
		}
		if rec.IsNil() {
			t.Fatalf("nil id accepted from %q", input)
		}
		again, err := ParseRecordID(rec.String())
		if err != nil || again != rec {
			t.Fatalf("%q did not survive a String round trip", input)
		}
	})
}
