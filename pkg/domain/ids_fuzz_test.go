package domain

import (
	"testing"
	"unicode/utf8"
)

// FuzzParseApplicationID checks that parsing never panics on arbitrary input
// and that anything accepted survives a round-trip through String.
func FuzzParseApplicationID(f *testing.F) {
	f.Add("")
	f.Add("550e8400-e29b-41d4-a716-446655440000")
	f.Add("00000000-0000-0000-0000-000000000000")
	f.Add("not-a-uuid")
	f.Add("'; DROP TABLE applications;--")
	f.Add(string([]byte{0x00, 0x01, 0x02}))
	f.Add("550e8400-e29b-41d4-a716-446655440000\x00suffix")

	f.Fuzz(func(t *testing.T, input string) {
		parsed, err := ParseApplicationID(input)
		if err != nil {
			return
		}
		roundTrip, err := ParseApplicationID(parsed.String())
		if err != nil {
			t.Errorf("accepted ID failed round-trip: %v", err)
		}
		if roundTrip != parsed {
			t.Error("round-trip changed ID value")
		}
		if !utf8.ValidString(input) {
			t.Error("non-UTF8 input was accepted")
		}
	})
}
