//go:build go1.18

package domain

import (
	"testing"
	"unicode/utf8"
)

// FuzzParseIdentityID checks parsing never panics and either yields a
// round-trippable ID or an error.
func FuzzParseIdentityID(f *testing.F) {
	f.Add("")
	f.Add("550e8400-e29b-41d4-a716-446655440000")
	f.Add("00000000-0000-0000-0000-000000000000")
	f.Add("not-a-uuid")
	f.Add(string([]byte{0x00, 0x01, 0x02}))

	f.Fuzz(func(t *testing.T, input string) {
		id, err := ParseIdentityID(input)
		if err == nil {
			roundTrip, err2 := ParseIdentityID(id.String())
			if err2 != nil {
				t.Errorf("valid ID failed round-trip: %v", err2)
			}
			if roundTrip != id {
				t.Error("round-trip changed ID value")
			}
		}
		if !utf8.ValidString(input) && err == nil {
			t.Error("non-UTF8 input was accepted")
		}
	})
}

func FuzzParseStationCode(f *testing.F) {
	f.Add("hq")
	f.Add("")
	f.Add("   ")

	f.Fuzz(func(t *testing.T, input string) {
		code, err := ParseStationCode(input)
		if err == nil && code == "" {
			t.Error("accepted empty station code")
		}
	})
}
