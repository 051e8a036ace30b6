package address

import (
	"errors"
	"testing"
)

func TestParse_RoundTrip(t *testing.T) {
	const s = "4wBqpZM9xaSheZzJSMawUKKwhdpChKbZ5eu5ky4Vigw"
	a, err := Parse(s)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	for i := 0; i < Size; i++ {
		if a[i] != byte(i+1) {
			t.Fatalf("byte %d: got %d want %d", i, a[i], i+1)
		}
	}
	if a.String() != s {
		t.Fatalf("String: got %s want %s", a.String(), s)
	}
}

func TestParse_Errors(t *testing.T) {
	if _, err := Parse("0OIl"); !errors.Is(err, ErrInvalidBase58) {
		t.Fatalf("got %v want ErrInvalidBase58", err)
	}
	if _, err := Parse("1111"); !errors.Is(err, ErrInvalidLength) {
		t.Fatalf("got %v want ErrInvalidLength", err)
	}
}

func TestWellKnown(t *testing.T) {
	if SystemProgram != Zero {
		t.Fatalf("system program must be the zero address")
	}
	seen := map[Address]string{}
	for name, a := range map[string]Address{
		"system":   SystemProgram,
		"token":    TokenProgram,
		"ata":      AssociatedTokenProgram,
		"metadata": MetadataProgram,
		"sysvar":   SysvarOwner,
		"rent":     RentSysvar,
		"loader":   NativeLoader,
	} {
		if prev, ok := seen[a]; ok {
			t.Fatalf("%s collides with %s", name, prev)
		}
		seen[a] = name
	}
}

func TestTextMarshaling(t *testing.T) {
	b, err := TokenProgram.MarshalText()
	if err != nil {
		t.Fatalf("MarshalText: %v", err)
	}
	var got Address
	if err := got.UnmarshalText(b); err != nil {
		t.Fatalf("UnmarshalText: %v", err)
	}
	if got != TokenProgram {
		t.Fatalf("round trip mismatch")
	}
}
