package address

import (
	"bytes"
	"errors"
	"testing"
)

var testProgram = MustParse("BZC28tbriJNMVB1WpAsiAywUUQUCm7q6JfbzeTfXXgtz")

func TestFindProgramAddress_KnownVector(t *testing.T) {
	addr, bump, err := FindProgramAddress([][]byte{[]byte("hello")}, testProgram)
	if err != nil {
		t.Fatalf("FindProgramAddress: %v", err)
	}
	if got, want := addr.String(), "ARMUfAEYhnaf2Xx2vCKS2tsnegca5UXdaLpwL4djWxj7"; got != want {
		t.Fatalf("address: got %s want %s", got, want)
	}
	if bump != 253 {
		t.Fatalf("bump: got %d want 253", bump)
	}
}

func TestCreateProgramAddress_RejectsOnCurveBump(t *testing.T) {
	// Bumps 255 and 254 both land on the curve for this seed.
	for _, b := range []byte{255, 254} {
		_, err := CreateProgramAddress([][]byte{[]byte("hello"), {b}}, testProgram)
		if !errors.Is(err, ErrOnCurve) {
			t.Fatalf("bump %d: got %v want ErrOnCurve", b, err)
		}
	}
	addr, err := CreateProgramAddress([][]byte{[]byte("hello"), {253}}, testProgram)
	if err != nil {
		t.Fatalf("CreateProgramAddress: %v", err)
	}
	found, _, err := FindProgramAddress([][]byte{[]byte("hello")}, testProgram)
	if err != nil {
		t.Fatalf("FindProgramAddress: %v", err)
	}
	if addr != found {
		t.Fatalf("create/find disagree: %s vs %s", addr, found)
	}
}

func TestFindProgramAddress_Deterministic(t *testing.T) {
	seeds := [][]byte{[]byte("metadata"), MetadataProgram[:], bytes.Repeat([]byte{9}, 32)}
	a1, b1, err := FindProgramAddress(seeds, MetadataProgram)
	if err != nil {
		t.Fatalf("FindProgramAddress: %v", err)
	}
	a2, b2, err := FindProgramAddress(seeds, MetadataProgram)
	if err != nil {
		t.Fatalf("FindProgramAddress: %v", err)
	}
	if a1 != a2 || b1 != b2 {
		t.Fatalf("expected deterministic derivation")
	}
	if IsOnCurve(a1) {
		t.Fatalf("derived address must be off curve")
	}

	other, _, err := FindProgramAddress(seeds, TokenProgram)
	if err != nil {
		t.Fatalf("FindProgramAddress: %v", err)
	}
	if other == a1 {
		t.Fatalf("expected different programs to derive different addresses")
	}
}

func TestCreateProgramAddress_SeedLimits(t *testing.T) {
	if _, err := CreateProgramAddress([][]byte{make([]byte, MaxSeedLen+1)}, testProgram); !errors.Is(err, ErrMaxSeedLength) {
		t.Fatalf("got %v want ErrMaxSeedLength", err)
	}
	seeds := make([][]byte, MaxSeeds+1)
	for i := range seeds {
		seeds[i] = []byte{byte(i)}
	}
	if _, err := CreateProgramAddress(seeds, testProgram); !errors.Is(err, ErrTooManySeeds) {
		t.Fatalf("got %v want ErrTooManySeeds", err)
	}
	if _, _, err := FindProgramAddress(seeds[:MaxSeeds], testProgram); !errors.Is(err, ErrTooManySeeds) {
		t.Fatalf("find: got %v want ErrTooManySeeds", err)
	}
}

func TestIsOnCurve(t *testing.T) {
	// Compressed ed25519 base point.
	base := Address{0x58}
	for i := 1; i < Size; i++ {
		base[i] = 0x66
	}
	if !IsOnCurve(base) {
		t.Fatalf("base point must be on curve")
	}
}
