package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

type seqID struct{ n int }

func (s *seqID) Generate() string {
	s.n++
	return fmt.Sprintf("id-%d", s.n)
}

const seedYAML = `detectors:
  - name: airdos-c
    sn: "0042"
    type: AIRDOS
    calibs:
      - name: airdos-c-default
        description: factory calibration
        coef0: 0
        coef1: 16000
`

func writeSeedFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "detectors.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write seed: %v", err)
	}
	return path
}

func TestLoadSeed(t *testing.T) {
	seed, err := LoadSeed(writeSeedFile(t, seedYAML))
	if err != nil {
		t.Fatalf("load seed: %v", err)
	}

	if len(seed.Detectors) != 1 || seed.Detectors[0].Name != "airdos-c" {
		t.Fatalf("unexpected seed: %+v", seed)
	}
	if len(seed.Detectors[0].Calibs) != 1 || seed.Detectors[0].Calibs[0].Coef1 != 16000 {
		t.Fatalf("unexpected calibs: %+v", seed.Detectors[0].Calibs)
	}
}

func TestLoadSeedRejectsBadYAML(t *testing.T) {
	if _, err := LoadSeed(writeSeedFile(t, "detectors: [")); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestApplySeedIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	ids := &seqID{}

	seed, err := LoadSeed(writeSeedFile(t, seedYAML))
	if err != nil {
		t.Fatalf("load seed: %v", err)
	}

	if err := s.ApplySeed(ctx, seed, ids); err != nil {
		t.Fatalf("apply seed: %v", err)
	}

	detector, err := s.DetectorByName(ctx, "airdos-c")
	if err != nil {
		t.Fatalf("detector by name: %v", err)
	}

	// Re-applying with changed coefficients keeps ids and refreshes values.
	seed.Detectors[0].Calibs[0].Coef1 = 15500
	if err := s.ApplySeed(ctx, seed, ids); err != nil {
		t.Fatalf("re-apply seed: %v", err)
	}

	again, err := s.DetectorByName(ctx, "airdos-c")
	if err != nil {
		t.Fatalf("detector by name: %v", err)
	}
	if again.ID != detector.ID {
		t.Fatalf("detector id changed on re-apply: %s -> %s", detector.ID, again.ID)
	}

	calib, err := s.CalibByName(ctx, "airdos-c-default")
	if err != nil {
		t.Fatalf("calib by name: %v", err)
	}
	if calib.Coef1 != 15500 {
		t.Fatalf("expected refreshed coef1, got %v", calib.Coef1)
	}
}
