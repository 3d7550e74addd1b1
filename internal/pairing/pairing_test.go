// SPDX-License-Identifier: MPL-2.0

package pairing

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/LightSofa/dsd-generator/internal/negcache"
)

func writeSized(t *testing.T, dir, name string, size int) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, make([]byte, size), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func newValidator(t *testing.T) (*Validator, string) {
	t.Helper()
	dir := t.TempDir()
	v, err := New(negcache.Open(filepath.Join(dir, "cache.json"), nil), DefaultMinRatio, DefaultMaxRatio)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return v, dir
}

func TestCheck_SizeGate(t *testing.T) {
	tests := []struct {
		name      string
		candidate int
		want      Verdict
	}{
		{"exactly 1.2x", 1200, VerdictPlausible},
		{"exactly 0.8x", 800, VerdictPlausible},
		{"same size", 1000, VerdictPlausible},
		{"1.21x", 1210, VerdictSizeMismatch},
		{"0.79x", 790, VerdictSizeMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, dir := newValidator(t)
			orig := writeSized(t, dir, "orig.esp", 1000)
			cand := writeSized(t, dir, "cand.esp", tt.candidate)

			got, err := v.Check(orig, cand)
			if err != nil {
				t.Fatalf("Check() error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Check() = %v, want %v", got, tt.want)
			}
			if v.IsPlausible(orig, cand) != (tt.want == VerdictPlausible) {
				t.Errorf("IsPlausible() disagrees with Check()")
			}
		})
	}
}

func TestSizeWithinBounds_EmptyOriginal(t *testing.T) {
	v, _ := newValidator(t)
	if !v.SizeWithinBounds(0, 0) {
		t.Error("empty files should match")
	}
	if v.SizeWithinBounds(0, 1) {
		t.Error("a non-empty candidate cannot match an empty original")
	}
}

func TestRecordRejection_ThenRejected(t *testing.T) {
	v, dir := newValidator(t)
	orig := writeSized(t, dir, "Weapons.esp", 1000)
	candDir := filepath.Join(dir, "translation")
	if err := os.MkdirAll(candDir, 0o755); err != nil {
		t.Fatal(err)
	}
	cand := writeSized(t, candDir, "Weapons.esp", 1000)

	if err := v.RecordRejection(orig, cand); err != nil {
		t.Fatalf("RecordRejection() error: %v", err)
	}
	if got, _ := v.Check(orig, cand); got != VerdictPreviouslyRejected {
		t.Errorf("Check() = %v, want %v", got, VerdictPreviouslyRejected)
	}

	// Touching the original invalidates the cached rejection.
	later := time.Now().Add(time.Hour)
	if err := os.Chtimes(orig, later, later); err != nil {
		t.Fatal(err)
	}
	if got, _ := v.Check(orig, cand); got != VerdictPlausible {
		t.Errorf("Check() after original change = %v, want %v", got, VerdictPlausible)
	}
}

func TestCheck_Unreadable(t *testing.T) {
	v, dir := newValidator(t)
	orig := writeSized(t, dir, "orig.esp", 10)

	got, err := v.Check(orig, filepath.Join(dir, "missing.esp"))
	if got != VerdictUnreadable || err == nil {
		t.Errorf("Check() = %v, %v; want unreadable with error", got, err)
	}
	if v.IsPlausible(orig, filepath.Join(dir, "missing.esp")) {
		t.Error("IsPlausible() should be false for unreadable pairs")
	}
}

func TestNew_InvalidRatios(t *testing.T) {
	for _, r := range [][2]float64{{0, 1.2}, {1.1, 1.2}, {0.8, 0.9}} {
		if _, err := New(nil, r[0], r[1]); !errors.Is(err, ErrInvalidRatio) {
			t.Errorf("New(%v) error = %v, want ErrInvalidRatio", r, err)
		}
	}
}
