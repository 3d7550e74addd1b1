// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"testing"
)

func TestScanDepth_IsValid(t *testing.T) {
	tests := []struct {
		value ScanDepth
		want  bool
	}{
		{ScanDepthTopLevel, true},
		{ScanDepthRecursive, true},
		{"", false},
		{"TOP_LEVEL", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.value), func(t *testing.T) {
			valid, errs := tt.value.IsValid()
			if valid != tt.want {
				t.Fatalf("IsValid() = %v, want %v", valid, tt.want)
			}
			if !tt.want && !errors.Is(errs[0], ErrInvalidScanDepth) {
				t.Errorf("error should wrap ErrInvalidScanDepth, got %v", errs[0])
			}
		})
	}
}

func TestPairingConfig_IsValid(t *testing.T) {
	tests := []struct {
		name string
		cfg  PairingConfig
		want bool
	}{
		{"defaults", PairingConfig{0.8, 1.2}, true},
		{"exact only", PairingConfig{1, 1}, true},
		{"zero min", PairingConfig{0, 1.2}, false},
		{"min above one", PairingConfig{1.1, 1.2}, false},
		{"max below one", PairingConfig{0.8, 0.9}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			valid, errs := tt.cfg.IsValid()
			if valid != tt.want {
				t.Fatalf("IsValid() = %v, want %v", valid, tt.want)
			}
			if !tt.want && !errors.Is(errs[0], ErrInvalidSizeRatio) {
				t.Errorf("error should wrap ErrInvalidSizeRatio, got %v", errs[0])
			}
		})
	}
}

func TestConfig_IsValid_CollectsFieldErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Scan.Depth = "deep"
	cfg.Scan.Extensions = []string{"esp"}
	cfg.UI.LogLevel = "loud"

	valid, errs := cfg.IsValid()
	if valid {
		t.Fatal("IsValid() = true, want false")
	}
	var cfgErr *InvalidConfigError
	if !errors.As(errs[0], &cfgErr) {
		t.Fatalf("expected *InvalidConfigError, got %T", errs[0])
	}
	if len(cfgErr.FieldErrors) != 3 {
		t.Errorf("FieldErrors = %d, want 3: %v", len(cfgErr.FieldErrors), cfgErr.FieldErrors)
	}
	for _, target := range []error{ErrInvalidScanDepth, ErrInvalidExtension, ErrInvalidLogLevel} {
		found := false
		for _, fe := range cfgErr.FieldErrors {
			if errors.Is(fe, target) {
				found = true
			}
		}
		if !found {
			t.Errorf("missing field error for %v", target)
		}
	}
	if !errors.Is(errs[0], ErrInvalidConfig) {
		t.Error("InvalidConfigError should wrap ErrInvalidConfig")
	}
}
