// SPDX-License-Identifier: MPL-2.0

package host

import (
	"errors"
	"testing"
)

func TestSettingsGetSet(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		key     string
		value   string
		want    string
		wantErr error
	}{
		{name: "auto run", key: SettingAutoRun, value: "true", want: "true"},
		{name: "case insensitive key", key: "Show_Progress", value: "false", want: "false"},
		{name: "copy to source", key: SettingCopyToSource, value: "1", want: "true"},
		{name: "output name", key: SettingOutputName, value: " DSD Output ", want: "DSD Output"},
		{name: "clear output name", key: SettingOutputName, value: "", want: ""},
		{name: "bad bool", key: SettingAutoRun, value: "maybe", wantErr: ErrInvalidSettingValue},
		{name: "bad output name", key: SettingOutputName, value: "a/b", wantErr: ErrInvalidSettingValue},
		{name: "unknown key", key: "colour", value: "x", wantErr: ErrUnknownSetting},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s := DefaultSettings()
			err := s.Set(tt.key, tt.value)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Set() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Set() error = %v", err)
			}
			got, err := s.Get(tt.key)
			if err != nil {
				t.Fatalf("Get() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Get() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDefaultSettings(t *testing.T) {
	t.Parallel()

	s := DefaultSettings()
	if s.AutoRun || s.CopyToSource || s.OutputName != "" {
		t.Errorf("DefaultSettings() = %+v, want everything off", s)
	}
	if !s.ShowProgress {
		t.Error("DefaultSettings().ShowProgress = false, want true")
	}
	if _, err := s.Get("nope"); !errors.Is(err, ErrUnknownSetting) {
		t.Errorf("Get(nope) error = %v, want ErrUnknownSetting", err)
	}
}
