// SPDX-License-Identifier: MPL-2.0

package host

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	SettingAutoRun      = "auto_run"
	SettingShowProgress = "show_progress"
	SettingCopyToSource = "copy_to_source"
	SettingOutputName   = "output_name"
)

var (
	// ErrUnknownSetting is returned by Get and Set for unrecognized keys.
	ErrUnknownSetting = errors.New("unknown setting")
	// ErrInvalidSettingValue is returned by Set when the value does not parse.
	ErrInvalidSettingValue = errors.New("invalid setting value")
)

// Settings are the per-instance options persisted by a SettingsStore.
type Settings struct {
	// AutoRun runs an autonomous batch before the trigger executable launches.
	AutoRun bool `toml:"auto_run" yaml:"auto_run"`
	// ShowProgress prints per-pair progress during autonomous runs.
	ShowProgress bool `toml:"show_progress" yaml:"show_progress"`
	// CopyToSource hides each translation plugin and copies its artifact into
	// the translation's own package.
	CopyToSource bool `toml:"copy_to_source" yaml:"copy_to_source"`
	// OutputName names the output package; empty means a timestamped default.
	OutputName string `toml:"output_name" yaml:"output_name"`
}

// DefaultSettings returns the settings used when nothing is persisted.
func DefaultSettings() Settings {
	return Settings{ShowProgress: true}
}

// SettingKeys lists every key accepted by Get and Set.
func SettingKeys() []string {
	return []string{SettingAutoRun, SettingShowProgress, SettingCopyToSource, SettingOutputName}
}

// Get returns the string form of a setting.
func (s Settings) Get(key string) (string, error) {
	switch strings.ToLower(key) {
	case SettingAutoRun:
		return strconv.FormatBool(s.AutoRun), nil
	case SettingShowProgress:
		return strconv.FormatBool(s.ShowProgress), nil
	case SettingCopyToSource:
		return strconv.FormatBool(s.CopyToSource), nil
	case SettingOutputName:
		return s.OutputName, nil
	default:
		return "", fmt.Errorf("%w %q (valid: %s)", ErrUnknownSetting, key, strings.Join(SettingKeys(), ", "))
	}
}

// Set parses value into the named setting.
func (s *Settings) Set(key, value string) error {
	var target *bool
	switch strings.ToLower(key) {
	case SettingAutoRun:
		target = &s.AutoRun
	case SettingShowProgress:
		target = &s.ShowProgress
	case SettingCopyToSource:
		target = &s.CopyToSource
	case SettingOutputName:
		name := strings.TrimSpace(value)
		if err := validatePackageName(name); name != "" && err != nil {
			return fmt.Errorf("%w for %s: %w", ErrInvalidSettingValue, key, err)
		}
		s.OutputName = name
		return nil
	default:
		return fmt.Errorf("%w %q (valid: %s)", ErrUnknownSetting, key, strings.Join(SettingKeys(), ", "))
	}

	b, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		return fmt.Errorf("%w for %s: %q is not a boolean", ErrInvalidSettingValue, key, value)
	}
	*target = b
	return nil
}
