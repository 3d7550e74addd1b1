// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// ScanDepthTopLevel only inspects the direct children of each package root.
	ScanDepthTopLevel ScanDepth = "top_level"
	// ScanDepthRecursive walks every directory below each package root.
	ScanDepthRecursive ScanDepth = "recursive"

	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

var (
	// ErrInvalidScanDepth is returned when a ScanDepth value is not recognized.
	ErrInvalidScanDepth = errors.New("invalid scan depth")
	// ErrInvalidLogLevel is returned when a LogLevel value is not recognized.
	ErrInvalidLogLevel = errors.New("invalid log level")
	// ErrInvalidSizeRatio is returned when the pairing ratio bounds are unusable.
	ErrInvalidSizeRatio = errors.New("invalid size ratio")
	// ErrInvalidExtension is returned when a scan extension is malformed.
	ErrInvalidExtension = errors.New("invalid plugin extension")
	// ErrInvalidCacheSize is returned when the extraction cache size is negative.
	ErrInvalidCacheSize = errors.New("invalid extraction cache size")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
)

type (
	// ScanDepth selects how deep the overlay resolver looks inside package roots.
	ScanDepth string

	// InvalidScanDepthError is returned when a ScanDepth value is not recognized.
	// It wraps ErrInvalidScanDepth for errors.Is() compatibility.
	InvalidScanDepthError struct {
		Value ScanDepth
	}

	// LogLevel is the minimum level printed by the CLI logger.
	LogLevel string

	// InvalidLogLevelError is returned when a LogLevel value is not recognized.
	InvalidLogLevelError struct {
		Value LogLevel
	}

	// InvalidSizeRatioError describes an unusable min/max pair.
	InvalidSizeRatioError struct {
		Min, Max float64
	}

	// InvalidExtensionError is returned for an extension that does not start with a dot.
	InvalidExtensionError struct {
		Value string
	}

	// InvalidConfigError is returned when a Config has invalid fields.
	// It wraps ErrInvalidConfig for errors.Is() compatibility and collects
	// field-level validation errors from all sub-components.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// Config holds the application configuration.
	Config struct {
		// InstanceDir is the mod manager instance root (contains mods/ and profiles/).
		InstanceDir string `json:"instance_dir" mapstructure:"instance_dir"`
		// Profile selects profiles/<Profile>/modlist.txt.
		Profile string `json:"profile" mapstructure:"profile"`
		// ExclusionFile overrides the exclusion list location.
		ExclusionFile string `json:"exclusion_file" mapstructure:"exclusion_file"`
		// Output configures the generated output package
		Output OutputConfig `json:"output" mapstructure:"output"`
		// Scan configures the overlay resolver
		Scan ScanConfig `json:"scan" mapstructure:"scan"`
		// Pairing configures the pair validator
		Pairing PairingConfig `json:"pairing" mapstructure:"pairing"`
		// Cache configures the negative cache and the extraction cache
		Cache CacheConfig `json:"cache" mapstructure:"cache"`
		// Launch configures the autonomous pre-launch trigger
		Launch LaunchConfig `json:"launch" mapstructure:"launch"`
		// UI configures the user interface
		UI UIConfig `json:"ui" mapstructure:"ui"`
	}

	// OutputConfig configures where artifacts are written.
	OutputConfig struct {
		// Subpath is the directory inside the output package that holds artifacts.
		Subpath string `json:"subpath" mapstructure:"subpath"`
		// NamePrefix prefixes the timestamped default output package name.
		NamePrefix string `json:"name_prefix" mapstructure:"name_prefix"`
	}

	ScanConfig struct {
		Depth      ScanDepth `json:"depth" mapstructure:"depth"`
		Extensions []string  `json:"extensions" mapstructure:"extensions"`
	}

	// PairingConfig holds the inclusive size ratio bounds.
	PairingConfig struct {
		MinSizeRatio float64 `json:"min_size_ratio" mapstructure:"min_size_ratio"`
		MaxSizeRatio float64 `json:"max_size_ratio" mapstructure:"max_size_ratio"`
	}

	CacheConfig struct {
		// NegativeCachePath overrides the rejection cache document location.
		NegativeCachePath string `json:"negative_cache_path" mapstructure:"negative_cache_path"`
		// ExtractionCacheSize bounds the in-memory extraction LRU (0 disables it).
		ExtractionCacheSize int `json:"extraction_cache_size" mapstructure:"extraction_cache_size"`
	}

	LaunchConfig struct {
		// TriggerExecutable is the executable base name that triggers a pre-launch batch.
		TriggerExecutable string `json:"trigger_executable" mapstructure:"trigger_executable"`
		// Command is the program started by `dsdgen launch` when no argv is given.
		Command string `json:"command" mapstructure:"command"`
	}

	// UIConfig configures the user interface.
	UIConfig struct {
		// Verbose enables verbose error output
		Verbose  bool     `json:"verbose" mapstructure:"verbose"`
		LogLevel LogLevel `json:"log_level" mapstructure:"log_level"`
	}
)

// String returns the string representation of the ScanDepth.
func (d ScanDepth) String() string { return string(d) }

// IsValid returns whether the ScanDepth is one of the defined depths,
// and a list of validation errors if it is not.
func (d ScanDepth) IsValid() (bool, []error) {
	switch d {
	case ScanDepthTopLevel, ScanDepthRecursive:
		return true, nil
	default:
		return false, []error{&InvalidScanDepthError{Value: d}}
	}
}

// Error implements the error interface.
func (e *InvalidScanDepthError) Error() string {
	return fmt.Sprintf("invalid scan depth %q (valid: top_level, recursive)", e.Value)
}

// Unwrap returns ErrInvalidScanDepth so callers can use errors.Is for programmatic detection.
func (e *InvalidScanDepthError) Unwrap() error { return ErrInvalidScanDepth }

func (l LogLevel) String() string { return string(l) }

// IsValid returns whether the LogLevel is one of the defined levels.
func (l LogLevel) IsValid() (bool, []error) {
	switch l {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
		return true, nil
	default:
		return false, []error{&InvalidLogLevelError{Value: l}}
	}
}

func (e *InvalidLogLevelError) Error() string {
	return fmt.Sprintf("invalid log level %q (valid: debug, info, warn, error)", e.Value)
}

func (e *InvalidLogLevelError) Unwrap() error { return ErrInvalidLogLevel }

func (e *InvalidSizeRatioError) Error() string {
	return fmt.Sprintf("invalid size ratio bounds [%g, %g] (need 0 < min <= 1 <= max)", e.Min, e.Max)
}

func (e *InvalidSizeRatioError) Unwrap() error { return ErrInvalidSizeRatio }

func (e *InvalidExtensionError) Error() string {
	return fmt.Sprintf("invalid plugin extension %q (must start with '.')", e.Value)
}

func (e *InvalidExtensionError) Unwrap() error { return ErrInvalidExtension }

// IsValid checks that min and max bracket 1.0.
func (c PairingConfig) IsValid() (bool, []error) {
	if c.MinSizeRatio <= 0 || c.MinSizeRatio > 1 || c.MaxSizeRatio < 1 {
		return false, []error{&InvalidSizeRatioError{Min: c.MinSizeRatio, Max: c.MaxSizeRatio}}
	}
	return true, nil
}

// IsValid returns whether the ScanConfig has valid fields.
func (c ScanConfig) IsValid() (bool, []error) {
	var errs []error
	if valid, fieldErrs := c.Depth.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	for _, ext := range c.Extensions {
		if len(ext) < 2 || !strings.HasPrefix(ext, ".") || strings.ContainsAny(ext, `/\ `) {
			errs = append(errs, &InvalidExtensionError{Value: ext})
		}
	}
	return len(errs) == 0, errs
}

// IsValid returns whether the Config has valid fields.
// It delegates to each section's IsValid() and wraps all field errors
// into a single InvalidConfigError.
func (c Config) IsValid() (bool, []error) {
	var errs []error
	if valid, fieldErrs := c.Scan.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if valid, fieldErrs := c.Pairing.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if c.Cache.ExtractionCacheSize < 0 {
		errs = append(errs, fmt.Errorf("%w: %d", ErrInvalidCacheSize, c.Cache.ExtractionCacheSize))
	}
	if valid, fieldErrs := c.UI.LogLevel.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if len(errs) > 0 {
		return false, []error{&InvalidConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface for InvalidConfigError.
func (e *InvalidConfigError) Error() string {
	msgs := make([]string, 0, len(e.FieldErrors))
	for _, err := range e.FieldErrors {
		msgs = append(msgs, err.Error())
	}
	return "invalid config: " + strings.Join(msgs, "; ")
}

// Unwrap returns ErrInvalidConfig and the field errors so errors.Is matches
// both the aggregate sentinel and individual field sentinels.
func (e *InvalidConfigError) Unwrap() []error {
	return append([]error{ErrInvalidConfig}, e.FieldErrors...)
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Profile: "Default",
		Output: OutputConfig{
			Subpath:    "SKSE/Plugins/DynamicStringDistributor",
			NamePrefix: "DSD_Configs_",
		},
		Scan: ScanConfig{
			Depth:      ScanDepthTopLevel,
			Extensions: []string{".esp", ".esm", ".esl"},
		},
		Pairing: PairingConfig{
			MinSizeRatio: 0.8,
			MaxSizeRatio: 1.2,
		},
		Cache: CacheConfig{
			ExtractionCacheSize: 64,
		},
		Launch: LaunchConfig{
			TriggerExecutable: "skse64_loader.exe",
		},
		UI: UIConfig{
			LogLevel: LogLevelInfo,
		},
	}
}

// NegativeCacheFile returns the configured rejection cache path, defaulting
// to dsdgen_negative_cache.json inside the instance directory.
func (c *Config) NegativeCacheFile() string {
	if c.Cache.NegativeCachePath != "" {
		return c.Cache.NegativeCachePath
	}
	return joinInstance(c.InstanceDir, "dsdgen_negative_cache.json")
}

// ExclusionListFile returns the configured exclusion list path, defaulting
// to dsdgen_exclude.txt inside the instance directory.
func (c *Config) ExclusionListFile() string {
	if c.ExclusionFile != "" {
		return c.ExclusionFile
	}
	return joinInstance(c.InstanceDir, "dsdgen_exclude.txt")
}
