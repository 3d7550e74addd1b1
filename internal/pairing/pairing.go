// SPDX-License-Identifier: MPL-2.0

// Package pairing decides cheaply whether an (original, override) plugin pair
// is worth a full record merge.
package pairing

import (
	"errors"
	"fmt"
	"io"
	"math"
	"path/filepath"

	"github.com/LightSofa/dsd-generator/internal/negcache"

	"github.com/charmbracelet/log"
)

const (
	// VerdictPlausible means the pair should be merged.
	VerdictPlausible Verdict = iota
	// VerdictSizeMismatch means the override's size is outside the ratio bounds.
	VerdictSizeMismatch
	// VerdictPreviouslyRejected means the negative cache already holds this pair.
	VerdictPreviouslyRejected
	// VerdictUnreadable means one of the files could not be stat'ed.
	VerdictUnreadable
)

const (
	DefaultMinRatio = 0.8
	DefaultMaxRatio = 1.2

	basisPoints = 10_000
)

// ErrInvalidRatio is returned for ratio bounds that do not bracket 1.
var ErrInvalidRatio = errors.New("invalid size ratio bounds")

type (
	// Verdict is the outcome of Check.
	Verdict int

	// Validator applies the size-ratio gate and the negative-cache gate.
	Validator struct {
		cache  *negcache.Store
		minBP  int64
		maxBP  int64
		logger *log.Logger
	}

	// Option configures a Validator.
	Option func(*Validator)
)

func (v Verdict) String() string {
	switch v {
	case VerdictPlausible:
		return "plausible"
	case VerdictSizeMismatch:
		return "size_mismatch"
	case VerdictPreviouslyRejected:
		return "previously_rejected"
	case VerdictUnreadable:
		return "unreadable"
	default:
		return fmt.Sprintf("verdict(%d)", int(v))
	}
}

// WithLogger sets the logger used for unreadable pairs.
func WithLogger(logger *log.Logger) Option {
	return func(v *Validator) { v.logger = logger }
}

// New creates a Validator. Ratios are inclusive and converted to integer
// basis points so 0.8 and 1.2 boundaries compare exactly.
func New(cache *negcache.Store, minRatio, maxRatio float64, opts ...Option) (*Validator, error) {
	if minRatio <= 0 || minRatio > 1 || maxRatio < 1 {
		return nil, fmt.Errorf("%w: [%g, %g]", ErrInvalidRatio, minRatio, maxRatio)
	}
	v := &Validator{
		cache:  cache,
		minBP:  int64(math.Round(minRatio * basisPoints)),
		maxBP:  int64(math.Round(maxRatio * basisPoints)),
		logger: log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v, nil
}

// SizeWithinBounds reports whether candidate/original lies within the bounds.
// An empty original only accepts an empty candidate.
func (v *Validator) SizeWithinBounds(original, candidate int64) bool {
	lhs := candidate * basisPoints
	return lhs >= original*v.minBP && lhs <= original*v.maxBP
}

// Check evaluates the pair. The error is non-nil only for VerdictUnreadable.
func (v *Validator) Check(originalPath, candidatePath string) (Verdict, error) {
	orig, err := negcache.IdentityOf(originalPath)
	if err != nil {
		return VerdictUnreadable, fmt.Errorf("stat original: %w", err)
	}
	cand, err := negcache.IdentityOf(candidatePath)
	if err != nil {
		return VerdictUnreadable, fmt.Errorf("stat candidate: %w", err)
	}

	if !v.SizeWithinBounds(orig.Size, cand.Size) {
		return VerdictSizeMismatch, nil
	}
	if v.cache != nil && v.cache.IsRejected(filepath.Base(originalPath), orig, cand) {
		return VerdictPreviouslyRejected, nil
	}
	return VerdictPlausible, nil
}

// IsPlausible is the boolean form of Check. Unreadable pairs are logged and
// treated as implausible.
func (v *Validator) IsPlausible(originalPath, candidatePath string) bool {
	verdict, err := v.Check(originalPath, candidatePath)
	if err != nil {
		v.logger.Warn("skipping unreadable pair", "original", originalPath, "candidate", candidatePath, "err", err)
	}
	return verdict == VerdictPlausible
}

// RecordRejection stores the pair in the negative cache after a merge
// produced no records. Identities are recomputed from disk.
func (v *Validator) RecordRejection(originalPath, candidatePath string) error {
	if v.cache == nil {
		return nil
	}
	orig, err := negcache.IdentityOf(originalPath)
	if err != nil {
		return fmt.Errorf("stat original: %w", err)
	}
	cand, err := negcache.IdentityOf(candidatePath)
	if err != nil {
		return fmt.Errorf("stat candidate: %w", err)
	}
	return v.cache.Record(filepath.Base(originalPath), orig, cand)
}
