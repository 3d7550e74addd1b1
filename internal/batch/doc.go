// SPDX-License-Identifier: MPL-2.0

// Package batch runs one conversion batch: it enumerates the active content
// packages, resolves which plugins override which, keeps the plausible
// translation pairs, merges each pair and writes the resulting string
// distributor artifacts into a single output package.
//
// A batch moves through the states scanning, resolving, merging, finalizing
// and done. Only failing to enumerate packages aborts it; every per-pair
// failure becomes a Diagnostic in the Summary.
package batch
