// SPDX-License-Identifier: MPL-2.0

// Package overlay resolves which plugin files override which across a
// priority-ordered stack of content packages.
//
// The resolver only detects overrides; it does not emulate a virtual
// filesystem. Relative paths compare case-insensitively and only files whose
// extension is in the configured ExtensionSet take part. When three or more
// packages supply the same path, pairs are chained: each override is paired
// with the immediately preceding occurrence, never with the first one.
package overlay
