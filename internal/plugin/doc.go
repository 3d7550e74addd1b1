// SPDX-License-Identifier: MPL-2.0

// Package plugin extracts localizable text records from Bethesda TES4-format
// plugin files (.esp, .esm, .esl).
//
// Extraction is the only place the binary format is understood. Everything
// downstream works with TextRecord values matched by their composite Key.
package plugin
