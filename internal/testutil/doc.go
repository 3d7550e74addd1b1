// SPDX-License-Identifier: MPL-2.0

// Package testutil provides helpers that fail the test on error, reducing
// boilerplate in filesystem-heavy tests.
//
// Besides the Must* file helpers it builds throwaway mod manager instance
// layouts (NewInstanceDir, AddPackage) that the host, batch and CLI tests
// share.
package testutil
