// SPDX-License-Identifier: MPL-2.0

// Package cmd contains the dsdgen command tree.
package cmd
