// SPDX-License-Identifier: MPL-2.0

package host

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

const separatorSuffix = "_separator"

type (
	// modlistState is the prefix character of a modlist line.
	modlistState byte

	// modlistEntry is one managed line of a profile's modlist.
	modlistEntry struct {
		State modlistState
		Name  string
	}
)

const (
	stateEnabled   modlistState = '+'
	stateDisabled  modlistState = '-'
	stateUnmanaged modlistState = '*'
)

// IsSeparator reports whether the entry is a visual separator rather than a
// package.
func (e modlistEntry) IsSeparator() bool {
	return strings.HasSuffix(strings.ToLower(e.Name), separatorSuffix)
}

// parseModlist reads a modlist document. Lines are listed highest priority
// first; comments, blank lines and unmanaged entries are dropped.
func parseModlist(r io.Reader) ([]modlistEntry, error) {
	var entries []modlistEntry
	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimRight(sc.Text(), "\r")
		if lineNo == 1 {
			line = strings.TrimPrefix(line, "\ufeff")
		}
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		state := modlistState(trimmed[0])
		name := strings.TrimSpace(trimmed[1:])
		switch state {
		case stateEnabled, stateDisabled:
			if name == "" {
				return nil, fmt.Errorf("line %d: missing package name", lineNo)
			}
			entries = append(entries, modlistEntry{State: state, Name: name})
		case stateUnmanaged:
			continue
		default:
			return nil, fmt.Errorf("line %d: unexpected prefix %q", lineNo, trimmed[0])
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// withActivated returns the modlist text with name enabled as the first
// managed line. Leading comment lines are preserved and any previous line for
// the same package is dropped.
func withActivated(content, name string) string {
	lines := strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}

	var header, body []string
	inHeader := true
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if inHeader && strings.HasPrefix(trimmed, "#") {
			header = append(header, line)
			continue
		}
		inHeader = false
		if len(trimmed) > 1 && strings.EqualFold(strings.TrimSpace(trimmed[1:]), name) {
			continue
		}
		body = append(body, line)
	}

	out := make([]string, 0, len(header)+len(body)+1)
	out = append(out, header...)
	out = append(out, string(stateEnabled)+name)
	out = append(out, body...)
	return strings.Join(out, "\n") + "\n"
}
