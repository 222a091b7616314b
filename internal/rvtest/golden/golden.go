// Package golden loads the end-to-end disassembly fixtures checked in under
// internal/rvtest/golden/*.txtar, grounded on the golden-file-driven testing
// style of SeleniaProject-Orizon/test/golden, but using txtar archives (one
// file per case, human-readable scenario description plus expected
// disassembly) instead of the teacher's single-blob .golden files, since a
// rv64core case is naturally multi-part (description + disassembly).
package golden

import (
	"fmt"

	"golang.org/x/tools/txtar"
)

// Case is one loaded end-to-end scenario: a human-readable description and
// the exact disassembly lines materialize.DisassembleText is expected to
// produce for it.
type Case struct {
	Name        string
	Description string
	Disasm      []string
}

// Load parses the txtar archive at path into a Case. The archive must
// contain a "description.txt" file and a "disasm.txt" file; disasm.txt is
// split into non-empty lines in order.
func Load(path string) (*Case, error) {
	arc, err := txtar.ParseFile(path)
	if err != nil {
		return nil, fmt.Errorf("golden: parse %s: %w", path, err)
	}

	c := &Case{Name: path}

	for _, f := range arc.Files {
		switch f.Name {
		case "description.txt":
			c.Description = string(f.Data)
		case "disasm.txt":
			c.Disasm = splitNonEmptyLines(string(f.Data))
		}
	}

	if c.Disasm == nil {
		return nil, fmt.Errorf("golden: %s has no disasm.txt section", path)
	}

	return c, nil
}

func splitNonEmptyLines(s string) []string {
	var lines []string
	start := 0

	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == '\n' {
			line := s[start:i]
			if line != "" {
				lines = append(lines, line)
			}
			start = i + 1
		}
	}

	return lines
}
