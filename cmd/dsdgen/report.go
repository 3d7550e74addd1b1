// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/LightSofa/dsd-generator/internal/batch"
	"github.com/LightSofa/dsd-generator/pkg/fspath"
	"github.com/LightSofa/dsd-generator/pkg/types"
)

type (
	// batchReport is the document written by `dsdgen run --report`.
	batchReport struct {
		batch.Summary `yaml:",inline"`
		Diagnostics   []reportDiagnostic `yaml:"diagnostics,omitempty"`
	}

	reportDiagnostic struct {
		Severity string `yaml:"severity"`
		Code     string `yaml:"code"`
		Message  string `yaml:"message"`
		Path     string `yaml:"path,omitempty"`
		Cause    string `yaml:"cause,omitempty"`
	}
)

func newBatchReport(s batch.Summary) batchReport {
	r := batchReport{Summary: s}
	for _, d := range s.Diagnostics {
		rd := reportDiagnostic{
			Severity: string(d.Severity),
			Code:     d.Code,
			Message:  d.Message,
			Path:     d.Path,
		}
		if d.Cause != nil {
			rd.Cause = d.Cause.Error()
		}
		r.Diagnostics = append(r.Diagnostics, rd)
	}
	return r
}

func writeReport(path string, s batch.Summary) error {
	data, err := yaml.Marshal(newBatchReport(s))
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	if err := fspath.WriteFileAtomic(types.FilesystemPath(path), data, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}
