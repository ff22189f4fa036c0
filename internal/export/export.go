// Package export writes tool documents to disk as OpenAPI JSON or YAML.
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/wxo-labs/studio/internal/tool"
)

// Format selects the output encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// Options controls how a document is exported.
type Options struct {
	OutPath string // required; target file path
	Format  Format // defaults to the path's extension, then JSON
	Force   bool   // overwrite an existing file
	DryRun  bool   // don't write, only plan
}

// Result describes what was (or would be) written.
type Result struct {
	Path   string
	Format Format
	Size   int
}

// Export renders the document and writes it to opts.OutPath. Bound documents
// export their stored definition verbatim; OpenAPI documents export the
// normalized model.
func Export(doc *tool.Document, opts Options) (*Result, error) {
	if doc == nil {
		return nil, fmt.Errorf("export: nil document")
	}
	if strings.TrimSpace(opts.OutPath) == "" {
		return nil, fmt.Errorf("export: OutPath is required")
	}

	format := opts.Format
	if format == "" {
		format = formatFromPath(opts.OutPath)
	}

	data, err := doc.Marshal()
	if err != nil {
		return nil, fmt.Errorf("export: render document: %w", err)
	}
	if format == FormatYAML {
		data, err = jsonToYAML(data)
		if err != nil {
			return nil, fmt.Errorf("export: render yaml: %w", err)
		}
	}
	if len(data) > 0 && data[len(data)-1] != '\n' {
		data = append(data, '\n')
	}

	res := &Result{Path: opts.OutPath, Format: format, Size: len(data)}
	if opts.DryRun {
		return res, nil
	}

	abs, err := filepath.Abs(opts.OutPath)
	if err != nil {
		return nil, fmt.Errorf("export: resolve path: %w", err)
	}
	if _, err := os.Stat(abs); err == nil && !opts.Force {
		return nil, fmt.Errorf("export: %q already exists (use force to overwrite)", abs)
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return nil, fmt.Errorf("export: mkdir: %w", err)
	}
	// atomic write via temp file + rename
	tmp := abs + ".tmp-" + time.Now().Format("20060102150405")
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return nil, fmt.Errorf("export: write temp: %w", err)
	}
	if err := os.Rename(tmp, abs); err != nil {
		_ = os.Remove(tmp)
		return nil, fmt.Errorf("export: rename: %w", err)
	}
	return res, nil
}

func formatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// jsonToYAML re-encodes JSON as YAML through a yaml.Node so key order
// survives the conversion.
func jsonToYAML(data []byte) ([]byte, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, err
	}
	return yaml.Marshal(&node)
}
