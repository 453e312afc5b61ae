// Package report renders aggregated usage statistics as HTML, JSON or YAML
// and writes the report files.
package report

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/gnana997/mrcusage/pkg/aggregate"
)

// Format is an output format name.
type Format string

const (
	FormatHTML Format = "html"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ErrUnsupportedFormat is returned (wrapped) for unknown format names.
var ErrUnsupportedFormat = errors.New("unsupported report format")

// FilePrefix starts every report file name.
const FilePrefix = "mrc-usage-report"

//go:embed templates/report.html.tmpl
var htmlTemplate string

var reportTemplate = template.Must(template.New("report").Parse(htmlTemplate))

// ParseFormat normalises a format name. "yml" is accepted for YAML.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "html":
		return FormatHTML, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
	}
}

// Extension returns the file extension for a format.
func (f Format) Extension() string {
	return string(f)
}

// FileBaseName names the report files: "mrc-usage-report-all" for an
// all-groups scan, otherwise the sorted group names joined with '-'.
func FileBaseName(groups []string, all bool) string {
	if all || len(groups) == 0 {
		return FilePrefix + "-all"
	}
	sorted := make([]string, len(groups))
	copy(sorted, groups)
	sort.Strings(sorted)
	return FilePrefix + "-" + strings.Join(sorted, "-")
}

type htmlData struct {
	Title       string
	GeneratedAt string
	Report      *aggregate.Report
}

// Render writes the report in the given format.
func Render(w io.Writer, r *aggregate.Report, format Format) error {
	switch format {
	case FormatHTML:
		data := htmlData{
			Title:       "MRC component usage",
			GeneratedAt: r.GeneratedAt.UTC().Format("2006-01-02 15:04:05 UTC"),
			Report:      r,
		}
		if err := reportTemplate.Execute(w, data); err != nil {
			return fmt.Errorf("executing HTML template: %w", err)
		}
		return nil

	case FormatJSON:
		data, err := json.MarshalIndent(r, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal JSON report: %w", err)
		}
		data = append(data, '\n')
		_, err = w.Write(data)
		return err

	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("marshal YAML report: %w", err)
		}
		return enc.Close()
	}

	return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
}

// WriteAll renders the report once per requested format into dir.
//
// Unsupported formats are logged and skipped; the remaining formats are
// still written. Each file is written to a temporary name and renamed into
// place, so an interrupted run never leaves a partial report. Writing stops
// as soon as ctx is cancelled. The paths written are returned in request
// order.
func WriteAll(ctx context.Context, dir, baseName string, r *aggregate.Report, formats []string, logger *slog.Logger) ([]string, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	var written []string
	seen := make(map[Format]bool)

	for _, name := range formats {
		if err := ctx.Err(); err != nil {
			return written, err
		}

		format, err := ParseFormat(name)
		if err != nil {
			logger.Warn("skipping report format", "format", name, "error", err)
			continue
		}
		if seen[format] {
			continue
		}
		seen[format] = true

		target := filepath.Join(dir, baseName+"."+format.Extension())
		if err := writeAtomic(target, func(w io.Writer) error { return Render(w, r, format) }); err != nil {
			return written, fmt.Errorf("write %s report: %w", format, err)
		}
		written = append(written, target)
		logger.Info("report written", "format", string(format), "path", target)
	}

	return written, nil
}

func writeAtomic(target string, render func(io.Writer) error) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(target), "."+filepath.Base(target)+".*.tmp")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if err = render(tmp); err != nil {
		return err
	}
	if err = tmp.Sync(); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	if err = os.Chmod(tmp.Name(), 0644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), target)
}
