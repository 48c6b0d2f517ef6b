package export

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/jdh4601/ClosetBot/internal/analysis"
)

const (
	dateLayout    = "2006-01-02"
	fallbackLabel = "export"
	fileMode      = 0o644
)

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Options control the layout and the suggested filename of an export.
type Options struct {
	Layout Layout
	// JobID names compact exports.
	JobID string
	// Brand and Date name full exports. Date is stamped as its UTC day.
	Brand string
	Date  time.Time
}

// Document is the exact content of an export and its suggested filename.
type Document struct {
	Filename string
	Data     []byte
}

// Export renders results as quoted CSV in the given order. It has no side
// effects; identical input always yields identical bytes.
func Export(results []analysis.InfluencerResult, opts Options) (Document, error) {
	layout := opts.Layout
	if layout == "" {
		layout = LayoutFull
	}

	cols, err := Columns(layout)
	if err != nil {
		return Document{}, err
	}

	var sb strings.Builder

	header := make([]string, len(cols))
	for i, c := range cols {
		header[i] = c.Name
	}
	writeRecord(&sb, header)

	row := make([]string, len(cols))
	for i := range results {
		for j, c := range cols {
			row[j] = c.Value(&results[i])
		}
		sb.WriteString(lineBreak)
		writeRecord(&sb, row)
	}

	return Document{
		Filename: filename(layout, opts),
		Data:     []byte(sb.String()),
	}, nil
}

// ExportSet exports a fetched result set, naming the file after its job or
// brand.
func ExportSet(set *analysis.ResultSet, layout Layout, date time.Time) (Document, error) {
	if set == nil {
		return Document{}, errors.New("no results to export")
	}

	return Export(set.Results, Options{
		Layout: layout,
		JobID:  set.JobID,
		Brand:  set.BrandUsername,
		Date:   date,
	})
}

func filename(layout Layout, opts Options) string {
	if layout == LayoutCompact {
		return fmt.Sprintf("analysis_results_%s.csv", sanitize(opts.JobID))
	}

	date := opts.Date
	if date.IsZero() {
		date = time.Now()
	}
	return fmt.Sprintf("analysis_%s_%s.csv", sanitize(opts.Brand), date.UTC().Format(dateLayout))
}

func sanitize(label string) string {
	label = unsafeFilenameChars.ReplaceAllString(strings.TrimSpace(label), "_")
	label = strings.Trim(label, "_")
	if label == "" {
		return fallbackLabel
	}
	return label
}

// Write stores doc under dir using its suggested filename and returns the
// path written.
func Write(dir string, doc Document) (string, error) {
	if doc.Filename == "" {
		return "", errors.New("document has no filename")
	}

	if dir == "" {
		dir = "."
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}

	path := filepath.Join(dir, doc.Filename)
	if err := os.WriteFile(path, doc.Data, fileMode); err != nil {
		return "", fmt.Errorf("write export: %w", err)
	}

	return path, nil
}
