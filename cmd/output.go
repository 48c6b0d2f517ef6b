package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/jdh4601/ClosetBot/internal/analysis"
	"github.com/jdh4601/ClosetBot/internal/export"
	"github.com/jdh4601/ClosetBot/internal/filtering"
	"github.com/jdh4601/ClosetBot/internal/render"
)

// exportOptions are the export settings after flags were applied on top of
// the config.
type exportOptions struct {
	layout string
	dir    string
	stdout bool
}

func (o exportOptions) withDefaults(config *Config) exportOptions {
	if o.layout == "" {
		o.layout = config.Export.Layout
	}
	if o.dir == "" {
		o.dir = config.Export.Dir
	}
	return o
}

// writeExport renders set as CSV and either writes it to a file or prints it
// to stdout. It returns the path written, or an empty string for stdout.
func writeExport(set *analysis.ResultSet, opts exportOptions, log *zap.Logger) (string, error) {
	if log == nil {
		log = zap.NewNop()
	}

	layout, err := export.ParseLayout(opts.layout)
	if err != nil {
		return "", err
	}

	doc, err := export.ExportSet(set, layout, time.Now().UTC())
	if err != nil {
		return "", err
	}

	if opts.stdout {
		if _, err := os.Stdout.Write(doc.Data); err != nil {
			return "", err
		}
		// the document itself has no trailing newline
		fmt.Fprintln(os.Stdout)
		return "", nil
	}

	path, err := export.Write(opts.dir, doc)
	if err != nil {
		return "", err
	}

	log.Info("results exported",
		zap.String("path", path),
		zap.String("layout", string(layout)),
		zap.Int("rows", set.Len()),
	)

	return path, nil
}

// applyFilters narrows set and logs what every enabled step did.
func applyFilters(ctx context.Context, steps []filtering.Filter, set *analysis.ResultSet, log *zap.Logger) (*analysis.ResultSet, error) {
	out, err := filtering.Run(ctx, log, steps, set)
	if err != nil {
		return nil, fmt.Errorf("filtering results: %w", err)
	}

	if out.Len() != set.Len() {
		log.Info("results filtered", zap.Int("initial", set.Len()), zap.Int("shown", out.Len()))
	}

	return out, nil
}

func printResults(set *analysis.ResultSet) {
	fmt.Println(render.ResultsSummary(set))
	fmt.Println(render.ResultsTable(set))
}
