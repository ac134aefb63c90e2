package cmd

import (
	"context"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"cppapidoc/pkg/apigen"
	"cppapidoc/pkg/config"
	"cppapidoc/pkg/errors"
)

var batchCmd = &cobra.Command{
	Use:   "batch [config...]",
	Short: "Generate JSON API data for several translation units in parallel",
	Long: `Batch runs generate for every config file given. Each translation unit is
processed independently; the output for "dir/foo.yaml" is written to
"dir/foo.api.json", or to "foo.api.json" inside --output-dir.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		jobs, _ := cmd.Flags().GetInt("jobs")
		outputDir, _ := cmd.Flags().GetString("output-dir")
		allowErrors, _ := cmd.Flags().GetBool("allow-errors")
		return runBatch(cmd.Context(), args, jobs, outputDir, allowErrors)
	},
}

func init() {
	batchCmd.Flags().IntP("jobs", "j", 4, "Maximum number of translation units processed at once")
	batchCmd.Flags().String("output-dir", "", "Directory for output files (default: next to each config)")
	batchCmd.Flags().Bool("allow-errors", false, "Exit successfully even if errors were recorded")
}

func runBatch(ctx context.Context, configs []string, jobs int, outputDir string, allowErrors bool) error {
	logger := loggerFromContext(ctx)
	prog := newProgress(logger)

	g, ctx := errgroup.WithContext(ctx)
	if jobs > 0 {
		g.SetLimit(jobs)
	}
	var failed atomic.Int32
	for _, path := range configs {
		path := path
		g.Go(func() error {
			l := logger.With("config", path)
			cfg, err := config.Load(path)
			if err != nil {
				return err
			}
			out, err := apigen.GenerateOutput(ctx, cfg, apigen.WithLogger(l))
			if err != nil {
				return errors.Attr(err, "config", path)
			}
			if err := writeOutput(out, batchOutputPath(path, outputDir), nil); err != nil {
				return err
			}
			if reportDiagnostics(l, out) > 0 {
				failed.Add(1)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	prog.done("Generated API data", "translation_units", len(configs))

	if n := failed.Load(); n > 0 && !allowErrors {
		return errors.Errorf(errors.KindParse, "%d of %d translation units recorded errors", n, len(configs))
	}
	return nil
}

// batchOutputPath returns where the output for configPath is written.
func batchOutputPath(configPath, outputDir string) string {
	base := filepath.Base(configPath)
	name := strings.TrimSuffix(base, filepath.Ext(base)) + ".api.json"
	if outputDir == "" {
		return filepath.Join(filepath.Dir(configPath), name)
	}
	return filepath.Join(outputDir, name)
}
