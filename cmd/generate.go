package cmd

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"cppapidoc/pkg/apidata"
	"cppapidoc/pkg/apigen"
	"cppapidoc/pkg/config"
	"cppapidoc/pkg/errors"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate JSON API data for one translation unit",
	Long: `Generate reads a YAML, TOML or JSON config describing one translation unit
(input path, compiler flags and filters), parses it and writes the JSON API data.
The command fails when errors were recorded unless --allow-errors is given; the
output is written either way.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		output, _ := cmd.Flags().GetString("output")
		allowErrors, _ := cmd.Flags().GetBool("allow-errors")
		return runGenerate(cmd.Context(), configPath, output, allowErrors, cmd.OutOrStdout())
	},
}

func init() {
	generateCmd.Flags().StringP("config", "c", "", "Config file (.yaml, .yml, .toml or .json)")
	generateCmd.Flags().StringP("output", "o", "-", "Output file, - for stdout")
	generateCmd.Flags().Bool("allow-errors", false, "Exit successfully even if errors were recorded")
	_ = generateCmd.MarkFlagRequired("config")
}

func runGenerate(ctx context.Context, configPath, output string, allowErrors bool, stdout io.Writer) error {
	logger := loggerFromContext(ctx).With("config", configPath)
	prog := newProgress(logger)

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	out, err := apigen.GenerateOutput(ctx, cfg, apigen.WithLogger(logger))
	if err != nil {
		return err
	}
	if err := writeOutput(out, output, stdout); err != nil {
		return err
	}
	prog.done("Generated API data", "entities", len(out.Entities))

	if n := reportDiagnostics(logger, out); n > 0 && !allowErrors {
		return errors.Attr(errors.Errorf(errors.KindParse, "%d errors recorded", n), "config", configPath)
	}
	return nil
}

// reportDiagnostics logs the recorded errors and warnings of out and returns
// the number of errors.
func reportDiagnostics(logger *log.Logger, out *apidata.Output) int {
	for _, d := range out.Warnings {
		logger.Warn(d.Message, diagnosticKeyvals(d)...)
	}
	for _, d := range out.Errors {
		logger.Error(d.Message, diagnosticKeyvals(d)...)
	}
	return len(out.Errors)
}

func diagnosticKeyvals(d apidata.Diagnostic) []any {
	if d.Location == nil {
		return nil
	}
	return []any{"location", d.Location.String()}
}

// writeOutput writes out as JSON to path, or to stdout when path is "" or "-".
func writeOutput(out *apidata.Output, path string, stdout io.Writer) error {
	if path == "" || path == "-" {
		return out.WriteJSON(stdout)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Attr(errors.Wrap(err, errors.KindIO, "failed to create output directory"), "path", path)
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Attr(errors.Wrap(err, errors.KindIO, "failed to create output file"), "path", path)
	}
	if err := out.WriteJSON(f); err != nil {
		f.Close()
		return errors.Attr(errors.Wrap(err, errors.KindIO, "failed to write output"), "path", path)
	}
	if err := f.Close(); err != nil {
		return errors.Attr(errors.Wrap(err, errors.KindIO, "failed to close output file"), "path", path)
	}
	return nil
}
