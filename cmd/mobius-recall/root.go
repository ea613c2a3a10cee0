package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"mobiusrecall/internal/evalerr"
	"mobiusrecall/internal/evaluate"
	"mobiusrecall/internal/logging"
	"mobiusrecall/internal/manifest"
	"mobiusrecall/internal/misspacket"
	"mobiusrecall/internal/report"
)

// newRootCommand builds the mobius-recall CLI. Per spec.md §6's Non-goal,
// this is a thin collaborator: it only wires flags into evaluate.Options
// and evaluate.Run, then dispatches the resulting report or fatal error.
// No summary-formatting logic lives here beyond the exit-code/banner
// selection required by spec.md §7.
func newRootCommand() *cobra.Command {
	var (
		referenceDir   string
		extractedDir   string
		manifestPath   string
		manifestFormat string
		outputPath     string
		missPacketDir  string
		configPath     string
		logLevel       string
		logFormat      string
	)

	cmd := &cobra.Command{
		Use:           "mobius-recall",
		Short:         "Evaluate extracted component images against a reference set",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := logging.New(logging.Options{Level: logLevel, Format: logFormat}, os.Stderr)

			opts := evaluate.Options{
				ReferenceDir:   referenceDir,
				ExtractedDir:   extractedDir,
				ManifestPath:   manifestPath,
				ManifestFormat: manifest.Format(manifestFormat),
				ConfigPath:     configPath,
				Logger:         logger,
			}

			rep, err := evaluate.Run(cmd.Context(), opts)
			if err != nil {
				printBanner(cmd.ErrOrStderr(), err)
				return err
			}

			out := cmd.OutOrStdout()
			if outputPath != "" {
				f, ferr := os.Create(outputPath)
				if ferr != nil {
					return fmt.Errorf("creating report output %s: %w", outputPath, ferr)
				}
				defer f.Close()
				out = f
			}
			if err := report.Write(out, rep); err != nil {
				return fmt.Errorf("writing report: %w", err)
			}

			if missPacketDir != "" {
				if err := misspacket.Write(misspacket.Options{
					ReferenceDir: referenceDir,
					ExtractedDir: extractedDir,
					OutputDir:    missPacketDir,
					Logger:       logger,
				}, rep); err != nil {
					return fmt.Errorf("writing miss packet: %w", err)
				}
			}

			// Exit 0 regardless of verdict: PASS and FAIL are both
			// successful evaluations per spec.md §6's process interface.
			// Only a fatal error above produces a non-zero exit.
			return nil
		},
	}

	cmd.Flags().StringVar(&referenceDir, "reference-dir", "", "directory of reference (truth-set) images")
	cmd.Flags().StringVar(&extractedDir, "extracted-dir", "", "directory of extracted candidate images")
	cmd.Flags().StringVar(&manifestPath, "manifest", "", "path to the extraction manifest")
	cmd.Flags().StringVar(&manifestFormat, "manifest-format", "json", "manifest encoding: json or yaml")
	cmd.Flags().StringVar(&outputPath, "output", "", "path to write the evaluation report (default stdout)")
	cmd.Flags().StringVar(&missPacketDir, "miss-packet-dir", "", "optional directory to write the miss-packet tree")
	cmd.Flags().StringVar(&configPath, "config", "", "optional TOML file overriding tier thresholds and acceptance constants")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	cmd.Flags().StringVar(&logFormat, "log-format", "console", "log format: console or json")

	cmd.MarkFlagRequired("reference-dir")
	cmd.MarkFlagRequired("extracted-dir")
	cmd.MarkFlagRequired("manifest")

	return cmd
}

// printBanner implements spec.md §7's "prints a banner identifying the
// failure class, cites the offending path or record" contract. No stack
// traces are emitted in normal mode.
func printBanner(w io.Writer, err error) {
	var evalErr *evalerr.Error
	if errors.As(err, &evalErr) {
		fmt.Fprintf(w, "mobius-recall: FATAL [%s] %s\n", evalErr.Code, evalErr.Error())
		return
	}
	fmt.Fprintf(w, "mobius-recall: FATAL %s\n", err)
}
