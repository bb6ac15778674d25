package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/c360studio/speclint/ears"
	"github.com/c360studio/speclint/report"
)

func earsCmd(opts *globalOptions) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "ears <path>...",
		Short: "Measure EARS compliance",
		Long: `Measure EARS pattern compliance of the functional requirements in the
given Markdown files. Reports the aggregate rate, then per file rates
with every violating sentence and its reason.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lang := opts.cfg.Language()

			files := make([]ears.FileResult, 0, len(args))
			for _, path := range args {
				data, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("read %s: %w", path, err)
				}
				res, err := ears.AnalyzeContent(string(data), lang)
				if err != nil {
					return fmt.Errorf("analyze %s: %w", path, err)
				}
				files = append(files, ears.FileResult{Path: path, Result: res})
			}

			rep := ears.Summarize(files)
			if format == "json" {
				return writeJSON(cmd.OutOrStdout(), rep)
			}
			fmt.Fprintln(cmd.OutOrStdout(), report.NewRenderer(lang).EARS(rep))
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "text", "Output format (text, json)")

	return cmd
}
