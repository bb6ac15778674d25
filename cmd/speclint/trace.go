package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/c360studio/speclint/document"
	"github.com/c360studio/speclint/report"
	"github.com/c360studio/speclint/trace"
)

// setMatrix pairs a traceability matrix with the set it came from.
type setMatrix struct {
	Dir    string        `json:"dir"`
	Matrix *trace.Matrix `json:"matrix"`
}

func traceCmd(opts *globalOptions) *cobra.Command {
	var (
		requirementsPath string
		designPath       string
		tasksPath        string
		format           string
	)

	cmd := &cobra.Command{
		Use:   "trace [dir]",
		Short: "Build traceability matrices",
		Long: `Build the requirement/component/task traceability matrix for every
spec set found under the given directory, with coverage percentages
and unreferenced items.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sets, err := resolveSets(opts.cfg, args, requirementsPath, designPath, tasksPath)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			matrices := make([]*setMatrix, 0, len(sets))
			for _, set := range sets {
				contents, err := set.Load(cmd.Context())
				if err != nil {
					return fmt.Errorf("load %s: %w", setDir(set), err)
				}
				m, err := report.BuildMatrix(contents.Requirements, contents.Design, contents.Tasks)
				if err != nil {
					return fmt.Errorf("build matrix for %s: %w", setDir(set), err)
				}
				matrices = append(matrices, &setMatrix{Dir: setDir(set), Matrix: m})

				if format != "json" {
					lang := opts.cfg.Language()
					if lang == document.LanguageAuto {
						lang = contents.Language
					}
					if len(sets) > 1 {
						fmt.Fprintf(out, "=== %s ===\n", setDir(set))
					}
					fmt.Fprintln(out, report.NewRenderer(lang).Matrix(m))
				}
			}

			if format == "json" {
				return writeJSON(out, matrices)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&requirementsPath, "requirements", "", "Requirements document path or URL")
	cmd.Flags().StringVar(&designPath, "design", "", "Design document path or URL")
	cmd.Flags().StringVar(&tasksPath, "tasks", "", "Tasks document path or URL")
	cmd.Flags().StringVar(&format, "format", "text", "Output format (text, json)")

	return cmd
}
