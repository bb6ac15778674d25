package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/c360studio/speclint/config"
	"github.com/c360studio/speclint/document"
	"github.com/c360studio/speclint/report"
	"github.com/c360studio/speclint/specset"
	"github.com/c360studio/speclint/validation"
	"github.com/c360studio/speclint/validation/rules"
)

// setResult holds the per-document validation results of one spec set.
type setResult struct {
	Dir          string             `json:"dir"`
	Language     string             `json:"language"`
	Requirements *validation.Result `json:"requirements,omitempty"`
	Design       *validation.Result `json:"design,omitempty"`
	Tasks        *validation.Result `json:"tasks,omitempty"`
}

func (r *setResult) valid() bool {
	for _, res := range []*validation.Result{r.Requirements, r.Design, r.Tasks} {
		if res != nil && !res.IsValid {
			return false
		}
	}
	return true
}

func validateCmd(opts *globalOptions) *cobra.Command {
	var (
		requirementsPath string
		designPath       string
		tasksPath        string
		format           string
	)

	cmd := &cobra.Command{
		Use:   "validate [dir]",
		Short: "Validate spec documents",
		Long: `Validate the requirements, design and tasks documents of every spec
set found under the given directory (default: the configured specs
directory). Explicit document paths bypass discovery; paths may be
http(s) URLs.

Exits non-zero when any document fails validation.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sets, err := resolveSets(opts.cfg, args, requirementsPath, designPath, tasksPath)
			if err != nil {
				return err
			}
			return runValidate(cmd.Context(), cmd.OutOrStdout(), opts.cfg, sets, format)
		},
	}

	cmd.Flags().StringVar(&requirementsPath, "requirements", "", "Requirements document path or URL")
	cmd.Flags().StringVar(&designPath, "design", "", "Design document path or URL")
	cmd.Flags().StringVar(&tasksPath, "tasks", "", "Tasks document path or URL")
	cmd.Flags().StringVar(&format, "format", "text", "Output format (text, json)")

	return cmd
}

func runValidate(ctx context.Context, out io.Writer, cfg *config.Config, sets []*specset.SpecSet, format string) error {
	results := make([]*setResult, 0, len(sets))
	for _, set := range sets {
		res, err := validateSet(ctx, set, cfg.RuleOptions())
		if err != nil {
			return err
		}
		results = append(results, res)
	}

	if format == "json" {
		if err := writeJSON(out, results); err != nil {
			return err
		}
	} else {
		for _, res := range results {
			// Auto mode renders in the language detected from the set.
			lang := cfg.Language()
			if lang == document.LanguageAuto {
				lang = document.Language(res.Language)
			}
			renderer := report.NewRenderer(lang)

			if len(results) > 1 {
				fmt.Fprintf(out, "=== %s ===\n", res.Dir)
			}
			for _, r := range []*validation.Result{res.Requirements, res.Design, res.Tasks} {
				if r == nil {
					continue
				}
				fmt.Fprintln(out, renderer.Validation(r))
			}
		}
	}

	for _, res := range results {
		if !res.valid() {
			return errValidationFailed
		}
	}
	return nil
}

// validateSet loads one set and validates every document it has. Blank or
// absent documents are skipped; design and tasks validation still receive
// their companion texts for cross-document checks.
func validateSet(ctx context.Context, set *specset.SpecSet, ruleOpts []rules.Option) (*setResult, error) {
	contents, err := set.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", setDir(set), err)
	}

	res := &setResult{Dir: setDir(set), Language: string(contents.Language)}

	if strings.TrimSpace(contents.Requirements) != "" {
		res.Requirements, err = report.ValidateRequirements(contents.Requirements, contents.Language, ruleOpts...)
		if err != nil {
			return nil, fmt.Errorf("validate requirements: %w", err)
		}
	}
	if strings.TrimSpace(contents.Design) != "" {
		res.Design, err = report.ValidateDesign(contents.Design, contents.Language, contents.Requirements, ruleOpts...)
		if err != nil {
			return nil, fmt.Errorf("validate design: %w", err)
		}
	}
	if strings.TrimSpace(contents.Tasks) != "" {
		res.Tasks, err = report.ValidateTasks(contents.Tasks, contents.Language, contents.Requirements, contents.Design, ruleOpts...)
		if err != nil {
			return nil, fmt.Errorf("validate tasks: %w", err)
		}
	}
	return res, nil
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
