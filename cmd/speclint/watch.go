package main

import (
	"fmt"
	"io"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/c360studio/speclint/report"
	"github.com/c360studio/speclint/validation"
	"github.com/c360studio/speclint/watch"
)

func watchCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch [dir]",
		Short: "Revalidate specs on change",
		Long: `Watch a directory for spec document changes and revalidate the
affected set on every change. Runs a full validation pass on startup,
then revalidates debounced; unchanged rewrites are suppressed by
content hash. Stop with Ctrl-C.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := opts.cfg.Specs.Dir
			if len(args) > 0 {
				root = args[0]
			}

			w, err := watch.NewWatcher(watch.Config{
				Root:          root,
				Patterns:      opts.cfg.Specs.Patterns,
				DebounceDelay: opts.cfg.Watch.GetDebounceDelay(),
				ExcludeDirs:   opts.cfg.Watch.ExcludeDirs,
				RuleOptions:   opts.cfg.RuleOptions(),
				Logger:        slog.Default(),
			})
			if err != nil {
				return fmt.Errorf("create watcher: %w", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := w.Start(ctx); err != nil {
				return fmt.Errorf("start watcher: %w", err)
			}
			defer func() {
				if err := w.Stop(); err != nil {
					slog.Warn("Watcher stop failed", slog.String("error", err.Error()))
				}
			}()

			out := cmd.OutOrStdout()
			renderer := report.NewRenderer(opts.cfg.Language())

			// Initial pass over every discovered set.
			outcomes, err := w.RunAll(ctx)
			if err != nil {
				return fmt.Errorf("initial validation: %w", err)
			}
			for _, o := range outcomes {
				renderOutcome(out, renderer, o)
			}

			for {
				select {
				case <-ctx.Done():
					return nil
				case ev, ok := <-w.Events():
					if !ok {
						return nil
					}
					slog.Info("Spec change",
						slog.String("path", ev.Path),
						slog.String("op", string(ev.Operation)))
					if ev.Err != nil {
						slog.Error("Revalidation failed",
							slog.String("path", ev.Path),
							slog.String("error", ev.Err.Error()))
						continue
					}
					if ev.Outcome != nil {
						renderOutcome(out, renderer, ev.Outcome)
					}
				}
			}
		},
	}

	return cmd
}

func renderOutcome(out io.Writer, renderer *report.Renderer, o *watch.Outcome) {
	fmt.Fprintf(out, "=== %s ===\n", setDir(o.Set))
	for _, res := range []*validation.Result{o.Requirements, o.Design, o.Tasks} {
		if res == nil {
			continue
		}
		fmt.Fprintln(out, renderer.Validation(res))
	}
}
