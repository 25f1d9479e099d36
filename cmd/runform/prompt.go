package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/goliatone/go-runform/pkg/form"
	"github.com/goliatone/go-runform/pkg/orchestrator"
	"github.com/goliatone/go-runform/pkg/render"
	"github.com/goliatone/go-runform/pkg/renderers/tui"
	"github.com/goliatone/go-runform/pkg/submit"
)

func newPromptCmd(a *app) *cobra.Command {
	var (
		format string
		locale string
		marked bool
		seed   map[string]string
	)

	cmd := &cobra.Command{
		Use:   "prompt <form-id>",
		Short: "Fill a form in the terminal and run it",
		Long: "Prompts every visible variable, then submits the snapshot to the " +
			"configured endpoint. Without an endpoint the snapshot is printed.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			orch, err := a.orchestrator()
			if err != nil {
				return err
			}
			resolved, err := orch.Resolve(ctx, orchestrator.Request{FormID: args[0]})
			if err != nil {
				return err
			}
			values, err := seedValues(resolved, seed)
			if err != nil {
				return err
			}

			output, err := tui.ParseOutputFormat(format)
			if err != nil {
				return err
			}
			options := []tui.Option{tui.WithOutputFormat(output)}
			if marked {
				options = append(options, tui.WithTheme(tui.MarkedTheme()))
			}
			if a.driver != nil {
				options = append(options, tui.WithPromptDriver(a.driver))
			}
			renderer, err := tui.New(options...)
			if err != nil {
				return err
			}

			submission, err := renderer.Run(ctx, resolved, render.RenderOptions{
				Values:     values,
				Locale:     locale,
				Translator: render.DefaultCatalog(),
			})
			if err != nil {
				return err
			}
			if missing := form.MissingRequired(resolved.Variables, submission.Inputs); len(missing) > 0 {
				a.logger.Warn("required variables left blank",
					zap.String("form", resolved.ID),
					zap.Strings("keys", missing),
				)
			}

			submitter, err := a.submitter()
			if err != nil {
				return err
			}
			if submitter == nil {
				encoded, err := renderer.Encode(submission)
				if err != nil {
					return err
				}
				return writeAll(a.out, encoded)
			}

			result, err := submitter.Submit(ctx, submit.Payload{
				Inputs: submission.Inputs,
				Files:  submission.Files,
				User:   a.v.GetString(keyUser),
			})
			if len(result.Body) > 0 {
				if werr := writeAll(a.out, result.Body); werr != nil && err == nil {
					err = werr
				}
			}
			if err != nil {
				return fmt.Errorf("prompt: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", string(tui.OutputFormatJSON), "output format without an endpoint (json, form, pretty)")
	cmd.Flags().StringVar(&locale, "locale", "", "locale for labels")
	cmd.Flags().BoolVar(&marked, "marks", false, "prefix prompts and notes with markers")
	cmd.Flags().StringToStringVar(&seed, "set", nil, "initial value as key=value")
	return cmd
}
