package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/goliatone/go-runform/pkg/form"
	"github.com/goliatone/go-runform/pkg/model"
	"github.com/goliatone/go-runform/pkg/openapi"
	"github.com/goliatone/go-runform/pkg/orchestrator"
	"github.com/goliatone/go-runform/pkg/render"
)

func newFormsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "forms",
		Short: "List configured forms",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := a.store()
			if err != nil {
				return err
			}
			for _, id := range store.IDs() {
				f, _ := store.Form(id)
				fmt.Fprintf(a.out, "%s\t%s\t%d\n", id, f.Title, len(f.Variables))
			}
			return nil
		},
	}
}

type renderFlags struct {
	renderer  string
	output    string
	set       map[string]string
	locale    string
	openapi   string
	operation string
	action    string
}

func newRenderCmd(a *app) *cobra.Command {
	var flags renderFlags

	cmd := &cobra.Command{
		Use:   "render [form-id]",
		Short: "Render a form as HTML or JSON",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := flags.request(args)
			if err != nil {
				return err
			}
			return a.render(cmd.Context(), req, flags)
		},
	}

	cmd.Flags().StringVar(&flags.renderer, "renderer", "", "renderer name (vanilla, json)")
	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "write output to file instead of stdout")
	cmd.Flags().StringToStringVar(&flags.set, "set", nil, "initial value as key=value")
	cmd.Flags().StringVar(&flags.locale, "locale", "", "locale for labels")
	cmd.Flags().StringVar(&flags.openapi, "openapi", "", "OpenAPI document path or URL")
	cmd.Flags().StringVar(&flags.operation, "operation", "", "OpenAPI operation id")
	cmd.Flags().StringVar(&flags.action, "action", "", "form action URL")
	return cmd
}

func (f renderFlags) request(args []string) (orchestrator.Request, error) {
	req := orchestrator.Request{Renderer: f.renderer}
	if f.openapi != "" {
		if f.operation == "" {
			return req, fmt.Errorf("render: --operation is required with --openapi")
		}
		source, err := openapi.ParseSource(f.openapi)
		if err != nil {
			return req, fmt.Errorf("render: %w", err)
		}
		req.Source = source
		req.OperationID = f.operation
		return req, nil
	}
	if len(args) == 0 {
		return req, fmt.Errorf("render: form id or --openapi is required")
	}
	req.FormID = args[0]
	return req, nil
}

func (a *app) render(ctx context.Context, req orchestrator.Request, flags renderFlags) error {
	orch, err := a.orchestrator()
	if err != nil {
		return err
	}
	resolved, err := orch.Resolve(ctx, req)
	if err != nil {
		return err
	}
	values, err := seedValues(resolved, flags.set)
	if err != nil {
		return err
	}
	renderer, err := orch.Renderer(req.Renderer)
	if err != nil {
		return err
	}

	output, err := renderer.Render(ctx, resolved, render.RenderOptions{
		Values:     values,
		Action:     flags.action,
		Locale:     flags.locale,
		Translator: render.DefaultCatalog(),
	})
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}
	a.logger.Debug("form rendered",
		zap.String("form", resolved.ID),
		zap.String("renderer", renderer.Name()),
	)
	return a.write(flags.output, output)
}

// seedValues starts from descriptor defaults and applies overrides through
// the form controller so select options and text limits hold.
func seedValues(f model.Form, overrides map[string]string) (model.Values, error) {
	values := form.Initial(f.Variables)
	ctrl := form.Controller{
		Descriptors:    f.Variables,
		OnValuesChange: func(next model.Values) { values = next },
	}

	keys := make([]string, 0, len(overrides))
	for key := range overrides {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		ctrl.Values = values
		if err := ctrl.Change(key, overrides[key]); err != nil {
			return nil, fmt.Errorf("--set %s: %w", key, err)
		}
	}
	return values, nil
}

func (a *app) write(path string, data []byte) error {
	if path == "" {
		return writeAll(a.out, data)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}

func writeAll(w io.Writer, data []byte) error {
	if _, err := w.Write(data); err != nil {
		return err
	}
	if len(data) > 0 && data[len(data)-1] != '\n' {
		_, err := io.WriteString(w, "\n")
		return err
	}
	return nil
}
