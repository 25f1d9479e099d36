package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-runform/internal/server"
)

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve forms and run sessions over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.v.BindPFlag("server.addr", cmd.Flags().Lookup("addr")); err != nil {
				return err
			}
			cfg, err := a.serverConfig()
			if err != nil {
				return err
			}
			orch, err := a.orchestrator()
			if err != nil {
				return err
			}
			submitter, err := a.submitter()
			if err != nil {
				return err
			}

			options := []server.Option{server.WithLogger(a.logger)}
			files, err := a.fileUploader()
			if err != nil {
				return err
			}
			if files != nil {
				options = append(options, server.WithFileUploader(files))
			}

			srv, err := server.New(cfg, orch, submitter, options...)
			if err != nil {
				return err
			}
			return srv.Run(cmd.Context())
		},
	}
	cmd.Flags().String("addr", server.DefaultConfig().Addr, "listen address")
	return cmd
}

// serverConfig overlays the "server" settings on the defaults. The submit
// user doubles as the default run user.
func (a *app) serverConfig() (server.Config, error) {
	cfg := server.DefaultConfig()
	if err := a.v.UnmarshalKey("server", &cfg); err != nil {
		return cfg, fmt.Errorf("server config: %w", err)
	}
	if addr := a.v.GetString("server.addr"); addr != "" {
		cfg.Addr = addr
	}
	if cfg.User == "" {
		cfg.User = a.v.GetString(keyUser)
	}
	if a.v.GetBool(keyDebug) {
		cfg.Debug = true
	}
	return cfg, nil
}
