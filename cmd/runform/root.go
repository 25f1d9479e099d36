package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/goliatone/go-runform/pkg/config"
	"github.com/goliatone/go-runform/pkg/model"
	"github.com/goliatone/go-runform/pkg/openapi"
	"github.com/goliatone/go-runform/pkg/orchestrator"
	"github.com/goliatone/go-runform/pkg/renderers/tui"
	"github.com/goliatone/go-runform/pkg/renderers/vanilla"
	"github.com/goliatone/go-runform/pkg/submit"
)

const envPrefix = "RUNFORM"

// Setting keys shared by flags, env vars, and runform.yaml.
const (
	keyConfig       = "config"
	keyForms        = "forms"
	keyPresets      = "presets"
	keyDebug        = "debug"
	keyAllowUnknown = "allow-unknown-types"
	keyHTTPTimeout  = "http-timeout"
	keyEngine       = "template-engine"
	keyEndpoint     = "submit.endpoint"
	keyToken        = "submit.token"
	keyUser         = "submit.user"
	keyUploadURL    = "submit.upload_endpoint"
	keyMode         = "submit.response_mode"
)

// app carries state shared by subcommands for one invocation.
type app struct {
	v      *viper.Viper
	out    io.Writer
	errOut io.Writer
	logger *zap.Logger

	// driver overrides the terminal prompt driver used by prompt.
	driver tui.PromptDriver
}

func newApp(out, errOut io.Writer) *app {
	return &app{v: viper.New(), out: out, errOut: errOut, logger: zap.NewNop()}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "runform",
		Short:         "Render and run prompt variable forms",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.loadConfig(cmd); err != nil {
				return err
			}
			return a.initLogger()
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			_ = a.logger.Sync()
		},
	}
	root.SetOut(a.out)
	root.SetErr(a.errOut)

	flags := root.PersistentFlags()
	flags.String(keyConfig, "", "config file (default ./runform.yaml)")
	flags.String(keyForms, "forms", "form config file or directory")
	flags.String(keyPresets, "", "YAML/JSON preset overrides applied to every form")
	flags.Bool(keyDebug, false, "debug logging")
	flags.Bool(keyAllowUnknown, false, "keep variables with unsupported types instead of failing")
	flags.Duration(keyHTTPTimeout, 15*time.Second, "timeout for remote OpenAPI documents")
	flags.String(keyEngine, vanilla.EnginePongo2, "HTML template engine (pongo2, go-template)")
	flags.String("endpoint", "", "run endpoint receiving submissions")
	flags.String("token", "", "bearer token for the run endpoint")
	flags.String("user", "", "user id forwarded with submissions")
	flags.String("upload-endpoint", "", "backend endpoint storing local image uploads")

	root.AddCommand(
		newFormsCmd(a),
		newRenderCmd(a),
		newPromptCmd(a),
		newServeCmd(a),
	)
	return root
}

func (a *app) loadConfig(cmd *cobra.Command) error {
	v := a.v
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("bind flags: %w", err)
	}
	pairs := map[string]string{
		keyEndpoint:  "endpoint",
		keyToken:     "token",
		keyUser:      "user",
		keyUploadURL: "upload-endpoint",
	}
	for key, flag := range pairs {
		if err := v.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			return fmt.Errorf("bind %s: %w", flag, err)
		}
	}

	if path := v.GetString(keyConfig); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("runform")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("read config: %w", err)
		}
	}
	return nil
}

func (a *app) initLogger() error {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}
	if a.v.GetBool(keyDebug) {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	logger, err := cfg.Build()
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	a.logger = logger
	return nil
}

func (a *app) builderOptions() []model.BuilderOption {
	if a.v.GetBool(keyAllowUnknown) {
		return []model.BuilderOption{model.WithAllowUnknownTypes()}
	}
	return nil
}

// store loads the configured forms. A missing default directory yields an
// empty store so OpenAPI-only invocations work without one.
func (a *app) store() (*config.Store, error) {
	path := a.v.GetString(keyForms)
	if path == "" {
		return config.NewStore(), nil
	}
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !a.v.IsSet(keyForms) {
			return config.NewStore(), nil
		}
		return nil, fmt.Errorf("forms: %w", err)
	}

	opts := []config.Option{config.WithBuilderOptions(a.builderOptions()...)}
	if info.IsDir() {
		return config.LoadFS(os.DirFS(path), opts...)
	}
	return config.LoadFile(path, opts...)
}

func (a *app) orchestrator() (*orchestrator.Orchestrator, error) {
	store, err := a.store()
	if err != nil {
		return nil, err
	}
	a.logger.Debug("forms loaded", zap.Int("count", store.Len()), zap.String("path", a.v.GetString(keyForms)))

	options := []orchestrator.Option{
		orchestrator.WithStore(store),
		orchestrator.WithLogger(a.logger),
		orchestrator.WithOpenAPILoader(openapi.NewLoader(openapi.WithHTTPFallback(a.v.GetDuration(keyHTTPTimeout)))),
		orchestrator.WithHTMLOptions(vanilla.WithTemplateEngine(a.v.GetString(keyEngine))),
	}
	if a.v.GetBool(keyAllowUnknown) {
		options = append(options, orchestrator.WithOpenAPIOptions(openapi.WithAllowUnknownTypes()))
	}
	if path := a.v.GetString(keyPresets); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("presets: %w", err)
		}
		transformer, err := orchestrator.NewPresetTransformer(data)
		if err != nil {
			return nil, err
		}
		options = append(options, orchestrator.WithTransformer(transformer))
	}
	return orchestrator.New(options...), nil
}

// submitter returns the HTTP submitter when an endpoint is configured.
func (a *app) submitter() (submit.Submitter, error) {
	endpoint := a.v.GetString(keyEndpoint)
	if endpoint == "" {
		return nil, nil
	}
	submitter, err := submit.NewHTTPSubmitter(endpoint,
		submit.WithToken(a.v.GetString(keyToken)),
		submit.WithResponseMode(a.v.GetString(keyMode)),
		submit.WithHTTPLogger(a.logger),
	)
	if err != nil {
		return nil, err
	}
	return submitter, nil
}

// fileUploader returns the backend upload client when an upload endpoint is
// configured. It shares the run endpoint's token.
func (a *app) fileUploader() (submit.FileUploader, error) {
	endpoint := a.v.GetString(keyUploadURL)
	if endpoint == "" {
		return nil, nil
	}
	uploader, err := submit.NewHTTPUploader(endpoint,
		submit.WithToken(a.v.GetString(keyToken)),
		submit.WithHTTPLogger(a.logger),
	)
	if err != nil {
		return nil, err
	}
	return uploader, nil
}
