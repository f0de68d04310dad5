package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/danshapiro/murderparty/internal/config"
	"github.com/danshapiro/murderparty/internal/llmclient"
	"github.com/danshapiro/murderparty/internal/mystery/engine"
	"github.com/danshapiro/murderparty/internal/mystery/prompts"
	"github.com/danshapiro/murderparty/internal/mystery/safety"
	"github.com/danshapiro/murderparty/internal/providerspec"
)

// app carries the process-level inputs every command shares. Tests swap lookup, out and
// logger so nothing touches the real environment.
type app struct {
	configPath string
	envFile    string
	verbose    bool
	mock       bool

	dotenv bool
	lookup func(string) (string, bool)
	out    io.Writer
	errOut io.Writer
	logger *zap.Logger
}

func main() {
	a := &app{
		envFile: ".env",
		dotenv:  true,
		lookup:  os.LookupEnv,
		out:     os.Stdout,
		errOut:  os.Stderr,
	}
	if err := newRootCmd(a).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "murderparty",
		Short:         "Generate murder-mystery party packages",
		Long:          "Builds a seeded murder-mystery skeleton, has a text-generation provider write the prose, and validates the merged package.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}
	root.SetOut(a.out)
	root.SetErr(a.errOut)
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "run config file (.yaml or .json); defaults apply when empty")
	root.PersistentFlags().StringVar(&a.envFile, "env-file", a.envFile, "dotenv file loaded before the environment overlay")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "debug logging")
	root.PersistentFlags().BoolVar(&a.mock, "mock", false, "fill prose with deterministic placeholder text instead of calling a provider")

	root.AddCommand(
		newServeCmd(a),
		newGenerateCmd(a),
		newValidateCmd(a),
		newDecodeCmd(a),
		newCategoriesCmd(a),
		newConfigCmd(a),
	)
	return root
}

func (a *app) init() error {
	if a.dotenv && strings.TrimSpace(a.envFile) != "" {
		// godotenv never overrides variables already set in the process environment.
		if err := godotenv.Load(a.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", a.envFile, err)
		}
	}
	if a.logger == nil {
		zcfg := zap.NewProductionConfig()
		if a.verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
		}
		logger, err := zcfg.Build()
		if err != nil {
			return fmt.Errorf("build logger: %w", err)
		}
		a.logger = logger
	}
	return nil
}

// loadConfig reads --config (or the defaults), overlays the environment and --mock.
func (a *app) loadConfig() (*config.Config, error) {
	var cfg *config.Config
	if a.configPath != "" {
		loaded, err := config.Load(a.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	} else {
		cfg = config.Default()
	}
	if err := config.ApplyEnv(cfg, a.lookup); err != nil {
		return nil, err
	}
	if a.mock {
		cfg.Generation.Mock = true
	}
	return cfg, nil
}

func engineConfig(cfg *config.Config, logger *zap.Logger) (engine.Config, error) {
	set, err := prompts.LoadDir(cfg.Prompts.Dir)
	if err != nil {
		return engine.Config{}, err
	}
	g := cfg.Generation
	return engine.Config{
		Provider:        cfg.LLM.Provider,
		Model:           cfg.LLM.Model,
		CallTimeout:     time.Duration(cfg.LLM.CallTimeoutMS) * time.Millisecond,
		Mock:            g.Mock,
		DebugOutput:     g.DebugOutput,
		DefaultTone:     g.DefaultTone,
		DefaultDuration: g.DefaultDuration,
		Budget: engine.TokenBudget{
			Base:       g.BaseMaxTokens,
			PerPlayer:  g.PerPlayerTokens,
			Cap:        g.MaxTokensCap,
			RetryExtra: g.RetryExtraTokens,
		},
		Prompts: set,
		Safety:  safety.New(cfg.Safety.ExtraKeywords...),
		Logger:  logger.With(zap.String("component", "engine")),
	}, nil
}

// buildEngine wires the provider client unless mock mode is on. The stamped model is the
// configured one, else the provider default.
func (a *app) buildEngine(cfg *config.Config) (*engine.Engine, error) {
	ecfg, err := engineConfig(cfg, a.logger)
	if err != nil {
		return nil, err
	}
	if ecfg.Mock {
		if ecfg.Model == "" {
			if spec, ok := providerspec.Builtin(cfg.LLM.Provider); ok && spec.API != nil {
				ecfg.Model = spec.API.DefaultModel
			}
		}
		return engine.New(ecfg, nil)
	}
	client, err := llmclient.New(cfg, a.lookup, a.logger)
	if err != nil {
		return nil, err
	}
	if ecfg.Model == "" {
		ecfg.Model = client.ModelFor(cfg.LLM.Provider)
	}
	return engine.New(ecfg, client)
}
