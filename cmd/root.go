package cmd

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"anticlaw/internal/config"
	"anticlaw/internal/graph"
	"anticlaw/internal/meta"
	"anticlaw/internal/model"
	"anticlaw/internal/provider"
)

var (
	homeFlag string
	verbose  bool
)

var rootCmd = &cobra.Command{
	Use:           "aw",
	Short:         "anticlaw: local knowledge base with an auto-linking insight graph",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", renderErr(err))
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&homeFlag, "home", "", "Knowledge base root (default ACL_HOME or ~/anticlaw)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Structured debug logging to stderr")
}

// renderErr translates the storage sentinels into user-facing messages.
func renderErr(err error) string {
	switch {
	case errors.Is(err, model.ErrNotFound):
		return fmt.Sprintf("not found: %v", err)
	case errors.Is(err, model.ErrConflict):
		return fmt.Sprintf("store busy, try again: %v", err)
	case errors.Is(err, model.ErrValidation):
		return err.Error()
	default:
		return err.Error()
	}
}

// app bundles everything a command needs, opened lazily per invocation.
type app struct {
	cfg config.Config
	log *zap.Logger
}

// newApp resolves home, loads .env and config, and builds the logger.
func newApp() (*app, error) {
	// .env is optional and only feeds API keys.
	_ = godotenv.Load()

	home, err := config.ResolveHome(homeFlag)
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(home)
	if err != nil {
		return nil, err
	}

	log := zap.NewNop()
	if verbose {
		log, err = zap.NewDevelopment()
		if err != nil {
			return nil, err
		}
	}
	return &app{cfg: cfg, log: log}, nil
}

func (a *app) graphConfig() graph.Config {
	cfg := graph.DefaultConfig()
	g := a.cfg.Graph
	if g.TemporalWindowMinutes > 0 {
		cfg.TemporalWindow = time.Duration(g.TemporalWindowMinutes) * time.Minute
	}
	if g.SemanticTopK > 0 {
		cfg.SemanticTopK = g.SemanticTopK
	}
	if g.CandidateLookbackHours > 0 {
		cfg.CandidateLookback = time.Duration(g.CandidateLookbackHours) * time.Hour
	}
	if g.MaxCandidates > 0 {
		cfg.MaxCandidates = g.MaxCandidates
	}
	return cfg
}

func (a *app) openGraph() (*graph.Store, error) {
	return graph.Open(config.GraphDBPath(a.cfg.Home), a.graphConfig(), a.log)
}

func (a *app) openMeta() (*meta.DB, error) {
	return meta.Open(config.MetaDBPath(a.cfg.Home), a.log)
}

// registry wires the configured providers. LLM registration is skipped when
// no API key is present; commands that need it fail with a clear message.
func (a *app) registry() *provider.Registry {
	reg := provider.NewRegistry()
	reg.RegisterBackup(provider.NewLocalBackup())
	if key := os.Getenv(a.cfg.LLM.APIKeyEnv); key != "" {
		reg.RegisterLLM(provider.NewOpenAILLM(key, a.cfg.LLM.Model, a.cfg.LLM.BaseURL))
	}
	return reg
}

func (a *app) llm() (provider.LLMProvider, error) {
	p, err := a.registry().LLM(a.cfg.LLM.Provider)
	if err != nil {
		return nil, fmt.Errorf("%w (set %s or configure llm.api_key_env)", err, a.cfg.LLM.APIKeyEnv)
	}
	return p, nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
