// Package cli provides the command-line interface for echoal.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/comigor/echoal-go/internal/agent"
	"github.com/comigor/echoal-go/internal/chat"
	"github.com/comigor/echoal-go/internal/config"
	"github.com/comigor/echoal-go/internal/history"
	"github.com/comigor/echoal-go/internal/logger"
	"github.com/comigor/echoal-go/internal/settings"
	"github.com/comigor/echoal-go/pkg/tools"
)

// Version is set at build time.
var Version = "1.0.0"

var (
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "echoal",
	Short: "Conversational assistant backend",
	Long: `echoal stores conversations and answers messages with either an
OpenAI-compatible model (when an API key is configured) or a built-in
offline responder.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if configPath != "" {
			return os.Setenv("CONFIG_PATH", configPath)
		}
		return nil
	},
}

// Execute adds all child commands to the root command and runs it.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override the configured log level")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(conversationsCmd)
}

// app is the wired object graph shared by every command.
type app struct {
	cfg      *config.Config
	store    history.Store
	settings *settings.Store
	tools    *tools.ToolManager
	chat     *chat.Service

	closeLog func() error
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	closeLog := logger.Setup(cfg.Log.Level, cfg.Log.File)

	st, err := settings.New(settings.Defaults(cfg.LLM))
	if err != nil {
		return nil, errors.Join(fmt.Errorf("settings defaults: %w", err), closeLog())
	}

	store, err := history.Open(cfg.History)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("open history: %w", err), closeLog())
	}

	// tools are only useful to the remote responder
	var toolset *tools.ToolManager
	if cfg.LLM.APIKey != "" {
		toolset = tools.LoadMCP(ctx, cfg.MCPServers)
	}

	gen := agent.Select(cfg.LLM, st, toolset)
	return &app{
		cfg:      cfg,
		store:    store,
		settings: st,
		tools:    toolset,
		chat:     chat.New(store, gen),
		closeLog: closeLog,
	}, nil
}

func (a *app) Close() error {
	return errors.Join(a.tools.Close(), a.store.Close(), a.closeLog())
}
