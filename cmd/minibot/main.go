package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"minibot/internal/agent"
	"minibot/internal/bus"
	"minibot/internal/channel"
	"minibot/internal/config"
	"minibot/internal/domain"
	"minibot/internal/provider"
	"minibot/internal/session"
	"minibot/internal/tool"
)

var (
	version    = "0.1.0"
	logger     *slog.Logger
	configPath string
)

func main() {
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	root := &cobra.Command{
		Use:   "minibot",
		Short: "Minibot: a message-driven AI agent",
		Long:  "Minibot is a small agent that answers chat messages with tool use, budget enforcement, and background subagents.",
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config.yaml (default: ~/.minibot/config.yaml)")

	root.AddCommand(initCmd())
	root.AddCommand(chatCmd())
	root.AddCommand(runCmd())
	root.AddCommand(statusCmd())
	root.AddCommand(versionCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func resolveConfigPath() string {
	if configPath != "" {
		return configPath
	}
	return config.DefaultConfigPath()
}

func loadConfig() *config.Config {
	cfgPath := resolveConfigPath()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		logger.Warn("config not found, using defaults", "path", cfgPath, "err", err)
		return config.Defaults()
	}
	return cfg
}

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize config and workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			cfg := config.Defaults()
			if err := config.Save(cfgPath, cfg); err != nil {
				return err
			}
			workspace := config.ExpandPath(cfg.General.Workspace)
			if err := os.MkdirAll(workspace, 0o755); err != nil {
				return err
			}
			logger.Info("initialized", "config", cfgPath, "workspace", workspace)
			return nil
		},
	}
}

func chatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat [message]",
		Short: "Start interactive chat (CLI), or answer one message and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			messageBus := bus.New(100, logger)
			defer messageBus.Close()

			loop, cleanup, err := buildAgent(cfg, messageBus)
			if err != nil {
				return err
			}
			defer cleanup()

			// One-shot mode: answer the given message and exit.
			if len(args) > 0 {
				reply, err := loop.ProcessDirect(ctx, strings.Join(args, " "), "cli", "direct")
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), reply)
				return nil
			}

			go loop.Run(ctx)

			cliCh := channel.NewCLI(channel.CLIConfig{Logger: logger})
			return cliCh.Start(ctx, messageBus)
		},
	}
}

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start gateway mode (all enabled channels + agent loop)",
		Long:  "Starts every enabled channel and the agent loop. Press Ctrl+C to stop.",
		RunE:  runGateway,
	}
}

func runGateway(cmd *cobra.Command, args []string) error {
	cfgPath := resolveConfigPath()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	messageBus := bus.New(100, logger)

	loop, cleanup, err := buildAgent(cfg, messageBus)
	if err != nil {
		return err
	}
	defer cleanup()

	go loop.Run(ctx)

	started := 0
	if cfg.Channels.Telegram.Enabled && cfg.Channels.Telegram.Token != "" {
		telegramCh := channel.NewTelegram(channel.TelegramConfig{
			Token:     cfg.Channels.Telegram.Token,
			AllowFrom: cfg.Channels.Telegram.AllowFrom,
			ParseMode: cfg.Channels.Telegram.ParseMode,
			Logger:    logger,
		})
		go func() {
			if err := telegramCh.Start(ctx, messageBus); err != nil {
				logger.Error("telegram channel error", "err", err)
			}
		}()
		logger.Info("telegram channel enabled")
		started++
	}
	if cfg.Channels.CLI.Enabled {
		cliCh := channel.NewCLI(channel.CLIConfig{Logger: logger})
		go func() {
			if err := cliCh.Start(ctx, messageBus); err != nil {
				logger.Error("cli channel error", "err", err)
			}
		}()
		started++
	}
	if started == 0 {
		return fmt.Errorf("no channels enabled in config")
	}

	logger.Info("gateway started. Press Ctrl+C to stop.")
	<-ctx.Done()
	logger.Info("shutting down gateway...")

	const shutdownTimeout = 10 * time.Second
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		messageBus.Close()
	}()

	select {
	case <-done:
		logger.Info("shutdown complete")
		return nil
	case <-shutdownCtx.Done():
		logger.Warn("shutdown timed out, forcing exit")
		return fmt.Errorf("shutdown timed out")
	}
}

// buildAgent wires the session store, provider, tools, subagent manager,
// and agent loop from config. The returned cleanup closes the store.
func buildAgent(cfg *config.Config, messageBus domain.MessageBus) (*agent.Loop, func(), error) {
	if err := os.MkdirAll(cfg.General.Workspace, 0o755); err != nil {
		return nil, nil, fmt.Errorf("create workspace: %w", err)
	}

	store, backend, err := session.Select(cfg.Session, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("session store: %w", err)
	}

	provFactory := provider.NewFactory(cfg, logger)
	prov, err := provFactory.Default()
	if err != nil {
		store.Close()
		return nil, nil, fmt.Errorf("provider: %w", err)
	}

	// Personalization only exists behind the remote backend.
	var contexts domain.ContextStore
	if cs, ok := store.(domain.ContextStore); ok {
		contexts = cs
	}
	var prefetch domain.ContextStore
	if cfg.Session.Remote.Prefetch {
		prefetch = contexts
	}

	prompt := agent.NewContextBuilder(cfg.General.Workspace)
	fileCfg := tool.FileConfig{
		Workspace: cfg.General.Workspace,
		Restrict:  cfg.Tools.RestrictToWorkspace,
	}
	baseTools := func(reg *tool.Registry) {
		reg.Register(tool.NewReadFileTool(fileCfg))
		reg.Register(tool.NewWriteFileTool(fileCfg))
		reg.Register(tool.NewEditFileTool(fileCfg))
		reg.Register(tool.NewListDirTool(fileCfg))
		reg.Register(tool.NewShellTool(tool.ShellConfig{
			WorkingDir:     cfg.General.Workspace,
			TimeoutSeconds: cfg.Tools.Shell.TimeoutSeconds,
			MaxOutputBytes: cfg.Tools.Shell.MaxOutputBytes,
		}))
		reg.Register(tool.NewWebSearchTool())
		reg.Register(tool.NewWebFetchTool())
	}

	// Subagents get the base tool set only: no spawn (no recursive
	// delegation) and no mid-turn messaging.
	subTools := tool.NewRegistry(logger)
	baseTools(subTools)

	subagents := agent.NewSubagentManager(agent.SubagentConfig{
		Provider:      prov,
		Prompt:        prompt,
		Tools:         subTools,
		Bus:           messageBus,
		Logger:        logger,
		MaxIterations: cfg.General.MaxIterations,
	})

	mainTools := tool.NewRegistry(logger)
	baseTools(mainTools)
	mainTools.Register(tool.NewMessageTool(messageBus))
	mainTools.Register(tool.NewSpawnTool(subagents))
	mainTools.Register(tool.NewPromptEditTool(fileCfg, contexts))
	if contexts != nil {
		mainTools.Register(tool.NewUserContextTool(contexts))
	}

	loop := agent.NewLoop(agent.LoopConfig{
		Provider:        prov,
		Sessions:        store,
		Contexts:        prefetch,
		Prompt:          prompt,
		Tools:           mainTools,
		Subagents:       subagents,
		Bus:             messageBus,
		Logger:          logger,
		MaxIterations:   cfg.General.MaxIterations,
		HistoryLimit:    cfg.General.HistoryLimit,
		MaxSpendDollars: cfg.General.MaxSpendDollars,
		Backend:         backend,
	})

	cleanup := func() {
		subagents.Wait()
		if err := store.Close(); err != nil {
			logger.Warn("session store close", "err", err)
		}
	}
	return loop, cleanup, nil
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show system status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			cfg, err := config.Load(cfgPath)
			if err != nil {
				logger.Info("config", "path", cfgPath, "loaded", false)
				cfg = config.Defaults()
			} else {
				logger.Info("config", "path", cfgPath, "loaded", true)
			}

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			factory := provider.NewFactory(cfg, logger)
			prov, err := factory.Default()
			if err != nil {
				logger.Info("provider", "configured", false, "err", err)
			} else if err := prov.Healthy(ctx); err != nil {
				logger.Info("provider", "name", prov.Name(), "healthy", false, "err", err)
			} else {
				logger.Info("provider", "name", prov.Name(), "healthy", true)
			}

			store, backend, err := session.Select(cfg.Session, logger)
			if err != nil {
				logger.Info("sessions", "available", false, "err", err)
				return nil
			}
			defer store.Close()
			logger.Info("sessions", "backend", backend)
			return nil
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("minibot", version)
		},
	}
}
