package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/rocbridge/rocbridge/internal/config"
	"github.com/rocbridge/rocbridge/internal/logger"
	"github.com/rocbridge/rocbridge/pkg/chat"
	"github.com/rocbridge/rocbridge/pkg/invoker"
	"github.com/rocbridge/rocbridge/pkg/runtime"
	"github.com/rocbridge/rocbridge/pkg/schema"
	"github.com/rocbridge/rocbridge/pkg/toolserver"
	"github.com/rocbridge/rocbridge/pkg/turn"
)

var chatCmd = &cobra.Command{
	Use:   "chat <server-script>",
	Short: "Start an interactive session bridged to the tool server",
	Long: `Start an interactive session. The positional argument is the tool
server launch target (a .py or .js script). Tools are registered on the
agent before the first query; startup fails if registration is impossible.`,
	Args: cobra.ExactArgs(1),
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg, err := config.NewLoader(cfgFile).Load()
	if err != nil {
		return err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	rootLogger, err := logger.New(logger.Config{
		Level:   cfg.Logging.Level,
		File:    cfg.Logging.File,
		Console: true,
		Pretty:  cfg.Logging.Pretty,
	})
	if err != nil {
		return err
	}
	defer rootLogger.Close()
	log := rootLogger.Zerolog()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server, err := toolserver.NewForScript(args[0], log)
	if err != nil {
		return err
	}
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("connect to tool server: %w", err)
	}

	// Startup phase: translation or registration failures are fatal and the
	// session loop never runs.
	definitions, err := discoverFunctions(ctx, server, log)
	if err != nil {
		_ = server.Close()
		return err
	}

	agentRuntime := runtime.NewHTTPRuntime(cfg.Runtime.Endpoint, log)
	if err := agentRuntime.RegisterFunctions(ctx, runtime.ActionGroup{
		Name:        cfg.ActionGroup.Name,
		Description: cfg.ActionGroup.Description,
		Functions:   definitions,
	}); err != nil {
		_ = server.Close()
		return err
	}

	toolInvoker, err := invoker.New(invoker.Config{
		Definitions: definitions,
		Server:      server,
		Logger:      log,
	})
	if err != nil {
		_ = server.Close()
		return err
	}

	controller, err := turn.New(turn.Config{
		Runtime:    agentRuntime,
		Invoker:    toolInvoker,
		AgentID:    cfg.Agent.ID,
		AliasID:    cfg.Agent.AliasID,
		AnswerMode: turn.AnswerMode(cfg.Answer.Mode),
		Logger:     log,
	})
	if err != nil {
		_ = server.Close()
		return err
	}

	loop, err := chat.New(chat.Config{
		Controller:   controller,
		Closer:       server,
		TraceEnabled: cfg.Trace,
		Logger:       log,
	})
	if err != nil {
		_ = server.Close()
		return err
	}

	return loop.Run(ctx, os.Stdin, os.Stdout)
}

// discoverFunctions lists the server's tools and translates them into the
// definitions registered on the agent.
func discoverFunctions(ctx context.Context, server toolserver.Lister, log zerolog.Logger) ([]runtime.FunctionDefinition, error) {
	tools, err := server.ListTools(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tools: %w", err)
	}
	log.Info().Int("tools", len(tools)).Msg("Connected to tool server")

	return schema.Translate(tools)
}
