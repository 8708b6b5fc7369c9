package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"vla/internal/cli"
	"vla/internal/community"
	"vla/internal/config"
	"vla/internal/domain"
	"vla/internal/gateway"
	"vla/internal/logging"
	"vla/internal/router"
)

// buildMeta holds version and build metadata (injectable via ldflags).
type buildMeta struct {
	Version string
	GoOS    string
	GoArch  string
}

func newBuildMeta(version, goos, goarch string) buildMeta {
	if goos == "" {
		goos = runtime.GOOS
	}
	if goarch == "" {
		goarch = runtime.GOARCH
	}
	return buildMeta{Version: version, GoOS: goos, GoArch: goarch}
}

func (m buildMeta) String() string {
	return fmt.Sprintf("vla %s %s/%s", m.Version, m.GoOS, m.GoArch)
}

func newRootCommand(bm buildMeta) *cobra.Command {
	root := &cobra.Command{
		Use:           "vla",
		Short:         "Virtual leasing agent",
		Long:          "vla answers apartment prospects and books tours against the scheduling API.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if showVersion, _ := cmd.Flags().GetBool("version"); showVersion {
				fmt.Fprintln(cmd.OutOrStdout(), bm.String())
				return nil
			}
			return cmd.Help()
		},
	}
	root.Flags().BoolP("version", "V", false, "print version and build metadata")
	root.PersistentFlags().StringP("config", "c", "", "config file (default $VLA_CONFIG or vla.json)")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and WebSocket gateway",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, daemonShutdownCh)
		},
	}
	serveCmd.Flags().String("community-file", "", "serve every community from this YAML/JSON fixture")
	root.AddCommand(serveCmd)

	chatCmd := &cobra.Command{
		Use:   "chat",
		Short: "Talk to the agent as a prospect from the terminal",
		RunE:  runChat,
	}
	chatCmd.Flags().String("community", "1", "community ID")
	chatCmd.Flags().String("client", "1", "prospect (client) ID")
	chatCmd.Flags().String("group", "", "scheduling group ID")
	chatCmd.Flags().String("api-key", "", "company API key for the scheduling API")
	chatCmd.Flags().String("community-file", "", "read community facts from this YAML/JSON fixture")
	root.AddCommand(chatCmd)

	checkCmd := &cobra.Command{
		Use:   "check",
		Short: "Check config, provider keys and state backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			fix, _ := cmd.Flags().GetBool("fix")
			code := cli.RunCheck(configPath(cmd), cli.CheckOptions{Fix: fix}, cmd.OutOrStdout(), cmd.ErrOrStderr())
			if code != 0 {
				return exitCodeErr(code)
			}
			return nil
		},
	}
	checkCmd.Flags().Bool("fix", false, "write default config if missing")
	root.AddCommand(checkCmd)

	promptsCmd := &cobra.Command{Use: "prompts", Short: "List or render prompt templates"}
	promptsCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List prompt template names",
		RunE: func(cmd *cobra.Command, args []string) error {
			cli.ListPrompts(cmd.OutOrStdout())
			return nil
		},
	})
	renderCmd := &cobra.Command{
		Use:   "render <name> <community-file>",
		Short: "Render a template against a community fixture",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			info, err := community.LoadFile(args[1])
			if err != nil {
				return err
			}
			message, _ := cmd.Flags().GetString("message")
			return cli.RenderPrompt(cmd.OutOrStdout(), args[0], info, message)
		},
	}
	renderCmd.Flags().String("message", "", "prospect message for templates that take one")
	promptsCmd.AddCommand(renderCmd)
	root.AddCommand(promptsCmd)

	toolsCmd := &cobra.Command{
		Use:   "tools",
		Short: "List the tools the configured prompt gives the agent",
		RunE:  runTools,
	}
	toolsCmd.Flags().BoolP("verbose", "v", false, "include input schemas")
	root.AddCommand(toolsCmd)

	return root
}

func configPath(cmd *cobra.Command) string {
	p, _ := cmd.Flags().GetString("config")
	return config.Path(p)
}

// loadConfig loads and validates the config. A missing default file falls
// back to defaults plus environment.
func loadConfig(cmd *cobra.Command) (*domain.Config, error) {
	path := configPath(cmd)
	cfg, err := config.Load(path)
	if errors.Is(err, os.ErrNotExist) && !cmd.Flags().Changed("config") {
		cfg, err = config.Load("")
	}
	if err != nil {
		return nil, err
	}
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config %s:\n%w", path, err)
	}
	return cfg, nil
}

// runServe runs the gateway until the command context is cancelled by a
// shutdown signal or shutdownCh is closed (tests).
func runServe(cmd *cobra.Command, shutdownCh <-chan struct{}) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := logging.New(cfg.Infra, logOutput)
	communityFile, _ := cmd.Flags().GetString("community-file")

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := buildApp(ctx, cfg, logger, appOptions{communityFile: communityFile, provider: providerOverride})
	if err != nil {
		return err
	}
	defer a.Close()

	srv, err := gateway.NewServer(&cfg.Gateway, gateway.Deps{Agent: a.router, Triage: a.triage, Logger: logger})
	if err != nil {
		return err
	}
	bound, err := srv.Listen()
	if err != nil {
		return fmt.Errorf("gateway failed to bind: %w", err)
	}
	serveCtx, stop := context.WithCancel(ctx)
	defer stop()
	runErr := make(chan error, 1)
	go func() { runErr <- srv.Serve(serveCtx) }()

	if serveReady != nil {
		serveReady(bound)
	}
	logger.Info("ready", "addr", bound, "prompt", cfg.Agents.Prompt, "style", cfg.Agents.Style, "state", cfg.State.Backend)

	select {
	case <-shutdownCh:
	case <-ctx.Done():
	case err := <-runErr:
		return err
	}
	logger.Info("shutting down", "active_conversations", a.router.ActiveConversations())
	stop()
	return <-runErr
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := logging.New(cfg.Infra, cmd.ErrOrStderr())
	communityFile, _ := cmd.Flags().GetString("community-file")
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := buildApp(ctx, cfg, logger, appOptions{communityFile: communityFile, provider: providerOverride})
	if err != nil {
		return err
	}
	defer a.Close()

	flag := func(name string) string {
		v, _ := cmd.Flags().GetString(name)
		return strings.TrimSpace(v)
	}
	apiKey := flag("api-key")
	if apiKey == "" {
		apiKey = cfg.Scheduling.APIKey
	}
	return cli.RunChat(ctx, a.router, cli.ChatOptions{
		Key:     domain.ConversationKey{CommunityID: flag("community"), ClientID: flag("client")},
		GroupID: flag("group"),
		APIKey:  apiKey,
	}, cmd.InOrStdin(), cmd.OutOrStdout())
}

func runTools(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := buildApp(ctx, cfg, logging.New(cfg.Infra, io.Discard), appOptions{provider: providerOverride})
	if err != nil {
		return err
	}
	defer a.Close()
	reg, err := a.service.Tools(router.Request{Key: domain.ConversationKey{CommunityID: "0", ClientID: "0"}}, nil)
	if err != nil {
		return err
	}
	verbose, _ := cmd.Flags().GetBool("verbose")
	fmt.Fprintf(cmd.OutOrStdout(), "prompt %s:\n", cfg.Agents.Prompt)
	cli.PrintTools(cmd.OutOrStdout(), reg.List(), verbose)
	return nil
}

func getVersion() string {
	if version != "" {
		return version
	}
	b, err := os.ReadFile("VERSION")
	if err != nil {
		return "dev"
	}
	return strings.TrimSpace(string(b))
}

// version is set at build time via ldflags for build metadata, e.g.:
//
//	go build -ldflags "-X main.version=1.0.0" -o vla ./cmd/vla
var version string

// daemonShutdownCh is set by tests to unblock runServe without signals. Production leaves it nil.
var daemonShutdownCh <-chan struct{}

// providerOverride replaces the configured LLM provider. Tests set it; production leaves it nil.
var providerOverride domain.LLMProvider

// serveReady is called with the bound address once the gateway listens. Tests set it.
var serveReady func(addr string)

// logOutput is where the serve logger writes. Tests capture it.
var logOutput io.Writer = os.Stderr

// exitCodeErr carries an exit code for the process. When returned from a command, runApp exits with that code.
type exitCodeErr int

func (e exitCodeErr) Error() string { return fmt.Sprintf("exit %d", int(e)) }
func (e exitCodeErr) ExitCode() int { return int(e) }

// runApp runs the root command with the given args and returns the exit code.
func runApp(args []string, stdout, stderr io.Writer) int {
	bm := newBuildMeta(version, "", "")
	if bm.Version == "" {
		bm.Version = getVersion()
	}
	root := newRootCommand(bm)
	root.SetArgs(args[1:])
	root.SetOut(stdout)
	root.SetErr(stderr)
	ctx, stop := signal.NotifyContext(context.Background(), shutdownSignals...)
	defer stop()
	if err := root.ExecuteContext(ctx); err != nil {
		if ec, ok := err.(interface{ ExitCode() int }); ok {
			return ec.ExitCode()
		}
		fmt.Fprintln(stderr, err)
		return 1
	}
	return 0
}
