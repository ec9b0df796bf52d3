package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/drujensen/meowwchat/internal/cli"
	"github.com/drujensen/meowwchat/internal/impl/config"
	"github.com/drujensen/meowwchat/internal/tui"
	"github.com/drujensen/meowwchat/internal/ui"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	listenAddr string

	email       string
	password    string
	displayName string

	forceConfig bool
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Start the terminal UI (default)",
	Args:  cobra.NoArgs,
	RunE:  runTUI,
}

func runTUI(cmd *cobra.Command, args []string) error {
	return withApp(func(cmd *cobra.Command, args []string, a *app) error {
		model := tui.NewTUI(cmd.Context(), a.authService, a.threadService, logger)
		defer model.Close()

		p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(cmd.Context()))
		if _, err := p.Run(); err != nil {
			return fmt.Errorf("terminal UI failed: %w", err)
		}
		return nil
	})(cmd, args)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the local web gateway",
	Long: `Serves a JSON API over your threads on the listen address, with live
transcripts on /ws?thread_id=<id> and Prometheus metrics on /metrics.`,
	Args: cobra.NoArgs,
	RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
		addr := cfg.ListenAddr
		if listenAddr != "" {
			addr = listenAddr
		}
		return ui.NewUI(a.threadService, a.metrics.Handler(), logger).Run(cmd.Context(), addr)
	}),
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in and store the session",
	Args:  cobra.NoArgs,
	RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
		ctx := cmd.Context()
		reader := bufio.NewReader(cmd.InOrStdin())
		if email == "" {
			email = prompt(cmd, reader, "Email: ")
		}
		if password == "" {
			password = prompt(cmd, reader, "Password: ")
		}

		if _, err := a.authService.Login(ctx, email, password); err != nil {
			return err
		}
		user, err := a.authService.CurrentUser(ctx)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), "Logged in as ")
		return cli.PrintUser(cmd.OutOrStdout(), user)
	}),
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create an account",
	Args:  cobra.NoArgs,
	RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
		reader := bufio.NewReader(cmd.InOrStdin())
		if displayName == "" {
			displayName = prompt(cmd, reader, "Display name: ")
		}
		if email == "" {
			email = prompt(cmd, reader, "Email: ")
		}
		if password == "" {
			password = prompt(cmd, reader, "Password: ")
		}

		user, err := a.authService.Register(cmd.Context(), displayName, email, password)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), "Registered ")
		if err := cli.PrintUser(cmd.OutOrStdout(), user); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Run `meowwchat login` to start chatting.")
		return nil
	}),
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored session",
	Args:  cobra.NoArgs,
	RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
		if err := a.authService.Logout(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
		return nil
	}),
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the logged in account",
	Args:  cobra.NoArgs,
	RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
		user, err := a.authService.CurrentUser(cmd.Context())
		if err != nil {
			return err
		}
		return cli.PrintUser(cmd.OutOrStdout(), user)
	}),
}

var threadsCmd = &cobra.Command{
	Use:   "threads",
	Short: "List your threads grouped by age",
	Args:  cobra.NoArgs,
	RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
		threads, err := a.threadService.ListThreads(cmd.Context())
		if err != nil {
			return err
		}
		return cli.PrintThreads(cmd.OutOrStdout(), threads)
	}),
}

var newCmd = &cobra.Command{
	Use:   "new [prompt]",
	Short: "Start a thread and chat in it",
	Args:  cobra.MinimumNArgs(1),
	RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
		created, err := a.threadService.CreateThread(cmd.Context(), strings.Join(args, " "))
		if err != nil {
			return err
		}
		logger.Debug("Thread created", zap.String("thread_id", created.ThreadID))
		return cli.NewCLI(a.threadService, cmd.InOrStdin(), cmd.OutOrStdout(), logger).Run(cmd.Context(), created.ThreadID, "")
	}),
}

var chatCmd = &cobra.Command{
	Use:   "chat [thread-id] [prompt]",
	Short: "Chat in a thread from the console",
	Long: `Opens a thread in a line-oriented console. When a prompt is given it is
sent first. Type ? for the console commands.`,
	Args: cobra.MinimumNArgs(1),
	RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
		return cli.NewCLI(a.threadService, cmd.InOrStdin(), cmd.OutOrStdout(), logger).Run(cmd.Context(), args[0], strings.Join(args[1:], " "))
	}),
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
}

var configInitCmd = &cobra.Command{
	Use:         "init",
	Short:       "Write a default configuration file",
	Args:        cobra.NoArgs,
	Annotations: map[string]string{skipConfig: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configPath
		if path == "" {
			path = config.DefaultFilePath()
		}
		if _, err := os.Stat(path); err == nil && !forceConfig {
			return fmt.Errorf("%s already exists, use --force to overwrite it", path)
		}
		if err := config.SaveFile(path, config.DefaultFileConfig(), logger); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Wrote", path)
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&listenAddr, "addr", "", "Listen address (default from config, :8080)")

	loginCmd.Flags().StringVar(&email, "email", "", "Account email")
	loginCmd.Flags().StringVar(&password, "password", "", "Account password (prompted when empty)")

	registerCmd.Flags().StringVar(&displayName, "name", "", "Display name")
	registerCmd.Flags().StringVar(&email, "email", "", "Account email")
	registerCmd.Flags().StringVar(&password, "password", "", "Account password (prompted when empty)")

	configInitCmd.Flags().BoolVar(&forceConfig, "force", false, "Overwrite an existing file")
	configCmd.AddCommand(configInitCmd)
}

func prompt(cmd *cobra.Command, reader *bufio.Reader, label string) string {
	fmt.Fprint(cmd.OutOrStdout(), label)
	line, _ := reader.ReadString('\n')
	return strings.TrimSpace(line)
}
