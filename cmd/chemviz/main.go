// Package main provides the chemviz CLI: a terminal client for the
// chemical equipment analytics service.
package main

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/chemviz/chemviz/internal/api"
	"github.com/chemviz/chemviz/internal/chart"
	"github.com/chemviz/chemviz/internal/config"
	"github.com/chemviz/chemviz/internal/logger"
	"github.com/chemviz/chemviz/internal/session"
	"github.com/chemviz/chemviz/internal/tui"
)

var (
	// version and buildDate are set via ldflags.
	version   string
	buildDate string
)

var (
	serverFlag string
	configFlag string
	formatFlag string
)

// app bundles the wired-up client pieces every command needs.
type app struct {
	cfg     *config.Config
	log     *logger.Logger
	client  *api.Client
	manager *session.Manager
}

func newApp() (*app, error) {
	cfgPath := configFlag
	if cfgPath == "" {
		cfgPath = config.DefaultConfigPath()
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if serverFlag != "" {
		cfg.ServerURL = serverFlag
	}

	log := logger.New()
	if err := log.Init(cfg.LogLevel); err != nil {
		return nil, err
	}

	client := api.NewClient(cfg.ServerURL, &http.Client{Timeout: cfg.Timeout()})
	store := session.NewFileStore(config.Dir())
	manager := session.NewManager(client, store, log.Log)

	return &app{cfg: cfg, log: log, client: client, manager: manager}, nil
}

// requireAuth initializes the session from the persisted token and
// fails if no verified identity results.
func (a *app) requireAuth(ctx context.Context) error {
	a.manager.Initialize(ctx)
	if !a.manager.IsAuthenticated() {
		return fmt.Errorf("not logged in; run 'chemviz login' first")
	}
	return nil
}

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "chemviz",
		Short:         "Terminal dashboard for chemical equipment analytics",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       versionString(),
	}

	rootCmd.PersistentFlags().StringVar(&serverFlag, "server", "", "server base URL (overrides config)")
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "path to config file")

	rootCmd.AddCommand(newLoginCmd())
	rootCmd.AddCommand(newRegisterCmd())
	rootCmd.AddCommand(newLogoutCmd())
	rootCmd.AddCommand(newResetPasswordCmd())
	rootCmd.AddCommand(newStatusCmd())
	rootCmd.AddCommand(newUploadCmd())
	rootCmd.AddCommand(newHistoryCmd())
	rootCmd.AddCommand(newReportCmd())
	rootCmd.AddCommand(newDashboardCmd())

	return rootCmd
}

func versionString() string {
	if version == "" {
		return "dev"
	}
	return fmt.Sprintf("%s (built %s)", version, buildDate)
}

func newLoginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login [username]",
		Short: "Authenticate and store the session token",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			a.manager.Initialize(ctx)
			if a.manager.IsAuthenticated() {
				fmt.Printf("Already logged in as %s. Use 'chemviz logout' first.\n", a.manager.User().Username)
				return nil
			}

			username := ""
			if len(args) == 1 {
				username = args[0]
			} else {
				username, err = promptLine("Username: ")
				if err != nil {
					return err
				}
			}
			password, err := promptPassword("Password: ")
			if err != nil {
				return err
			}

			if err := a.manager.Login(ctx, username, password); err != nil {
				return fmt.Errorf("login failed: %w", err)
			}
			if u := a.manager.User(); u != nil {
				fmt.Printf("Logged in as %s\n", u.Username)
			} else {
				fmt.Println("Logged in; profile could not be loaded yet.")
			}
			return nil
		},
	}
}

func newRegisterCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "register [username]",
		Short: "Create an account",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}

			username := ""
			if len(args) == 1 {
				username = args[0]
			} else {
				username, err = promptLine("Username: ")
				if err != nil {
					return err
				}
			}
			email, err := promptLine("Email: ")
			if err != nil {
				return err
			}
			password, err := promptPassword("Password: ")
			if err != nil {
				return err
			}

			resp, err := a.manager.Register(cmd.Context(), username, password, email)
			if err != nil {
				return fmt.Errorf("registration failed: %w", err)
			}
			fmt.Printf("Account %s created. Run 'chemviz login' to sign in.\n", resp.Username)
			return nil
		},
	}
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Clear the stored session token",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			a.manager.Logout()
			fmt.Println("Logged out.")
			return nil
		},
	}
}

func newResetPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset-password [email]",
		Short: "Request a password reset email",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}

			email := ""
			if len(args) == 1 {
				email = args[0]
			} else {
				email, err = promptLine("Email: ")
				if err != nil {
					return err
				}
			}

			resp, err := a.manager.RequestPasswordReset(cmd.Context(), email)
			if err != nil {
				return fmt.Errorf("password reset request failed: %w", err)
			}
			if resp.Message != "" {
				fmt.Println(resp.Message)
			} else {
				fmt.Println("Password reset requested. Check your inbox.")
			}
			return nil
		},
	}
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show session state and server",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			a.manager.Initialize(cmd.Context())

			fmt.Printf("Server: %s\n", a.cfg.ServerURL)
			fmt.Printf("State:  %s\n", a.manager.State())
			if u := a.manager.User(); u != nil {
				fmt.Printf("User:   %s <%s>\n", u.Username, u.Email)
			}
			return nil
		},
	}
}

func newUploadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "upload <file.csv>",
		Short: "Upload a CSV file and show its analytics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if err := a.requireAuth(ctx); err != nil {
				return err
			}

			s, err := a.client.UploadCSV(ctx, args[0])
			if err != nil {
				return err
			}
			printSession(s)
			return nil
		},
	}
}

func newHistoryCmd() *cobra.Command {
	var detail bool
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent uploads",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if err := a.requireAuth(ctx); err != nil {
				return err
			}

			sessions, err := a.client.History(ctx)
			if err != nil {
				return err
			}
			if len(sessions) == 0 {
				fmt.Println("No uploads yet.")
				return nil
			}
			for _, s := range sessions {
				fmt.Printf("%-6s %-28s %s  %d items\n",
					s.ID, s.FileName, s.CreatedAt.Format("2006-01-02 15:04"), s.TotalCount)
				if detail {
					printSession(s)
					fmt.Println()
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&detail, "detail", false, "print full analytics per session")
	return cmd
}

func newReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report [session-id]",
		Short: "Download a rendered report for a session",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if err := a.requireAuth(ctx); err != nil {
				return err
			}

			format := api.ReportFormat(formatFlag)
			if !format.Valid() {
				return fmt.Errorf("unsupported format %q (want pdf, csv, or json)", formatFlag)
			}

			sessions, err := a.client.History(ctx)
			if err != nil {
				return err
			}
			if len(sessions) == 0 {
				return fmt.Errorf("no sessions to report on")
			}

			target := sessions[0]
			if len(args) == 1 {
				found := false
				for _, s := range sessions {
					if s.ID == args[0] {
						target = s
						found = true
						break
					}
				}
				if !found {
					return fmt.Errorf("session %s not found in history", args[0])
				}
			}

			blob, err := a.client.GenerateReport(ctx, target.ID, format)
			if err != nil {
				return err
			}
			name := target.ReportFileName(format)
			if err := os.WriteFile(name, blob, 0o644); err != nil {
				return fmt.Errorf("writing %s: %w", name, err)
			}
			fmt.Printf("Report saved to %s\n", name)
			return nil
		},
	}
	cmd.Flags().StringVar(&formatFlag, "format", "pdf", "report format: pdf, csv, or json")
	return cmd
}

func newDashboardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Open the interactive dashboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if err := a.requireAuth(ctx); err != nil {
				return err
			}

			model := tui.NewModel(a.client, a.manager, a.cfg.Timeout(), a.cfg.NoColor, a.log.Log)
			program := tea.NewProgram(model, tea.WithAltScreen())
			if _, err := program.Run(); err != nil {
				return fmt.Errorf("dashboard failed: %w", err)
			}
			return nil
		},
	}
}

// printSession writes the session's aggregates and distribution legend.
func printSession(s api.Session) {
	fmt.Printf("File:            %s\n", s.FileName)
	fmt.Printf("Uploaded:        %s\n", s.CreatedAt.Format("2006-01-02 15:04"))
	fmt.Printf("Equipment count: %d\n", s.TotalCount)
	fmt.Printf("Avg flowrate:    %.1f\n", s.AvgFlowrate)
	fmt.Printf("Avg pressure:    %.1f\n", s.AvgPressure)
	fmt.Printf("Avg temperature: %.1f\n", s.AvgTemperature)
	slices := chart.Slices(s.Distribution, chart.Total(s.Distribution))
	if len(slices) > 0 {
		fmt.Println()
		fmt.Println(chart.Legend(slices, 0))
	}
}

func promptLine(prompt string) (string, error) {
	fmt.Print(prompt)
	scanner := bufio.NewScanner(os.Stdin)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return "", err
		}
		return "", fmt.Errorf("no input")
	}
	return strings.TrimSpace(scanner.Text()), nil
}

func promptPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	data, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return string(data), nil
}
