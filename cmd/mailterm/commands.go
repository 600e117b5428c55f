package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/nhle/mailterm/internal/app"
	"github.com/nhle/mailterm/internal/auth"
	"github.com/nhle/mailterm/internal/credential"
	"github.com/nhle/mailterm/internal/logging"
	"github.com/nhle/mailterm/internal/mailapi"
	"github.com/nhle/mailterm/internal/model"
	"github.com/nhle/mailterm/internal/session"
	"github.com/nhle/mailterm/internal/store"
	appsync "github.com/nhle/mailterm/internal/sync"
)

// loadToken reads the stored Google token of an account.
var loadToken = credential.LoadToken

// env is what every subcommand opens before doing its work.
type env struct {
	cfg      *model.AppConfig
	log      *logrus.Logger
	store    *store.SQLiteStore
	sessions *session.Manager
	closers  []io.Closer
}

func openEnv(ctx context.Context, configPath string) (*env, error) {
	cfg, err := model.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	log, logFile, err := logging.Setup(cfg.Log)
	if err != nil {
		return nil, err
	}

	st, err := store.NewSQLiteStore(cfg.Store.Path)
	if err != nil {
		logFile.Close()
		return nil, err
	}

	e := &env{
		cfg:      cfg,
		log:      log,
		store:    st,
		sessions: session.NewManager(st, log),
		closers:  []io.Closer{st, logFile},
	}
	if _, err := e.sessions.Load(ctx); err != nil {
		e.Close()
		return nil, err
	}
	return e, nil
}

// Close releases the store and the log file.
func (e *env) Close() {
	for _, c := range e.closers {
		_ = c.Close()
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "mailterm",
		Short:         "Read, triage and send mail from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd.Context(), configPath)
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", model.DefaultConfigPath(), "path to config file")

	root.AddCommand(
		newLoginCmd(&configPath),
		newLogoutCmd(&configPath),
		newStatusCmd(&configPath),
		newConfigCmd(&configPath),
		newVersionCmd(),
	)
	return root
}

func runTUI(ctx context.Context, configPath string) error {
	e, err := openEnv(ctx, configPath)
	if err != nil {
		return err
	}
	defer e.Close()

	rec := appsync.New(time.Duration(e.cfg.View.ReconcileDelayMS)*time.Millisecond, e.log)
	defer rec.Stop()

	m := app.New(app.Options{
		Config:     e.cfg,
		API:        mailapi.NewClient(e.cfg.API, e.log),
		Sessions:   e.sessions,
		Reconciler: rec,
		Log:        e.log,
		Forget:     credential.DeleteToken,
	})

	e.log.WithField("api", e.cfg.API.BaseURL).Info("starting")
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running terminal UI: %w", err)
	}
	return nil
}

func newLoginCmd(configPath *string) *cobra.Command {
	var useGoogle bool
	var email, name string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			e, err := openEnv(ctx, *configPath)
			if err != nil {
				return err
			}
			defer e.Close()

			var user model.User
			if useGoogle {
				flow, err := auth.NewFlow(e.cfg.Auth.ClientSecretPath, cmd.ErrOrStderr())
				if err != nil {
					return err
				}
				tok, u, err := flow.Login(ctx)
				if err != nil {
					return err
				}
				if err := credential.SaveToken(u.Email, tok); err != nil {
					return err
				}
				user = u
			} else {
				if email == "" {
					return fmt.Errorf("either --google or --email is required")
				}
				user = model.User{Name: name, Email: email}
			}

			if err := e.sessions.Login(ctx, user); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s\n", user.FromHeader())
			return nil
		},
	}
	cmd.Flags().BoolVar(&useGoogle, "google", false, "sign in with a Google account in the browser")
	cmd.Flags().StringVar(&email, "email", "", "address to sign in as without Google")
	cmd.Flags().StringVar(&name, "name", "", "display name used with --email")
	return cmd
}

func newLogoutCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer e.Close()

			u, ok := e.sessions.Session().User()
			if !ok {
				fmt.Fprintln(cmd.OutOrStdout(), "Not signed in")
				return nil
			}
			if err := credential.DeleteToken(u.Email); err != nil {
				e.log.WithError(err).Warn("removing stored token")
			}
			if err := e.sessions.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Signed out %s\n", u.Email)
			return nil
		},
	}
}

func newStatusCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the signed-in account and its stored credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer e.Close()

			out := cmd.OutOrStdout()
			u, ok := e.sessions.Session().User()
			if !ok {
				fmt.Fprintln(out, "Not signed in")
				return nil
			}
			fmt.Fprintf(out, "Signed in as %s\n", u.FromHeader())

			tok, err := loadToken(u.Email)
			switch {
			case err != nil:
				e.log.WithError(err).Debug("no stored token")
				fmt.Fprintln(out, "Google token: none")
			case tok.Valid():
				fmt.Fprintln(out, "Google token: valid")
			case tok.RefreshToken != "":
				fmt.Fprintln(out, "Google token: expired, refreshable")
			default:
				fmt.Fprintln(out, "Google token: expired, run mailterm login --google")
			}
			return nil
		},
	}
}

func newConfigCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := *configPath
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("config %s already exists, use --force to overwrite", path)
			}
			if err := model.SaveConfig(path, model.DefaultAppConfig()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	cmd.AddCommand(initCmd)
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "mailterm", version)
		},
	}
}
