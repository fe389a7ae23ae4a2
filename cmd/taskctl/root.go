package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/example/student-task-manager/client"
	"github.com/example/student-task-manager/view"
	"github.com/spf13/cobra"
)

// app carries the resolved settings shared by every command.
type app struct {
	out io.Writer
	log *slog.Logger

	server     string
	timeout    time.Duration
	tokenFile  string
	configFile string
	verbose    bool
}

func newRootCmd(out io.Writer) *cobra.Command {
	_, cmd := newCLI(out)
	return cmd
}

func newCLI(out io.Writer) (*app, *cobra.Command) {
	a := &app{out: out}

	rootCmd := &cobra.Command{
		Use:           "taskctl",
		Short:         "Manage your tasks from the terminal",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.resolve(cmd)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.server, "server", defaultServer, "API base URL (env TASKCTL_SERVER)")
	flags.DurationVar(&a.timeout, "timeout", client.DefaultTimeout, "per-request timeout")
	flags.StringVar(&a.tokenFile, "token-file", "", "where the login token is kept (env TASKCTL_TOKEN_FILE)")
	flags.StringVar(&a.configFile, "config", "", "config file (default $HOME/.taskctl/config.yaml)")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "log requests to stderr")

	rootCmd.AddCommand(
		a.signupCmd(),
		a.loginCmd(),
		a.logoutCmd(),
		a.whoamiCmd(),
		a.listCmd(),
		a.addCmd(),
		a.editCmd(),
		a.toggleCmd(),
		a.rmCmd(),
	)
	return a, rootCmd
}

// resolve applies the config file and environment to every flag the user did
// not set explicitly.
func (a *app) resolve(cmd *cobra.Command) error {
	level := slog.LevelWarn
	if a.verbose {
		level = slog.LevelDebug
	}
	a.log = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	cfg, err := loadConfig(a.configFile)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if !flags.Changed("server") {
		a.server = firstNonEmpty(os.Getenv("TASKCTL_SERVER"), cfg.Server, defaultServer)
	}
	if !flags.Changed("timeout") && cfg.Timeout > 0 {
		a.timeout = cfg.Timeout
	}
	if !flags.Changed("token-file") {
		a.tokenFile = firstNonEmpty(os.Getenv("TASKCTL_TOKEN_FILE"), cfg.TokenFile, defaultTokenFile())
	}

	a.log.Debug("Resolved settings", "server", a.server, "timeout", a.timeout, "token_file", a.tokenFile)
	return nil
}

func (a *app) client(token string) *client.Client {
	return client.New(a.server, client.WithTimeout(a.timeout), client.WithToken(token))
}

// session resumes the stored login and loads the user's tasks.
func (a *app) session(ctx context.Context) (*view.Session, error) {
	token, err := readToken(a.tokenFile)
	if err != nil {
		return nil, err
	}
	s := view.NewSession(a.client(token))
	if err := s.Resume(ctx, token); err != nil {
		if client.IsUnauthorized(err) {
			return nil, errors.New("your login has expired; run taskctl login")
		}
		return nil, err
	}
	a.log.Debug("Loaded tasks", "count", len(s.Tasks()))
	return s, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
