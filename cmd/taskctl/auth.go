package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// credentials reads the password from its flag or TASKCTL_PASSWORD.
type credentials struct {
	name     string
	email    string
	password string
}

func (c *credentials) bind(cmd *cobra.Command, withName bool) {
	if withName {
		cmd.Flags().StringVar(&c.name, "name", "", "display name")
	}
	cmd.Flags().StringVar(&c.email, "email", "", "account email")
	cmd.Flags().StringVar(&c.password, "password", "", "account password (env TASKCTL_PASSWORD)")
}

func (c *credentials) resolvePassword() error {
	if c.password == "" {
		c.password = os.Getenv("TASKCTL_PASSWORD")
	}
	if c.email == "" || c.password == "" {
		return fmt.Errorf("--email and --password are required")
	}
	return nil
}

func (a *app) signupCmd() *cobra.Command {
	var creds credentials
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account and log in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := creds.resolvePassword(); err != nil {
				return err
			}
			session, err := a.client("").Signup(cmd.Context(), creds.name, creds.email, creds.password)
			if err != nil {
				return err
			}
			if err := writeToken(a.tokenFile, session.Token); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Signed up as %s <%s>\n", session.User.Name, session.User.Email)
			return nil
		},
	}
	creds.bind(cmd, true)
	return cmd
}

func (a *app) loginCmd() *cobra.Command {
	var creds credentials
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := creds.resolvePassword(); err != nil {
				return err
			}
			session, err := a.client("").Login(cmd.Context(), creds.email, creds.password)
			if err != nil {
				return err
			}
			if err := writeToken(a.tokenFile, session.Token); err != nil {
				return err
			}
			a.log.Debug("Stored token", "path", a.tokenFile)
			fmt.Fprintf(a.out, "Logged in as %s <%s>\n", session.User.Name, session.User.Email)
			return nil
		},
	}
	creds.bind(cmd, false)
	return cmd
}

func (a *app) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored token",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			if err := removeToken(a.tokenFile); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "Logged out")
			return nil
		},
	}
}

func (a *app) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			token, err := readToken(a.tokenFile)
			if err != nil {
				return err
			}
			profile, err := a.client(token).Me(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%s <%s>\n", profile.Name, profile.Email)
			return nil
		},
	}
}
