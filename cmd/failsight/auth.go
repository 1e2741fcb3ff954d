package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/nao1215/failsight/internal/authclient"
	"github.com/nao1215/failsight/internal/config"
	"github.com/spf13/cobra"
)

// defaultServerURL is the address of a `failsight serve` on this host.
const defaultServerURL = "http://localhost:8080"

// NewAuthCmd creates the auth command and its subcommands.
func NewAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Log in to a running failsight server",
		Long: `Log in to, log out of, or check the session with a running failsight
server through its /auth endpoint. The session cookie is kept in the XDG
state directory between invocations.

Examples:
  # Log in, typing the password
  failsight auth login alice

  # Show who is logged in
  failsight auth status --server https://failsight.example.com

  # Log out
  failsight auth logout`,
	}
	cmd.PersistentFlags().StringP("server", "s", defaultServerURL,
		"Base URL of the failsight server")
	cmd.PersistentFlags().String("session-file", filepath.Join(config.XDGStateDir(), authclient.CookieFile),
		"File holding the saved session cookie")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "login <username>",
			Short: "Log in and save the session",
			Args:  cobra.ExactArgs(1),
			RunE:  runAuthLogin,
		},
		&cobra.Command{
			Use:   "logout",
			Short: "Log out and forget the session",
			Args:  cobra.NoArgs,
			RunE:  runAuthLogout,
		},
		&cobra.Command{
			Use:   "status",
			Short: "Show the logged-in user",
			Args:  cobra.NoArgs,
			RunE:  runAuthStatus,
		},
	)
	return cmd
}

// authTarget resolves the auth endpoint and session file from the flags.
func authTarget(cmd *cobra.Command) (endpoint, sessionFile string, err error) {
	server, err := cmd.Flags().GetString("server")
	if err != nil {
		return "", "", err
	}
	sessionFile, err = cmd.Flags().GetString("session-file")
	if err != nil {
		return "", "", err
	}
	return strings.TrimRight(server, "/") + "/auth", sessionFile, nil
}

// newAuthController creates a controller seeded with the saved session.
func newAuthController(cmd *cobra.Command) (*authclient.Controller, string, error) {
	_, logger, err := setup(cmd)
	if err != nil {
		return nil, "", err
	}
	endpoint, sessionFile, err := authTarget(cmd)
	if err != nil {
		return nil, "", err
	}
	cookies, err := authclient.LoadCookies(sessionFile, endpoint)
	if err != nil {
		return nil, "", err
	}
	ctl, err := authclient.New(endpoint,
		authclient.WithCookies(cookies),
		authclient.WithLogger(logger),
	)
	if err != nil {
		return nil, "", err
	}
	return ctl, sessionFile, nil
}

func runAuthLogin(cmd *cobra.Command, args []string) error {
	ctl, sessionFile, err := newAuthController(cmd)
	if err != nil {
		return err
	}

	fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
	password, err := readLine(cmd.InOrStdin())
	fmt.Fprintln(cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	outcome := ctl.Login(cmd.Context(), args[0], password)
	if !outcome.Success {
		return errors.New(outcome.Message)
	}
	if err := authclient.SaveCookies(sessionFile, ctl.Endpoint().String(), ctl.Cookies()); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s\n", ctl.Button().Title)
	return nil
}

func runAuthLogout(cmd *cobra.Command, _ []string) error {
	ctl, sessionFile, err := newAuthController(cmd)
	if err != nil {
		return err
	}
	if err := ctl.Logout(cmd.Context()); err != nil {
		return fmt.Errorf("logout failed: %w", err)
	}
	if err := authclient.RemoveCookies(sessionFile); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
	return nil
}

func runAuthStatus(cmd *cobra.Command, _ []string) error {
	ctl, _, err := newAuthController(cmd)
	if err != nil {
		return err
	}
	// A failed check is reported as logged out, like the page button.
	_, _ = ctl.Check(cmd.Context())
	fmt.Fprintln(cmd.OutOrStdout(), ctl.Button().Title)
	return nil
}
