package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/nao1215/failsight/internal/auth"
	"github.com/nao1215/failsight/internal/database"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
)

// minPasswordLength is the shortest password `user add` and `user passwd` accept.
const minPasswordLength = 8

// errShortPassword is returned for a password below minPasswordLength.
var errShortPassword = fmt.Errorf("password must be at least %d characters", minPasswordLength)

// NewUserCmd creates the user command and its subcommands.
func NewUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage the accounts that may log in",
		Long: `Manage the accounts stored in the credential database.

Passwords are read from standard input, one per line, and stored as
bcrypt hashes.

Examples:
  # Add a user, typing the password
  failsight user add alice

  # Add a user from a script
  echo "$PASSWORD" | failsight user add alice

  # Change a password, list and remove users
  failsight user passwd alice
  failsight user list
  failsight user delete alice`,
	}
	addDatabaseFlags(cmd.PersistentFlags())

	add := &cobra.Command{
		Use:   "add <username>",
		Short: "Create a user",
		Args:  cobra.ExactArgs(1),
		RunE:  runUserAdd,
	}
	add.Flags().Int("cost", bcrypt.DefaultCost, "bcrypt cost factor")

	passwd := &cobra.Command{
		Use:   "passwd <username>",
		Short: "Change a user's password",
		Args:  cobra.ExactArgs(1),
		RunE:  runUserPasswd,
	}
	passwd.Flags().Int("cost", bcrypt.DefaultCost, "bcrypt cost factor")

	cmd.AddCommand(add, passwd,
		&cobra.Command{
			Use:   "list",
			Short: "List users",
			Args:  cobra.NoArgs,
			RunE:  runUserList,
		},
		&cobra.Command{
			Use:     "delete <username>",
			Aliases: []string{"rm"},
			Short:   "Delete a user",
			Args:    cobra.ExactArgs(1),
			RunE:    runUserDelete,
		},
	)
	return cmd
}

func runUserAdd(cmd *cobra.Command, args []string) error {
	cfg, _, err := setup(cmd)
	if err != nil {
		return err
	}
	hash, err := readPasswordHash(cmd)
	if err != nil {
		return err
	}

	db, err := openDatabase(cmd.Context(), cfg)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	user, err := db.CreateUser(cmd.Context(), args[0], hash)
	if err != nil {
		if errors.Is(err, database.ErrUserExists) {
			return fmt.Errorf("user %q already exists (use \"user passwd\" to change the password)", args[0])
		}
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created user %s\n", user.Username)
	return nil
}

func runUserPasswd(cmd *cobra.Command, args []string) error {
	cfg, _, err := setup(cmd)
	if err != nil {
		return err
	}
	hash, err := readPasswordHash(cmd)
	if err != nil {
		return err
	}

	db, err := openDatabase(cmd.Context(), cfg)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.UpdatePassword(cmd.Context(), args[0], hash); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Password changed for %s\n", args[0])
	return nil
}

func runUserList(cmd *cobra.Command, _ []string) error {
	cfg, _, err := setup(cmd)
	if err != nil {
		return err
	}
	db, err := openDatabase(cmd.Context(), cfg)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	users, err := db.ListUsers(cmd.Context())
	if err != nil {
		return err
	}
	if len(users) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No users. Create one with: failsight user add <username>")
		return nil
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "USERNAME\tCREATED")
	for _, u := range users {
		fmt.Fprintf(tw, "%s\t%s\n", u.Username, u.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	return tw.Flush()
}

func runUserDelete(cmd *cobra.Command, args []string) error {
	cfg, _, err := setup(cmd)
	if err != nil {
		return err
	}
	db, err := openDatabase(cmd.Context(), cfg)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.DeleteUser(cmd.Context(), args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted user %s\n", args[0])
	return nil
}

// readPasswordHash reads a password from the command's input and hashes it.
func readPasswordHash(cmd *cobra.Command) (string, error) {
	cost, err := cmd.Flags().GetInt("cost")
	if err != nil {
		return "", err
	}
	fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
	password, err := readLine(cmd.InOrStdin())
	fmt.Fprintln(cmd.ErrOrStderr())
	if err != nil {
		return "", err
	}
	if len(password) < minPasswordLength {
		return "", errShortPassword
	}
	return auth.HashPassword(password, cost)
}

// readLine reads one line without its trailing newline.
func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" && errors.Is(err, io.EOF) {
		return "", errors.New("no input")
	}
	return line, nil
}
