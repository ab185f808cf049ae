package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"

	"github.com/msomdec/recall/internal/config"
	"github.com/msomdec/recall/internal/migrations"
	"github.com/msomdec/recall/internal/repository/sqlite"
)

var (
	success = color.New(color.FgGreen, color.Bold)
	notice  = color.New(color.FgYellow)
)

func newMigrateCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.cfg.Storage.Driver != config.DriverSQLite {
				notice.Fprintf(cmd.OutOrStdout(), "storage driver %s has no schema to migrate\n", a.cfg.Storage.Driver)
				return nil
			}
			db, err := sqlite.New(a.cfg.Storage.Path, a.log)
			if err != nil {
				return err
			}
			defer db.Close()

			applied, err := migrations.Run(cmd.Context(), db.SqlDB, a.log)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(applied) == 0 {
				notice.Fprintf(out, "database %s is up to date\n", a.cfg.Storage.Path)
				return nil
			}
			for _, name := range applied {
				success.Fprintf(out, "applied %s\n", name)
			}
			return nil
		},
	}
}

func newInitStoreCommand(a *app) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init-store",
		Short: "Create an empty JSON card file in the storage directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := initJSONStore(a.cfg.Storage.Dir, force)
			if err != nil {
				return err
			}
			success.Fprintf(cmd.OutOrStdout(), "created %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "replace an existing card file")
	return cmd
}

func newUserCommand(a *app) *cobra.Command {
	user := &cobra.Command{
		Use:   "user",
		Short: "Manage login credentials",
	}

	add := &cobra.Command{
		Use:   "add <name>",
		Short: "Create a user or replace its password",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := strings.TrimSpace(args[0])
			if name == "" {
				return fmt.Errorf("user name must not be empty")
			}

			password, err := readNewPassword(cmd)
			if err != nil {
				return err
			}
			hash, err := bcrypt.GenerateFromPassword(password, a.cfg.Auth.BcryptCost)
			if err != nil {
				return fmt.Errorf("hash password: %w", err)
			}

			st, err := openStores(cmd.Context(), a.cfg, a.log, false)
			if err != nil {
				return err
			}
			defer st.Close()
			if st.credentials == nil {
				return fmt.Errorf("no writable credentials store configured")
			}

			if err := st.credentials.Save(cmd.Context(), name, string(hash)); err != nil {
				return err
			}
			success.Fprintf(cmd.OutOrStdout(), "user %s saved\n", name)
			return nil
		},
	}
	user.AddCommand(add)
	return user
}

func newHashPasswordCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password",
		Short: "Print a bcrypt hash for a credentials file entry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			password, err := readNewPassword(cmd)
			if err != nil {
				return err
			}
			hash, err := bcrypt.GenerateFromPassword(password, a.cfg.Auth.BcryptCost)
			if err != nil {
				return fmt.Errorf("hash password: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(hash))
			return nil
		},
	}
}

// readNewPassword asks for a password twice. On a terminal input is not
// echoed; otherwise two lines are read from the command's input.
func readNewPassword(cmd *cobra.Command) ([]byte, error) {
	read := lineReader(cmd.InOrStdin())
	if f, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		read = func() ([]byte, error) {
			p, err := term.ReadPassword(int(f.Fd()))
			fmt.Fprintln(cmd.ErrOrStderr())
			return p, err
		}
	}

	fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
	password, err := read()
	if err != nil {
		return nil, fmt.Errorf("read password: %w", err)
	}
	fmt.Fprint(cmd.ErrOrStderr(), "Repeat password: ")
	confirm, err := read()
	if err != nil {
		return nil, fmt.Errorf("read password: %w", err)
	}

	if string(password) != string(confirm) {
		return nil, fmt.Errorf("passwords do not match")
	}
	if len(password) == 0 {
		return nil, fmt.Errorf("password must not be empty")
	}
	if len(password) > 72 {
		return nil, fmt.Errorf("password must be at most 72 bytes")
	}
	return password, nil
}

func lineReader(r io.Reader) func() ([]byte, error) {
	scanner := bufio.NewScanner(r)
	return func() ([]byte, error) {
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return nil, err
			}
			return nil, io.ErrUnexpectedEOF
		}
		return []byte(strings.TrimRight(scanner.Text(), "\r")), nil
	}
}
