// Command seedadmin creates an ADMIN account. Admins cannot register
// through the API.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"runner-service/internal/config"
	"runner-service/internal/logging"
	"runner-service/internal/sessions"
	"runner-service/internal/users"
	"runner-service/migrations"
	"runner-service/pkg/db"
)

func main() {
	userName := flag.String("user", "admin", "admin user name")
	flag.Parse()

	if err := run(context.Background(), *userName, os.Stdin, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "seedadmin:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, userName string, in *os.File, out io.Writer) error {
	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}
	log := logging.New(cfg.LogLevel)

	password, err := promptPassword(in, out)
	if err != nil {
		return err
	}

	database, err := db.Connect(ctx, cfg.Database.URL, 2, log.With("module", "db"))
	if err != nil {
		return err
	}
	defer database.Close()
	if err := database.RunMigrations(ctx, migrations.FS); err != nil {
		return err
	}

	svc := users.NewService(database.Pool, database,
		sessions.NewService(database.Pool, log.With("module", "sessions")),
		users.NewLogMailer(log), log.With("module", "users"),
		users.WithBcryptCost(cfg.Auth.BcryptCost),
	)
	u, err := svc.CreateAdmin(ctx, userName, password)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "created admin %s (%s)\n", u.UserName, u.ID)
	return nil
}

// promptPassword reads the password twice without echo, or once from a pipe.
func promptPassword(in *os.File, out io.Writer) (string, error) {
	fd := int(in.Fd())
	if !term.IsTerminal(fd) {
		line, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", err
		}
		return strings.TrimRight(line, "\r\n"), nil
	}

	fmt.Fprint(out, "Password: ")
	first, err := term.ReadPassword(fd)
	fmt.Fprintln(out)
	if err != nil {
		return "", err
	}
	fmt.Fprint(out, "Repeat password: ")
	second, err := term.ReadPassword(fd)
	fmt.Fprintln(out)
	if err != nil {
		return "", err
	}
	if string(first) != string(second) {
		return "", errors.New("passwords do not match")
	}
	return string(first), nil
}
