// Command adduser creates an account directly in the configured store.
//
// Usage:
//
//	adduser -email alice@example.com -name Alice
//
// The password is read from the terminal without echo, or from stdin when
// stdin is not a terminal.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"

	"tripledger/internal/auth"
	"tripledger/internal/backend"
	"tripledger/internal/cli"
	"tripledger/internal/config"
	applog "tripledger/internal/log"
)

func main() {
	email := flag.String("email", "", "account email (required)")
	name := flag.String("name", "", "display name")
	flag.Parse()

	cli.LoadEnvFile()
	cfg := cli.MustLoadConfig(func(c *config.Config) error {
		_, err := backend.FromAppConfig(c)
		return err
	})
	logger := cli.SetupLogger(cfg.LogLevel, cfg.LogFormat, applog.ComponentAuth)
	ctx := context.Background()

	if strings.TrimSpace(*email) == "" {
		fmt.Fprintln(os.Stderr, "adduser: -email is required")
		flag.Usage()
		os.Exit(2)
	}

	password, err := readPassword()
	if err != nil {
		fmt.Fprintln(os.Stderr, "adduser:", err)
		os.Exit(1)
	}

	bcfg, _ := backend.FromAppConfig(cfg)
	store, err := backend.NewFactory(logger.Logger).CreateStore(ctx, bcfg)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to initialize store", applog.FieldError, err)
		os.Exit(1)
	}
	defer store.Cleanup()

	user, err := auth.NewPasswordAuthenticator(store.Store).Register(ctx, *email, *name, password)
	if err != nil {
		fmt.Fprintln(os.Stderr, "adduser:", err)
		store.Cleanup()
		os.Exit(1)
	}
	logger.InfoContext(ctx, "User created", applog.FieldUserID, user.ID, "email", user.Email)
}

func readPassword() (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			return "", fmt.Errorf("read password: %w", err)
		}
		return strings.TrimRight(line, "\r\n"), nil
	}

	fmt.Fprint(os.Stderr, "Password: ")
	first, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	fmt.Fprint(os.Stderr, "Repeat password: ")
	second, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	if string(first) != string(second) {
		return "", fmt.Errorf("passwords do not match")
	}
	return string(first), nil
}
