package main

import (
	"fmt"
	"os"

	"demo-studio/internal/bootstrap"
	"demo-studio/internal/cli"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run() error {
	app, err := bootstrap.New()
	if err != nil {
		return fmt.Errorf("initializing app: %w", err)
	}

	return cli.NewRootCmd(&cli.Dependencies{App: app}).Execute()
}
