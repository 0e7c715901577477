package main

import (
	"fmt"
	"os"

	"revu/cmd"
	"revu/internal/api"
	"revu/internal/db"
	"revu/internal/logging"
	"revu/internal/ui"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
)

// version is set at build time via -ldflags
var version = "dev"

func main() {
	root := cmd.NewRootCommand(version, run)
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(config *cmd.Config) error {
	logger, err := logging.New(config.LogDir, config.Debug)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	database, err := db.Open(config.DBPath)
	if err != nil {
		return err
	}
	defer database.Close()

	s, err := cmd.EnsureSession(database)
	if err != nil {
		return err
	}
	logger.Info("starting review list",
		zap.String("version", version),
		zap.String("establishment", config.Establishment),
		zap.String("role", s.Role.String()),
		zap.String("api_url", config.APIURL),
	)

	client := api.NewClient(api.Options{
		BaseURL:  config.APIURL,
		Timeout:  config.Timeout,
		EditPath: config.EditPath,
		Logger:   logger,
	})

	p := tea.NewProgram(ui.New(ui.Options{
		DB:            database,
		Client:        client,
		Logger:        logger,
		Session:       s,
		Establishment: config.Establishment,
		Month:         config.Month,
	}), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running app: %w", err)
	}
	return nil
}
