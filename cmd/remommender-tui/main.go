package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"remommender/internal/bootstrap"
	"remommender/internal/tui"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "remommender: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	bridge := tui.NewEventBridge(64)
	services, err := bootstrap.Build(bridge, bootstrap.Options{})
	if err != nil {
		return err
	}
	defer services.Close()

	controller := services.Controller
	program := tea.NewProgram(tui.New(ctx, controller, bridge), tea.WithAltScreen(), tea.WithContext(ctx))
	_, runErr := program.Run()

	// The bridge is closed first so events emitted while stopping never block.
	bridge.Close()
	if err := controller.Stop(); err != nil {
		services.Logger.Warn("stop on exit failed", "error", err)
	}
	controller.Wait()

	if runErr != nil && ctx.Err() == nil {
		return runErr
	}
	return nil
}
