package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"pkt.systems/pslog"

	"github.com/SarahIsWeird/hmoog"
	"github.com/SarahIsWeird/hmoog/internal/prefs"
	"github.com/SarahIsWeird/hmoog/internal/shellog"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "override config path (optional)")
	prefsPath := flag.String("prefs", "", "override preferences path (optional)")
	logPath := flag.String("log", "", "write a structured debug log to this file (optional)")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := runConsole(ctx, *configPath, *prefsPath, *logPath); err != nil {
		fmt.Fprintf(os.Stderr, "hmoog: %v\n", err)
		return 1
	}
	return 0
}

// transcriptLines is how much recent console traffic is shown on attach.
const transcriptLines = 100

func runConsole(ctx context.Context, configPath, prefsPath, logPath string) error {
	cfg, err := hmoog.LoadConfig(configPath)
	if err != nil {
		return err
	}
	userPrefs, _ := prefs.Load(prefsPath)

	var logWriter io.Writer = io.Discard
	if logPath != "" {
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer f.Close()
		logWriter = f
	}
	logger := pslog.NewWithOptions(logWriter, pslog.Options{Mode: pslog.ModeStructured})

	session := hmoog.New(cfg, hmoog.Deps{Logger: logger})
	if err := session.Init(); err != nil {
		return fmt.Errorf("init session: %w", err)
	}
	defer session.Close()

	transcript, err := shellog.Tail(cfg.ShellLog, transcriptLines)
	if err != nil {
		logger.Warn("transcript preload failed", "err", err)
	}

	program := tea.NewProgram(newModel(ctx, session, userPrefs, prefsPath, transcript), tea.WithAltScreen())
	go func() {
		<-ctx.Done()
		program.Quit()
	}()

	_, err = program.Run()
	return err
}
