// Package prefs handles console user preferences persistence.
// Preferences are stored in ~/.config/hmoog/prefs.toml.
package prefs

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

// Prefs holds user preferences for the interactive console.
type Prefs struct {
	// View selects the output rendering: "ansi" or "clean".
	View string `toml:"view"`
	// History keeps recently run commands, oldest first.
	History []string `toml:"history"`
}

const (
	defaultPrefsPath = "~/.config/hmoog/prefs.toml"
	defaultView      = "ansi"

	// historyLimit caps the persisted command history.
	historyLimit = 50
)

// DefaultPath returns the default preferences file path.
func DefaultPath() string {
	return defaultPrefsPath
}

// Load reads preferences from the given path, falling back to defaults if missing.
func Load(path string) (Prefs, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Prefs{View: defaultView}, nil
	}

	prefs := Prefs{View: defaultView}

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return prefs, nil
		}
		return prefs, nil // Graceful degradation
	}
	defer func() { _ = file.Close() }()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return prefs, nil // Graceful degradation
	}

	if err := toml.Unmarshal(bytes, &prefs); err != nil {
		return Prefs{View: defaultView}, nil // Graceful degradation
	}

	if prefs.View != "clean" {
		prefs.View = defaultView
	}
	if len(prefs.History) > historyLimit {
		prefs.History = prefs.History[len(prefs.History)-historyLimit:]
	}

	return prefs, nil
}

// AddHistory appends a command to the history, dropping a consecutive
// duplicate and trimming to the limit.
func (p *Prefs) AddHistory(command string) {
	command = strings.TrimSpace(command)
	if command == "" {
		return
	}
	if n := len(p.History); n > 0 && p.History[n-1] == command {
		return
	}
	p.History = append(p.History, command)
	if len(p.History) > historyLimit {
		p.History = p.History[len(p.History)-historyLimit:]
	}
}

// Save writes preferences to the given path, creating directories as needed.
func Save(path string, p Prefs) error {
	resolved, err := resolvePath(path)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}

	dir := filepath.Dir(resolved)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create prefs dir: %w", err)
	}

	bytes, err := toml.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal prefs: %w", err)
	}

	if err := os.WriteFile(resolved, bytes, 0o644); err != nil {
		return fmt.Errorf("write prefs: %w", err)
	}

	return nil
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultPrefsPath)
	}
	return expandPath(path)
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
