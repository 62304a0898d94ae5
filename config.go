package hmoog

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/SarahIsWeird/hmoog/markup"
)

// Config captures everything the session engine needs.
type Config struct {
	// ShellLog is the path of the log file the console host appends to.
	ShellLog string
	// Depth selects the ANSI rendering mode for execution results.
	Depth markup.Depth
	// MapCorruption toggles the corruption-glyph substitution.
	MapCorruption bool
	Timing        Timing
}

// Timing collects the engine's wait knobs.
type Timing struct {
	// Settle is the pause between injecting a command and the first log read.
	Settle time.Duration
	// CommandTimeout is the default overall budget for one command cycle.
	CommandTimeout time.Duration
	// Poll is the watcher's fallback polling interval.
	Poll time.Duration
}

const (
	defaultConfigPath = "~/.config/hmoog/config.toml"
	defaultShellLog   = "~/.config/hackmud/shell.txt"

	defaultSettle         = 200 * time.Millisecond
	defaultCommandTimeout = 10 * time.Second
	defaultPoll           = 500 * time.Millisecond
)

// DefaultConfig returns the built-in defaults: the standard shell log
// location, true-color rendering, and corruption mapping on.
func DefaultConfig() Config {
	return Config{
		ShellLog:      defaultShellLog,
		Depth:         markup.DepthTrue,
		MapCorruption: true,
		Timing: Timing{
			Settle:         defaultSettle,
			CommandTimeout: defaultCommandTimeout,
			Poll:           defaultPoll,
		},
	}
}

// LoadConfig locates and parses the TOML config file, falling back to
// defaults when the file or individual fields are missing. An empty path
// means the standard location.
func LoadConfig(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := DefaultConfig()

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg.ShellLog = mustExpand(cfg.ShellLog)
			return cfg, nil
		}
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var raw struct {
		ShellLog      string `toml:"shell_log"`
		ColorDepth    string `toml:"color_depth"`
		MapCorruption *bool  `toml:"map_corruption"`
		Timing        struct {
			SettleMs         int64 `toml:"settle_ms"`
			CommandTimeoutMs int64 `toml:"command_timeout_ms"`
			PollMs           int64 `toml:"poll_ms"`
		} `toml:"timing"`
	}
	if err := toml.Unmarshal(bytes, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	if v := strings.TrimSpace(raw.ShellLog); v != "" {
		cfg.ShellLog = v
	}
	cfg.ShellLog = mustExpand(cfg.ShellLog)

	if v := strings.TrimSpace(raw.ColorDepth); v != "" {
		depth, err := parseDepth(v)
		if err != nil {
			return Config{}, err
		}
		cfg.Depth = depth
	}
	if raw.MapCorruption != nil {
		cfg.MapCorruption = *raw.MapCorruption
	}
	if raw.Timing.SettleMs > 0 {
		cfg.Timing.Settle = time.Duration(raw.Timing.SettleMs) * time.Millisecond
	}
	if raw.Timing.CommandTimeoutMs > 0 {
		cfg.Timing.CommandTimeout = time.Duration(raw.Timing.CommandTimeoutMs) * time.Millisecond
	}
	if raw.Timing.PollMs > 0 {
		cfg.Timing.Poll = time.Duration(raw.Timing.PollMs) * time.Millisecond
	}

	return cfg, nil
}

func parseDepth(s string) (markup.Depth, error) {
	switch strings.ToLower(s) {
	case "true", "truecolor":
		return markup.DepthTrue, nil
	case "reduced":
		return markup.DepthReduced, nil
	case "none":
		return markup.DepthNone, nil
	}
	return 0, fmt.Errorf("unknown color_depth %q", s)
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
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
