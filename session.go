package hmoog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"pkt.systems/pslog"

	"github.com/SarahIsWeird/hmoog/internal/hardline"
	"github.com/SarahIsWeird/hmoog/internal/input"
	"github.com/SarahIsWeird/hmoog/internal/shellog"
	"github.com/SarahIsWeird/hmoog/internal/watch"
	"github.com/SarahIsWeird/hmoog/markup"
)

var (
	// ErrEmptyCommand rejects a blank command; the wire format is strictly
	// single-line, non-empty text.
	ErrEmptyCommand = errors.New("hmoog: command is empty")
	// ErrMultilineCommand rejects embedded line breaks for the same reason.
	ErrMultilineCommand = errors.New("hmoog: command contains a line break")
	// ErrBusy reports a second operation while one is already in flight.
	ErrBusy = errors.New("hmoog: another operation is in flight")
	// ErrNotInitialized reports use of a session before Init succeeded.
	ErrNotInitialized = errors.New("hmoog: session not initialized")
	// ErrEchoNotFound reports a correlated flush that did not contain the
	// echo of the issued command.
	ErrEchoNotFound = errors.New("hmoog: command echo not found in response")
)

// Deps carries the session's optional collaborators. Zero values select the
// defaults: the xdotool injector and a silent logger.
type Deps struct {
	Injector Injector
	Logger   pslog.Logger
}

// Session owns one connection to the console host: the live marker state,
// the pending command, and the hardline mode. A single caller drives it
// sequentially; concurrent operations fail with ErrBusy.
type Session struct {
	cfg  Config
	in   Injector
	log  pslog.Logger
	base pslog.Logger

	corr    *shellog.Correlator
	watcher *watch.Watcher
	hl      *hardline.Tracker

	mu    sync.Mutex
	busy  bool
	ready bool
}

// RunOptions configure one command cycle.
type RunOptions struct {
	// Timeout is the overall budget for the cycle. Zero means the
	// configured default.
	Timeout time.Duration
	// Idempotent permits re-sending the command after a timeout. Leave it
	// false for anything that must not execute twice; such commands get one
	// send and one recovery escape, never a retry.
	Idempotent bool
}

// New creates a session. Call Init before anything else.
func New(cfg Config, deps Deps) *Session {
	logger := deps.Logger
	if logger == nil {
		logger = pslog.NewWithOptions(io.Discard, pslog.Options{Mode: pslog.ModeStructured})
	}
	injector := deps.Injector
	if injector == nil {
		injector = &input.Xdotool{}
	}
	return &Session{
		cfg:  cfg,
		in:   injector,
		log:  logger.With("component", "session"),
		base: logger,
		hl:   hardline.New(logger),
	}
}

// Init verifies the native input layer, starts watching the shell log, and
// plants the first session marker. A failing input layer is fatal; there is
// nothing to retry.
func (s *Session) Init() error {
	if err := s.in.Init(); err != nil {
		return fmt.Errorf("input layer unavailable: %w", err)
	}
	watcher, err := watch.New(s.cfg.ShellLog, s.cfg.Timing.Poll, s.base)
	if err != nil {
		return err
	}
	corr := shellog.New(s.cfg.ShellLog, s.in, s.base)
	if err := corr.Prime(); err != nil {
		watcher.Close()
		return err
	}

	s.mu.Lock()
	s.watcher = watcher
	s.corr = corr
	s.ready = true
	s.mu.Unlock()
	s.log.Info("session initialized", "shell_log", s.cfg.ShellLog)
	return nil
}

// Close tears down the log subscription. The session cannot be reused.
func (s *Session) Close() error {
	s.mu.Lock()
	watcher := s.watcher
	s.ready = false
	s.mu.Unlock()
	if watcher == nil {
		return nil
	}
	return watcher.Close()
}

// Run executes one command cycle: inject the command and a flush, wait for
// the correlated output, and build the execution result. A nil result with
// nil error means the cycle timed out within its budget.
func (s *Session) Run(ctx context.Context, command string, opts RunOptions) (*Result, error) {
	if strings.TrimSpace(command) == "" {
		return nil, ErrEmptyCommand
	}
	if strings.ContainsAny(command, "\r\n") {
		return nil, ErrMultilineCommand
	}
	if err := s.acquire(); err != nil {
		return nil, err
	}
	defer s.release()

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = s.cfg.Timing.CommandTimeout
	}
	deadline := time.Now().Add(timeout)

	for {
		if err := s.sendLine(command); err != nil {
			return nil, err
		}
		if err := s.sendLine(shellog.FlushCommandText); err != nil {
			return nil, err
		}
		time.Sleep(s.cfg.Timing.Settle)

		lines, err := s.awaitFlush(ctx, time.Until(deadline))
		if err != nil {
			return nil, err
		}
		if lines == nil {
			if err := s.in.SendEscape(); err != nil {
				s.log.Warn("recovery escape failed", "err", err)
			}
			if !opts.Idempotent {
				s.log.Warn("command timed out", "command", command)
				return nil, nil
			}
			if time.Until(deadline) <= 0 {
				s.log.Warn("command timed out after retries", "command", command)
				return nil, nil
			}
			s.log.Debug("retrying idempotent command", "command", command)
			continue
		}

		rest, echo, ok := shellog.MatchEcho(lines, command)
		if !ok {
			if opts.Idempotent && time.Until(deadline) > 0 {
				s.log.Warn("echo not found, retrying", "command", command)
				continue
			}
			return nil, fmt.Errorf("%w: %q", ErrEchoNotFound, command)
		}
		return s.buildResult(echo, rest)
	}
}

// EnterHardline activates hardline mode. When the host rejects with a
// cooldown the outcome names how long to wait before trying again.
func (s *Session) EnterHardline(ctx context.Context) (HardlineOutcome, error) {
	if err := s.acquire(); err != nil {
		return HardlineOutcome{}, err
	}
	defer s.release()
	out, err := s.hl.Activate(ctx, console{s})
	if err != nil {
		return HardlineOutcome{}, err
	}
	return HardlineOutcome{Active: out.State == hardline.Active, Cooldown: out.Cooldown}, nil
}

// ExitHardline deactivates hardline mode. The mode only flips when the host
// confirms the disconnect; an unconfirmed attempt leaves Active set.
func (s *Session) ExitHardline(ctx context.Context) (HardlineOutcome, error) {
	if err := s.acquire(); err != nil {
		return HardlineOutcome{}, err
	}
	defer s.release()
	out, err := s.hl.Deactivate(ctx, console{s})
	if err != nil {
		return HardlineOutcome{}, err
	}
	return HardlineOutcome{Active: out.State == hardline.Active, Cooldown: out.Cooldown}, nil
}

// HardlineActive reports the hardline mode as last observed.
func (s *Session) HardlineActive() bool {
	return s.hl.State() == hardline.Active
}

// HardlineOutcome is the result of a hardline transition attempt.
type HardlineOutcome struct {
	Active bool
	// Cooldown is non-zero when activation was rejected; wait this long
	// before the next attempt.
	Cooldown time.Duration
}

func (s *Session) acquire() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ready {
		return ErrNotInitialized
	}
	if s.busy {
		return ErrBusy
	}
	s.busy = true
	return nil
}

func (s *Session) release() {
	s.mu.Lock()
	s.busy = false
	s.mu.Unlock()
}

func (s *Session) sendLine(text string) error {
	if err := s.in.SendKeystrokes(text); err != nil {
		return fmt.Errorf("inject %q: %w", text, err)
	}
	if err := s.in.SendReturn(); err != nil {
		return fmt.Errorf("inject return: %w", err)
	}
	return nil
}

// awaitFlush polls the correlator until a command-triggered flush arrives,
// racing each round against the remaining budget and the next file-change
// notification. Reading before waiting closes the gap where a change lands
// between the read and the registration of the waiter. A nil slice with nil
// error means the budget ran out.
func (s *Session) awaitFlush(ctx context.Context, timeout time.Duration) ([]string, error) {
	if timeout <= 0 {
		return nil, nil
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		changed := s.watcher.Next()
		lines, kind, err := s.corr.ReadNew()
		if err != nil {
			return nil, err
		}
		if kind == shellog.FlushCommand {
			return lines, nil
		}
		select {
		case <-changed:
		case <-timer.C:
			return nil, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// console adapts the session to the hardline tracker's command surface.
type console struct {
	s *Session
}

func (c console) Send(ctx context.Context, text string) error {
	if err := c.s.sendLine(text); err != nil {
		return err
	}
	if err := c.s.sendLine(shellog.FlushCommandText); err != nil {
		return err
	}
	time.Sleep(c.s.cfg.Timing.Settle)
	return nil
}

func (c console) Await(ctx context.Context, timeout time.Duration) ([]string, error) {
	lines, err := c.s.awaitFlush(ctx, timeout)
	if err != nil || lines == nil {
		return nil, err
	}
	plain := make([]string, 0, len(lines))
	for _, line := range lines {
		nodes, err := markup.Parse(line)
		if err != nil {
			// Control lines are matched on substrings; pass the raw line
			// through rather than lose it.
			plain = append(plain, line)
			continue
		}
		plain = append(plain, markup.Plain(nodes, markup.Options{}))
	}
	return plain, nil
}

func (c console) Keys(text string) error {
	return c.s.in.SendKeystrokes(text)
}

func (c console) Newline() error {
	return c.s.in.SendReturn()
}
