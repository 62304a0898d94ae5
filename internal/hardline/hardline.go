// Package hardline models the console host's two-state hardline session
// mode. Transitions are slow, asymmetric, and can silently fail: activation
// passes through a multi-second host-side animation that must be ridden out
// with filler keystrokes, and deactivation is only trusted when the host
// confirms the disconnect.
package hardline

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"pkt.systems/pslog"
)

// State is the session mode as this tracker last observed it.
type State int

const (
	Inactive State = iota
	Active
)

func (s State) String() string {
	if s == Active {
		return "active"
	}
	return "inactive"
}

// Console is the minimal command surface the tracker drives. Implemented by
// the session orchestrator.
type Console interface {
	// Send types a command line and forces a flush so its response reaches
	// the log.
	Send(ctx context.Context, text string) error
	// Await blocks for the next command-triggered flush and returns its
	// lines with markup stripped. A nil slice with nil error means the wait
	// timed out.
	Await(ctx context.Context, timeout time.Duration) ([]string, error)
	// Keys types raw keystrokes without a trailing return.
	Keys(text string) error
	// Newline presses return, flushing any buffered host-side input.
	Newline() error
}

const (
	activateCommand   = "kernel hardline"
	deactivateCommand = "kernel hardline -d"

	lineAlreadyActive = "hardline already active"
	lineAccepted      = "initiating hardline connection"
	lineDisconnected  = "hardline disconnected"
)

// cooldownPattern matches the trailing seconds value of a cooldown
// rejection, e.g. "hardline on cooldown: 12s left".
var cooldownPattern = regexp.MustCompile(`(\d+)s left$`)

// Outcome reports where a transition attempt ended up. Cooldown is non-zero
// only when activation was rejected and names how long the caller should
// wait before trying again.
type Outcome struct {
	State    State
	Cooldown time.Duration
}

// Tracker owns the hardline state for one session. Not safe for concurrent
// use; the session's single-flight invariant covers it.
type Tracker struct {
	log   pslog.Logger
	state State

	// Sequence timing, overridable in tests. The defaults ride out the
	// host's connection animation with margin.
	responseWait     time.Duration
	connectLeadWait  time.Duration
	connectTailWait  time.Duration
	fillerEvery      time.Duration
	fillerCount      int
	disconnectSettle time.Duration
}

func New(logger pslog.Logger) *Tracker {
	return &Tracker{
		log:              logger.With("component", "hardline"),
		responseWait:     5 * time.Second,
		connectLeadWait:  6 * time.Second,
		connectTailWait:  8 * time.Second,
		fillerEvery:      250 * time.Millisecond,
		fillerCount:      24,
		disconnectSettle: 2 * time.Second,
	}
}

// State returns the last observed session mode.
func (t *Tracker) State() State {
	return t.state
}

type verdict int

const (
	verdictSilent verdict = iota
	verdictAlreadyActive
	verdictCooldown
	verdictAccepted
)

// Activate drives the inactive-to-active transition. When the host rejects
// with a cooldown the returned outcome carries the wait; the caller decides
// whether to sit it out. No response at all is treated as acceptance: the
// host sometimes swallows the acknowledgement but connects anyway, and
// aborting here would leave the animation running against dead input.
func (t *Tracker) Activate(ctx context.Context, con Console) (Outcome, error) {
	if t.state == Active {
		return Outcome{State: Active}, nil
	}
	if err := con.Send(ctx, activateCommand); err != nil {
		return Outcome{}, fmt.Errorf("send activation: %w", err)
	}

	lines, err := con.Await(ctx, t.responseWait)
	if err != nil {
		return Outcome{}, err
	}

	switch v, cooldown := classify(lines); v {
	case verdictAlreadyActive:
		t.log.Info("hardline was already active")
		t.state = Active
		return Outcome{State: Active}, nil
	case verdictCooldown:
		t.log.Info("hardline on cooldown", "wait", cooldown)
		return Outcome{State: Inactive, Cooldown: cooldown}, nil
	case verdictSilent:
		t.log.Warn("no activation response, assuming acceptance")
		fallthrough
	default:
		if err := t.rideConnection(con); err != nil {
			return Outcome{}, err
		}
		t.state = Active
		t.log.Info("hardline active")
		return Outcome{State: Active}, nil
	}
}

// rideConnection keeps the session alive through the host's connection
// animation. Once started the sequence cannot be aborted; a half-finished
// burst leaves the host waiting on input it will never get.
func (t *Tracker) rideConnection(con Console) error {
	time.Sleep(t.connectLeadWait)
	for i := 0; i < t.fillerCount; i++ {
		if err := con.Keys("."); err != nil {
			return fmt.Errorf("filler keystroke: %w", err)
		}
		time.Sleep(t.fillerEvery)
	}
	time.Sleep(t.connectTailWait)
	// Leave no stray buffered input behind.
	return con.Newline()
}

// Deactivate drives the active-to-inactive transition. State flips only when
// the host confirms the disconnect.
func (t *Tracker) Deactivate(ctx context.Context, con Console) (Outcome, error) {
	if t.state == Inactive {
		return Outcome{State: Inactive}, nil
	}
	if err := con.Send(ctx, deactivateCommand); err != nil {
		return Outcome{}, fmt.Errorf("send deactivation: %w", err)
	}
	// The disconnect notice lands asynchronously and corrupts parsing of
	// whatever comes next if read too early.
	time.Sleep(t.disconnectSettle)
	if err := con.Newline(); err != nil {
		return Outcome{}, err
	}

	lines, err := con.Await(ctx, t.responseWait)
	if err != nil {
		return Outcome{}, err
	}
	for _, line := range lines {
		if strings.Contains(line, lineDisconnected) {
			t.state = Inactive
			t.log.Info("hardline disconnected")
			return Outcome{State: Inactive}, nil
		}
	}
	t.log.Warn("hardline disconnect not confirmed")
	return Outcome{State: Active}, nil
}

// classify scans response lines in priority order: already-active beats
// cooldown beats accepted.
func classify(lines []string) (verdict, time.Duration) {
	for _, line := range lines {
		if strings.Contains(line, lineAlreadyActive) {
			return verdictAlreadyActive, 0
		}
	}
	for _, line := range lines {
		if !strings.Contains(line, "hardline") {
			continue
		}
		if m := cooldownPattern.FindStringSubmatch(line); m != nil {
			secs, err := strconv.Atoi(m[1])
			if err != nil {
				continue
			}
			// One second of margin; the host rounds down.
			return verdictCooldown, time.Duration(secs+1) * time.Second
		}
	}
	for _, line := range lines {
		if strings.Contains(line, lineAccepted) {
			return verdictAccepted, 0
		}
	}
	return verdictSilent, 0
}
