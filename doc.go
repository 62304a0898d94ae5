// Package hmoog drives a hackmud-style remote console from the outside.
//
// # Overview
//
// The console host offers no API. Its only observable output is a shell log
// file it appends to at unpredictable times, and its only input channel is
// synthetic keyboard injection. This package builds a reliable
// command/response protocol on top of that: it types a command into the
// host's window, watches the log for the resulting append, separates the
// command's output from stray traffic, and returns it parsed and rendered.
//
// # Session Lifecycle
//
//	cfg, err := hmoog.LoadConfig("")
//	session := hmoog.New(cfg, hmoog.Deps{})
//	if err := session.Init(); err != nil { ... }
//	defer session.Close()
//
//	res, err := session.Run(ctx, "sys.status", hmoog.RunOptions{})
//
// Init verifies the native input layer, starts watching the shell log, and
// plants the first session marker. Run executes one command cycle and
// returns an execution result with three renderings of the output: markup
// preserved, markup stripped, and ANSI escaped. A nil result with nil error
// means the command timed out; the caller decides what to do next.
//
// # Half-Duplex Protocol
//
// The protocol has no pipelining. At most one command cycle, hardline
// transition, or flush cycle is in flight at a time; concurrent calls fail
// fast with ErrBusy rather than queue.
//
// # Hardline
//
// EnterHardline and ExitHardline drive the host's slow two-state session
// mode. Activation can be rejected with a cooldown, which is reported in the
// outcome for the caller to wait out.
//
// # Components
//
// The markup subpackage owns parsing and rendering of the host's color
// markup. The internal packages handle log correlation (shellog), hardline
// state (hardline), file-change notification (watch), and native input
// injection (input). The cmd/hmoog command wraps a session in an
// interactive terminal console.
package hmoog
