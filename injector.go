package hmoog

// Injector delivers synthetic input to the console host's window. The
// engine never talks to a display server directly; everything goes through
// this interface. Errors from Init and SendKeystrokes are fatal to the
// session, the remaining calls are best-effort.
//
// The default implementation shells out to xdotool; see internal/input.
type Injector interface {
	// Init verifies the native layer is usable. Called once per session.
	Init() error
	// SendKeystrokes types the given text verbatim, without a trailing
	// newline.
	SendKeystrokes(text string) error
	// SendReturn presses the return key.
	SendReturn() error
	// SendEscape presses the escape key. Used as the recovery action after
	// a timed-out command.
	SendEscape() error
	// SendMouseClick clicks at absolute screen coordinates.
	SendMouseClick(x, y int, right bool) error
}
