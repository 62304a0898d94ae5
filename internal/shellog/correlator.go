package shellog

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"pkt.systems/pslog"

	"github.com/SarahIsWeird/hmoog/markup"
)

// FlushKind classifies a batch of new log lines.
type FlushKind int

const (
	// FlushAuto is host-initiated output with no flush echo at the end. The
	// marker is not advanced; the caller should wait for more lines.
	FlushAuto FlushKind = iota
	// FlushCommand is output finalized by the explicit flush command.
	FlushCommand
)

const (
	// FlushCommandText is the command injected to force the host to finalize
	// buffered output.
	FlushCommandText = "flush"

	// flushSentinel is the host's echo of the flush command, always the last
	// line of a command-triggered flush.
	flushSentinel = ">>" + FlushCommandText

	markerPrefix = "__hmoog_marker_"

	// markerSkip covers the marker echo itself plus the two complaint lines
	// the host always prints after rejecting the marker as a command.
	markerSkip = 3

	// EchoPrefix starts every line the host writes back showing a command it
	// received.
	EchoPrefix = ">>"
)

// ErrMarkerLost reports a live session marker missing from the log. The log
// was rotated or truncated externally and the protocol cannot resynchronize
// safely.
var ErrMarkerLost = errors.New("shellog: session marker missing from log")

// Planter types marker commands into the console.
type Planter interface {
	SendKeystrokes(text string) error
	SendReturn() error
}

// Correlator tracks the single live session marker for one shell log.
type Correlator struct {
	path    string
	planter Planter
	log     pslog.Logger
	marker  string
}

func New(path string, planter Planter, logger pslog.Logger) *Correlator {
	return &Correlator{
		path:    path,
		planter: planter,
		log:     logger.With("component", "shellog"),
	}
}

// Prime verifies the log is readable and plants the first marker. The
// existing file content is deliberately discarded; it predates the session.
func (c *Correlator) Prime() error {
	if _, err := c.readAll(); err != nil {
		return err
	}
	return c.plantMarker()
}

// ReadNew reads the full log and returns the lines appended since the live
// marker, classified by flush kind. On a command flush the trailing sentinel
// and its blank spacer are trimmed and a fresh marker is planted; on an
// automatic flush the marker is left untouched.
func (c *Correlator) ReadNew() ([]string, FlushKind, error) {
	lines, err := c.readAll()
	if err != nil {
		return nil, 0, err
	}

	start := 0
	if c.marker != "" {
		idx := -1
		for i := len(lines) - 1; i >= 0; i-- {
			if strings.Contains(lines[i], c.marker) {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil, 0, fmt.Errorf("%w: %s", ErrMarkerLost, c.marker)
		}
		start = idx + markerSkip
	}
	if start > len(lines) {
		start = len(lines)
	}
	fresh := lines[start:]

	if len(fresh) == 0 || fresh[len(fresh)-1] != flushSentinel {
		return fresh, FlushAuto, nil
	}

	fresh = fresh[:len(fresh)-1]
	if n := len(fresh); n > 0 {
		if fresh[n-1] == "" {
			fresh = fresh[:n-1]
		} else {
			// The host normally prints a blank spacer before the flush echo.
			// Keep the line rather than guess; dropping real output is worse
			// than a cosmetic extra line.
			c.log.Warn("expected blank line before flush echo", "got", fresh[n-1])
		}
	}

	out := make([]string, len(fresh))
	copy(out, fresh)
	if err := c.plantMarker(); err != nil {
		return nil, 0, err
	}
	return out, FlushCommand, nil
}

// Marker returns the live marker token, empty before Prime.
func (c *Correlator) Marker() string {
	return c.marker
}

func (c *Correlator) plantMarker() error {
	token := markerPrefix + uuid.NewString()
	if err := c.planter.SendKeystrokes(token); err != nil {
		return fmt.Errorf("plant marker: %w", err)
	}
	if err := c.planter.SendReturn(); err != nil {
		return fmt.Errorf("plant marker: %w", err)
	}
	c.marker = token
	c.log.Debug("planted session marker", "marker", token)
	return nil
}

func (c *Correlator) readAll() ([]string, error) {
	data, err := os.ReadFile(c.path)
	if err != nil {
		return nil, fmt.Errorf("read shell log: %w", err)
	}
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	lines := strings.Split(text, "\n")
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}
	return lines, nil
}

// MatchEcho scans a line batch backward for the most recent echo of the
// given command and returns everything after it. The host writes echoed text
// with literal angle brackets substituted by their stand-ins, so lines are
// compared through the stripped rendering, which reverses that substitution.
// Absence of the echo is not an error; callers decide whether to retry.
func MatchEcho(lines []string, command string) (rest []string, echo string, ok bool) {
	want := EchoPrefix + command
	for i := len(lines) - 1; i >= 0; i-- {
		nodes, err := markup.Parse(lines[i])
		if err != nil {
			continue
		}
		if markup.Plain(nodes, markup.Options{}) == want {
			return lines[i+1:], lines[i], true
		}
	}
	return nil, "", false
}
