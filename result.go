package hmoog

import (
	"fmt"
	"strings"

	"github.com/SarahIsWeird/hmoog/markup"
)

// Sentinel lines the host prints as the first output line of a script run.
const (
	successLine = "Success"
	failureLine = "Failure"
)

// View is one textual rendering of an execution result.
type View struct {
	// Command is the echoed command line in this rendering.
	Command string
	// Raw is the body joined with newlines.
	Raw string
	// Lines is the body split per console line.
	Lines []string
}

// Result is the immutable snapshot produced by one command cycle.
type Result struct {
	// Success is nil when the host printed neither a success nor a failure
	// sentinel.
	Success *bool
	// Colored preserves the host's markup verbatim.
	Colored View
	// Clean strips the markup and reverses stand-in characters.
	Clean View
	// ANSI carries terminal escapes at the configured color depth.
	ANSI View
}

// buildResult parses the echoed line and the output body once and renders
// all three views from the same trees. Markup that does not parse is fatal:
// it means a host protocol change or a corrupted capture, not something to
// patch around.
func (s *Session) buildResult(echo string, body []string) (*Result, error) {
	opts := markup.Options{Depth: s.cfg.Depth, MapCorruption: s.cfg.MapCorruption}

	echoNodes, err := markup.Parse(echo)
	if err != nil {
		return nil, fmt.Errorf("parse echo line: %w", err)
	}
	ansiEcho, err := markup.ANSI(echoNodes, opts)
	if err != nil {
		return nil, err
	}

	cleanLines := make([]string, 0, len(body))
	ansiLines := make([]string, 0, len(body))
	for _, line := range body {
		nodes, err := markup.Parse(line)
		if err != nil {
			return nil, fmt.Errorf("parse output line %q: %w", line, err)
		}
		cleanLines = append(cleanLines, markup.Plain(nodes, opts))
		rendered, err := markup.ANSI(nodes, opts)
		if err != nil {
			return nil, err
		}
		ansiLines = append(ansiLines, rendered)
	}

	res := &Result{
		Colored: View{
			Command: echo,
			Raw:     strings.Join(body, "\n"),
			Lines:   append([]string(nil), body...),
		},
		Clean: View{
			Command: markup.Plain(echoNodes, opts),
			Raw:     strings.Join(cleanLines, "\n"),
			Lines:   cleanLines,
		},
		ANSI: View{
			Command: ansiEcho,
			Raw:     strings.Join(ansiLines, "\n"),
			Lines:   ansiLines,
		},
	}

	if len(cleanLines) > 0 {
		switch cleanLines[0] {
		case successLine:
			v := true
			res.Success = &v
		case failureLine:
			v := false
			res.Success = &v
		}
	}
	return res, nil
}
