package shellog

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"pkt.systems/pslog"
)

type fakePlanter struct {
	buf   string
	typed []string
}

func (p *fakePlanter) SendKeystrokes(text string) error {
	p.buf += text
	return nil
}

func (p *fakePlanter) SendReturn() error {
	p.typed = append(p.typed, p.buf)
	p.buf = ""
	return nil
}

func testCorrelator(t *testing.T, lines []string) (*Correlator, *fakePlanter, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "shell.txt")
	writeLog(t, path, lines)
	planter := &fakePlanter{}
	logger := pslog.NewWithOptions(io.Discard, pslog.Options{Mode: pslog.ModeStructured, NoColor: true})
	return New(path, planter, logger), planter, path
}

func writeLog(t *testing.T, path string, lines []string) {
	t.Helper()
	content := ""
	if len(lines) > 0 {
		content = strings.Join(lines, "\n") + "\n"
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write log: %v", err)
	}
}

func TestReadNewWithoutMarker(t *testing.T) {
	c, planter, _ := testCorrelator(t, []string{"old one", "old two"})

	lines, kind, err := c.ReadNew()
	if err != nil {
		t.Fatalf("ReadNew() error = %v", err)
	}
	if kind != FlushAuto {
		t.Errorf("kind = %v, want FlushAuto", kind)
	}
	if !reflect.DeepEqual(lines, []string{"old one", "old two"}) {
		t.Errorf("lines = %v, want whole file", lines)
	}
	if len(planter.typed) != 0 {
		t.Errorf("marker planted on auto flush: %v", planter.typed)
	}
}

func TestReadNewCommandFlush(t *testing.T) {
	marker := markerPrefix + "test-token"
	c, planter, _ := testCorrelator(t, []string{
		"stale noise",
		">>" + marker,
		"PARSE ERROR",
		"unknown command",
		"A",
		"B",
		"",
		">>flush",
	})
	c.marker = marker

	lines, kind, err := c.ReadNew()
	if err != nil {
		t.Fatalf("ReadNew() error = %v", err)
	}
	if kind != FlushCommand {
		t.Errorf("kind = %v, want FlushCommand", kind)
	}
	if !reflect.DeepEqual(lines, []string{"A", "B"}) {
		t.Errorf("lines = %v, want [A B]", lines)
	}

	if len(planter.typed) != 1 {
		t.Fatalf("planted %d markers, want 1", len(planter.typed))
	}
	if !strings.HasPrefix(planter.typed[0], markerPrefix) {
		t.Errorf("planted marker %q lacks prefix", planter.typed[0])
	}
	if c.Marker() != planter.typed[0] {
		t.Errorf("live marker %q does not match planted %q", c.Marker(), planter.typed[0])
	}
	if c.Marker() == marker {
		t.Error("marker not advanced after command flush")
	}
}

func TestReadNewAutoFlushKeepsMarker(t *testing.T) {
	marker := markerPrefix + "auto-token"
	c, planter, path := testCorrelator(t, []string{
		">>" + marker,
		"PARSE ERROR",
		"unknown command",
		"A",
		"B",
	})
	c.marker = marker

	lines, kind, err := c.ReadNew()
	if err != nil {
		t.Fatalf("ReadNew() error = %v", err)
	}
	if kind != FlushAuto {
		t.Errorf("kind = %v, want FlushAuto", kind)
	}
	if !reflect.DeepEqual(lines, []string{"A", "B"}) {
		t.Errorf("lines = %v, want [A B]", lines)
	}
	if len(planter.typed) != 0 {
		t.Error("marker must not advance on automatic flush")
	}

	// The next read must see the same lines again plus anything newer.
	writeLog(t, path, []string{
		">>" + marker, "PARSE ERROR", "unknown command", "A", "B", "C",
	})
	lines, _, err = c.ReadNew()
	if err != nil {
		t.Fatalf("second ReadNew() error = %v", err)
	}
	if !reflect.DeepEqual(lines, []string{"A", "B", "C"}) {
		t.Errorf("second read = %v, want [A B C]", lines)
	}
}

func TestReadNewMarkerLost(t *testing.T) {
	c, _, _ := testCorrelator(t, []string{"no markers here"})
	c.marker = markerPrefix + "gone"

	if _, _, err := c.ReadNew(); !errors.Is(err, ErrMarkerLost) {
		t.Fatalf("ReadNew() error = %v, want ErrMarkerLost", err)
	}
}

func TestReadNewMissingBlankSpacer(t *testing.T) {
	marker := markerPrefix + "spacer"
	c, _, _ := testCorrelator(t, []string{
		">>" + marker,
		"PARSE ERROR",
		"unknown command",
		"A",
		"B",
		">>flush",
	})
	c.marker = marker

	lines, kind, err := c.ReadNew()
	if err != nil {
		t.Fatalf("ReadNew() error = %v", err)
	}
	if kind != FlushCommand {
		t.Errorf("kind = %v, want FlushCommand", kind)
	}
	// B is not the expected blank spacer; it must be kept, not discarded.
	if !reflect.DeepEqual(lines, []string{"A", "B"}) {
		t.Errorf("lines = %v, want [A B]", lines)
	}
}

func TestReadNewEmptyCommandFlush(t *testing.T) {
	marker := markerPrefix + "empty"
	c, _, _ := testCorrelator(t, []string{
		">>" + marker,
		"PARSE ERROR",
		"unknown command",
		"",
		">>flush",
	})
	c.marker = marker

	lines, kind, err := c.ReadNew()
	if err != nil {
		t.Fatalf("ReadNew() error = %v", err)
	}
	if kind != FlushCommand {
		t.Errorf("kind = %v, want FlushCommand", kind)
	}
	if len(lines) != 0 {
		t.Errorf("lines = %v, want none", lines)
	}
}

func TestPrime(t *testing.T) {
	c, planter, _ := testCorrelator(t, []string{"history"})

	if err := c.Prime(); err != nil {
		t.Fatalf("Prime() error = %v", err)
	}
	if len(planter.typed) != 1 {
		t.Fatalf("planted %d markers, want 1", len(planter.typed))
	}
	if c.Marker() == "" {
		t.Error("no live marker after Prime")
	}
}

func TestPrimeMissingLog(t *testing.T) {
	planter := &fakePlanter{}
	logger := pslog.NewWithOptions(io.Discard, pslog.Options{Mode: pslog.ModeStructured, NoColor: true})
	c := New(filepath.Join(t.TempDir(), "nope.txt"), planter, logger)

	if err := c.Prime(); err == nil {
		t.Fatal("Prime() on a missing log must fail")
	}
	if len(planter.typed) != 0 {
		t.Error("marker planted despite unreadable log")
	}
}

func TestMatchEcho(t *testing.T) {
	tests := []struct {
		name     string
		lines    []string
		command  string
		wantRest []string
		wantOK   bool
	}{
		{
			name:     "plain echo",
			lines:    []string{"noise", ">>foo", "result1", "result2"},
			command:  "foo",
			wantRest: []string{"result1", "result2"},
			wantOK:   true,
		},
		{
			name:     "colored echo",
			lines:    []string{">><color=#00FFFFFF>whoami</color>", "sarah"},
			command:  "whoami",
			wantRest: []string{"sarah"},
			wantOK:   true,
		},
		{
			name:     "stand-ins in echo",
			lines:    []string{">>say «hi»", "said"},
			command:  "say <hi>",
			wantRest: []string{"said"},
			wantOK:   true,
		},
		{
			name:     "most recent echo wins",
			lines:    []string{">>foo", "old", ">>foo", "new"},
			command:  "foo",
			wantRest: []string{"new"},
			wantOK:   true,
		},
		{
			name:    "not found",
			lines:   []string{"noise", ">>bar", "result"},
			command: "foo",
			wantOK:  false,
		},
		{
			name:    "empty batch",
			lines:   nil,
			command: "foo",
			wantOK:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rest, echo, ok := MatchEcho(tt.lines, tt.command)
			if ok != tt.wantOK {
				t.Fatalf("MatchEcho() ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if !reflect.DeepEqual(rest, tt.wantRest) {
				t.Errorf("rest = %v, want %v", rest, tt.wantRest)
			}
			if echo == "" {
				t.Error("echo line missing")
			}
		})
	}
}
