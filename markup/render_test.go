package markup

import (
	"errors"
	"strings"
	"testing"
)

func TestMarkupRoundTrip(t *testing.T) {
	inputs := []string{
		"",
		"plain text",
		"a«b»c´d",
		"<color=#FF0000FF>red</color>",
		"before<color=#00FF00FF>green</color>after",
		"<color=#FF0000FF>a<color=#0000FFFF>b</color>c</color>",
		"<color=#12345678></color>",
		"<color=#c3c3c3ff>lower</color>",
		"<color=#FF0000FF><color=#00FF00FF><color=#0000FFFF>deep</color></color></color>",
	}

	for _, input := range inputs {
		nodes, err := Parse(input)
		if err != nil {
			t.Fatalf("Parse(%q) error = %v", input, err)
		}
		if got := Markup(nodes); got != input {
			t.Errorf("Markup(Parse(%q)) = %q, want identity", input, got)
		}
	}
}

func TestPlain(t *testing.T) {
	tests := []struct {
		name  string
		input string
		opts  Options
		want  string
	}{
		{
			name:  "strips tags",
			input: "<color=#FF0000FF>a<color=#0000FFFF>b</color>c</color>",
			want:  "abc",
		},
		{
			name:  "reverses stand-ins",
			input: "«script»<color=#FF0000FF>´code´</color>",
			want:  "<script>`code`",
		},
		{
			name:  "corruption mapped",
			input: "bad \ue000\ue004 sector",
			opts:  Options{MapCorruption: true},
			want:  "bad ▖▚ sector",
		},
		{
			name:  "corruption kept",
			input: "bad \ue000 sector",
			want:  "bad \ue000 sector",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nodes, err := Parse(tt.input)
			if err != nil {
				t.Fatalf("Parse(%q) error = %v", tt.input, err)
			}
			if got := Plain(nodes, tt.opts); got != tt.want {
				t.Errorf("Plain(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestPlainNeverContainsMarkup(t *testing.T) {
	inputs := []string{
		"<color=#FF0000FF>red</color>",
		"«a»´b´<color=#00FF00FF>«c»</color>",
		"<color=#FF0000FF><color=#00FF00FF>nested</color></color>",
	}

	for _, input := range inputs {
		nodes, err := Parse(input)
		if err != nil {
			t.Fatalf("Parse(%q) error = %v", input, err)
		}
		got := Plain(nodes, DefaultOptions())
		if strings.Contains(got, "<color") || strings.Contains(got, "</color>") {
			t.Errorf("Plain(%q) = %q still contains tag syntax", input, got)
		}
		if strings.ContainsAny(got, "«»´") {
			t.Errorf("Plain(%q) = %q still contains stand-ins", input, got)
		}
	}
}

func TestANSITrueColor(t *testing.T) {
	nodes, err := Parse("say <color=#FF0000FF>stop</color> now")
	if err != nil {
		t.Fatalf("Parse error = %v", err)
	}
	got, err := ANSI(nodes, Options{Depth: DepthTrue})
	if err != nil {
		t.Fatalf("ANSI error = %v", err)
	}

	deflt := "\x1b[38;2;195;195;195m"
	want := deflt + "say " + "\x1b[38;2;255;0;0m" + "stop" + deflt + " now" + "\x1b[0m"
	if got != want {
		t.Errorf("ANSI = %q, want %q", got, want)
	}
}

func TestANSINestedRestoresParent(t *testing.T) {
	nodes, err := Parse("<color=#FF0000FF>a<color=#0000FFFF>b</color>c</color>")
	if err != nil {
		t.Fatalf("Parse error = %v", err)
	}
	got, err := ANSI(nodes, Options{Depth: DepthTrue})
	if err != nil {
		t.Fatalf("ANSI error = %v", err)
	}

	deflt := "\x1b[38;2;195;195;195m"
	red := "\x1b[38;2;255;0;0m"
	blue := "\x1b[38;2;0;0;255m"
	want := deflt + red + "a" + blue + "b" + red + "c" + deflt + "\x1b[0m"
	if got != want {
		t.Errorf("ANSI = %q, want %q", got, want)
	}
}

func TestANSIDepthNone(t *testing.T) {
	nodes, err := Parse("«a»<color=#FF0000FF>b</color>")
	if err != nil {
		t.Fatalf("Parse error = %v", err)
	}
	got, err := ANSI(nodes, Options{Depth: DepthNone})
	if err != nil {
		t.Fatalf("ANSI error = %v", err)
	}
	if got != "<a>b" {
		t.Errorf("ANSI depth none = %q, want %q", got, "<a>b")
	}
}

func TestANSIReduced(t *testing.T) {
	nodes, err := Parse("<color=#FF0000FF>alert</color>")
	if err != nil {
		t.Fatalf("Parse error = %v", err)
	}
	got, err := ANSI(nodes, Options{Depth: DepthReduced})
	if err != nil {
		t.Fatalf("ANSI reduced error = %v", err)
	}
	if !strings.Contains(got, "\x1b[38;5;") {
		t.Errorf("ANSI reduced = %q, want 256-color escapes", got)
	}
	if strings.Contains(got, "38;2;") {
		t.Errorf("ANSI reduced = %q, contains true-color escapes", got)
	}
}

func TestANSIReducedUnknownColor(t *testing.T) {
	nodes, err := Parse("<color=#123456FF>odd</color>")
	if err != nil {
		t.Fatalf("Parse error = %v", err)
	}
	if _, err := ANSI(nodes, Options{Depth: DepthReduced}); !errors.Is(err, ErrUnknownColor) {
		t.Fatalf("ANSI reduced error = %v, want ErrUnknownColor", err)
	}
}
