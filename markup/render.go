package markup

import (
	"errors"
	"fmt"
	"strings"

	"github.com/muesli/termenv"
)

// Depth selects how the ANSI renderer encodes colors.
type Depth int

const (
	// DepthTrue emits 24-bit escapes. This is the default.
	DepthTrue Depth = iota
	// DepthReduced resolves colors through the known host palette to
	// 256-color indices. Colors outside the palette are fatal.
	DepthReduced
	// DepthNone emits no escapes at all.
	DepthNone
)

// ErrUnknownColor reports a color that is not part of the known host palette
// while rendering at reduced depth. It usually means a corrupt capture or a
// host protocol change.
var ErrUnknownColor = errors.New("markup: color not in host palette")

// Options configure the Plain and ANSI renderers. The preserving renderer
// takes none; it must round-trip its input exactly.
type Options struct {
	Depth Depth
	// MapCorruption replaces the host's private-use "corruption" runes with
	// block-element look-alikes. Independent of color handling.
	MapCorruption bool
}

// DefaultOptions returns true-color rendering with corruption mapping on.
func DefaultOptions() Options {
	return Options{Depth: DepthTrue, MapCorruption: true}
}

// defaultColor is the host's plain text color, pushed before any span and
// restored when the outermost span closes.
var defaultColor = Color{Hex: "C3C3C3FF", R: 0xC3, G: 0xC3, B: 0xC3, A: 0xFF}

var standInReplacer = strings.NewReplacer(
	string(StandInLT), "<",
	string(StandInGT), ">",
	string(StandInBacktick), "`",
)

// corruptionGlyphs maps the host's private-use runes to printable block
// elements.
var corruptionGlyphs = map[rune]rune{
	'\uE000': '▖',
	'\uE001': '▘',
	'\uE002': '▝',
	'\uE003': '▗',
	'\uE004': '▚',
	'\uE005': '▞',
}

// Markup re-serializes a node tree back into tag syntax. For any tree
// produced by Parse, Markup(tree) equals the original input.
func Markup(nodes []Node) string {
	var b strings.Builder
	writeMarkup(&b, nodes)
	return b.String()
}

func writeMarkup(b *strings.Builder, nodes []Node) {
	for _, n := range nodes {
		switch n := n.(type) {
		case Text:
			b.WriteString(string(n))
		case Span:
			b.WriteString(startTagPrefix)
			b.WriteString(n.Color.Hex)
			b.WriteByte('>')
			writeMarkup(b, n.Children)
			b.WriteString(endTag)
		}
	}
}

// Plain drops all tag syntax and reverses the stand-in runes back to the
// literal characters a human would have typed. The result contains no markup
// syntax and no stand-ins.
func Plain(nodes []Node, opts Options) string {
	var b strings.Builder
	writePlain(&b, nodes, opts)
	return b.String()
}

func writePlain(b *strings.Builder, nodes []Node, opts Options) {
	for _, n := range nodes {
		switch n := n.(type) {
		case Text:
			b.WriteString(renderText(string(n), opts))
		case Span:
			writePlain(b, n.Children, opts)
		}
	}
}

// ANSI renders the tree with terminal color escapes. A color stack restores
// the enclosing color when a span closes; the whole render starts from the
// host's default text color and ends with a reset.
func ANSI(nodes []Node, opts Options) (string, error) {
	var b strings.Builder
	if opts.Depth != DepthNone {
		seq, err := colorSequence(defaultColor, opts.Depth)
		if err != nil {
			return "", err
		}
		b.WriteString(seq)
	}
	if err := writeANSI(&b, nodes, []Color{defaultColor}, opts); err != nil {
		return "", err
	}
	if opts.Depth != DepthNone {
		b.WriteString(termenv.CSI + termenv.ResetSeq + "m")
	}
	return b.String(), nil
}

func writeANSI(b *strings.Builder, nodes []Node, stack []Color, opts Options) error {
	for _, n := range nodes {
		switch n := n.(type) {
		case Text:
			b.WriteString(renderText(string(n), opts))
		case Span:
			if opts.Depth != DepthNone {
				seq, err := colorSequence(n.Color, opts.Depth)
				if err != nil {
					return err
				}
				b.WriteString(seq)
			}
			if err := writeANSI(b, n.Children, append(stack, n.Color), opts); err != nil {
				return err
			}
			if opts.Depth != DepthNone {
				seq, err := colorSequence(stack[len(stack)-1], opts.Depth)
				if err != nil {
					return err
				}
				b.WriteString(seq)
			}
		}
	}
	return nil
}

func renderText(s string, opts Options) string {
	s = standInReplacer.Replace(s)
	if opts.MapCorruption {
		s = strings.Map(func(r rune) rune {
			if mapped, ok := corruptionGlyphs[r]; ok {
				return mapped
			}
			return r
		}, s)
	}
	return s
}

func colorSequence(c Color, depth Depth) (string, error) {
	switch depth {
	case DepthTrue:
		tc := termenv.RGBColor(fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B))
		return termenv.CSI + tc.Sequence(false) + "m", nil
	case DepthReduced:
		idx, ok := reducedIndex(c)
		if !ok {
			return "", fmt.Errorf("%w: #%s", ErrUnknownColor, c.Hex)
		}
		return termenv.CSI + idx.Sequence(false) + "m", nil
	}
	return "", nil
}
