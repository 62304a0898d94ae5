package markup

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnterminatedTag reports a tag still open at end of input.
	ErrUnterminatedTag = errors.New("markup: unterminated tag")
	// ErrStrayEndTag reports an end tag with no matching start tag.
	ErrStrayEndTag = errors.New("markup: end tag without start tag")
	// ErrUnknownTag reports a tag form other than <color=#RRGGBBAA>.
	ErrUnknownTag = errors.New("markup: unrecognized tag")
	// ErrBadColor reports a color value that is not eight hex digits.
	ErrBadColor = errors.New("markup: malformed color value")
)

const (
	startTagPrefix = "<color=#"
	endTag         = "</color>"
)

// Parse turns a flat markup string into an ordered node tree. All structural
// problems are fatal: the function never returns a partial tree alongside an
// error.
func Parse(s string) ([]Node, error) {
	p := &parser{input: s}
	nodes, err := p.parseNodes(false)
	if err != nil {
		return nil, err
	}
	return nodes, nil
}

type parser struct {
	input string
	pos   int
}

// parseNodes consumes nodes until end of input, or until the end tag closing
// the current span when inSpan is set.
func (p *parser) parseNodes(inSpan bool) ([]Node, error) {
	var nodes []Node
	var text strings.Builder
	flush := func() {
		if text.Len() > 0 {
			nodes = append(nodes, Text(text.String()))
			text.Reset()
		}
	}

	for p.pos < len(p.input) {
		if p.input[p.pos] != '<' {
			text.WriteByte(p.input[p.pos])
			p.pos++
			continue
		}

		rest := p.input[p.pos:]
		if strings.HasPrefix(rest, "</") {
			end := strings.IndexByte(rest, '>')
			if end < 0 {
				return nil, fmt.Errorf("%w at offset %d", ErrUnterminatedTag, p.pos)
			}
			name := rest[2:end]
			if name != "color" {
				return nil, fmt.Errorf("%w: </%s>", ErrUnknownTag, name)
			}
			if !inSpan {
				return nil, fmt.Errorf("%w at offset %d", ErrStrayEndTag, p.pos)
			}
			p.pos += end + 1
			flush()
			return nodes, nil
		}

		if !strings.HasPrefix(rest, startTagPrefix) {
			return nil, fmt.Errorf("%w at offset %d", ErrUnknownTag, p.pos)
		}
		hexStart := p.pos + len(startTagPrefix)
		gt := strings.IndexByte(p.input[hexStart:], '>')
		if gt < 0 {
			return nil, fmt.Errorf("%w at offset %d", ErrUnterminatedTag, p.pos)
		}
		color, err := parseColor(p.input[hexStart : hexStart+gt])
		if err != nil {
			return nil, err
		}
		p.pos = hexStart + gt + 1

		children, err := p.parseNodes(true)
		if err != nil {
			return nil, err
		}
		flush()
		nodes = append(nodes, Span{Color: color, Children: children})
	}

	if inSpan {
		return nil, fmt.Errorf("%w at end of input", ErrUnterminatedTag)
	}
	flush()
	return nodes, nil
}

// parseColor decodes the eight-digit RGBA value eagerly so renderers never
// touch hex again.
func parseColor(s string) (Color, error) {
	if len(s) != 8 {
		return Color{}, fmt.Errorf("%w: %q", ErrBadColor, s)
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return Color{}, fmt.Errorf("%w: %q", ErrBadColor, s)
	}
	return Color{Hex: s, R: raw[0], G: raw[1], B: raw[2], A: raw[3]}, nil
}
