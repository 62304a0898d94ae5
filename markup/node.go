package markup

// Node is one element of a parsed markup tree: either a Text leaf or a Span
// carrying a color and child nodes.
type Node interface {
	node()
}

// Text is a literal text run. Stand-in runes pass through unchanged; the
// renderers decide whether to reverse them.
type Text string

func (Text) node() {}

// Span is a colored region. Children may contain further spans; nesting is
// unbounded.
type Span struct {
	Color    Color
	Children []Node
}

func (Span) node() {}

// Color is a decoded RRGGBBAA markup color. Hex keeps the original eight-digit
// encoding so the preserving renderer can re-serialize without re-encoding.
type Color struct {
	Hex        string
	R, G, B, A uint8
}

// The console host cannot write literal markup delimiters inside text, so it
// substitutes these stand-in runes. The backtick stand-in exists because a raw
// backtick would start an in-game color code.
const (
	StandInLT       = '«'
	StandInGT       = '»'
	StandInBacktick = '´'
)
