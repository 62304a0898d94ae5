// Package markup parses and renders the console host's embedded color markup.
//
// # Overview
//
// Lines the host writes to the shell log carry an embedded markup language:
// nested <color=#RRGGBBAA>...</color> tags around literal text runs. This
// package turns such a line into an ordered node tree and re-renders the tree
// into three parallel textual views.
//
// # Grammar
//
// Text runs are literal with two exceptions, both substituted verbatim by the
// host before writing: the angle-bracket stand-ins « and » (raw < and > would
// collide with tag syntax) and the backtick stand-in ´ (a raw backtick starts
// an in-game color code). The only tag form is:
//
//	<color=#RRGGBBAA> ... </color>
//
// Tags nest arbitrarily. The color value is decoded to its four channel bytes
// at parse time; renderers never re-parse hex.
//
// # Error Handling
//
// Parsing is strict. An end tag without a start tag, an end tag other than
// </color>, a start tag in any other form, or a tag left open at end of input
// all fail with a typed error and no partial tree. A malformed capture is a
// protocol problem the caller must see, never something to patch silently.
//
// # Renderers
//
// Three renderers share the same tree visitor shape:
//
//   - Markup: identity re-serialization. Markup(Parse(s)) == s for every
//     well-formed s.
//   - Plain: tag syntax dropped, stand-ins reversed to the literal
//     characters. The output never contains markup syntax or stand-ins.
//   - ANSI: terminal escapes, maintaining a color stack so a closing span
//     restores its parent's color. The render starts from the host's default
//     text color and ends with a reset.
//
// The ANSI renderer supports three depths: 24-bit true color (default), a
// reduced mode that resolves colors through the known host palette to
// 256-color indices (unknown colors are fatal), and a no-escape mode.
//
// An orthogonal transform, on by default, substitutes the host's private-use
// "corruption" runes with Unicode block elements in the Plain and ANSI views.
package markup
