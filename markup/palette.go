package markup

import (
	"strings"
	"sync"

	"github.com/muesli/termenv"
)

// hostPalette lists every RGB value the console host is known to emit. The
// host draws from a fixed set of named colors, so anything outside this table
// under reduced depth means the capture is corrupt or the protocol changed.
var hostPalette = []string{
	"000000", "3F3F3F", "676767", "7D7D7D", "9B9B9B", "C3C3C3", "CACACA", "FFFFFF",
	"FF0000", "FF8383", "990000", "FF8000", "F06600", "FFF404", "F3F998",
	"1EFF00", "B3FF9B", "00FFFF", "8FFFFF", "0070DD", "A4E3FF",
	"B035EE", "E6B4FF", "FF00EC", "FF96E0", "FF0070", "FF6A98",
	"7AB2F4", "B7E3EA", "6600FF", "9078FF", "FFBE00", "FFD863",
}

var (
	reducedOnce  sync.Once
	reducedTable map[string]termenv.ANSI256Color
)

// reducedIndex resolves a color to its 256-color palette index. The table is
// built once, converting each known host color with termenv's nearest-match
// ANSI256 profile. The alpha channel does not participate in the lookup.
func reducedIndex(c Color) (termenv.ANSI256Color, bool) {
	reducedOnce.Do(func() {
		reducedTable = make(map[string]termenv.ANSI256Color, len(hostPalette))
		for _, hex := range hostPalette {
			switch conv := termenv.ANSI256.Convert(termenv.RGBColor("#" + hex)).(type) {
			case termenv.ANSI256Color:
				reducedTable[hex] = conv
			case termenv.ANSIColor:
				reducedTable[hex] = termenv.ANSI256Color(conv)
			}
		}
	})
	if len(c.Hex) < 6 {
		return 0, false
	}
	idx, ok := reducedTable[strings.ToUpper(c.Hex[:6])]
	return idx, ok
}
