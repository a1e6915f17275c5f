package input

import "kbmd/internal/protocol"

// X11 keycodes for a US layout (evdev scancode + 8).

// ShiftKeycode is the left shift key.
const ShiftKeycode uint8 = 50

var specialKeycodes = map[protocol.SpecialCode]uint8{
	protocol.SpecialBackspace: 22,
	protocol.SpecialTab:       23,
	protocol.SpecialReturn:    36,
	protocol.SpecialSpace:     65,
	protocol.SpecialUp:        111,
	protocol.SpecialDown:      116,
	protocol.SpecialLeft:      113,
	protocol.SpecialRight:     114,
}

// Each row lists the unshifted and shifted character for consecutive keycodes
// starting at first.
var keyRows = []struct {
	first   uint8
	lower   string
	shifted string
}{
	{10, "1234567890-=", "!@#$%^&*()_+"},
	{24, "qwertyuiop[]", "QWERTYUIOP{}"},
	{38, "asdfghjkl;'`", "ASDFGHJKL:\"~"},
	{51, `\`, "|"},
	{52, "zxcvbnm,./", "ZXCVBNM<>?"},
}

type keyEntry struct {
	code  uint8
	shift bool
}

var charKeycodes = map[byte]keyEntry{}

func init() {
	for _, row := range keyRows {
		if len(row.lower) != len(row.shifted) {
			panic("input: key row length mismatch")
		}
		for i := 0; i < len(row.lower); i++ {
			code := row.first + uint8(i)
			charKeycodes[row.lower[i]] = keyEntry{code: code}
			charKeycodes[row.shifted[i]] = keyEntry{code: code, shift: true}
		}
	}
	charKeycodes[' '] = keyEntry{code: specialKeycodes[protocol.SpecialSpace]}
}

// Keycode returns the keycode for a character and whether shift must be held.
func Keycode(c byte) (code uint8, shift bool, ok bool) {
	e, ok := charKeycodes[c]
	return e.code, e.shift, ok
}

// SpecialKeycode returns the keycode for a special key.
func SpecialKeycode(s protocol.SpecialCode) (uint8, bool) {
	code, ok := specialKeycodes[s]
	return code, ok
}
