// Package protocol implements the kbmd text wire protocol.
//
// Every message is a single read off the connection (at most MaxFrameSize bytes)
// made of ASCII-whitespace separated tokens. The first message of a session is the
// authentication message "<data> <tag>"; every following message is a command whose
// first token selects its kind:
//
//	t <char>        key press (first byte of the token)
//	c <button>      mouse button, one of 1, 3, 4, 5
//	m <x> <y>       pointer target in percent of the screen (int16)
//	s <name>        special key: backspace, tab, return, space, up, down, left, right
package protocol

import (
	"fmt"
	"strconv"
)

// MaxFrameSize is the largest chunk read off the wire in one call.
const MaxFrameSize = 100

// MinAuthDataLen is the shortest authentication payload the server will verify.
const MinAuthDataLen = 10

// RejectMessage is written to a peer that fails authentication.
const RejectMessage = "Not OK"

// Kind identifies a command by its wire tag.
type Kind byte

const (
	// KindKey types one character
	KindKey Kind = 't'

	// KindMouse clicks a mouse button
	KindMouse Kind = 'c'

	// KindPointer moves the pointer target
	KindPointer Kind = 'm'

	// KindSpecial taps a named special key
	KindSpecial Kind = 's'
)

// ParseKind maps a tag token to its Kind. Only single-byte tags are valid.
func ParseKind(tok []byte) (Kind, bool) {
	if len(tok) != 1 {
		return 0, false
	}
	switch k := Kind(tok[0]); k {
	case KindKey, KindMouse, KindPointer, KindSpecial:
		return k, true
	}
	return 0, false
}

func (k Kind) String() string {
	switch k {
	case KindKey:
		return "key"
	case KindMouse:
		return "mouse"
	case KindPointer:
		return "pointer"
	case KindSpecial:
		return "special"
	default:
		return fmt.Sprintf("kind(%q)", byte(k))
	}
}

// Command is a decoded protocol message. The concrete types are KeyPress,
// MouseButton, PointerMove and Special.
type Command interface {
	Kind() Kind

	// Encode renders the command in wire form, without a trailing newline.
	Encode() []byte

	command()
}

// KeyPress types a single character.
type KeyPress struct {
	Char byte
}

// MouseButton clicks (press then release) a mouse button.
type MouseButton struct {
	Code MouseCode
}

// PointerMove sets the pointer target as a percentage of screen width and height.
// Values outside 0-100 are accepted here and clamped by the pointer loop.
type PointerMove struct {
	X, Y int16
}

// Special taps a named non-printing key.
type Special struct {
	Code SpecialCode
}

func (KeyPress) Kind() Kind    { return KindKey }
func (MouseButton) Kind() Kind { return KindMouse }
func (PointerMove) Kind() Kind { return KindPointer }
func (Special) Kind() Kind     { return KindSpecial }

func (c KeyPress) Encode() []byte {
	return []byte{byte(KindKey), ' ', c.Char}
}

func (c MouseButton) Encode() []byte {
	return []byte(fmt.Sprintf("%c %d", KindMouse, uint8(c.Code)))
}

func (c PointerMove) Encode() []byte {
	return []byte(fmt.Sprintf("%c %d %d", KindPointer, c.X, c.Y))
}

func (c Special) Encode() []byte {
	return []byte(fmt.Sprintf("%c %s", KindSpecial, c.Code))
}

func (c KeyPress) String() string    { return "key " + strconv.QuoteRune(rune(c.Char)) }
func (c MouseButton) String() string { return "mouse " + c.Code.String() }
func (c PointerMove) String() string { return fmt.Sprintf("pointer (%d,%d)", c.X, c.Y) }
func (c Special) String() string     { return "special " + c.Code.String() }

func (KeyPress) command()    {}
func (MouseButton) command() {}
func (PointerMove) command() {}
func (Special) command()     {}
