package protocol

import "fmt"

// MouseCode is a mouse button as numbered on the wire (and by X11).
type MouseCode uint8

const (
	MouseLeft       MouseCode = 1
	MouseRight      MouseCode = 3
	MouseScrollUp   MouseCode = 4
	MouseScrollDown MouseCode = 5
)

// SpecialCode is a named non-printing key.
type SpecialCode uint8

const (
	SpecialBackspace SpecialCode = iota + 1
	SpecialTab
	SpecialReturn
	SpecialSpace
	SpecialUp
	SpecialDown
	SpecialLeft
	SpecialRight
)

var mouseNames = []struct {
	code MouseCode
	name string
}{
	{MouseLeft, "left"},
	{MouseRight, "right"},
	{MouseScrollUp, "scroll-up"},
	{MouseScrollDown, "scroll-down"},
}

var specialNames = []struct {
	code SpecialCode
	name string
}{
	{SpecialBackspace, "backspace"},
	{SpecialTab, "tab"},
	{SpecialReturn, "return"},
	{SpecialSpace, "space"},
	{SpecialUp, "up"},
	{SpecialDown, "down"},
	{SpecialLeft, "left"},
	{SpecialRight, "right"},
}

// Lookup tables in both directions, built and checked once at start-up.
var (
	mouseByNumber = map[uint8]MouseCode{}
	mouseToName   = map[MouseCode]string{}
	specialByName = map[string]SpecialCode{}
	specialToName = map[SpecialCode]string{}
)

func init() {
	for _, m := range mouseNames {
		if _, dup := mouseByNumber[uint8(m.code)]; dup {
			panic(fmt.Sprintf("protocol: duplicate mouse code %d", m.code))
		}
		mouseByNumber[uint8(m.code)] = m.code
		mouseToName[m.code] = m.name
	}
	for _, s := range specialNames {
		if _, dup := specialByName[s.name]; dup {
			panic(fmt.Sprintf("protocol: duplicate special name %q", s.name))
		}
		if _, dup := specialToName[s.code]; dup {
			panic(fmt.Sprintf("protocol: duplicate special code %d", s.code))
		}
		specialByName[s.name] = s.code
		specialToName[s.code] = s.name
	}
}

// MouseCodeFromNumber returns the button for a wire numeral.
func MouseCodeFromNumber(n uint8) (MouseCode, bool) {
	c, ok := mouseByNumber[n]
	return c, ok
}

// SpecialCodeFromName returns the special key for a lower-case wire name.
func SpecialCodeFromName(name string) (SpecialCode, bool) {
	c, ok := specialByName[name]
	return c, ok
}

// MouseCodes lists every known button in wire order.
func MouseCodes() []MouseCode {
	out := make([]MouseCode, 0, len(mouseNames))
	for _, m := range mouseNames {
		out = append(out, m.code)
	}
	return out
}

// SpecialCodes lists every known special key.
func SpecialCodes() []SpecialCode {
	out := make([]SpecialCode, 0, len(specialNames))
	for _, s := range specialNames {
		out = append(out, s.code)
	}
	return out
}

func (m MouseCode) String() string {
	if name, ok := mouseToName[m]; ok {
		return name
	}
	return fmt.Sprintf("button(%d)", uint8(m))
}

// String returns the wire name of the key.
func (s SpecialCode) String() string {
	if name, ok := specialToName[s]; ok {
		return name
	}
	return fmt.Sprintf("special(%d)", uint8(s))
}
