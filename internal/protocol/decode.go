package protocol

import (
	"errors"
	"fmt"
	"strconv"
	"unicode/utf8"
)

// Hard failures: the message is not a command at all.
var (
	ErrEmpty           = errors.New("protocol: empty message")
	ErrUnknownKind     = errors.New("protocol: unknown command tag")
	ErrMissingArgument = errors.New("protocol: missing argument")
)

// Reasons carried by a MalformedError.
var (
	ErrInvalidUTF8   = errors.New("invalid utf-8")
	ErrInvalidNumber = errors.New("invalid numeral")
	ErrUnknownCode   = errors.New("unknown code")
)

// MalformedError is a soft decode failure: the command tag and its arguments were
// present but an argument could not be interpreted.
type MalformedError struct {
	Kind   Kind
	Token  string
	Reason error
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("protocol: malformed %s argument %q: %v", e.Kind, e.Token, e.Reason)
}

func (e *MalformedError) Unwrap() error { return e.Reason }

// IsSoft reports whether err is a soft decode failure.
func IsSoft(err error) bool {
	var me *MalformedError
	return errors.As(err, &me)
}

// Decode parses one chunk into a Command. Tokens after the ones a command needs are
// ignored. Errors are either hard (ErrEmpty, ErrUnknownKind, ErrMissingArgument) or
// soft (*MalformedError); neither should end a session.
func Decode(chunk []byte) (Command, error) {
	tokens := Fields(chunk)
	if len(tokens) == 0 {
		return nil, ErrEmpty
	}

	kind, ok := ParseKind(tokens[0])
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownKind, tokens[0])
	}
	args := tokens[1:]

	switch kind {
	case KindKey:
		if len(args) < 1 {
			return nil, fmt.Errorf("%w: %s needs a character", ErrMissingArgument, kind)
		}
		return KeyPress{Char: args[0][0]}, nil

	case KindMouse:
		if len(args) < 1 {
			return nil, fmt.Errorf("%w: %s needs a button", ErrMissingArgument, kind)
		}
		n, err := parseNumber(kind, args[0], 8)
		if err != nil {
			return nil, err
		}
		code, ok := MouseCodeFromNumber(uint8(n))
		if !ok {
			return nil, &MalformedError{Kind: kind, Token: string(args[0]), Reason: ErrUnknownCode}
		}
		return MouseButton{Code: code}, nil

	case KindPointer:
		if len(args) < 2 {
			return nil, fmt.Errorf("%w: %s needs x and y", ErrMissingArgument, kind)
		}
		x, err := parseNumber(kind, args[0], 16)
		if err != nil {
			return nil, err
		}
		y, err := parseNumber(kind, args[1], 16)
		if err != nil {
			return nil, err
		}
		return PointerMove{X: int16(x), Y: int16(y)}, nil

	case KindSpecial:
		if len(args) < 1 {
			return nil, fmt.Errorf("%w: %s needs a key name", ErrMissingArgument, kind)
		}
		if !utf8.Valid(args[0]) {
			return nil, &MalformedError{Kind: kind, Token: string(args[0]), Reason: ErrInvalidUTF8}
		}
		code, ok := SpecialCodeFromName(string(args[0]))
		if !ok {
			return nil, &MalformedError{Kind: kind, Token: string(args[0]), Reason: ErrUnknownCode}
		}
		return Special{Code: code}, nil
	}

	return nil, fmt.Errorf("%w %q", ErrUnknownKind, tokens[0])
}

// parseNumber parses a decimal numeral with an optional sign. Mouse codes are
// unsigned bytes and pointer coordinates are signed 16-bit values; bits selects
// which.
func parseNumber(kind Kind, tok []byte, bits int) (int64, error) {
	if !utf8.Valid(tok) {
		return 0, &MalformedError{Kind: kind, Token: string(tok), Reason: ErrInvalidUTF8}
	}
	n, err := strconv.ParseInt(string(tok), 10, 16)
	if err != nil || (bits == 8 && (n < 0 || n > 255)) {
		return 0, &MalformedError{Kind: kind, Token: string(tok), Reason: ErrInvalidNumber}
	}
	return n, nil
}

// Fields splits b around runs of ASCII whitespace. Bytes are compared one at a
// time so tokens holding invalid UTF-8 survive intact for the decoder to reject.
func Fields(b []byte) [][]byte {
	var out [][]byte
	start := -1
	for i, c := range b {
		if isSpace(c) {
			if start >= 0 {
				out = append(out, b[start:i])
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		out = append(out, b[start:])
	}
	return out
}

func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\f', '\r':
		return true
	}
	return false
}

// ParseAuth splits the first message of a session into its data and tag tokens.
// Either may be nil if the peer sent fewer than two tokens.
func ParseAuth(chunk []byte) (data, tag []byte) {
	tokens := Fields(chunk)
	if len(tokens) > 0 {
		data = tokens[0]
	}
	if len(tokens) > 1 {
		tag = tokens[1]
	}
	return data, tag
}
