package postal

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/wippyai/postal/errors"
)

// DecodePolicy selects what a result view does with an element the engine
// returned as invalid UTF-8.
type DecodePolicy uint8

const (
	// DecodeStrict stops iteration and reports KindInvalidUTF8 through Err.
	DecodeStrict DecodePolicy = iota
	// DecodeLossy replaces invalid sequences with U+FFFD and continues.
	DecodeLossy
	// DecodeTruncate stops iteration silently at the bad element.
	DecodeTruncate
)

func (p DecodePolicy) String() string {
	switch p {
	case DecodeStrict:
		return "strict"
	case DecodeLossy:
		return "lossy"
	case DecodeTruncate:
		return "truncate"
	default:
		return fmt.Sprintf("DecodePolicy(%d)", uint8(p))
	}
}

// ParseDecodePolicy parses "strict", "lossy" or "truncate". The empty string
// selects DecodeStrict.
func ParseDecodePolicy(s string) (DecodePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "strict":
		return DecodeStrict, nil
	case "lossy":
		return DecodeLossy, nil
	case "truncate":
		return DecodeTruncate, nil
	default:
		return DecodeStrict, errors.New(errors.PhaseConfig, errors.KindInvalidInput).
			Value(s).
			Detail("unknown decode policy %q", s).
			Build()
	}
}

// MarshalText implements encoding.TextMarshaler.
func (p DecodePolicy) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *DecodePolicy) UnmarshalText(text []byte) error {
	v, err := ParseDecodePolicy(string(text))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// decode converts raw element bytes. ok is false when iteration must stop;
// err is set only under DecodeStrict.
func (p DecodePolicy) decode(index int, raw []byte) (s string, ok bool, err error) {
	if utf8.Valid(raw) {
		return string(raw), true, nil
	}
	switch p {
	case DecodeLossy:
		return strings.ToValidUTF8(string(raw), string(utf8.RuneError)), true, nil
	case DecodeTruncate:
		return "", false, nil
	default:
		return "", false, errors.InvalidUTF8(errors.PhaseDecode, index, raw)
	}
}
