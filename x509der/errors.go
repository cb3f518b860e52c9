package x509der

import (
	"fmt"

	"golang.org/x/crypto/cryptobyte"
	"golang.org/x/crypto/cryptobyte/asn1"
)

// ErrorKind classifies how a buffer diverged from the DER grammar.
type ErrorKind int

const (
	// TruncatedInput means a declared length exceeds the remaining buffer.
	TruncatedInput ErrorKind = iota + 1
	// UnexpectedTag means the observed tag does not match the tag the
	// grammar requires at this position, including a CHOICE where no
	// alternative matched.
	UnexpectedTag
	// NonCanonicalLength means an indefinite-length or non-minimal
	// length encoding was seen. Some BER producers emit these; DER
	// forbids them and this decoder rejects them.
	NonCanonicalLength
	// TrailingData means bytes remained inside an enclosing length
	// after all declared fields were consumed.
	TrailingData
	// InvalidPrimitiveValue means a primitive's content violates its
	// rules: a non-minimal INTEGER, a BIT STRING with more than 7
	// unused bits, an OID with a bad first arc, and so on.
	InvalidPrimitiveValue
	// MissingRequiredField means a mandatory field's tag never appeared.
	MissingRequiredField
)

func (k ErrorKind) String() string {
	switch k {
	case TruncatedInput:
		return "truncated input"
	case UnexpectedTag:
		return "unexpected tag"
	case NonCanonicalLength:
		return "non-canonical length"
	case TrailingData:
		return "trailing data"
	case InvalidPrimitiveValue:
		return "invalid primitive value"
	case MissingRequiredField:
		return "missing required field"
	}
	return fmt.Sprintf("error kind %d", int(k))
}

// DecodeError reports malformed input bytes. Field names the grammar
// position that failed and Offset is the byte offset of the failure
// within the innermost enclosing DER value. Nested failures are
// wrapped with fmt.Errorf so the full field path appears in the
// message while errors.As still surfaces the kind.
type DecodeError struct {
	Kind   ErrorKind
	Field  string
	Offset int
	Err    error
}

func (e *DecodeError) Error() string {
	msg := fmt.Sprintf("%s: %s (offset %d)", e.Field, e.Kind, e.Offset)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *DecodeError) Unwrap() error { return e.Err }

// EncodeError reports a caller-constructed value that has no DER
// encoding. It is a distinct type from DecodeError so callers can tell
// "bad input bytes" apart from "bad value I tried to serialize".
// Decoding never produces a value that fails to encode.
type EncodeError struct {
	Field  string
	Reason string
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("cannot encode %s: %s", e.Field, e.Reason)
}

// classify re-examines the header bytes at a failure point and decides
// which DER rule was violated. cryptobyte reports failures as a bare
// bool, so this second look exists purely to type the error.
func classify(rem cryptobyte.String, want asn1.Tag, anyTag bool) ErrorKind {
	if len(rem) == 0 {
		return MissingRequiredField
	}
	if !anyTag && asn1.Tag(rem[0]) != want {
		return UnexpectedTag
	}
	if len(rem) < 2 {
		return TruncatedInput
	}
	lenByte := rem[1]
	var length, headerLen int
	if lenByte&0x80 == 0 {
		length, headerLen = int(lenByte), 2
	} else {
		n := int(lenByte & 0x7f)
		if n == 0 {
			// 0x80 is BER's indefinite-length marker.
			return NonCanonicalLength
		}
		if n > 4 || len(rem) < 2+n {
			return TruncatedInput
		}
		if rem[2] == 0 {
			return NonCanonicalLength
		}
		for i := 0; i < n; i++ {
			length = length<<8 | int(rem[2+i])
		}
		if length < 0x80 {
			// Fits in short form, so long form is non-minimal.
			return NonCanonicalLength
		}
		headerLen = 2 + n
	}
	if length > len(rem)-headerLen {
		return TruncatedInput
	}
	return InvalidPrimitiveValue
}

// decodeErr builds the error for a failed read of field, where entry
// was the length of the enclosing value when its first field was read.
func decodeErr(field string, rem cryptobyte.String, want asn1.Tag, entry int) *DecodeError {
	return &DecodeError{
		Kind:   classify(rem, want, false),
		Field:  field,
		Offset: entry - len(rem),
	}
}

// decodeErrAny is decodeErr for positions that accept any tag.
func decodeErrAny(field string, rem cryptobyte.String, entry int) *DecodeError {
	return &DecodeError{
		Kind:   classify(rem, 0, true),
		Field:  field,
		Offset: entry - len(rem),
	}
}

func trailingErr(field string, rem cryptobyte.String, entry int) *DecodeError {
	return &DecodeError{
		Kind:   TrailingData,
		Field:  field,
		Offset: entry - len(rem),
	}
}

// NewDecodeError examines the bytes at a failed read of field and
// returns the typed error for it; entry is the length of the enclosing
// value when its first field was read. Exported so grammars layered on
// this package (PKCS#10 and friends) report the same taxonomy.
func NewDecodeError(field string, rem cryptobyte.String, want asn1.Tag, entry int) *DecodeError {
	return decodeErr(field, rem, want, entry)
}

// NewTrailingError reports bytes left inside field after all its
// declared children were consumed.
func NewTrailingError(field string, rem cryptobyte.String, entry int) *DecodeError {
	return trailingErr(field, rem, entry)
}
