package x509der

import (
	encoding_asn1 "encoding/asn1"
	"errors"
	"unicode/utf16"

	"golang.org/x/crypto/cryptobyte"
	"golang.org/x/crypto/cryptobyte/asn1"
)

// ErrNotAString is returned when an attribute value's tag is not one
// of the character string types.
var ErrNotAString = errors.New("unknown string type")

// NewStringValue encodes s as a DER character string with the given
// tag, ready to use as an attribute value.
func NewStringValue(tag asn1.Tag, s string) RawValue {
	var b cryptobyte.Builder
	b.AddASN1(tag, func(b *cryptobyte.Builder) {
		b.AddBytes([]byte(s))
	})
	return RawValue{Tag: tag, Full: b.BytesOrPanic()}
}

// parseString gives us a Go string out of an ASN.1 character string
// element.
func parseString(tag asn1.Tag, data cryptobyte.String) (string, error) {
	switch tag {
	case encoding_asn1.TagBMPString:
		return parseBMPString(data)
	case asn1.PrintableString, asn1.IA5String, asn1.UTF8String, asn1.T61String:
		return string(data), nil
	default:
		return "", ErrNotAString
	}
}

// parseBMPString parses a utf-16 bmpString. Taken from pkcs12.
func parseBMPString(bmpString cryptobyte.String) (string, error) {
	if len(bmpString)%2 != 0 {
		return "", errors.New("odd-length BMP string")
	}

	// Strip terminator if present.
	if l := len(bmpString); l >= 2 && bmpString[l-1] == 0 && bmpString[l-2] == 0 {
		bmpString = bmpString[:l-2]
	}

	s := make([]uint16, 0, len(bmpString)/2)
	for len(bmpString) > 0 {
		s = append(s, uint16(bmpString[0])<<8+uint16(bmpString[1]))
		bmpString = bmpString[2:]
	}

	return string(utf16.Decode(s)), nil
}
