package x509der

import (
	"fmt"
	"time"

	"golang.org/x/crypto/cryptobyte"
	"golang.org/x/crypto/cryptobyte/asn1"
)

//	Time ::= CHOICE {
//	  utcTime        UTCTime,
//	  generalTime    GeneralizedTime }
//
// Tag records which alternative the value was decoded from. Marshal
// ignores it and picks the alternative RFC 5280 §4.1.2.5 mandates for
// the year, so re-encoding a value that arrived in the wrong form
// flips it to the canonical one.
type Time struct {
	Tag  asn1.Tag
	Time time.Time
}

// NewTime returns t in UTC with the wire representation RFC 5280
// selects for its year: UTCTime for 1950 through 2049, GeneralizedTime
// for everything else.
func NewTime(t time.Time) Time {
	t = t.UTC()
	return Time{Tag: timeTag(t), Time: t}
}

func timeTag(t time.Time) asn1.Tag {
	if t.Year() >= 1950 && t.Year() < 2050 {
		return asn1.UTCTime
	}
	return asn1.GeneralizedTime
}

// strictTimestamp reports whether content is exactly n digit octets
// terminated by Z, the only form DER permits for time values.
// cryptobyte also accepts the minutes-only and zone-offset forms BER
// allows, so this check runs before handing it the element.
func strictTimestamp(content []byte, n int) bool {
	if len(content) != n || content[n-1] != 'Z' {
		return false
	}
	for _, c := range content[:n-1] {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// timeContent returns the content octets of the element at the front
// of der without consuming it.
func timeContent(der cryptobyte.String, tag asn1.Tag) ([]byte, bool) {
	var content cryptobyte.String
	if !der.ReadASN1(&content, tag) {
		return nil, false
	}
	return content, true
}

// ParseTime tries each CHOICE alternative in grammar order; the first
// tag match wins. UTCTime years map into 1950–2049. Only the
// seconds-precision Zulu forms are accepted (YYMMDDHHMMSSZ and
// YYYYMMDDHHMMSSZ).
func ParseTime(der *cryptobyte.String) (Time, error) {
	entry := len(*der)
	var t time.Time
	switch {
	case der.PeekASN1Tag(asn1.UTCTime):
		content, ok := timeContent(*der, asn1.UTCTime)
		if !ok || !strictTimestamp(content, 13) || !der.ReadASN1UTCTime(&t) {
			return Time{}, decodeErr("utcTime", *der, asn1.UTCTime, entry)
		}
		return Time{Tag: asn1.UTCTime, Time: t}, nil
	case der.PeekASN1Tag(asn1.GeneralizedTime):
		content, ok := timeContent(*der, asn1.GeneralizedTime)
		if !ok || !strictTimestamp(content, 15) || !der.ReadASN1GeneralizedTime(&t) {
			return Time{}, decodeErr("generalTime", *der, asn1.GeneralizedTime, entry)
		}
		return Time{Tag: asn1.GeneralizedTime, Time: t}, nil
	}
	kind := UnexpectedTag
	if len(*der) == 0 {
		kind = MissingRequiredField
	}
	return Time{}, &DecodeError{Kind: kind, Field: "time"}
}

// Marshal returns the canonical DER encoding.
func (t Time) Marshal() ([]byte, error) {
	var b cryptobyte.Builder
	t.marshal(&b)
	return builderBytes(&b, "time")
}

func (t Time) marshal(b *cryptobyte.Builder) {
	u := t.Time.UTC()
	if timeTag(u) == asn1.UTCTime {
		b.AddASN1UTCTime(u)
		return
	}
	b.AddASN1GeneralizedTime(u)
}

//	Validity ::= SEQUENCE {
//	  notBefore      Time,
//	  notAfter       Time }
//
// notBefore <= notAfter is a validation concern and is not checked at
// this layer.
type Validity struct {
	NotBefore Time
	NotAfter  Time
}

func ParseValidity(der *cryptobyte.String) (Validity, error) {
	entry := len(*der)
	var validity cryptobyte.String
	if !der.ReadASN1(&validity, asn1.SEQUENCE) {
		return Validity{}, decodeErr("validity", *der, asn1.SEQUENCE, entry)
	}
	inner := len(validity)

	notBefore, err := ParseTime(&validity)
	if err != nil {
		return Validity{}, fmt.Errorf("parsing notBefore: %w", err)
	}

	notAfter, err := ParseTime(&validity)
	if err != nil {
		return Validity{}, fmt.Errorf("parsing notAfter: %w", err)
	}

	if !validity.Empty() {
		return Validity{}, trailingErr("validity", validity, inner)
	}

	return Validity{
		NotBefore: notBefore,
		NotAfter:  notAfter,
	}, nil
}

// Marshal returns the canonical DER encoding.
func (v Validity) Marshal() ([]byte, error) {
	var b cryptobyte.Builder
	v.marshal(&b)
	return builderBytes(&b, "validity")
}

func (v Validity) marshal(b *cryptobyte.Builder) {
	b.AddASN1(asn1.SEQUENCE, func(b *cryptobyte.Builder) {
		v.NotBefore.marshal(b)
		v.NotAfter.marshal(b)
	})
}
