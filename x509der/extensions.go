package x509der

import (
	encoding_asn1 "encoding/asn1"
	"errors"

	"golang.org/x/crypto/cryptobyte"
	"golang.org/x/crypto/cryptobyte/asn1"
)

// Extensions  ::=  SEQUENCE SIZE (1..MAX) OF Extension
//
// A nil Extensions means the certificate carried no extensions field
// at all. Order is significant and preserved exactly in both
// directions.
type Extensions []Extension

//	Extension  ::=  SEQUENCE  {
//	    extnID      OBJECT IDENTIFIER,
//	    critical    BOOLEAN DEFAULT FALSE,
//	    extnValue   OCTET STRING
//	                -- contains the DER encoding of an ASN.1 value
//	                -- corresponding to the extension type identified
//	                -- by extnID
//	    }
//
// Value carries the raw extnValue octets without interpretation,
// aliasing the decode input. Rejecting unrecognized critical
// extensions is the consumer's job; this layer has no notion of which
// extensions are recognized.
type Extension struct {
	ID       encoding_asn1.ObjectIdentifier
	Critical bool
	Value    []byte
}

var tagExtensions = asn1.Tag(3).Constructed().ContextSpecific()

// ParseExtensions reads the optional extensions [3] EXPLICIT field,
// returning nil when it is absent.
func ParseExtensions(der *cryptobyte.String) (Extensions, error) {
	entry := len(*der)
	var wrapper cryptobyte.String
	var present bool
	if !der.ReadOptionalASN1(&wrapper, &present, tagExtensions) {
		return nil, decodeErr("extensions", *der, tagExtensions, entry)
	}
	if !present {
		return nil, nil
	}
	inner := len(wrapper)

	extensions, err := ParseSequenceOf[Extension](&wrapper, asn1.SEQUENCE)
	if err != nil {
		return nil, err
	}
	if !wrapper.Empty() {
		return nil, trailingErr("extensions", wrapper, inner)
	}
	if len(extensions) == 0 {
		return nil, &DecodeError{
			Kind:  InvalidPrimitiveValue,
			Field: "extensions",
			Err:   errors.New("SEQUENCE must hold at least one extension"),
		}
	}
	return extensions, nil
}

func (e *Extension) Parse(der *cryptobyte.String) error {
	entry := len(*der)
	var extension cryptobyte.String
	if !der.ReadASN1(&extension, asn1.SEQUENCE) {
		return decodeErr("extension", *der, asn1.SEQUENCE, entry)
	}
	inner := len(extension)

	var id encoding_asn1.ObjectIdentifier
	if !extension.ReadASN1ObjectIdentifier(&id) {
		return decodeErr("extnID", extension, asn1.OBJECT_IDENTIFIER, inner)
	}

	// Absent BOOLEAN means DEFAULT FALSE.
	critical := false
	if extension.PeekASN1Tag(asn1.BOOLEAN) {
		if !extension.ReadASN1Boolean(&critical) {
			return decodeErr("critical", extension, asn1.BOOLEAN, inner)
		}
	}

	var value cryptobyte.String
	if !extension.ReadASN1(&value, asn1.OCTET_STRING) {
		return decodeErr("extnValue", extension, asn1.OCTET_STRING, inner)
	}

	if !extension.Empty() {
		return trailingErr("extension", extension, inner)
	}

	e.ID = id
	e.Critical = critical
	e.Value = value
	return nil
}

// Marshal returns the [3] EXPLICIT wrapper plus the extension
// sequence, the exact bytes that sit at the tail of a TBSCertificate.
func (exts Extensions) Marshal() ([]byte, error) {
	var b cryptobyte.Builder
	exts.marshal(&b)
	return builderBytes(&b, "extensions")
}

func (exts Extensions) marshal(b *cryptobyte.Builder) {
	if exts == nil {
		return
	}
	if len(exts) == 0 {
		b.SetError(&EncodeError{Field: "extensions", Reason: "empty SEQUENCE"})
		return
	}
	b.AddASN1(tagExtensions, func(b *cryptobyte.Builder) {
		b.AddASN1(asn1.SEQUENCE, func(b *cryptobyte.Builder) {
			for _, e := range exts {
				e.marshal(b)
			}
		})
	})
}

func (e Extension) marshal(b *cryptobyte.Builder) {
	b.AddASN1(asn1.SEQUENCE, func(b *cryptobyte.Builder) {
		addObjectIdentifier(b, "extnID", e.ID)
		// DEFAULT FALSE is omitted, as DER requires.
		if e.Critical {
			b.AddASN1Boolean(true)
		}
		b.AddASN1OctetString(e.Value)
	})
}

// Find returns the first extension whose OID equals oid. Extensions
// are not required to be unique per OID at this layer; callers that
// care about duplicates detect them themselves.
func (exts Extensions) Find(oid encoding_asn1.ObjectIdentifier) (Extension, bool) {
	for _, e := range exts {
		if e.ID.Equal(oid) {
			return e, true
		}
	}
	return Extension{}, false
}
