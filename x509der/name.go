package x509der

import (
	"bytes"
	encoding_asn1 "encoding/asn1"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/crypto/cryptobyte"
	"golang.org/x/crypto/cryptobyte/asn1"

	"github.com/certwire/certwire/oiddb"
)

//	Name ::= CHOICE { rdnSequence RDNSequence }
//	RDNSequence ::= SEQUENCE OF RelativeDistinguishedName
//
// The order of RDNs in the sequence is meaningful and preserved in
// both directions. The order of attributes inside one RDN set is
// preserved on decode but rewritten to canonical byte order on encode,
// since DER sorts SET OF members by their encoded octets.
type Name []RelativeDistinguishedName

// RelativeDistinguishedName ::= SET SIZE (1..MAX) OF AttributeTypeAndValue
type RelativeDistinguishedName []AttributeTypeAndValue

//	AttributeTypeAndValue ::= SEQUENCE {
//	  type     AttributeType,
//	  value    AttributeValue }
//
// The value is kept as its raw element so unknown attribute syntaxes
// round-trip byte for byte.
type AttributeTypeAndValue struct {
	Type  encoding_asn1.ObjectIdentifier
	Value RawValue
}

func ParseName(der *cryptobyte.String) (Name, error) {
	entry := len(*der)
	var rdnSequence cryptobyte.String
	if !der.ReadASN1(&rdnSequence, asn1.SEQUENCE) {
		return nil, decodeErr("rdnSequence", *der, asn1.SEQUENCE, entry)
	}
	inner := len(rdnSequence)

	var name Name
	for !rdnSequence.Empty() {
		var set cryptobyte.String
		if !rdnSequence.ReadASN1(&set, asn1.SET) {
			return nil, decodeErr("relativeDistinguishedName", rdnSequence, asn1.SET, inner)
		}
		if set.Empty() {
			return nil, &DecodeError{
				Kind:   InvalidPrimitiveValue,
				Field:  "relativeDistinguishedName",
				Offset: inner - len(rdnSequence),
				Err:    errors.New("SET must hold at least one attribute"),
			}
		}
		var rdn RelativeDistinguishedName
		setEntry := len(set)
		for !set.Empty() {
			atv, err := parseAttributeTypeAndValue(&set, setEntry)
			if err != nil {
				return nil, fmt.Errorf("parsing rdn %d attribute %d: %w", len(name), len(rdn), err)
			}
			rdn = append(rdn, atv)
		}
		name = append(name, rdn)
	}
	return name, nil
}

func parseAttributeTypeAndValue(der *cryptobyte.String, entry int) (AttributeTypeAndValue, error) {
	var atv cryptobyte.String
	if !der.ReadASN1(&atv, asn1.SEQUENCE) {
		return AttributeTypeAndValue{}, decodeErr("attributeTypeAndValue", *der, asn1.SEQUENCE, entry)
	}
	inner := len(atv)

	var oid encoding_asn1.ObjectIdentifier
	if !atv.ReadASN1ObjectIdentifier(&oid) {
		return AttributeTypeAndValue{}, decodeErr("type", atv, asn1.OBJECT_IDENTIFIER, inner)
	}

	value, err := parseRawValue(&atv, "value", inner)
	if err != nil {
		return AttributeTypeAndValue{}, err
	}
	if !atv.Empty() {
		return AttributeTypeAndValue{}, trailingErr("attributeTypeAndValue", atv, inner)
	}

	return AttributeTypeAndValue{Type: oid, Value: value}, nil
}

// Marshal returns the canonical DER encoding of the name. RDN sets are
// re-sorted by encoded octets even when the in-memory order came from
// a non-canonical producer, so decode-then-encode always yields valid
// DER.
func (n Name) Marshal() ([]byte, error) {
	var b cryptobyte.Builder
	n.marshal(&b)
	return builderBytes(&b, "rdnSequence")
}

func (n Name) marshal(b *cryptobyte.Builder) {
	b.AddASN1(asn1.SEQUENCE, func(b *cryptobyte.Builder) {
		for _, rdn := range n {
			rdn.marshal(b)
		}
	})
}

func (rdn RelativeDistinguishedName) marshal(b *cryptobyte.Builder) {
	if len(rdn) == 0 {
		b.SetError(&EncodeError{Field: "relativeDistinguishedName", Reason: "empty SET"})
		return
	}
	encoded := make([][]byte, 0, len(rdn))
	for _, atv := range rdn {
		var ab cryptobyte.Builder
		atv.marshal(&ab)
		enc, err := ab.Bytes()
		if err != nil {
			b.SetError(err)
			return
		}
		encoded = append(encoded, enc)
	}
	sort.Slice(encoded, func(i, j int) bool {
		return bytes.Compare(encoded[i], encoded[j]) < 0
	})
	b.AddASN1(asn1.SET, func(b *cryptobyte.Builder) {
		for _, enc := range encoded {
			b.AddBytes(enc)
		}
	})
}

func (atv AttributeTypeAndValue) marshal(b *cryptobyte.Builder) {
	b.AddASN1(asn1.SEQUENCE, func(b *cryptobyte.Builder) {
		addObjectIdentifier(b, "attribute type", atv.Type)
		atv.Value.marshal(b, "attribute value")
	})
}

// Equal reports whether both names have identical canonical encodings.
// Comparison is deliberately byte-based: comparing decoded strings
// would reopen Unicode normalization ambiguities.
func (n Name) Equal(other Name) bool {
	a, err := n.Marshal()
	if err != nil {
		return false
	}
	b, err := other.Marshal()
	if err != nil {
		return false
	}
	return bytes.Equal(a, b)
}

// String renders the name RFC 4514 style for diagnostics: RDNs joined
// with ',', members of one multi-valued RDN joined with '+'. Special
// characters are not escaped, so the output is not parseable.
func (n Name) String() string {
	var ret strings.Builder
	for i, rdn := range n {
		if i > 0 {
			ret.WriteRune(',')
		}
		for j, atv := range rdn {
			if j > 0 {
				ret.WriteRune('+')
			}
			ret.WriteString(atv.String())
		}
	}
	return ret.String()
}

// String renders the attribute as name=value. Values that are not
// character strings are shown as tag:hex.
func (atv AttributeTypeAndValue) String() string {
	name := oiddb.AttributeName(atv.Type)
	if s, err := atv.Text(); err == nil {
		return name + "=" + s
	}
	return fmt.Sprintf("%s=%d:%s", name, atv.Value.Tag, hex.EncodeToString(atv.Value.Full))
}

// Text decodes the attribute value as a character string.
func (atv AttributeTypeAndValue) Text() (string, error) {
	rest := cryptobyte.String(atv.Value.Full)
	var content cryptobyte.String
	var tag asn1.Tag
	if !rest.ReadAnyASN1(&content, &tag) {
		return "", errors.New("attribute value is not a DER element")
	}
	return parseString(tag, content)
}

// NameBuilder assembles a Name attribute by attribute. Consecutive
// attributes join the current RDN, which is how multi-valued RDNs are
// built; EndRDN closes the set so the next attribute starts a new one.
type NameBuilder struct {
	name Name
	cur  RelativeDistinguishedName
}

// AddAttribute appends an attribute with an already-encoded DER value
// to the current RDN.
func (nb *NameBuilder) AddAttribute(typ encoding_asn1.ObjectIdentifier, value RawValue) *NameBuilder {
	nb.cur = append(nb.cur, AttributeTypeAndValue{Type: typ, Value: value})
	return nb
}

// AddText appends an attribute carrying value as a UTF8String.
func (nb *NameBuilder) AddText(typ encoding_asn1.ObjectIdentifier, value string) *NameBuilder {
	return nb.AddAttribute(typ, NewStringValue(asn1.UTF8String, value))
}

// EndRDN closes the current attribute set. Calling it with no pending
// attributes is a no-op.
func (nb *NameBuilder) EndRDN() *NameBuilder {
	if len(nb.cur) > 0 {
		nb.name = append(nb.name, nb.cur)
		nb.cur = nil
	}
	return nb
}

// Build closes any open RDN and returns the assembled name.
func (nb *NameBuilder) Build() Name {
	nb.EndRDN()
	return nb.name
}
