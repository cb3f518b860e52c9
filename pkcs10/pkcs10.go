// Package pkcs10 encodes and decodes the RFC 2986
// CertificationRequestInfo structure using strict DER.
//
// The same rules as package x509der apply: decoding is all-or-nothing,
// encoding is canonical, and decoded values alias the input buffer.
package pkcs10

import (
	"bytes"
	encoding_asn1 "encoding/asn1"
	"errors"
	"fmt"
	"sort"

	"golang.org/x/crypto/cryptobyte"
	"golang.org/x/crypto/cryptobyte/asn1"

	"github.com/certwire/certwire/x509der"
)

//	CertificationRequestInfo ::= SEQUENCE {
//	    version       INTEGER { v1(0) } (v1,...),
//	    subject       Name,
//	    subjectPKInfo SubjectPublicKeyInfo{{ PKInfoAlgorithms }},
//	    attributes    [0] Attributes{{ CRIAttributes }} }
//
// Unlike the certificate version, this one is always encoded; it has
// no DEFAULT. The attributes field is mandatory too, even when the set
// is empty.
type CertificationRequestInfo struct {
	Version              Version
	Subject              x509der.Name
	SubjectPublicKeyInfo x509der.SubjectPublicKeyInfo
	Attributes           Attributes
}

// Version ::= INTEGER { v1(0) } (v1,...)
type Version int

const V1 Version = 0

func (v Version) String() string {
	if v != V1 {
		return fmt.Sprintf("unknown(%d)", int(v))
	}
	return "v1(0)"
}

var tagAttributes = asn1.Tag(0).Constructed().ContextSpecific()

// ParseCertificationRequestInfo decodes exactly one DER-encoded
// CertificationRequestInfo from input. The returned value aliases
// input.
func ParseCertificationRequestInfo(input []byte) (*CertificationRequestInfo, error) {
	der := cryptobyte.String(input)
	entry := len(der)

	var info cryptobyte.String
	if !der.ReadASN1(&info, asn1.SEQUENCE) {
		return nil, x509der.NewDecodeError("certificationRequestInfo", der, asn1.SEQUENCE, entry)
	}
	if !der.Empty() {
		return nil, x509der.NewTrailingError("certificationRequestInfo", der, entry)
	}
	inner := len(info)

	version, err := parseVersion(&info, inner)
	if err != nil {
		return nil, err
	}

	subject, err := x509der.ParseName(&info)
	if err != nil {
		return nil, fmt.Errorf("parsing subject: %w", err)
	}

	subjectPublicKeyInfo, err := x509der.ParseSubjectPublicKeyInfo(&info)
	if err != nil {
		return nil, fmt.Errorf("parsing subjectPKInfo: %w", err)
	}

	attributes, err := parseAttributes(&info, inner)
	if err != nil {
		return nil, fmt.Errorf("parsing attributes: %w", err)
	}

	if !info.Empty() {
		return nil, x509der.NewTrailingError("certificationRequestInfo", info, inner)
	}

	return &CertificationRequestInfo{
		Version:              version,
		Subject:              subject,
		SubjectPublicKeyInfo: subjectPublicKeyInfo,
		Attributes:           attributes,
	}, nil
}

func parseVersion(der *cryptobyte.String, entry int) (Version, error) {
	var v int64
	if !der.ReadASN1Integer(&v) {
		return 0, x509der.NewDecodeError("version", *der, asn1.INTEGER, entry)
	}
	if v != int64(V1) {
		return 0, &x509der.DecodeError{
			Kind:  x509der.InvalidPrimitiveValue,
			Field: "version",
			Err:   fmt.Errorf("INTEGER %d is not a known version", v),
		}
	}
	return V1, nil
}

// Marshal serializes the request body as canonical DER, which is what
// a requester signs.
func (cri *CertificationRequestInfo) Marshal() ([]byte, error) {
	var b cryptobyte.Builder
	b.AddASN1(asn1.SEQUENCE, func(b *cryptobyte.Builder) {
		if cri.Version != V1 {
			b.SetError(&x509der.EncodeError{Field: "version", Reason: cri.Version.String()})
			return
		}
		b.AddASN1Int64(int64(cri.Version))

		subject, err := cri.Subject.Marshal()
		if err != nil {
			b.SetError(err)
			return
		}
		b.AddBytes(subject)

		subjectPublicKeyInfo, err := cri.SubjectPublicKeyInfo.Marshal()
		if err != nil {
			b.SetError(err)
			return
		}
		b.AddBytes(subjectPublicKeyInfo)

		cri.Attributes.marshal(b)
	})
	return builderBytes(&b, "certificationRequestInfo")
}

// Attributes ::= SET OF Attribute, carried as [0] IMPLICIT. The set
// may be empty; encode sorts members by their encoded octets as DER
// requires, decode preserves the order it saw.
type Attributes []Attribute

func parseAttributes(der *cryptobyte.String, entry int) (Attributes, error) {
	if !der.PeekASN1Tag(tagAttributes) {
		return nil, x509der.NewDecodeError("attributes", *der, tagAttributes, entry)
	}
	attributes, err := x509der.ParseSequenceOf[Attribute](der, tagAttributes)
	if err != nil {
		return nil, err
	}
	return attributes, nil
}

func (attrs Attributes) marshal(b *cryptobyte.Builder) {
	encoded := make([][]byte, 0, len(attrs))
	for _, a := range attrs {
		var ab cryptobyte.Builder
		a.marshal(&ab)
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
	b.AddASN1(tagAttributes, func(b *cryptobyte.Builder) {
		for _, enc := range encoded {
			b.AddBytes(enc)
		}
	})
}

// Find returns the first attribute whose OID equals oid.
func (attrs Attributes) Find(oid encoding_asn1.ObjectIdentifier) (Attribute, bool) {
	for _, a := range attrs {
		if a.Type.Equal(oid) {
			return a, true
		}
	}
	return Attribute{}, false
}

//	Attribute { ATTRIBUTE:IOSet } ::= SEQUENCE {
//	    type   ATTRIBUTE.&id({IOSet}),
//	    values SET SIZE(1..MAX) OF ATTRIBUTE.&Type({IOSet}{@type}) }
//
// Values are raw elements: their type depends on the attribute OID and
// interpreting them is the caller's concern.
type Attribute struct {
	Type   encoding_asn1.ObjectIdentifier
	Values []x509der.RawValue
}

func (a *Attribute) Parse(der *cryptobyte.String) error {
	entry := len(*der)
	var attribute cryptobyte.String
	if !der.ReadASN1(&attribute, asn1.SEQUENCE) {
		return x509der.NewDecodeError("attribute", *der, asn1.SEQUENCE, entry)
	}
	inner := len(attribute)

	var oid encoding_asn1.ObjectIdentifier
	if !attribute.ReadASN1ObjectIdentifier(&oid) {
		return x509der.NewDecodeError("type", attribute, asn1.OBJECT_IDENTIFIER, inner)
	}

	var set cryptobyte.String
	if !attribute.ReadASN1(&set, asn1.SET) {
		return x509der.NewDecodeError("values", attribute, asn1.SET, inner)
	}
	if set.Empty() {
		return &x509der.DecodeError{
			Kind:   x509der.InvalidPrimitiveValue,
			Field:  "values",
			Offset: inner - len(attribute),
			Err:    errors.New("SET must hold at least one value"),
		}
	}
	var values []x509der.RawValue
	for !set.Empty() {
		value, err := x509der.ParseRawValue(&set)
		if err != nil {
			return fmt.Errorf("parsing value %d: %w", len(values), err)
		}
		values = append(values, value)
	}

	if !attribute.Empty() {
		return x509der.NewTrailingError("attribute", attribute, inner)
	}

	a.Type = oid
	a.Values = values
	return nil
}

func (a Attribute) marshal(b *cryptobyte.Builder) {
	b.AddASN1(asn1.SEQUENCE, func(b *cryptobyte.Builder) {
		b.AddASN1ObjectIdentifier(a.Type)
		if len(a.Values) == 0 {
			b.SetError(&x509der.EncodeError{Field: "values", Reason: "empty SET"})
			return
		}
		encoded := make([][]byte, 0, len(a.Values))
		for _, v := range a.Values {
			enc, err := v.Marshal()
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
	})
}

func builderBytes(b *cryptobyte.Builder, field string) ([]byte, error) {
	out, err := b.Bytes()
	if err == nil {
		return out, nil
	}
	var encodeErr *x509der.EncodeError
	if errors.As(err, &encodeErr) {
		return nil, err
	}
	return nil, &x509der.EncodeError{Field: field, Reason: err.Error()}
}
