// Package x509der encodes and decodes the RFC 5280 Certificate
// structure using strict DER.
//
// Decoding is a single-pass recursive descent: a call returns either a
// complete, structurally valid value or a *DecodeError, never a
// partial result. Indefinite lengths, non-minimal length octets and
// non-minimal INTEGER encodings are all rejected. Encoding always
// produces canonical DER: definite minimal lengths, DEFAULT fields
// omitted, RDN sets sorted by their encoded octets.
//
// Decoded values borrow from the input buffer instead of copying.
// Serial numbers, algorithm parameters, attribute values, extension
// values and BIT STRING payloads all alias the bytes given to
// ParseCertificate and stay valid only as long as that buffer does.
// Callers that outlive the buffer must copy what they keep.
//
// The package maps between bytes and structure and nothing more: it
// does not interpret public keys, verify signatures, or evaluate
// extension semantics.
package x509der

import (
	encoding_asn1 "encoding/asn1"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"

	"golang.org/x/crypto/cryptobyte"
	"golang.org/x/crypto/cryptobyte/asn1"
)

//	Certificate  ::=  SEQUENCE  {
//	  tbsCertificate     TBSCertificate,
//	  signatureAlgorithm AlgorithmIdentifier,
//	  signatureValue     BIT STRING  }
//
// SignatureAlgorithm is expected by RFC 5280 to equal
// TBSCertificate.Signature, but deployed certificates violate that, so
// both are exposed and neither is checked against the other here.
type Certificate struct {
	TBSCertificate     TBSCertificate
	SignatureAlgorithm AlgorithmIdentifier
	SignatureValue     encoding_asn1.BitString
}

// ParseCertificate decodes exactly one DER-encoded Certificate from
// input. The returned value aliases input; see the package comment for
// the ownership rules. Bytes after the certificate are an error, so
// callers framing certificates out of a larger stream must pass a
// buffer holding a single certificate.
func ParseCertificate(input []byte) (*Certificate, error) {
	der := cryptobyte.String(input)
	entry := len(der)

	var certificate cryptobyte.String
	if !der.ReadASN1(&certificate, asn1.SEQUENCE) {
		return nil, decodeErr("certificate", der, asn1.SEQUENCE, entry)
	}
	if !der.Empty() {
		return nil, trailingErr("certificate", der, entry)
	}
	inner := len(certificate)

	tbsCertificate, err := ParseTBSCertificate(&certificate)
	if err != nil {
		return nil, fmt.Errorf("parsing tbsCertificate: %w", err)
	}

	signatureAlgorithm, err := ParseAlgorithmIdentifier(&certificate)
	if err != nil {
		return nil, fmt.Errorf("parsing signatureAlgorithm: %w", err)
	}

	var signatureValue encoding_asn1.BitString
	if !certificate.ReadASN1BitString(&signatureValue) {
		return nil, decodeErr("signatureValue", certificate, asn1.BIT_STRING, inner)
	}

	if !certificate.Empty() {
		return nil, trailingErr("certificate", certificate, inner)
	}

	return &Certificate{
		TBSCertificate:     tbsCertificate,
		SignatureAlgorithm: signatureAlgorithm,
		SignatureValue:     signatureValue,
	}, nil
}

// Marshal serializes the certificate as canonical DER into a fresh
// buffer.
func (c *Certificate) Marshal() ([]byte, error) {
	var b cryptobyte.Builder
	b.AddASN1(asn1.SEQUENCE, func(b *cryptobyte.Builder) {
		c.TBSCertificate.marshal(b)
		c.SignatureAlgorithm.marshal(b)
		addBitString(b, "signatureValue", c.SignatureValue)
	})
	return builderBytes(&b, "certificate")
}

//	TBSCertificate  ::=  SEQUENCE  {
//	  version         [0]  EXPLICIT Version DEFAULT v1,
//	  serialNumber         CertificateSerialNumber,
//	  signature            AlgorithmIdentifier,
//	  issuer               Name,
//	  validity             Validity,
//	  subject              Name,
//	  subjectPublicKeyInfo SubjectPublicKeyInfo,
//	  issuerUniqueID  [1]  IMPLICIT UniqueIdentifier OPTIONAL,
//	  subjectUniqueID [2]  IMPLICIT UniqueIdentifier OPTIONAL,
//	  extensions      [3]  EXPLICIT Extensions OPTIONAL }
//
// A nil unique ID or nil Extensions means the field was absent. The
// version/field coupling RFC 5280 states (unique IDs need v2+,
// extensions need v3) is a profile rule, not a structural one, and is
// left to validation layers.
type TBSCertificate struct {
	Version              Version
	SerialNumber         SerialNumber
	Signature            AlgorithmIdentifier
	Issuer               Name
	Validity             Validity
	Subject              Name
	SubjectPublicKeyInfo SubjectPublicKeyInfo
	IssuerUniqueID       *encoding_asn1.BitString
	SubjectUniqueID      *encoding_asn1.BitString
	Extensions           Extensions
}

var tagVersion = asn1.Tag(0).Constructed().ContextSpecific()

func ParseTBSCertificate(der *cryptobyte.String) (TBSCertificate, error) {
	entry := len(*der)
	var tbs cryptobyte.String
	if !der.ReadASN1(&tbs, asn1.SEQUENCE) {
		return TBSCertificate{}, decodeErr("tbsCertificate", *der, asn1.SEQUENCE, entry)
	}
	inner := len(tbs)

	version, err := parseVersion(&tbs, inner)
	if err != nil {
		return TBSCertificate{}, err
	}

	// The serial is kept as raw content octets rather than read through
	// ReadASN1Integer, which refuses negative values. Deployed
	// certificates carry negative serials, so those must survive.
	var serialContent cryptobyte.String
	if !tbs.ReadASN1(&serialContent, asn1.INTEGER) {
		return TBSCertificate{}, decodeErr("serialNumber", tbs, asn1.INTEGER, inner)
	}
	if !minimalInteger(serialContent) {
		return TBSCertificate{}, &DecodeError{
			Kind:   InvalidPrimitiveValue,
			Field:  "serialNumber",
			Offset: inner - len(tbs),
		}
	}
	serialNumber := SerialNumber(serialContent)

	signature, err := ParseAlgorithmIdentifier(&tbs)
	if err != nil {
		return TBSCertificate{}, fmt.Errorf("parsing signature: %w", err)
	}

	issuer, err := ParseName(&tbs)
	if err != nil {
		return TBSCertificate{}, fmt.Errorf("parsing issuer: %w", err)
	}

	validity, err := ParseValidity(&tbs)
	if err != nil {
		return TBSCertificate{}, fmt.Errorf("parsing validity: %w", err)
	}

	subject, err := ParseName(&tbs)
	if err != nil {
		return TBSCertificate{}, fmt.Errorf("parsing subject: %w", err)
	}

	subjectPublicKeyInfo, err := ParseSubjectPublicKeyInfo(&tbs)
	if err != nil {
		return TBSCertificate{}, fmt.Errorf("parsing subjectPublicKeyInfo: %w", err)
	}

	issuerUniqueID, err := parseUniqueID(&tbs, 1, inner)
	if err != nil {
		return TBSCertificate{}, fmt.Errorf("parsing issuerUniqueID: %w", err)
	}

	subjectUniqueID, err := parseUniqueID(&tbs, 2, inner)
	if err != nil {
		return TBSCertificate{}, fmt.Errorf("parsing subjectUniqueID: %w", err)
	}

	extensions, err := ParseExtensions(&tbs)
	if err != nil {
		return TBSCertificate{}, fmt.Errorf("parsing extensions: %w", err)
	}

	if !tbs.Empty() {
		return TBSCertificate{}, trailingErr("tbsCertificate", tbs, inner)
	}

	return TBSCertificate{
		Version:              version,
		SerialNumber:         serialNumber,
		Signature:            signature,
		Issuer:               issuer,
		Validity:             validity,
		Subject:              subject,
		SubjectPublicKeyInfo: subjectPublicKeyInfo,
		IssuerUniqueID:       issuerUniqueID,
		SubjectUniqueID:      subjectUniqueID,
		Extensions:           extensions,
	}, nil
}

// Marshal serializes the to-be-signed body on its own, which is what a
// signer feeds to its hash.
func (tbs *TBSCertificate) Marshal() ([]byte, error) {
	var b cryptobyte.Builder
	tbs.marshal(&b)
	return builderBytes(&b, "tbsCertificate")
}

func (tbs *TBSCertificate) marshal(b *cryptobyte.Builder) {
	b.AddASN1(asn1.SEQUENCE, func(b *cryptobyte.Builder) {
		// DEFAULT v1 must be omitted entirely; DER forbids encoding a
		// field equal to its default.
		if tbs.Version != V1 {
			if tbs.Version < V1 || tbs.Version > V3 {
				b.SetError(&EncodeError{Field: "version", Reason: tbs.Version.String()})
				return
			}
			b.AddASN1(tagVersion, func(b *cryptobyte.Builder) {
				b.AddASN1Int64(int64(tbs.Version))
			})
		}
		tbs.SerialNumber.marshal(b)
		tbs.Signature.marshal(b)
		tbs.Issuer.marshal(b)
		tbs.Validity.marshal(b)
		tbs.Subject.marshal(b)
		tbs.SubjectPublicKeyInfo.marshal(b)
		if tbs.IssuerUniqueID != nil {
			addBitStringWithTag(b, "issuerUniqueID", *tbs.IssuerUniqueID, asn1.Tag(1).ContextSpecific())
		}
		if tbs.SubjectUniqueID != nil {
			addBitStringWithTag(b, "subjectUniqueID", *tbs.SubjectUniqueID, asn1.Tag(2).ContextSpecific())
		}
		tbs.Extensions.marshal(b)
	})
}

// Version ::= INTEGER { v1(0), v2(1), v3(2) }
type Version int

const (
	V1 Version = iota
	V2
	V3
)

func (v Version) String() string {
	if v < V1 || v > V3 {
		return fmt.Sprintf("unknown(%d)", int(v))
	}
	return fmt.Sprintf("v%d(%d)", int(v)+1, int(v))
}

// parseVersion reads the optional [0] EXPLICIT version, substituting
// v1 when the field is absent.
func parseVersion(der *cryptobyte.String, entry int) (Version, error) {
	var wrapper cryptobyte.String
	var present bool
	if !der.ReadOptionalASN1(&wrapper, &present, tagVersion) {
		return 0, decodeErr("version", *der, tagVersion, entry)
	}
	if !present {
		return V1, nil
	}
	inner := len(wrapper)
	var v int64
	if !wrapper.ReadASN1Integer(&v) {
		return 0, decodeErr("version", wrapper, asn1.INTEGER, inner)
	}
	if !wrapper.Empty() {
		return 0, trailingErr("version", wrapper, inner)
	}
	if v < int64(V1) || v > int64(V3) {
		return 0, &DecodeError{
			Kind:  InvalidPrimitiveValue,
			Field: "version",
			Err:   fmt.Errorf("INTEGER %d is not a known version", v),
		}
	}
	return Version(v), nil
}

// SerialNumber holds the raw minimal two's-complement octets of the
// CertificateSerialNumber INTEGER, aliasing the decode input. RFC 5280
// wants serials positive and at most 20 octets, but deployed
// certificates violate both, so neither is enforced on decode.
type SerialNumber []byte

// NewSerialNumber returns the minimal INTEGER octets for v.
func NewSerialNumber(v *big.Int) SerialNumber {
	var b cryptobyte.Builder
	b.AddASN1BigInt(v)
	out, err := b.Bytes()
	if err != nil {
		return nil
	}
	der := cryptobyte.String(out)
	var content cryptobyte.String
	if !der.ReadASN1(&content, asn1.INTEGER) {
		return nil
	}
	return SerialNumber(content)
}

// Int returns the serial as a big integer.
func (s SerialNumber) Int() *big.Int {
	v := new(big.Int)
	if len(s) > 0 && s[0]&0x80 != 0 {
		inverted := make([]byte, len(s))
		for i, octet := range s {
			inverted[i] = ^octet
		}
		v.SetBytes(inverted)
		v.Add(v, big.NewInt(1))
		return v.Neg(v)
	}
	return v.SetBytes(s)
}

func (s SerialNumber) String() string {
	return hex.EncodeToString(s)
}

// minimalInteger reports whether content is a valid minimal
// two's-complement INTEGER encoding.
func minimalInteger(content []byte) bool {
	if len(content) == 0 {
		return false
	}
	if len(content) == 1 {
		return true
	}
	return !(content[0] == 0x00 && content[1]&0x80 == 0) &&
		!(content[0] == 0xff && content[1]&0x80 != 0)
}

func (s SerialNumber) marshal(b *cryptobyte.Builder) {
	if !minimalInteger(s) {
		b.SetError(&EncodeError{Field: "serialNumber", Reason: "not a minimal INTEGER"})
		return
	}
	b.AddASN1(asn1.INTEGER, func(b *cryptobyte.Builder) {
		b.AddBytes(s)
	})
}

// UniqueIdentifier ::= BIT STRING, carried as [n] IMPLICIT, so the
// context tag is primitive and its content follows the BIT STRING
// content rules directly.
func parseUniqueID(der *cryptobyte.String, num uint8, entry int) (*encoding_asn1.BitString, error) {
	tag := asn1.Tag(num).ContextSpecific()
	var content cryptobyte.String
	var present bool
	if !der.ReadOptionalASN1(&content, &present, tag) {
		return nil, decodeErr("uniqueIdentifier", *der, tag, entry)
	}
	if !present {
		return nil, nil
	}
	bits, ok := parseBitStringContent(content)
	if !ok {
		return nil, &DecodeError{
			Kind:   InvalidPrimitiveValue,
			Field:  "uniqueIdentifier",
			Offset: entry - len(*der),
		}
	}
	return &bits, nil
}

// parseBitStringContent applies the BIT STRING content rules to bytes
// already stripped of their tag and length.
func parseBitStringContent(content cryptobyte.String) (encoding_asn1.BitString, bool) {
	if len(content) == 0 {
		return encoding_asn1.BitString{}, false
	}
	padding := content[0]
	payload := []byte(content[1:])
	if padding > 7 ||
		(len(payload) == 0 && padding != 0) ||
		(len(payload) > 0 && payload[len(payload)-1]&(1<<padding-1) != 0) {
		return encoding_asn1.BitString{}, false
	}
	return encoding_asn1.BitString{
		Bytes:     payload,
		BitLength: len(payload)*8 - int(padding),
	}, true
}

func addBitString(b *cryptobyte.Builder, field string, bits encoding_asn1.BitString) {
	addBitStringWithTag(b, field, bits, asn1.BIT_STRING)
}

func addBitStringWithTag(b *cryptobyte.Builder, field string, bits encoding_asn1.BitString, tag asn1.Tag) {
	padding := len(bits.Bytes)*8 - bits.BitLength
	if padding < 0 || padding > 7 || (len(bits.Bytes) == 0 && padding != 0) {
		b.SetError(&EncodeError{Field: field, Reason: "bit length does not fit the payload"})
		return
	}
	if len(bits.Bytes) > 0 && padding > 0 && bits.Bytes[len(bits.Bytes)-1]&(1<<uint(padding)-1) != 0 {
		b.SetError(&EncodeError{Field: field, Reason: "unused bits are set"})
		return
	}
	b.AddASN1(tag, func(b *cryptobyte.Builder) {
		b.AddUint8(uint8(padding))
		b.AddBytes(bits.Bytes)
	})
}

// addObjectIdentifier validates oid before handing it to the builder
// so an invalid arc surfaces as an EncodeError.
func addObjectIdentifier(b *cryptobyte.Builder, field string, oid encoding_asn1.ObjectIdentifier) {
	valid := len(oid) >= 2 && oid[0] >= 0 && oid[0] <= 2 && (oid[0] == 2 || oid[1] < 40)
	for _, arc := range oid {
		if arc < 0 {
			valid = false
		}
	}
	if !valid {
		b.SetError(&EncodeError{Field: field, Reason: "invalid object identifier"})
		return
	}
	b.AddASN1ObjectIdentifier(oid)
}

// builderBytes finishes a build, folding any failure the builder
// produced on its own (bad OID arcs, out-of-range times) into the
// EncodeError type.
func builderBytes(b *cryptobyte.Builder, field string) ([]byte, error) {
	out, err := b.Bytes()
	if err == nil {
		return out, nil
	}
	var encodeErr *EncodeError
	if errors.As(err, &encodeErr) {
		return nil, err
	}
	return nil, &EncodeError{Field: field, Reason: err.Error()}
}
