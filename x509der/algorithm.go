package x509der

import (
	encoding_asn1 "encoding/asn1"
	"fmt"

	"golang.org/x/crypto/cryptobyte"
	"golang.org/x/crypto/cryptobyte/asn1"

	"github.com/certwire/certwire/oiddb"
)

// RawValue carries one DER element without decoding it. Full is the
// complete tag-length-value encoding, aliasing the buffer it was
// decoded from.
type RawValue struct {
	Tag  asn1.Tag
	Full []byte
}

func parseRawValue(der *cryptobyte.String, field string, entry int) (RawValue, error) {
	var full cryptobyte.String
	var tag asn1.Tag
	if !der.ReadAnyASN1Element(&full, &tag) {
		return RawValue{}, decodeErrAny(field, *der, entry)
	}
	return RawValue{Tag: tag, Full: full}, nil
}

// ParseRawValue reads the next element of any type without decoding
// its content.
func ParseRawValue(der *cryptobyte.String) (RawValue, error) {
	return parseRawValue(der, "rawValue", len(*der))
}

// Marshal returns the element bytes after checking that Full holds
// exactly one well-formed element matching Tag.
func (v RawValue) Marshal() ([]byte, error) {
	var b cryptobyte.Builder
	v.marshal(&b, "rawValue")
	return builderBytes(&b, "rawValue")
}

func (v RawValue) marshal(b *cryptobyte.Builder, field string) {
	rest := cryptobyte.String(v.Full)
	var element cryptobyte.String
	var tag asn1.Tag
	if !rest.ReadAnyASN1Element(&element, &tag) || !rest.Empty() || tag != v.Tag {
		b.SetError(&EncodeError{Field: field, Reason: "not a single DER element"})
		return
	}
	b.AddBytes(v.Full)
}

//	AlgorithmIdentifier  ::=  SEQUENCE  {
//	    algorithm               OBJECT IDENTIFIER,
//	    parameters              ANY DEFINED BY algorithm OPTIONAL  }
//
// Parameters is nil when the field is absent. The parameters' type
// depends on the algorithm OID, so they are carried opaquely here;
// ParameterRegistry is the hook for interpreting them.
type AlgorithmIdentifier struct {
	Algorithm  encoding_asn1.ObjectIdentifier
	Parameters *RawValue
}

func ParseAlgorithmIdentifier(der *cryptobyte.String) (AlgorithmIdentifier, error) {
	entry := len(*der)
	var algorithmIdentifier cryptobyte.String
	if !der.ReadASN1(&algorithmIdentifier, asn1.SEQUENCE) {
		return AlgorithmIdentifier{}, decodeErr("algorithmIdentifier", *der, asn1.SEQUENCE, entry)
	}
	inner := len(algorithmIdentifier)

	var oid encoding_asn1.ObjectIdentifier
	if !algorithmIdentifier.ReadASN1ObjectIdentifier(&oid) {
		return AlgorithmIdentifier{}, decodeErr("algorithm", algorithmIdentifier, asn1.OBJECT_IDENTIFIER, inner)
	}

	var parameters *RawValue
	if !algorithmIdentifier.Empty() {
		raw, err := parseRawValue(&algorithmIdentifier, "parameters", inner)
		if err != nil {
			return AlgorithmIdentifier{}, err
		}
		parameters = &raw
	}
	if !algorithmIdentifier.Empty() {
		return AlgorithmIdentifier{}, trailingErr("algorithmIdentifier", algorithmIdentifier, inner)
	}

	return AlgorithmIdentifier{
		Algorithm:  oid,
		Parameters: parameters,
	}, nil
}

// Marshal returns the canonical DER encoding.
func (ai AlgorithmIdentifier) Marshal() ([]byte, error) {
	var b cryptobyte.Builder
	ai.marshal(&b)
	return builderBytes(&b, "algorithmIdentifier")
}

func (ai AlgorithmIdentifier) marshal(b *cryptobyte.Builder) {
	b.AddASN1(asn1.SEQUENCE, func(b *cryptobyte.Builder) {
		addObjectIdentifier(b, "algorithm", ai.Algorithm)
		if ai.Parameters != nil {
			ai.Parameters.marshal(b, "parameters")
		}
	})
}

// String names the algorithm when its OID is well known. Display only.
func (ai AlgorithmIdentifier) String() string {
	return oiddb.Name(ai.Algorithm)
}

// ParameterDecoder interprets the parameters registered for one
// algorithm. The raw element still aliases the original input buffer.
type ParameterDecoder func(raw RawValue) (any, error)

// ParameterRegistry resolves the ANY DEFINED BY relationship between
// an algorithm OID and its parameter type. It lives outside the codec
// so new algorithms can be supported without touching it; the zero
// value is empty and usable.
//
// Register all decoders before sharing a registry across goroutines;
// lookups are read-only.
type ParameterRegistry struct {
	decoders map[string]ParameterDecoder
}

// Register installs fn as the decoder for oid, replacing any previous
// one.
func (r *ParameterRegistry) Register(oid encoding_asn1.ObjectIdentifier, fn ParameterDecoder) {
	if r.decoders == nil {
		r.decoders = make(map[string]ParameterDecoder)
	}
	r.decoders[oid.String()] = fn
}

// Decode interprets ai.Parameters with the decoder registered for
// ai.Algorithm. ok is false when the parameters are absent or no
// decoder is registered for the algorithm.
func (r *ParameterRegistry) Decode(ai AlgorithmIdentifier) (value any, ok bool, err error) {
	if r.decoders == nil || ai.Parameters == nil {
		return nil, false, nil
	}
	fn, ok := r.decoders[ai.Algorithm.String()]
	if !ok {
		return nil, false, nil
	}
	value, err = fn(*ai.Parameters)
	if err != nil {
		return nil, true, fmt.Errorf("decoding %s parameters: %w", oiddb.Name(ai.Algorithm), err)
	}
	return value, true, nil
}

//	SubjectPublicKeyInfo  ::=  SEQUENCE  {
//	    algorithm            AlgorithmIdentifier,
//	    subjectPublicKey     BIT STRING  }
//
// The key bits are carried opaquely; turning them into a typed public
// key belongs to whatever consumes this structure.
type SubjectPublicKeyInfo struct {
	Algorithm        AlgorithmIdentifier
	SubjectPublicKey encoding_asn1.BitString
}

func ParseSubjectPublicKeyInfo(der *cryptobyte.String) (SubjectPublicKeyInfo, error) {
	entry := len(*der)
	var subjectPublicKeyInfo cryptobyte.String
	if !der.ReadASN1(&subjectPublicKeyInfo, asn1.SEQUENCE) {
		return SubjectPublicKeyInfo{}, decodeErr("subjectPublicKeyInfo", *der, asn1.SEQUENCE, entry)
	}
	inner := len(subjectPublicKeyInfo)

	algorithm, err := ParseAlgorithmIdentifier(&subjectPublicKeyInfo)
	if err != nil {
		return SubjectPublicKeyInfo{}, fmt.Errorf("parsing algorithm: %w", err)
	}

	var subjectPublicKey encoding_asn1.BitString
	if !subjectPublicKeyInfo.ReadASN1BitString(&subjectPublicKey) {
		return SubjectPublicKeyInfo{}, decodeErr("subjectPublicKey", subjectPublicKeyInfo, asn1.BIT_STRING, inner)
	}

	if !subjectPublicKeyInfo.Empty() {
		return SubjectPublicKeyInfo{}, trailingErr("subjectPublicKeyInfo", subjectPublicKeyInfo, inner)
	}

	return SubjectPublicKeyInfo{
		Algorithm:        algorithm,
		SubjectPublicKey: subjectPublicKey,
	}, nil
}

// Marshal returns the canonical DER encoding.
func (spki SubjectPublicKeyInfo) Marshal() ([]byte, error) {
	var b cryptobyte.Builder
	spki.marshal(&b)
	return builderBytes(&b, "subjectPublicKeyInfo")
}

func (spki SubjectPublicKeyInfo) marshal(b *cryptobyte.Builder) {
	b.AddASN1(asn1.SEQUENCE, func(b *cryptobyte.Builder) {
		spki.Algorithm.marshal(b)
		addBitString(b, "subjectPublicKey", spki.SubjectPublicKey)
	})
}
