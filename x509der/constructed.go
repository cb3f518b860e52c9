package x509der

import (
	"golang.org/x/crypto/cryptobyte"
	"golang.org/x/crypto/cryptobyte/asn1"
)

type Parsable[T any] interface {
	*T
	Parse(data *cryptobyte.String) error
}

// ParseSequenceOf parses an ASN.1 SEQUENCE OF T.
// Tag should usually be asn1.SEQUENCE, except when the sequence is
// implicitly tagged.
func ParseSequenceOf[T any, PT Parsable[T]](data *cryptobyte.String, tag asn1.Tag) ([]T, error) {
	entry := len(*data)
	var sequenceOf cryptobyte.String
	if !data.ReadASN1(&sequenceOf, tag) {
		return nil, decodeErr("sequenceOf", *data, tag, entry)
	}

	var ret []T
	for !sequenceOf.Empty() {
		var t T
		var pt PT = &t
		if err := pt.Parse(&sequenceOf); err != nil {
			return nil, err
		}
		ret = append(ret, t)
	}

	return ret, nil
}
