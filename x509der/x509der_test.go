package x509der_test

import (
	encoding_asn1 "encoding/asn1"
	"encoding/hex"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/cryptobyte"
	cbasn1 "golang.org/x/crypto/cryptobyte/asn1"

	"github.com/certwire/certwire/oiddb"
	"github.com/certwire/certwire/x509der"
)

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(strings.ReplaceAll(s, " ", ""))
	require.NoError(t, err)
	return b
}

func nullParams() *x509der.RawValue {
	return &x509der.RawValue{Tag: cbasn1.NULL, Full: []byte{0x05, 0x00}}
}

// minimalCertificate is a self-signed-shaped v1 certificate: RSA
// algorithm identifiers, a 20-octet serial, no unique IDs, no
// extensions. The key and signature bits are placeholders since this
// layer never interprets them.
func minimalCertificate(t *testing.T) *x509der.Certificate {
	t.Helper()

	name := (&x509der.NameBuilder{}).
		AddText(oiddb.AttributeOrganization, "Interop Test").EndRDN().
		AddText(oiddb.AttributeCommonName, "Interop Test Root").
		Build()

	serial := make(x509der.SerialNumber, 20)
	serial[0] = 0x01
	for i := 1; i < len(serial); i++ {
		serial[i] = byte(i)
	}

	signingAlg := x509der.AlgorithmIdentifier{
		Algorithm:  oiddb.SHA256WithRSA,
		Parameters: nullParams(),
	}

	return &x509der.Certificate{
		TBSCertificate: x509der.TBSCertificate{
			Version:      x509der.V1,
			SerialNumber: serial,
			Signature:    signingAlg,
			Issuer:       name,
			Validity: x509der.Validity{
				NotBefore: x509der.NewTime(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)),
				NotAfter:  x509der.NewTime(time.Date(2034, 1, 1, 0, 0, 0, 0, time.UTC)),
			},
			Subject: name,
			SubjectPublicKeyInfo: x509der.SubjectPublicKeyInfo{
				Algorithm: x509der.AlgorithmIdentifier{
					Algorithm:  oiddb.RSAEncryption,
					Parameters: nullParams(),
				},
				SubjectPublicKey: encoding_asn1.BitString{
					Bytes:     mustHex(t, "3009028200aa0203010001"),
					BitLength: 11 * 8,
				},
			},
		},
		SignatureAlgorithm: signingAlg,
		SignatureValue: encoding_asn1.BitString{
			Bytes:     mustHex(t, "deadbeefdeadbeef"),
			BitLength: 8 * 8,
		},
	}
}

func TestMinimalV1Certificate(t *testing.T) {
	cert := minimalCertificate(t)
	der, err := cert.Marshal()
	require.NoError(t, err)

	parsed, err := x509der.ParseCertificate(der)
	require.NoError(t, err)

	assert.Equal(t, x509der.V1, parsed.TBSCertificate.Version)
	assert.Nil(t, parsed.TBSCertificate.Extensions)
	assert.Nil(t, parsed.TBSCertificate.IssuerUniqueID)
	assert.Nil(t, parsed.TBSCertificate.SubjectUniqueID)
	assert.Len(t, parsed.TBSCertificate.SerialNumber, 20)
	assert.True(t, oiddb.RSAEncryption.Equal(parsed.TBSCertificate.SubjectPublicKeyInfo.Algorithm.Algorithm))
	assert.True(t, cert.TBSCertificate.Issuer.Equal(parsed.TBSCertificate.Issuer))
	assert.True(t, cert.TBSCertificate.Validity.NotBefore.Time.Equal(parsed.TBSCertificate.Validity.NotBefore.Time))
	assert.Equal(t, cert.SignatureValue, parsed.SignatureValue)
}

func TestCertificateRoundTripIsCanonical(t *testing.T) {
	cert := minimalCertificate(t)
	der, err := cert.Marshal()
	require.NoError(t, err)

	parsed, err := x509der.ParseCertificate(der)
	require.NoError(t, err)

	again, err := parsed.Marshal()
	require.NoError(t, err)
	assert.Equal(t, der, again, "decode then encode must reproduce canonical bytes")
}

func TestVersionDefaultOmitted(t *testing.T) {
	der, err := minimalCertificate(t).Marshal()
	require.NoError(t, err)

	s := cryptobyte.String(der)
	var cert cryptobyte.String
	require.True(t, s.ReadASN1(&cert, cbasn1.SEQUENCE))
	var tbs cryptobyte.String
	require.True(t, cert.ReadASN1(&tbs, cbasn1.SEQUENCE))
	require.NotEmpty(t, tbs)

	// With version at its default, the first element of the
	// TBSCertificate is the serialNumber INTEGER, not [0].
	assert.Equal(t, byte(0x02), tbs[0])
}

func TestV3CertificateRoundTrip(t *testing.T) {
	cert := minimalCertificate(t)
	cert.TBSCertificate.Version = x509der.V3
	cert.TBSCertificate.Extensions = x509der.Extensions{
		{ID: oiddb.ExtensionBasicConstraints, Critical: true, Value: mustHex(t, "3000")},
		{ID: oiddb.ExtensionSubjectKeyID, Value: mustHex(t, "0404deadbeef")},
	}
	cert.TBSCertificate.IssuerUniqueID = &encoding_asn1.BitString{
		Bytes:     []byte{0xa0},
		BitLength: 3,
	}

	der, err := cert.Marshal()
	require.NoError(t, err)

	s := cryptobyte.String(der)
	var rawCert cryptobyte.String
	require.True(t, s.ReadASN1(&rawCert, cbasn1.SEQUENCE))
	var tbs cryptobyte.String
	require.True(t, rawCert.ReadASN1(&tbs, cbasn1.SEQUENCE))
	require.NotEmpty(t, tbs)
	assert.Equal(t, byte(0xa0), tbs[0], "v3 must encode the version field")

	parsed, err := x509der.ParseCertificate(der)
	require.NoError(t, err)

	assert.Equal(t, x509der.V3, parsed.TBSCertificate.Version)
	require.Len(t, parsed.TBSCertificate.Extensions, 2)
	assert.True(t, parsed.TBSCertificate.Extensions[0].Critical)
	assert.True(t, oiddb.ExtensionBasicConstraints.Equal(parsed.TBSCertificate.Extensions[0].ID))
	assert.False(t, parsed.TBSCertificate.Extensions[1].Critical)

	require.NotNil(t, parsed.TBSCertificate.IssuerUniqueID)
	assert.Equal(t, 3, parsed.TBSCertificate.IssuerUniqueID.BitLength)
	assert.Nil(t, parsed.TBSCertificate.SubjectUniqueID)

	again, err := parsed.Marshal()
	require.NoError(t, err)
	assert.Equal(t, der, again)
}

func TestDecodeErrorKinds(t *testing.T) {
	tests := []struct {
		name  string
		input string
		kind  x509der.ErrorKind
	}{
		{"indefinite length", "30800000", x509der.NonCanonicalLength},
		{"non-minimal long-form length", "30810501020304 05", x509der.NonCanonicalLength},
		{"declared length past buffer", "301001", x509der.TruncatedInput},
		{"wrong outer tag", "31030201 00", x509der.UnexpectedTag},
		{"empty input", "", x509der.MissingRequiredField},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := x509der.ParseCertificate(mustHex(t, tc.input))
			var decodeErr *x509der.DecodeError
			require.ErrorAs(t, err, &decodeErr)
			assert.Equal(t, tc.kind, decodeErr.Kind)
		})
	}
}

func TestCertificateTrailingData(t *testing.T) {
	der, err := minimalCertificate(t).Marshal()
	require.NoError(t, err)

	_, err = x509der.ParseCertificate(append(der, 0x00))
	var decodeErr *x509der.DecodeError
	require.ErrorAs(t, err, &decodeErr)
	assert.Equal(t, x509der.TrailingData, decodeErr.Kind)
}

func TestRejectsNonMinimalInteger(t *testing.T) {
	// TBSCertificate whose serialNumber carries a redundant leading
	// zero octet.
	der := cryptobyte.String(mustHex(t, "3004 0202 0001"))
	_, err := x509der.ParseTBSCertificate(&der)
	var decodeErr *x509der.DecodeError
	require.ErrorAs(t, err, &decodeErr)
	assert.Equal(t, x509der.InvalidPrimitiveValue, decodeErr.Kind)
	assert.Equal(t, "serialNumber", decodeErr.Field)
}

func TestRejectsUnknownVersion(t *testing.T) {
	der := cryptobyte.String(mustHex(t, "3005 a003 0201 05"))
	_, err := x509der.ParseTBSCertificate(&der)
	var decodeErr *x509der.DecodeError
	require.ErrorAs(t, err, &decodeErr)
	assert.Equal(t, x509der.InvalidPrimitiveValue, decodeErr.Kind)
	assert.Equal(t, "version", decodeErr.Field)
}

func TestMissingRequiredFieldInsideSequence(t *testing.T) {
	// A TBSCertificate that ends right after its serial: the signature
	// AlgorithmIdentifier never appears.
	der := cryptobyte.String(mustHex(t, "3003 0201 01"))
	_, err := x509der.ParseTBSCertificate(&der)
	var decodeErr *x509der.DecodeError
	require.ErrorAs(t, err, &decodeErr)
	assert.Equal(t, x509der.MissingRequiredField, decodeErr.Kind)
	assert.Contains(t, err.Error(), "parsing signature")
}

func TestRejectsInvalidBitString(t *testing.T) {
	// SubjectPublicKeyInfo whose BIT STRING claims 8 unused bits.
	der := cryptobyte.String(mustHex(t, "3013 300d 0609 2a86 4886 f70d 0101 0105 0003 0208 00"))
	_, err := x509der.ParseSubjectPublicKeyInfo(&der)
	var decodeErr *x509der.DecodeError
	require.ErrorAs(t, err, &decodeErr)
	assert.Equal(t, x509der.InvalidPrimitiveValue, decodeErr.Kind)
}

func TestAlgorithmIdentifierTrailingData(t *testing.T) {
	// rsaEncryption + NULL parameters + one NULL too many.
	der := cryptobyte.String(mustHex(t, "300f 0609 2a86 4886 f70d 0101 0105 0005 00"))
	_, err := x509der.ParseAlgorithmIdentifier(&der)
	var decodeErr *x509der.DecodeError
	require.ErrorAs(t, err, &decodeErr)
	assert.Equal(t, x509der.TrailingData, decodeErr.Kind)
}

func TestSerialNumber(t *testing.T) {
	tests := []struct {
		name  string
		value int64
		hex   string
	}{
		{"small positive", 1, "01"},
		{"needs sign octet", 128, "0080"},
		{"two octets", 0x0100, "0100"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			serial := x509der.NewSerialNumber(big.NewInt(tc.value))
			assert.Equal(t, x509der.SerialNumber(mustHex(t, tc.hex)), serial)
			assert.Equal(t, tc.value, serial.Int().Int64())
		})
	}
}

func TestSerialNumberRoundTrip(t *testing.T) {
	// Serials with a sign octet or a negative value must survive a
	// decode/encode cycle byte for byte.
	tests := []struct {
		name   string
		serial string
	}{
		{"sign octet preserved", "0080"},
		{"negative serial", "ff"},
		{"negative multi-octet", "8001"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cert := minimalCertificate(t)
			cert.TBSCertificate.SerialNumber = mustHex(t, tc.serial)

			der, err := cert.Marshal()
			require.NoError(t, err)

			parsed, err := x509der.ParseCertificate(der)
			require.NoError(t, err)
			assert.Equal(t, cert.TBSCertificate.SerialNumber, parsed.TBSCertificate.SerialNumber)

			again, err := parsed.Marshal()
			require.NoError(t, err)
			assert.Equal(t, der, again)
		})
	}
}

func TestSerialNumberNegativeInt(t *testing.T) {
	serial := x509der.NewSerialNumber(big.NewInt(-1))
	assert.Equal(t, x509der.SerialNumber{0xff}, serial)
	assert.Equal(t, int64(-1), serial.Int().Int64())
}

func TestEncodeErrorsAreTyped(t *testing.T) {
	cert := minimalCertificate(t)
	cert.TBSCertificate.SerialNumber = nil

	_, err := cert.Marshal()
	var encodeErr *x509der.EncodeError
	require.ErrorAs(t, err, &encodeErr)
	assert.Equal(t, "serialNumber", encodeErr.Field)
}

func TestEncodeRejectsNonMinimalSerial(t *testing.T) {
	cert := minimalCertificate(t)
	cert.TBSCertificate.SerialNumber = x509der.SerialNumber{0x00, 0x01}

	_, err := cert.Marshal()
	var encodeErr *x509der.EncodeError
	require.ErrorAs(t, err, &encodeErr)
	assert.Equal(t, "serialNumber", encodeErr.Field)
}

func TestVersionString(t *testing.T) {
	assert.Equal(t, "v1(0)", x509der.V1.String())
	assert.Equal(t, "v3(2)", x509der.V3.String())
	assert.Equal(t, "unknown(7)", x509der.Version(7).String())
}
