// Package oiddb maps object identifiers to their well-known names and
// exports the OID constants the certificate world keeps reaching for.
//
// Lookups are display-only. The codec never consults this database for
// decode or encode correctness, so an unknown OID is never an error.
package oiddb

import "encoding/asn1"

// Signature and public-key algorithm OIDs.
var (
	RSAEncryption   = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 1, 1}
	SHA256WithRSA   = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 1, 11}
	SHA384WithRSA   = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 1, 12}
	SHA512WithRSA   = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 1, 13}
	ECPublicKey     = asn1.ObjectIdentifier{1, 2, 840, 10045, 2, 1}
	ECDSAWithSHA256 = asn1.ObjectIdentifier{1, 2, 840, 10045, 4, 3, 2}
	ECDSAWithSHA384 = asn1.ObjectIdentifier{1, 2, 840, 10045, 4, 3, 3}
	ECDSAWithSHA512 = asn1.ObjectIdentifier{1, 2, 840, 10045, 4, 3, 4}
	Ed25519         = asn1.ObjectIdentifier{1, 3, 101, 112}
)

// Distinguished-name attribute type OIDs.
var (
	AttributeCommonName         = asn1.ObjectIdentifier{2, 5, 4, 3}
	AttributeSerialNumber       = asn1.ObjectIdentifier{2, 5, 4, 5}
	AttributeCountry            = asn1.ObjectIdentifier{2, 5, 4, 6}
	AttributeLocality           = asn1.ObjectIdentifier{2, 5, 4, 7}
	AttributeProvince           = asn1.ObjectIdentifier{2, 5, 4, 8}
	AttributeStreet             = asn1.ObjectIdentifier{2, 5, 4, 9}
	AttributeOrganization       = asn1.ObjectIdentifier{2, 5, 4, 10}
	AttributeOrganizationalUnit = asn1.ObjectIdentifier{2, 5, 4, 11}
	AttributeDomainComponent    = asn1.ObjectIdentifier{0, 9, 2342, 19200300, 100, 1, 25}
	AttributeUserID             = asn1.ObjectIdentifier{0, 9, 2342, 19200300, 100, 1, 1}
)

// PKCS#9 certification request attribute OIDs.
var (
	AttributeChallengePassword = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 9, 7}
	AttributeExtensionRequest  = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 9, 14}
)

// Certificate extension OIDs.
var (
	ExtensionSubjectKeyID          = asn1.ObjectIdentifier{2, 5, 29, 14}
	ExtensionKeyUsage              = asn1.ObjectIdentifier{2, 5, 29, 15}
	ExtensionSubjectAltName        = asn1.ObjectIdentifier{2, 5, 29, 17}
	ExtensionBasicConstraints      = asn1.ObjectIdentifier{2, 5, 29, 19}
	ExtensionNameConstraints       = asn1.ObjectIdentifier{2, 5, 29, 30}
	ExtensionCRLDistributionPoints = asn1.ObjectIdentifier{2, 5, 29, 31}
	ExtensionCertificatePolicies   = asn1.ObjectIdentifier{2, 5, 29, 32}
	ExtensionAuthorityKeyID        = asn1.ObjectIdentifier{2, 5, 29, 35}
	ExtensionExtKeyUsage           = asn1.ObjectIdentifier{2, 5, 29, 37}
	ExtensionAuthorityInfoAccess   = asn1.ObjectIdentifier{1, 3, 6, 1, 5, 5, 7, 1, 1}
)

var names = map[string]string{
	"1.2.840.113549.1.1.1":  "rsaEncryption",
	"1.2.840.113549.1.1.11": "sha256WithRSAEncryption",
	"1.2.840.113549.1.1.12": "sha384WithRSAEncryption",
	"1.2.840.113549.1.1.13": "sha512WithRSAEncryption",
	"1.2.840.10045.2.1":     "ecPublicKey",
	"1.2.840.10045.4.3.2":   "ecdsa-with-SHA256",
	"1.2.840.10045.4.3.3":   "ecdsa-with-SHA384",
	"1.2.840.10045.4.3.4":   "ecdsa-with-SHA512",
	"1.3.101.112":           "Ed25519",
	"1.2.840.113549.1.9.7":  "challengePassword",
	"1.2.840.113549.1.9.14": "extensionRequest",
	"2.5.29.14":             "subjectKeyIdentifier",
	"2.5.29.15":             "keyUsage",
	"2.5.29.17":             "subjectAltName",
	"2.5.29.19":             "basicConstraints",
	"2.5.29.30":             "nameConstraints",
	"2.5.29.31":             "cRLDistributionPoints",
	"2.5.29.32":             "certificatePolicies",
	"2.5.29.35":             "authorityKeyIdentifier",
	"2.5.29.37":             "extKeyUsage",
	"1.3.6.1.5.5.7.1.1":     "authorityInfoAccess",
}

// attributeNames holds the short forms RFC 4514 registers for name
// attributes.
var attributeNames = map[string]string{
	"2.5.4.3":                    "CN",
	"2.5.4.7":                    "L",
	"2.5.4.8":                    "ST",
	"2.5.4.10":                   "O",
	"2.5.4.11":                   "OU",
	"2.5.4.6":                    "C",
	"2.5.4.9":                    "STREET",
	"0.9.2342.19200300.100.1.25": "DC",
	"0.9.2342.19200300.100.1.1":  "UID",
}

// Lookup returns the well-known name for oid.
func Lookup(oid asn1.ObjectIdentifier) (string, bool) {
	name, ok := names[oid.String()]
	return name, ok
}

// Name returns the well-known name for oid, falling back to its dotted
// form.
func Name(oid asn1.ObjectIdentifier) string {
	if name, ok := Lookup(oid); ok {
		return name
	}
	return oid.String()
}

// AttributeName returns the short RFC 4514 name for a distinguished
// name attribute type, falling back to the dotted form.
func AttributeName(oid asn1.ObjectIdentifier) string {
	if name, ok := attributeNames[oid.String()]; ok {
		return name
	}
	return oid.String()
}
