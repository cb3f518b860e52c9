package pem

import (
	"encoding/pem"

	"github.com/certwire/certwire/x509der"
)

// LoadAll decodes every CERTIFICATE block in content. Blocks of other
// types are skipped. Each returned certificate aliases content; see
// the x509der ownership rules.
func LoadAll(content []byte) ([]*x509der.Certificate, error) {
	var block *pem.Block
	var certs []*x509der.Certificate

	for {
		block, content = pem.Decode(content)
		if block == nil {
			return certs, nil
		}
		if block.Type != "CERTIFICATE" {
			continue
		}

		certificate, err := x509der.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, err
		}
		certs = append(certs, certificate)
	}
}
