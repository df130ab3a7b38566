// SPDX-FileCopyrightText: 2026 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package dtls

import (
	"fmt"
	"hash"

	"github.com/pion/dtlsengine/internal/ciphersuite/types"
	"github.com/pion/dtlsengine/pkg/crypto/clientcertificate"
	"github.com/pion/dtlsengine/pkg/crypto/prf"
	"github.com/pion/dtlsengine/pkg/protocol/recordlayer"
)

// CipherSuiteID is an ID for our supported CipherSuites.
type CipherSuiteID uint16

// Supported Cipher Suites.
const (
	TLS_PSK_WITH_AES_128_GCM_SHA256               CipherSuiteID = 0x00a8 //nolint:revive,stylecheck
	TLS_ECDHE_PSK_WITH_CHACHA20_POLY1305_SHA256   CipherSuiteID = 0xccac //nolint:revive,stylecheck
	TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256       CipherSuiteID = 0xc02b //nolint:revive,stylecheck
	TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305_SHA256 CipherSuiteID = 0xcca9 //nolint:revive,stylecheck
)

func (c CipherSuiteID) String() string {
	switch c {
	case TLS_PSK_WITH_AES_128_GCM_SHA256:
		return "TLS_PSK_WITH_AES_128_GCM_SHA256"
	case TLS_ECDHE_PSK_WITH_CHACHA20_POLY1305_SHA256:
		return "TLS_ECDHE_PSK_WITH_CHACHA20_POLY1305_SHA256"
	case TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256:
		return "TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256"
	case TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305_SHA256:
		return "TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305_SHA256"
	default:
		return fmt.Sprintf("unknown(%v)", uint16(c))
	}
}

// CipherSuiteAuthenticationType controls what authentication method is using during the handshake.
type CipherSuiteAuthenticationType int

// CipherSuiteAuthenticationType Enums.
const (
	CipherSuiteAuthenticationTypeCertificate CipherSuiteAuthenticationType = iota
	CipherSuiteAuthenticationTypePreSharedKey
)

// CipherSuiteKeyExchangeAlgorithm controls what exchange algorithm is using during the handshake.
type CipherSuiteKeyExchangeAlgorithm = types.KeyExchangeAlgorithm

// CipherSuiteKeyExchangeAlgorithm Bitmask.
const (
	CipherSuiteKeyExchangeAlgorithmNone  CipherSuiteKeyExchangeAlgorithm = types.KeyExchangeAlgorithmNone
	CipherSuiteKeyExchangeAlgorithmPsk   CipherSuiteKeyExchangeAlgorithm = types.KeyExchangeAlgorithmPsk
	CipherSuiteKeyExchangeAlgorithmEcdhe CipherSuiteKeyExchangeAlgorithm = types.KeyExchangeAlgorithmEcdhe
)

// CipherState protects and unprotects records of one epoch in both directions.
type CipherState interface {
	// Encrypt seals the payload of a marshaled record and rewrites its length.
	Encrypt(pkt *recordlayer.RecordLayer, raw []byte) ([]byte, error)
	// Decrypt opens a protected record in place, returning header and plaintext.
	Decrypt(header recordlayer.Header, in []byte) ([]byte, error)
	// Overhead is the number of bytes protection adds to each record.
	Overhead() int
}

// CipherSuite is an interface that all DTLS CipherSuites must satisfy.
type CipherSuite interface {
	// String of CipherSuite, only used for logging
	String() string

	// ID of CipherSuite.
	ID() CipherSuiteID

	// What type of Certificate does this CipherSuite use
	CertificateType() clientcertificate.Type

	// What type of KeyExchange does this CipherSuite use
	KeyExchangeAlgorithm() CipherSuiteKeyExchangeAlgorithm

	// AuthenticationType controls what authentication method is using during the handshake
	AuthenticationType() CipherSuiteAuthenticationType

	// HashFunc is the hash used by the PRF and the handshake transcript.
	HashFunc() func() hash.Hash

	// NewCipherState derives the record protection keys for a new epoch.
	NewCipherState(masterSecret, clientRandom, serverRandom []byte, isClient bool) (CipherState, error)
}

// aeadCipherSuite describes an AEAD suite by its key sizes and constructor.
// The suites in this package only differ in these fields.
type aeadCipherSuite struct {
	id        CipherSuiteID
	kx        CipherSuiteKeyExchangeAlgorithm
	auth      CipherSuiteAuthenticationType
	certType  clientcertificate.Type
	keyLength int
	ivLength  int
	hashFunc  func() hash.Hash
	newCipher func(localKey, localIV, remoteKey, remoteIV []byte) (CipherState, error)
}

func (c *aeadCipherSuite) String() string { return c.id.String() }

func (c *aeadCipherSuite) ID() CipherSuiteID { return c.id }

func (c *aeadCipherSuite) CertificateType() clientcertificate.Type { return c.certType }

func (c *aeadCipherSuite) KeyExchangeAlgorithm() CipherSuiteKeyExchangeAlgorithm { return c.kx }

func (c *aeadCipherSuite) AuthenticationType() CipherSuiteAuthenticationType { return c.auth }

func (c *aeadCipherSuite) HashFunc() func() hash.Hash { return c.hashFunc }

func (c *aeadCipherSuite) NewCipherState(
	masterSecret, clientRandom, serverRandom []byte,
	isClient bool,
) (CipherState, error) {
	keys, err := prf.GenerateEncryptionKeys(
		masterSecret, clientRandom, serverRandom, 0, c.keyLength, c.ivLength, c.hashFunc,
	)
	if err != nil {
		return nil, err
	}

	if isClient {
		return c.newCipher(keys.ClientWriteKey, keys.ClientWriteIV, keys.ServerWriteKey, keys.ServerWriteIV)
	}

	return c.newCipher(keys.ServerWriteKey, keys.ServerWriteIV, keys.ClientWriteKey, keys.ClientWriteIV)
}

// CipherSuiteName returns the name of a supported suite or its hex id.
func CipherSuiteName(id CipherSuiteID) string {
	suite := cipherSuiteForID(id)
	if suite != nil {
		return suite.String()
	}

	return fmt.Sprintf("0x%04X", uint16(id))
}

// Taken from https://www.iana.org/assignments/tls-parameters/tls-parameters.xml
// A cipherSuite is a specific combination of key agreement, cipher and MAC
// function.
func cipherSuiteForID(id CipherSuiteID) CipherSuite {
	switch id {
	case TLS_PSK_WITH_AES_128_GCM_SHA256:
		return newCipherSuiteTLSPskWithAes128GcmSha256()
	case TLS_ECDHE_PSK_WITH_CHACHA20_POLY1305_SHA256:
		return newCipherSuiteTLSEcdhePskWithChacha20Poly1305Sha256()
	case TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256:
		return newCipherSuiteTLSEcdheEcdsaWithAes128GcmSha256()
	case TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305_SHA256:
		return newCipherSuiteTLSEcdheEcdsaWithChacha20Poly1305Sha256()
	}

	return nil
}

// CipherSuites we support in order of preference.
func defaultCipherSuites() []CipherSuite {
	return []CipherSuite{
		newCipherSuiteTLSEcdheEcdsaWithAes128GcmSha256(),
		newCipherSuiteTLSEcdheEcdsaWithChacha20Poly1305Sha256(),
		newCipherSuiteTLSEcdhePskWithChacha20Poly1305Sha256(),
		newCipherSuiteTLSPskWithAes128GcmSha256(),
	}
}

func cipherSuiteIDs(cipherSuites []CipherSuite) []uint16 {
	rtrn := []uint16{}
	for _, c := range cipherSuites {
		rtrn = append(rtrn, uint16(c.ID()))
	}

	return rtrn
}

func parseCipherSuites(
	userSelectedSuites []CipherSuiteID,
	includeCertificateSuites, includePSKSuites bool,
) ([]CipherSuite, error) {
	if !includeCertificateSuites && !includePSKSuites {
		return nil, errNoAvailableCipherSuites
	}

	cipherSuitesForIDs := func(ids []CipherSuiteID) ([]CipherSuite, error) {
		cipherSuites := []CipherSuite{}
		for _, id := range ids {
			c := cipherSuiteForID(id)
			if c == nil {
				return nil, &invalidCipherSuiteError{id}
			}
			cipherSuites = append(cipherSuites, c)
		}

		return cipherSuites, nil
	}

	var (
		cipherSuites []CipherSuite
		err          error
		i            int
	)
	if len(userSelectedSuites) != 0 {
		cipherSuites, err = cipherSuitesForIDs(userSelectedSuites)
		if err != nil {
			return nil, err
		}
	} else {
		cipherSuites = defaultCipherSuites()
	}

	var foundCertificateSuite, foundPSKSuite bool
	for _, c := range cipherSuites {
		switch {
		case includeCertificateSuites && c.AuthenticationType() == CipherSuiteAuthenticationTypeCertificate:
			foundCertificateSuite = true
		case includePSKSuites && c.AuthenticationType() == CipherSuiteAuthenticationTypePreSharedKey:
			foundPSKSuite = true
		default:
			continue
		}
		cipherSuites[i] = c
		i++
	}

	if includeCertificateSuites && !foundCertificateSuite {
		return nil, errNoAvailableCertificateCipherSuite
	}
	if includePSKSuites && !foundPSKSuite {
		return nil, errNoAvailablePSKCipherSuite
	}

	return cipherSuites[:i], nil
}

// findMatchingCipherSuite returns the first of ours, in our preference
// order, that the peer offered.
func findMatchingCipherSuite(peer []uint16, ours []CipherSuite) (CipherSuite, bool) {
	for _, c := range ours {
		for _, id := range peer {
			if uint16(c.ID()) == id {
				return c, true
			}
		}
	}

	return nil, false
}
