// SPDX-FileCopyrightText: 2026 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package dtls

import (
	"crypto/sha256"

	"github.com/pion/dtlsengine/pkg/crypto/ciphersuite"
	"github.com/pion/dtlsengine/pkg/crypto/clientcertificate"
)

// ChaCha20-Poly1305 uses a 12 byte IV and no explicit nonce (RFC 7905).
const (
	chachaKeyLength = 32
	chachaIVLength  = 12
)

func newCipherSuiteTLSEcdheEcdsaWithChacha20Poly1305Sha256() CipherSuite {
	return &aeadCipherSuite{
		id:        TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305_SHA256,
		kx:        CipherSuiteKeyExchangeAlgorithmEcdhe,
		auth:      CipherSuiteAuthenticationTypeCertificate,
		certType:  clientcertificate.ECDSASign,
		keyLength: chachaKeyLength,
		ivLength:  chachaIVLength,
		hashFunc:  sha256.New,
		newCipher: newChaChaCipherState,
	}
}

func newChaChaCipherState(localKey, localIV, remoteKey, remoteIV []byte) (CipherState, error) {
	return ciphersuite.NewChaCha20Poly1305(localKey, localIV, remoteKey, remoteIV)
}
