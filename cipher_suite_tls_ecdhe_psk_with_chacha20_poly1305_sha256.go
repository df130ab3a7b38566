// SPDX-FileCopyrightText: 2026 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package dtls

import "crypto/sha256"

func newCipherSuiteTLSEcdhePskWithChacha20Poly1305Sha256() CipherSuite {
	return &aeadCipherSuite{
		id:        TLS_ECDHE_PSK_WITH_CHACHA20_POLY1305_SHA256,
		kx:        CipherSuiteKeyExchangeAlgorithmPsk | CipherSuiteKeyExchangeAlgorithmEcdhe,
		auth:      CipherSuiteAuthenticationTypePreSharedKey,
		keyLength: chachaKeyLength,
		ivLength:  chachaIVLength,
		hashFunc:  sha256.New,
		newCipher: newChaChaCipherState,
	}
}
