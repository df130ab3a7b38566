// SPDX-FileCopyrightText: 2026 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package dtls

import (
	"crypto/sha256"

	"github.com/pion/dtlsengine/pkg/crypto/ciphersuite"
)

func newCipherSuiteTLSPskWithAes128GcmSha256() CipherSuite {
	return &aeadCipherSuite{
		id:        TLS_PSK_WITH_AES_128_GCM_SHA256,
		kx:        CipherSuiteKeyExchangeAlgorithmPsk,
		auth:      CipherSuiteAuthenticationTypePreSharedKey,
		keyLength: 16,
		ivLength:  4,
		hashFunc:  sha256.New,
		newCipher: newGCMCipherState,
	}
}

func newGCMCipherState(localKey, localIV, remoteKey, remoteIV []byte) (CipherState, error) {
	return ciphersuite.NewGCM(localKey, localIV, remoteKey, remoteIV)
}
