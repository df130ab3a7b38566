// SPDX-FileCopyrightText: 2026 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package dtls

import (
	"crypto/sha256"

	"github.com/pion/dtlsengine/pkg/crypto/clientcertificate"
)

func newCipherSuiteTLSEcdheEcdsaWithAes128GcmSha256() CipherSuite {
	return &aeadCipherSuite{
		id:        TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
		kx:        CipherSuiteKeyExchangeAlgorithmEcdhe,
		auth:      CipherSuiteAuthenticationTypeCertificate,
		certType:  clientcertificate.ECDSASign,
		keyLength: 16,
		ivLength:  4,
		hashFunc:  sha256.New,
		newCipher: newGCMCipherState,
	}
}
