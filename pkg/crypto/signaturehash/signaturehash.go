// SPDX-FileCopyrightText: 2026 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

// Package signaturehash provides the SignatureHashAlgorithm as defined in TLS 1.2
package signaturehash

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"errors"
	"fmt"

	"github.com/pion/dtlsengine/pkg/crypto/hash"
	"github.com/pion/dtlsengine/pkg/crypto/signature"
)

var (
	errNoAvailableSignatureSchemes = errors.New("connection can not be created, no SignatureScheme satisfy this Config") //nolint:err113
	errInvalidSignatureAlgorithm   = errors.New("invalid signature algorithm")                                         //nolint:err113
	errInvalidHashAlgorithm        = errors.New("invalid hash algorithm")                                              //nolint:err113
)

// Algorithm is a signature/hash algorithm pairs which may be used in
// digital signatures.
//
// https://tools.ietf.org/html/rfc5246#section-7.4.1.4.1
type Algorithm struct {
	Hash      hash.Algorithm
	Signature signature.Algorithm
}

func (a Algorithm) String() string {
	return fmt.Sprintf("%s/%d", a.Hash, a.Signature)
}

// Algorithms are all the known SignatureHash Algorithms, in preference order.
func Algorithms() []Algorithm {
	return []Algorithm{
		{hash.SHA256, signature.ECDSA},
		{hash.SHA384, signature.ECDSA},
		{hash.SHA512, signature.ECDSA},
		{hash.Ed25519, signature.Ed25519},
	}
}

// IsSupported reports whether the pair is one this package can sign or verify.
func (a Algorithm) IsSupported() bool {
	for _, known := range Algorithms() {
		if known == a {
			return true
		}
	}

	return false
}

// SelectSignatureScheme returns most preferred and compatible scheme.
func SelectSignatureScheme(sigs []Algorithm, privateKey crypto.PrivateKey) (Algorithm, error) {
	signer, ok := privateKey.(crypto.Signer)
	if !ok {
		return Algorithm{}, errInvalidSignatureAlgorithm
	}
	for _, ss := range sigs {
		if ss.isCompatible(signer) {
			return ss, nil
		}
	}

	return Algorithm{}, errNoAvailableSignatureSchemes
}

// isCompatible checks that given private key is compatible with the signature scheme.
func (a *Algorithm) isCompatible(signer crypto.Signer) bool {
	switch signer.Public().(type) {
	case ed25519.PublicKey:
		return a.Signature == signature.Ed25519
	case *ecdsa.PublicKey:
		return a.Signature == signature.ECDSA
	default:
		return false
	}
}

// ParseAlgorithm validates a pair received on the wire.
func ParseAlgorithm(h hash.Algorithm, s signature.Algorithm) (Algorithm, error) {
	if _, ok := hash.Algorithms()[h]; !ok {
		return Algorithm{}, errInvalidHashAlgorithm
	}
	if _, ok := signature.Algorithms()[s]; !ok {
		return Algorithm{}, errInvalidSignatureAlgorithm
	}

	return Algorithm{Hash: h, Signature: s}, nil
}
