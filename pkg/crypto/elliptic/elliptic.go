// SPDX-FileCopyrightText: 2026 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

// Package elliptic provides elliptic curve cryptography for DTLS
package elliptic

import (
	"crypto/ecdh"
	"crypto/rand"
	"errors"
	"fmt"

	"golang.org/x/crypto/curve25519"
)

var (
	errInvalidNamedCurve = errors.New("invalid named curve")   //nolint:err113
	errInvalidPublicKey  = errors.New("invalid peer public key") //nolint:err113
)

// CurvePointFormat is used to represent the IANA registered curve points
//
// https://www.iana.org/assignments/tls-parameters/tls-parameters.xml#tls-parameters-9
type CurvePointFormat byte

// CurvePointFormat enums.
const (
	CurvePointFormatUncompressed CurvePointFormat = 0
)

// CurveType is used to represent the IANA registered curve types for TLS
//
// https://www.iana.org/assignments/tls-parameters/tls-parameters.xhtml#tls-parameters-10
type CurveType byte

// CurveType enums.
const (
	CurveTypeNamedCurve CurveType = 0x03
)

// Curve is used to represent the IANA registered curves for TLS
//
// https://www.iana.org/assignments/tls-parameters/tls-parameters.xml#tls-parameters-8
type Curve uint16

// Curve enums.
const (
	P256   Curve = 0x0017
	X25519 Curve = 0x001d
)

func (c Curve) String() string {
	switch c {
	case P256:
		return "P-256"
	case X25519:
		return "X25519"
	}

	return fmt.Sprintf("%#x", uint16(c))
}

// Curves returns all curves we implement.
func Curves() map[Curve]bool {
	return map[Curve]bool{
		X25519: true,
		P256:   true,
	}
}

// Keypair is a Curve with a Private/Public Keypair.
type Keypair struct {
	Curve      Curve
	PublicKey  []byte
	PrivateKey []byte
}

// GenerateKeypair generates a keypair for the given Curve.
func GenerateKeypair(curve Curve) (*Keypair, error) {
	switch curve {
	case X25519:
		tmp := make([]byte, curve25519.ScalarSize)
		if _, err := rand.Read(tmp); err != nil {
			return nil, err
		}
		public, err := curve25519.X25519(tmp, curve25519.Basepoint)
		if err != nil {
			return nil, err
		}

		return &Keypair{Curve: X25519, PublicKey: public, PrivateKey: tmp}, nil
	case P256:
		sk, err := ecdh.P256().GenerateKey(rand.Reader)
		if err != nil {
			return nil, err
		}

		return &Keypair{Curve: P256, PublicKey: sk.PublicKey().Bytes(), PrivateKey: sk.Bytes()}, nil
	default:
		return nil, errInvalidNamedCurve
	}
}

// SharedSecret computes the ECDH premaster secret with the peer's public key.
func (k *Keypair) SharedSecret(peerPublicKey []byte) ([]byte, error) {
	switch k.Curve {
	case X25519:
		if len(peerPublicKey) != curve25519.PointSize {
			return nil, errInvalidPublicKey
		}

		return curve25519.X25519(k.PrivateKey, peerPublicKey)
	case P256:
		priv, err := ecdh.P256().NewPrivateKey(k.PrivateKey)
		if err != nil {
			return nil, err
		}
		pub, err := ecdh.P256().NewPublicKey(peerPublicKey)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", errInvalidPublicKey, err) //nolint:errorlint
		}

		return priv.ECDH(pub)
	default:
		return nil, errInvalidNamedCurve
	}
}
