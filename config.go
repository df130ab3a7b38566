// SPDX-FileCopyrightText: 2026 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package dtls

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/tls"
	"crypto/x509"
	"time"

	"github.com/pion/dtlsengine/pkg/crypto/elliptic"
	"github.com/pion/dtlsengine/pkg/crypto/signaturehash"
	"github.com/pion/dtlsengine/pkg/protocol/handshake"
	"github.com/pion/dtlsengine/pkg/protocol/recordlayer"
	"github.com/pion/logging"
)

const (
	defaultMTU                    = 1200 // bytes
	defaultFlightInterval         = time.Second
	defaultMaxFlightInterval      = 60 * time.Second
	defaultMaxRetransmits         = 7
	defaultReplayProtectionWindow = 64

	// minimumMTU leaves room for one byte of handshake body in a protected record.
	minimumMTU = recordlayer.FixedHeaderSize + handshake.HeaderLength + 8 + 16 + 1
)

// Config is used to configure a DTLS client or server.
// After a Config is passed to a DTLS function it must not be modified.
type Config struct {
	// Certificates contains certificate chain to present to the other side of the connection.
	// Server MUST set this if PSK is non-nil
	// client SHOULD sets this so CertificateRequests can be handled if PSK is non-nil
	Certificates []tls.Certificate

	// CipherSuites is a list of supported cipher suites.
	// If CipherSuites is nil, a default list is used
	CipherSuites []CipherSuiteID

	// PSK sets the pre-shared key used by this DTLS connection
	// If PSK is non-nil only PSK CipherSuites will be used
	PSK PSKCallback

	// PSKIdentityHint is the identity a client sends in ClientKeyExchange,
	// and the hint a server sends in ServerKeyExchange.
	PSKIdentityHint []byte

	// ClientAuth determines the server's policy for
	// TLS Client Authentication. The default is NoClientCert.
	ClientAuth ClientAuthType

	// ExtendedMasterSecret determines if the "Extended Master Secret" extension
	// should be disabled, requested, or required (default requested).
	ExtendedMasterSecret ExtendedMasterSecretType

	// InsecureSkipVerify controls whether a client verifies the
	// server's certificate chain and host name.
	InsecureSkipVerify bool

	// VerifyPeerCertificate, if not nil, is called after normal
	// certificate verification by either a client or server. It
	// receives the certificate provided by the peer and also a flag
	// that tells if normal verification has succeeded. If it returns a
	// non-nil error, the handshake is aborted and that error results.
	VerifyPeerCertificate func(rawCerts [][]byte, verifiedChains [][]*x509.Certificate) error

	// RootCAs defines the set of root certificate authorities
	// that one peer uses when verifying the other peer's certificates.
	// If RootCAs is nil, TLS uses the host's root CA set.
	RootCAs *x509.CertPool

	// ClientCAs defines the set of root certificate authorities
	// that servers use if required to verify a client certificate
	// by the policy in ClientAuth.
	ClientCAs *x509.CertPool

	// ServerName is used to verify the hostname on the returned
	// certificates unless InsecureSkipVerify is given.
	ServerName string

	// EllipticCurves are the supported curves in preference order.
	// Defaults to X25519 then P-256.
	EllipticCurves []elliptic.Curve

	// SessionStore is the container to store session for resumption.
	// Resumption is disabled when it is nil.
	SessionStore SessionStore

	// CookieSecret keys the stateless HelloVerifyRequest cookie. Servers
	// sharing one CookieSecret accept each other's cookies. A private
	// secret is created when it is nil.
	CookieSecret *CookieSecret

	// InsecureSkipVerifyHello, if true and when acting as server, allow client to
	// skip hello verify phase and receive ServerHello after initial ClientHello.
	// This have implication on DoS attack resistance.
	InsecureSkipVerifyHello bool

	// CookieMismatch selects what a server does with a ClientHello
	// carrying a cookie it did not issue.
	CookieMismatch CookieMismatchPolicy

	// MTU is the maximum datagram size produced by the engine, the
	// transport SendLimit caps it further. Defaults to 1200.
	MTU int

	// FlightInterval is the initial retransmission timer. Defaults to 1s.
	FlightInterval time.Duration

	// MaxFlightInterval caps the doubling retransmission timer. Defaults to 60s.
	MaxFlightInterval time.Duration

	// MaxRetransmits is how many times a flight is resent before the
	// handshake fails with ErrHandshakeTimeout. Zero selects the default
	// of 7, a negative value disables retransmission.
	MaxRetransmits int

	// ReplayProtectionWindow is the size of the replay attack protection window.
	// Duplication of the sequence number is checked in this window size.
	// Packet with sequence number older than this value compared to the latest
	// accepted packet will be discarded. (default is 64)
	ReplayProtectionWindow int

	LoggerFactory logging.LoggerFactory

	// onPhase and onFlightState observe the handshake from tests.
	onPhase       func(Phase)
	onFlightState func(FlightVal, HandshakeState)
}

// PSKCallback is called once we have the remote's PSKIdentityHint.
// If the remote provided none it will be nil.
type PSKCallback func([]byte) ([]byte, error)

// ClientAuthType declares the policy the server will follow for
// TLS Client Authentication.
type ClientAuthType int

// ClientAuthType enums.
const (
	NoClientCert ClientAuthType = iota
	RequestClientCert
	RequireAnyClientCert
	VerifyClientCertIfGiven
	RequireAndVerifyClientCert
)

// ExtendedMasterSecretType declares the policy the client and server
// will follow for the Extended Master Secret extension.
type ExtendedMasterSecretType int

// ExtendedMasterSecretType enums.
const (
	RequestExtendedMasterSecret ExtendedMasterSecretType = iota
	RequireExtendedMasterSecret
	DisableExtendedMasterSecret
)

// CookieMismatchPolicy declares what a server does with a ClientHello
// whose cookie does not verify.
type CookieMismatchPolicy int

// CookieMismatchPolicy enums.
const (
	// CookieMismatchIgnore drops the ClientHello and answers with a fresh
	// HelloVerifyRequest.
	CookieMismatchIgnore CookieMismatchPolicy = iota
	// CookieMismatchFatal aborts with a fatal access_denied alert.
	CookieMismatchFatal
)

func (c *Config) includeCertificateSuites() bool {
	return c.PSK == nil || len(c.Certificates) > 0
}

func defaultCurves() []elliptic.Curve {
	return []elliptic.Curve{elliptic.X25519, elliptic.P256}
}

func validateConfig(config *Config) error { //nolint:cyclop
	switch {
	case config == nil:
		return errNoConfigProvided
	case config.PSKIdentityHint != nil && config.PSK == nil:
		return errIdentityNoPSK
	case config.FlightInterval < 0, config.MaxFlightInterval < 0, config.ReplayProtectionWindow < 0:
		return errInvalidTimerConfig
	case config.FlightInterval > 0 && config.MaxFlightInterval > 0 && config.MaxFlightInterval < config.FlightInterval:
		return errInvalidTimerConfig
	case config.MTU != 0 && config.MTU < minimumMTU:
		return errInvalidMTU
	}

	for _, cert := range config.Certificates {
		if cert.Certificate == nil {
			return errInvalidCertificate
		}
		if cert.PrivateKey != nil {
			switch cert.PrivateKey.(type) {
			case ed25519.PrivateKey:
			case *ecdsa.PrivateKey:
			default:
				return errInvalidPrivateKey
			}
		}
	}

	for _, curve := range config.EllipticCurves {
		if !elliptic.Curves()[curve] {
			return errNoSupportedEllipticCurves
		}
	}

	_, err := parseCipherSuites(config.CipherSuites, config.includeCertificateSuites(), config.PSK != nil)

	return err
}

// handshakeConfig is the resolved, defaulted view of a Config used by the engine.
type handshakeConfig struct {
	localPSKCallback      PSKCallback
	localPSKIdentityHint  []byte
	localCipherSuites     []CipherSuite
	localSignatureSchemes []signaturehash.Algorithm
	extendedMasterSecret  ExtendedMasterSecretType
	serverName            string
	clientAuth            ClientAuthType
	localCertificates     []tls.Certificate
	insecureSkipVerify    bool
	verifyPeerCertificate func(rawCerts [][]byte, verifiedChains [][]*x509.Certificate) error
	rootCAs               *x509.CertPool
	clientCAs             *x509.CertPool
	ellipticCurves        []elliptic.Curve
	sessionStore          SessionStore

	insecureSkipHelloVerify bool
	cookieSecret            *CookieSecret
	cookieMismatch          CookieMismatchPolicy

	mtu                    int
	initialRetransmitTime  time.Duration
	maxRetransmitTime      time.Duration
	maxRetransmits         int
	replayProtectionWindow uint

	onPhase       func(Phase)
	onFlightState func(FlightVal, HandshakeState)
	log           logging.LeveledLogger
}

func newHandshakeConfig(config *Config) (*handshakeConfig, error) {
	if err := validateConfig(config); err != nil {
		return nil, err
	}

	cipherSuites, err := parseCipherSuites(config.CipherSuites, config.includeCertificateSuites(), config.PSK != nil)
	if err != nil {
		return nil, err
	}

	loggerFactory := config.LoggerFactory
	if loggerFactory == nil {
		loggerFactory = logging.NewDefaultLoggerFactory()
	}

	cfg := &handshakeConfig{
		localPSKCallback:        config.PSK,
		localPSKIdentityHint:    config.PSKIdentityHint,
		localCipherSuites:       cipherSuites,
		localSignatureSchemes:   signaturehash.Algorithms(),
		extendedMasterSecret:    config.ExtendedMasterSecret,
		serverName:              config.ServerName,
		clientAuth:              config.ClientAuth,
		localCertificates:       config.Certificates,
		insecureSkipVerify:      config.InsecureSkipVerify,
		verifyPeerCertificate:   config.VerifyPeerCertificate,
		rootCAs:                 config.RootCAs,
		clientCAs:               config.ClientCAs,
		ellipticCurves:          config.EllipticCurves,
		sessionStore:            config.SessionStore,
		insecureSkipHelloVerify: config.InsecureSkipVerifyHello,
		cookieSecret:            config.CookieSecret,
		cookieMismatch:          config.CookieMismatch,
		mtu:                     config.MTU,
		initialRetransmitTime:   config.FlightInterval,
		maxRetransmitTime:       config.MaxFlightInterval,
		maxRetransmits:          config.MaxRetransmits,
		replayProtectionWindow:  uint(config.ReplayProtectionWindow), //nolint:gosec // validated non-negative
		onPhase:                 config.onPhase,
		onFlightState:           config.onFlightState,
		log:                     loggerFactory.NewLogger("dtls"),
	}

	if len(cfg.ellipticCurves) == 0 {
		cfg.ellipticCurves = defaultCurves()
	}
	if cfg.mtu == 0 {
		cfg.mtu = defaultMTU
	}
	if cfg.initialRetransmitTime == 0 {
		cfg.initialRetransmitTime = defaultFlightInterval
	}
	if cfg.maxRetransmitTime == 0 {
		cfg.maxRetransmitTime = defaultMaxFlightInterval
	}
	if cfg.maxRetransmitTime < cfg.initialRetransmitTime {
		cfg.maxRetransmitTime = cfg.initialRetransmitTime
	}
	switch {
	case cfg.maxRetransmits == 0:
		cfg.maxRetransmits = defaultMaxRetransmits
	case cfg.maxRetransmits < 0:
		cfg.maxRetransmits = 0
	}
	if cfg.replayProtectionWindow == 0 {
		cfg.replayProtectionWindow = defaultReplayProtectionWindow
	}

	return cfg, nil
}

// getCertificate returns the first configured certificate whose key can
// produce one of the given signature schemes.
func (c *handshakeConfig) getCertificate(schemes []signaturehash.Algorithm) (*tls.Certificate, signaturehash.Algorithm, error) {
	if len(c.localCertificates) == 0 {
		return nil, signaturehash.Algorithm{}, errNoCertificates
	}
	if len(schemes) == 0 {
		schemes = c.localSignatureSchemes
	}

	var lastErr error
	for i := range c.localCertificates {
		cert := &c.localCertificates[i]
		alg, err := signaturehash.SelectSignatureScheme(schemes, cert.PrivateKey)
		if err == nil {
			return cert, alg, nil
		}
		lastErr = err
	}

	return nil, signaturehash.Algorithm{}, lastErr
}

func signerOf(cert *tls.Certificate) (crypto.Signer, error) {
	signer, ok := cert.PrivateKey.(crypto.Signer)
	if !ok {
		return nil, errInvalidPrivateKey
	}

	return signer, nil
}
