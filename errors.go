// SPDX-FileCopyrightText: 2026 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package dtls

import (
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/pion/dtlsengine/pkg/protocol"
	"github.com/pion/dtlsengine/pkg/protocol/alert"
)

// Typed errors.
//
//nolint:err113
var (
	// ErrConnClosed is returned by every operation on a Conn after Close.
	ErrConnClosed = &FatalError{Err: errors.New("conn is closed")}
	// ErrHandshakeTimeout is returned when a flight was retransmitted
	// MaxRetransmits times without an answer. No alert is sent.
	ErrHandshakeTimeout = &TimeoutError{Err: errors.New("handshake retransmission budget exhausted")}
	// ErrNoData is returned by Receive when no application record arrived
	// before the timeout. The Conn stays usable.
	ErrNoData = &TimeoutError{Err: errors.New("no data received before timeout")}

	errBufferTooSmall      = &TemporaryError{Err: errors.New("buffer is too small")}
	errHandshakeInProgress = &TemporaryError{Err: errors.New("handshake is in progress")}
	errReservedExportKeyingMaterial = &TemporaryError{
		Err: errors.New("ExportKeyingMaterial can not be used with a reserved label"),
	}
	errContextUnsupported = &TemporaryError{Err: errors.New("context is not supported for ExportKeyingMaterial")}

	errCertificateVerifyNoCertificate = &FatalError{
		Err: errors.New("client sent certificate verify but we have no certificate to verify"),
	}
	errCipherSuiteNoIntersection    = &FatalError{Err: errors.New("client+server do not support any shared cipher suites")}
	errClientCertificateNotVerified = &FatalError{Err: errors.New("client sent certificate but did not verify it")}
	errClientCertificateRequired    = &FatalError{Err: errors.New("server required client verification, but got none")}
	errClientRequiredButNoServerEMS = &FatalError{
		Err: errors.New("client required Extended Master Secret extension, but server does not support it"),
	}
	errCookieMismatch          = &FatalError{Err: errors.New("client+server cookie does not match")}
	errIdentityNoPSK           = &FatalError{Err: errors.New("PSK Identity Hint provided but PSK is nil")}
	errInvalidCertificate      = &FatalError{Err: errors.New("no certificate provided")}
	errInvalidCipherSuite      = &FatalError{Err: errors.New("invalid or unknown cipher suite")}
	errInvalidECDSASignature   = &FatalError{Err: errors.New("ECDSA signature contained zero or negative values")}
	errInvalidPrivateKey       = &FatalError{Err: errors.New("invalid private key type")}
	errKeySignatureMismatch    = &FatalError{Err: errors.New("expected and actual key signature do not match")}
	errNilTransport            = &FatalError{Err: errors.New("Conn can not be created with a nil transport")}
	errNoAvailableCipherSuites = &FatalError{
		Err: errors.New("connection can not be created, no CipherSuites satisfy this Config"),
	}
	errNoAvailablePSKCipherSuite = &FatalError{
		Err: errors.New("connection can not be created, pre-shared key present but no compatible CipherSuite"),
	}
	errNoAvailableCertificateCipherSuite = &FatalError{
		Err: errors.New("connection can not be created, certificate present but no compatible CipherSuite"),
	}
	errNoCertificates             = &FatalError{Err: errors.New("no certificates configured")}
	errNoConfigProvided           = &FatalError{Err: errors.New("no config provided")}
	errNoSupportedEllipticCurves  = &FatalError{Err: errors.New("no shared elliptic curve with the peer")}
	errUnsupportedProtocolVersion = &FatalError{Err: errors.New("unsupported protocol version")}
	errPSKAndIdentityMustBeSetForClient = &FatalError{
		Err: errors.New("PSK and PSK Identity Hint must both be set for client"),
	}
	errServerRequiredButNoClientEMS = &FatalError{
		Err: errors.New("server requires the Extended Master Secret extension, but the client does not support it"),
	}
	errVerifyDataMismatch            = &FatalError{Err: errors.New("expected and actual verify data does not match")}
	errNotAcceptableCertificateChain = &FatalError{Err: errors.New("certificate chain is not signed by an acceptable CA")}
	errUnexpectedMessage             = &FatalError{Err: errors.New("unexpected handshake message")}
	errInvalidTimerConfig            = &FatalError{Err: errors.New("flight intervals must be positive and ordered")}
	errInvalidMTU                    = &FatalError{Err: errors.New("MTU is too small to carry a handshake fragment")}
	errNoRemoteAddr                  = &FatalError{Err: errors.New("transport has no remote address yet")}
	errCompressionMethodNoIntersection = &FatalError{
		Err: errors.New("client+server do not support any shared compression method"),
	}
	errServerMustHaveCertificate = &FatalError{Err: errors.New("certificate is mandatory for server")}
	errInvalidSignatureScheme    = &FatalError{Err: errors.New("peer used a signature scheme that was not offered")}
	errInvalidEllipticCurve      = &FatalError{Err: errors.New("peer chose an elliptic curve that was not offered")}
	errSessionMismatch           = &FatalError{Err: errors.New("resumed session does not match the ServerHello")}

	errInvalidFlight                     = &InternalError{Err: errors.New("invalid flight number")}
	errKeySignatureGenerateUnimplemented = &InternalError{Err: errors.New("unable to generate key signature, unimplemented")}
	errKeySignatureVerifyUnimplemented   = &InternalError{Err: errors.New("unable to verify key signature, unimplemented")}
	errSequenceNumberOverflow            = &InternalError{Err: errors.New("sequence number overflow")}
	errInvalidFSMTransition              = &InternalError{Err: errors.New("invalid state machine transition")}
	errNoPendingCipherState              = &InternalError{Err: errors.New("no pending cipher state to activate")}
	errRecordTooLarge                    = &InternalError{Err: errors.New("record does not fit the datagram limit")}
)

// FatalError indicates that the DTLS connection is no longer available.
// It is mainly caused by wrong configuration of server or client.
type FatalError = protocol.FatalError

// InternalError indicates and internal error caused by the implementation,
// and the DTLS connection is no longer available.
type InternalError = protocol.InternalError

// TemporaryError indicates that the DTLS connection is still available, but the request was failed temporary.
type TemporaryError = protocol.TemporaryError

// TimeoutError indicates that the request was timed out.
type TimeoutError = protocol.TimeoutError

// HandshakeError indicates that the handshake failed.
type HandshakeError = protocol.HandshakeError

type invalidCipherSuiteError struct {
	id CipherSuiteID
}

func (e *invalidCipherSuiteError) Error() string {
	return fmt.Sprintf("CipherSuite with id(%d) is not valid", e.id)
}

func (e *invalidCipherSuiteError) Is(err error) bool {
	var other *invalidCipherSuiteError
	if errors.As(err, &other) {
		return e.id == other.id
	}

	return false
}

// AlertError wraps a DTLS alert that terminated the connection.
// Remote is true when the peer sent the alert, false when it was raised
// and sent locally. Err carries the local cause, if any.
type AlertError struct {
	*alert.Alert
	Remote bool
	Err    error
}

func (e *AlertError) Error() string {
	side := "local"
	if e.Remote {
		side = "remote"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s alert: %s: %v", side, e.Alert.String(), e.Err)
	}

	return fmt.Sprintf("%s alert: %s", side, e.Alert.String())
}

// Unwrap returns the local cause of the alert.
func (e *AlertError) Unwrap() error { return e.Err }

// IsFatalOrCloseNotify reports whether the alert ends the connection.
func (e *AlertError) IsFatalOrCloseNotify() bool {
	return e.Level == alert.Fatal || e.Description == alert.CloseNotify
}

// Is matches alerts of the same level and description.
func (e *AlertError) Is(err error) bool {
	var other *AlertError
	if errors.As(err, &other) {
		return e.Level == other.Level && e.Description == other.Description
	}

	return false
}

// FailureKind classifies how a connection operation failed.
type FailureKind int

// FailureKind enums.
const (
	// FailureNone is a nil error or ErrNoData.
	FailureNone FailureKind = iota
	// FailureProtocol is a local alert raised by a malformed or misplaced message.
	FailureProtocol
	// FailureLocal is any other locally raised fatal alert.
	FailureLocal
	// FailureRemote is a fatal alert sent by the peer.
	FailureRemote
	// FailureTimeout is an exhausted handshake retransmission budget.
	FailureTimeout
	// FailureClosed is a clean close by either side.
	FailureClosed
	// FailureTransport is an error from the datagram transport or any other cause.
	FailureTransport
)

func (f FailureKind) String() string {
	switch f {
	case FailureNone:
		return "none"
	case FailureProtocol:
		return "protocol"
	case FailureLocal:
		return "local"
	case FailureRemote:
		return "remote"
	case FailureTimeout:
		return "timeout"
	case FailureClosed:
		return "closed"
	case FailureTransport:
		return "transport"
	default:
		return "unknown"
	}
}

// FailureKindOf maps an error returned by this package to its category.
func FailureKindOf(err error) FailureKind {
	var alertErr *AlertError

	switch {
	case err == nil, errors.Is(err, ErrNoData):
		return FailureNone
	case errors.Is(err, ErrHandshakeTimeout):
		return FailureTimeout
	case errors.Is(err, ErrConnClosed), errors.Is(err, io.EOF):
		return FailureClosed
	case errors.As(err, &alertErr):
		switch {
		case alertErr.Description == alert.CloseNotify:
			return FailureClosed
		case alertErr.Remote:
			return FailureRemote
		case isProtocolViolation(alertErr.Description):
			return FailureProtocol
		default:
			return FailureLocal
		}
	default:
		return FailureTransport
	}
}

func isProtocolViolation(d alert.Description) bool {
	switch d {
	case alert.UnexpectedMessage, alert.DecodeError, alert.IllegalParameter:
		return true
	default:
		return false
	}
}

// isTimeout reports whether a transport error is a receive timeout.
func isTimeout(err error) bool {
	if errors.Is(err, ErrNoData) {
		return true
	}

	var ne net.Error

	return errors.As(err, &ne) && ne.Timeout()
}
