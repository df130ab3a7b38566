// SPDX-FileCopyrightText: 2026 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package dtls

// A flight is the group of handshake messages one side sends before it
// waits for the other. Flights are retransmitted as a unit.
// https://tools.ietf.org/html/rfc6347#section-4.2.4
//
// Full handshake, with the phases each side reports:
//
//	Client                                 Server
//	START                                  WAIT_CLIENT_HELLO       (0)
//	ClientHello ----------------------->                           (1)
//	SENT_HELLO
//	          <------------------------ HelloVerifyRequest         (2)
//	COOKIE_RETRY                           SENT_COOKIE_REQUEST
//	ClientHello + cookie -------------->                           (3)
//	WAIT_SERVER_HELLO                      WAIT_CLIENT_HELLO_WITH_COOKIE
//	          <------------------------ ServerHello                (4)
//	                                    Certificate*
//	                                    ServerKeyExchange*
//	                                    CertificateRequest*
//	                                    ServerHelloDone
//	WAIT_SERVER_KEY_EXCHANGE               SENT_SERVER_HELLO_FLIGHT
//	Certificate* ---------------------->                           (5)
//	ClientKeyExchange
//	CertificateVerify*
//	[ChangeCipherSpec] Finished
//	SENT_FINISHED                          WAIT_CLIENT_KEY_EXCHANGE
//	          <------------------------ [ChangeCipherSpec] Finished (6)
//	CONNECTED                              CONNECTED
//
// Resumption skips the cookie exchange and the key exchange. The server
// answers a recognised session id with Flight 4b (ServerHello,
// [ChangeCipherSpec], Finished) and the client ends with Flight 5b
// ([ChangeCipherSpec], Finished). An unknown session id gets a full
// Flight 4.

// FlightVal names a flight of the handshake.
type FlightVal uint8

// FlightVal enums.
const (
	Flight0 FlightVal = iota + 1
	Flight1
	Flight2
	Flight3
	Flight4
	Flight4b
	Flight5
	Flight5b
	Flight6
)

var flightNames = [...]string{ //nolint:gochecknoglobals
	Flight0:  "Flight 0",
	Flight1:  "Flight 1",
	Flight2:  "Flight 2",
	Flight3:  "Flight 3",
	Flight4:  "Flight 4",
	Flight4b: "Flight 4b",
	Flight5:  "Flight 5",
	Flight5b: "Flight 5b",
	Flight6:  "Flight 6",
}

func (f FlightVal) String() string {
	if f == 0 || int(f) >= len(flightNames) {
		return "Invalid Flight"
	}

	return flightNames[f]
}

// isLastSendFlight reports a flight that completes the handshake for its
// sender. It is kept for retransmission when the peer repeats itself.
func (f FlightVal) isLastSendFlight() bool {
	return f == Flight6 || f == Flight5b
}

// isLastRecvFlight reports a flight whose receipt completes the handshake.
func (f FlightVal) isLastRecvFlight() bool {
	return f == Flight5 || f == Flight4b
}
