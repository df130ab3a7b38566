// SPDX-FileCopyrightText: 2026 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

// Package protocol provides the DTLS wire format
package protocol

// Version enums.
var (
	Version1_0 = Version{Major: 0xfe, Minor: 0xff} //nolint:gochecknoglobals
	Version1_2 = Version{Major: 0xfe, Minor: 0xfd} //nolint:gochecknoglobals
)

// Version is the minor/major value in the RecordLayer
// and ClientHello/ServerHello
//
// https://tools.ietf.org/html/rfc4346#section-6.2.1
type Version struct {
	Major, Minor uint8
}

// Equal determines if two protocol versions are equal.
func (v Version) Equal(x Version) bool {
	return v.Major == x.Major && v.Minor == x.Minor
}

// IsValidVersion returns true for the versions a record header may carry.
// DTLS 1.0 is accepted on the wire because clients commonly put it in the
// record header of the initial ClientHello.
func IsValidVersion(v Version) bool {
	return v.Equal(Version1_0) || v.Equal(Version1_2)
}

// IsSupportedVersion returns true if the version can be negotiated.
// Only DTLS 1.2 is negotiated.
func IsSupportedVersion(v Version) bool {
	return v.Equal(Version1_2)
}
