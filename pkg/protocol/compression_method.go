// SPDX-FileCopyrightText: 2026 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package protocol

// CompressionMethodID is the ID for a CompressionMethod.
type CompressionMethodID byte

const (
	compressionMethodNull CompressionMethodID = 0
)

// CompressionMethod represents a TLS Compression Method.
type CompressionMethod struct {
	ID CompressionMethodID
}

// CompressionMethods returns all supported CompressionMethods.
func CompressionMethods() map[CompressionMethodID]*CompressionMethod {
	return map[CompressionMethodID]*CompressionMethod{
		compressionMethodNull: {ID: compressionMethodNull},
	}
}

// NullCompressionMethod is the only method this engine negotiates.
func NullCompressionMethod() *CompressionMethod {
	return &CompressionMethod{ID: compressionMethodNull}
}

// DecodeCompressionMethods the given compression methods.
// Unknown methods are skipped.
func DecodeCompressionMethods(buf []byte) ([]*CompressionMethod, error) {
	if len(buf) < 1 {
		return nil, errBufferTooSmall
	}
	compressionMethodsCount := int(buf[0])
	if len(buf) < compressionMethodsCount+1 {
		return nil, errBufferTooSmall
	}

	compressionMethods := []*CompressionMethod{}
	for i := 0; i < compressionMethodsCount; i++ {
		id := CompressionMethodID(buf[i+1])
		if compressionMethod, ok := CompressionMethods()[id]; ok {
			compressionMethods = append(compressionMethods, compressionMethod)
		}
	}

	return compressionMethods, nil
}

// EncodeCompressionMethods the given compression methods.
func EncodeCompressionMethods(compressionMethods []*CompressionMethod) []byte {
	out := []byte{byte(len(compressionMethods))}
	for i := len(compressionMethods); i > 0; i-- {
		out = append(out, byte(compressionMethods[i-1].ID))
	}

	return out
}
