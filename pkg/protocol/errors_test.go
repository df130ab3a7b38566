// SPDX-FileCopyrightText: 2026 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package protocol

import (
	"errors"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorsNetError(t *testing.T) {
	errExample := errors.New("an example error")

	for _, test := range []struct {
		err                error
		str                string
		timeout, temporary bool
	}{
		{&FatalError{Err: errExample}, "dtls fatal: an example error", false, false},
		{&TemporaryError{Err: errExample}, "dtls temporary: an example error", false, true},
		{&InternalError{Err: errExample}, "dtls internal: an example error", false, false},
		{&TimeoutError{Err: errExample}, "dtls timeout: an example error", true, true},
		{&HandshakeError{Err: &TimeoutError{Err: errExample}}, "handshake error: dtls timeout: an example error", true, true},
		{&HandshakeError{Err: errExample}, "handshake error: an example error", false, false},
	} {
		var netErr net.Error
		assert.True(t, errors.As(test.err, &netErr))
		assert.Equal(t, test.str, netErr.Error())
		assert.Equal(t, test.timeout, netErr.Timeout())
		assert.Equal(t, test.temporary, netErr.Temporary()) //nolint:staticcheck
		assert.ErrorIs(t, test.err, errExample)
	}
}
