// SPDX-FileCopyrightText: 2026 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package dtls

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"testing"
	"time"

	"github.com/pion/dtlsengine/internal/net/dpipe"
	"github.com/pion/dtlsengine/pkg/protocol/alert"
	"github.com/pion/transport/v3/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientAuth(t *testing.T) {
	lim := test.TimeOut(time.Second * 30)
	defer lim.Stop()

	report := test.CheckRoutines(t)
	defer report()

	serverCert, _ := selfSigned(t, keyECDSA)
	clientCert, clientLeaf := selfSigned(t, keyECDSA)
	edClientCert, edClientLeaf := selfSigned(t, keyEd25519)
	_, strangerLeaf := selfSigned(t, keyECDSA)

	errRejected := errors.New("client certificate rejected")

	for _, tc := range []struct {
		name         string
		clientAuth   ClientAuthType
		clientCert   *tls.Certificate
		clientCAs    *x509.CertPool
		verify       func([][]byte, [][]*x509.Certificate) error
		wantPeer     *x509.Certificate
		wantErr      error
		wantAlert    alert.Description
		wantX509Fail bool
	}{
		{name: "NoClientCert", clientAuth: NoClientCert, clientCert: &clientCert},
		{name: "RequestWithout", clientAuth: RequestClientCert},
		{name: "RequestWith", clientAuth: RequestClientCert, clientCert: &clientCert, wantPeer: clientLeaf},
		{
			name:       "RequireAnyWithout",
			clientAuth: RequireAnyClientCert,
			wantErr:    errClientCertificateRequired,
			wantAlert:  alert.NoCertificate,
		},
		{name: "RequireAnyWith", clientAuth: RequireAnyClientCert, clientCert: &clientCert, wantPeer: clientLeaf},
		{name: "VerifyIfGivenWithout", clientAuth: VerifyClientCertIfGiven, clientCAs: certPool(clientLeaf)},
		{
			name:       "VerifyIfGivenTrusted",
			clientAuth: VerifyClientCertIfGiven,
			clientCert: &clientCert,
			clientCAs:  certPool(clientLeaf),
			wantPeer:   clientLeaf,
		},
		{
			name:         "VerifyIfGivenUntrusted",
			clientAuth:   VerifyClientCertIfGiven,
			clientCert:   &clientCert,
			clientCAs:    certPool(strangerLeaf),
			wantAlert:    alert.BadCertificate,
			wantX509Fail: true,
		},
		{
			name:       "RequireAndVerifyWithout",
			clientAuth: RequireAndVerifyClientCert,
			clientCAs:  certPool(clientLeaf),
			wantErr:    errClientCertificateRequired,
			wantAlert:  alert.NoCertificate,
		},
		{
			name:       "RequireAndVerifyTrusted",
			clientAuth: RequireAndVerifyClientCert,
			clientCert: &clientCert,
			clientCAs:  certPool(clientLeaf),
			wantPeer:   clientLeaf,
		},
		{
			name:       "RequireAndVerifyEd25519",
			clientAuth: RequireAndVerifyClientCert,
			clientCert: &edClientCert,
			clientCAs:  certPool(edClientLeaf),
			wantPeer:   edClientLeaf,
		},
		{
			name:       "CallbackRejects",
			clientAuth: RequireAnyClientCert,
			clientCert: &clientCert,
			verify: func([][]byte, [][]*x509.Certificate) error {
				return errRejected
			},
			wantErr:   errRejected,
			wantAlert: alert.BadCertificate,
		},
		{
			name:       "CallbackSeesChains",
			clientAuth: RequireAndVerifyClientCert,
			clientCert: &clientCert,
			clientCAs:  certPool(clientLeaf),
			verify: func(raw [][]byte, chains [][]*x509.Certificate) error {
				if len(raw) != 1 || len(chains) == 0 {
					return errRejected
				}

				return nil
			},
			wantPeer: clientLeaf,
		},
	} {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			clientCfg := anonymousClientConfig()
			if tc.clientCert != nil {
				clientCfg.Certificates = []tls.Certificate{*tc.clientCert}
			}
			serverCfg := certificateConfig(serverCert)
			serverCfg.ClientAuth = tc.clientAuth
			serverCfg.ClientCAs = tc.clientCAs
			serverCfg.VerifyPeerCertificate = tc.verify

			ca, cb := dpipe.Pipe(testMTU)
			client, server, clientErr, serverErr := handshakePair(context.Background(), ca, cb, clientCfg, serverCfg)

			if tc.wantAlert != 0 {
				assertLocalAlert(t, serverErr, tc.wantAlert)
				if tc.wantErr != nil {
					assert.ErrorIs(t, serverErr, tc.wantErr)
				}
				if tc.wantX509Fail {
					var unknown x509.UnknownAuthorityError
					assert.ErrorAs(t, serverErr, &unknown)
				}
				assertRemoteAlert(t, clientErr, tc.wantAlert)

				return
			}

			require.NoError(t, clientErr)
			require.NoError(t, serverErr)
			defer closePair(client, server)

			state, ok := server.ConnectionState()
			require.True(t, ok)
			if tc.wantPeer == nil {
				assert.Empty(t, state.PeerCertificates)
			} else {
				assert.Equal(t, [][]byte{tc.wantPeer.Raw}, state.PeerCertificates)
			}
			exchange(t, client, server, 32)
			exchange(t, server, client, 32)
		})
	}
}
