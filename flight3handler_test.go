// SPDX-FileCopyrightText: 2026 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package dtls

import (
	"context"
	"crypto/x509"
	"errors"
	"testing"
	"time"

	"github.com/pion/dtlsengine/internal/net/dpipe"
	"github.com/pion/dtlsengine/pkg/crypto/elliptic"
	"github.com/pion/dtlsengine/pkg/protocol/alert"
	"github.com/pion/transport/v3/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// assertLocalAlert checks err is an alert this side raised.
func assertLocalAlert(t *testing.T, err error, desc alert.Description) {
	t.Helper()

	var alertErr *AlertError
	require.ErrorAs(t, err, &alertErr)
	assert.False(t, alertErr.Remote, "alert should be local: %v", err)
	assert.Equal(t, desc, alertErr.Description)
}

// assertRemoteAlert checks err is an alert received from the peer.
func assertRemoteAlert(t *testing.T, err error, desc alert.Description) {
	t.Helper()

	var alertErr *AlertError
	require.ErrorAs(t, err, &alertErr)
	assert.True(t, alertErr.Remote, "alert should be remote: %v", err)
	assert.Equal(t, desc, alertErr.Description)
	assert.Equal(t, FailureRemote, FailureKindOf(err))
}

func TestServerCertificateVerification(t *testing.T) {
	lim := test.TimeOut(time.Second * 20)
	defer lim.Stop()

	report := test.CheckRoutines(t)
	defer report()

	cert, leaf := selfSigned(t, keyECDSA)
	_, otherLeaf := selfSigned(t, keyECDSA)

	errRejected := errors.New("rejected by callback")

	for _, tc := range []struct {
		name       string
		client     func(cfg *Config)
		wantClient error
	}{
		{
			name: "TrustedRoot",
			client: func(cfg *Config) {
				cfg.RootCAs = certPool(leaf)
				cfg.ServerName = "localhost"
			},
		},
		{
			name: "UntrustedRoot",
			client: func(cfg *Config) {
				cfg.RootCAs = certPool(otherLeaf)
				cfg.ServerName = "localhost"
			},
			wantClient: x509.UnknownAuthorityError{},
		},
		{
			name: "WrongServerName",
			client: func(cfg *Config) {
				cfg.RootCAs = certPool(leaf)
				cfg.ServerName = "example.com"
			},
			wantClient: x509.HostnameError{},
		},
		{
			name: "CallbackAccepts",
			client: func(cfg *Config) {
				cfg.InsecureSkipVerify = true
				cfg.VerifyPeerCertificate = func(raw [][]byte, chains [][]*x509.Certificate) error {
					if len(raw) != 1 || len(chains) != 0 {
						return errRejected
					}

					return nil
				}
			},
		},
		{
			name: "CallbackRejects",
			client: func(cfg *Config) {
				cfg.InsecureSkipVerify = true
				cfg.VerifyPeerCertificate = func([][]byte, [][]*x509.Certificate) error {
					return errRejected
				}
			},
			wantClient: errRejected,
		},
	} {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			clientCfg := anonymousClientConfig()
			clientCfg.InsecureSkipVerify = false
			tc.client(clientCfg)

			ca, cb := dpipe.Pipe(testMTU)
			client, server, clientErr, serverErr := handshakePair(
				context.Background(), ca, cb, clientCfg, certificateConfig(cert))

			if tc.wantClient == nil {
				require.NoError(t, clientErr)
				require.NoError(t, serverErr)
				state, ok := client.ConnectionState()
				require.True(t, ok)
				assert.Equal(t, [][]byte{leaf.Raw}, state.PeerCertificates)
				closePair(client, server)

				return
			}

			assertLocalAlert(t, clientErr, alert.BadCertificate)
			switch want := tc.wantClient.(type) {
			case x509.UnknownAuthorityError:
				assert.ErrorAs(t, clientErr, &want)
			case x509.HostnameError:
				assert.ErrorAs(t, clientErr, &want)
			default:
				assert.ErrorIs(t, clientErr, tc.wantClient)
			}
			assertRemoteAlert(t, serverErr, alert.BadCertificate)
		})
	}
}

func TestExtendedMasterSecret(t *testing.T) {
	lim := test.TimeOut(time.Second * 20)
	defer lim.Stop()

	report := test.CheckRoutines(t)
	defer report()

	psk := []byte{0xde, 0xad}

	for _, tc := range []struct {
		name           string
		client, server ExtendedMasterSecretType
		wantEMS        bool
		wantClientErr  error
		wantServerErr  error
	}{
		{name: "RequestRequest", client: RequestExtendedMasterSecret, server: RequestExtendedMasterSecret, wantEMS: true},
		{name: "RequireRequest", client: RequireExtendedMasterSecret, server: RequestExtendedMasterSecret, wantEMS: true},
		{name: "RequestRequire", client: RequestExtendedMasterSecret, server: RequireExtendedMasterSecret, wantEMS: true},
		{name: "DisableRequest", client: DisableExtendedMasterSecret, server: RequestExtendedMasterSecret},
		{name: "RequestDisable", client: RequestExtendedMasterSecret, server: DisableExtendedMasterSecret},
		{name: "DisableDisable", client: DisableExtendedMasterSecret, server: DisableExtendedMasterSecret},
		{
			name:          "RequireDisable",
			client:        RequireExtendedMasterSecret,
			server:        DisableExtendedMasterSecret,
			wantClientErr: errClientRequiredButNoServerEMS,
		},
		{
			name:          "DisableRequire",
			client:        DisableExtendedMasterSecret,
			server:        RequireExtendedMasterSecret,
			wantServerErr: errServerRequiredButNoClientEMS,
		},
	} {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			clientCfg := pskConfig(TLS_PSK_WITH_AES_128_GCM_SHA256, psk)
			clientCfg.ExtendedMasterSecret = tc.client
			serverCfg := pskConfig(TLS_PSK_WITH_AES_128_GCM_SHA256, psk)
			serverCfg.ExtendedMasterSecret = tc.server

			ca, cb := dpipe.Pipe(testMTU)
			client, server, clientErr, serverErr := handshakePair(context.Background(), ca, cb, clientCfg, serverCfg)

			switch {
			case tc.wantClientErr != nil:
				assert.ErrorIs(t, clientErr, tc.wantClientErr)
				assertLocalAlert(t, clientErr, alert.HandshakeFailure)
				assertRemoteAlert(t, serverErr, alert.HandshakeFailure)
			case tc.wantServerErr != nil:
				assert.ErrorIs(t, serverErr, tc.wantServerErr)
				assertLocalAlert(t, serverErr, alert.InsufficientSecurity)
				assertRemoteAlert(t, clientErr, alert.InsufficientSecurity)
			default:
				require.NoError(t, clientErr)
				require.NoError(t, serverErr)
				defer closePair(client, server)

				clientState, _ := client.ConnectionState()
				serverState, _ := server.ConnectionState()
				assert.Equal(t, tc.wantEMS, clientState.ExtendedMasterSecret())
				assert.Equal(t, tc.wantEMS, serverState.ExtendedMasterSecret())
				exchange(t, client, server, 16)
				exchange(t, server, client, 16)
			}
		})
	}
}

func TestEllipticCurveSelection(t *testing.T) {
	lim := test.TimeOut(time.Second * 20)
	defer lim.Stop()

	report := test.CheckRoutines(t)
	defer report()

	cert, _ := selfSigned(t, keyECDSA)

	t.Run("Shared", func(t *testing.T) {
		clientCfg := anonymousClientConfig()
		clientCfg.EllipticCurves = []elliptic.Curve{elliptic.P256}

		ca, cb := dpipe.Pipe(testMTU)
		client, server, clientErr, serverErr := handshakePair(context.Background(), ca, cb, clientCfg, certificateConfig(cert))
		require.NoError(t, clientErr)
		require.NoError(t, serverErr)
		closePair(client, server)
	})

	t.Run("Disjoint", func(t *testing.T) {
		clientCfg := anonymousClientConfig()
		clientCfg.EllipticCurves = []elliptic.Curve{elliptic.X25519}
		serverCfg := certificateConfig(cert)
		serverCfg.EllipticCurves = []elliptic.Curve{elliptic.P256}

		ca, cb := dpipe.Pipe(testMTU)
		_, _, clientErr, serverErr := handshakePair(context.Background(), ca, cb, clientCfg, serverCfg)
		assert.ErrorIs(t, serverErr, errNoSupportedEllipticCurves)
		assertLocalAlert(t, serverErr, alert.InsufficientSecurity)
		assertRemoteAlert(t, clientErr, alert.InsufficientSecurity)
	})
}
