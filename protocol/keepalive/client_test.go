// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package keepalive_test

import (
	"testing"
	"time"

	"github.com/blinklabs-io/gokitties/internal/test"
	"github.com/blinklabs-io/gokitties/protocol"
	"github.com/blinklabs-io/gokitties/protocol/keepalive"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type testConn struct {
	pair      *test.MuxerPair
	client    *keepalive.Client
	server    *keepalive.Server
	errorChan chan error
}

func newTestConn(clientCfg, serverCfg keepalive.Config) *testConn {
	c := &testConn{
		pair:      test.NewMuxerPair(),
		errorChan: make(chan error, 10),
	}
	c.client = keepalive.NewClient(
		protocol.ProtocolOptions{
			ConnectionId: "client",
			Muxer:        c.pair.ClientMuxer,
			ErrorChan:    c.errorChan,
			Role:         protocol.ProtocolRoleClient,
		},
		&clientCfg,
	)
	c.server = keepalive.NewServer(
		protocol.ProtocolOptions{
			ConnectionId: "server",
			Muxer:        c.pair.ServerMuxer,
			ErrorChan:    c.errorChan,
			Role:         protocol.ProtocolRoleServer,
		},
		&serverCfg,
	)
	c.server.Start()
	c.client.Start()
	c.pair.Start()
	return c
}

func (c *testConn) Close() {
	_ = c.client.Stop()
	c.server.Stop()
	c.pair.Close()
	c.client.Wait()
	c.server.Wait()
}

func TestKeepAliveRoundTrip(t *testing.T) {
	defer goleak.VerifyNone(t)
	responses := make(chan uint16, 10)
	conn := newTestConn(
		keepalive.NewConfig(
			keepalive.WithPeriod(10*time.Millisecond),
			keepalive.WithCookie(0x2a),
			keepalive.WithKeepAliveResponseFunc(
				func(_ keepalive.CallbackContext, cookie uint16) error {
					responses <- cookie
					return nil
				},
			),
		),
		keepalive.NewConfig(),
	)
	defer conn.Close()
	for range 3 {
		select {
		case cookie := <-responses:
			assert.Equal(t, uint16(0x2a), cookie)
		case err := <-conn.errorChan:
			t.Fatalf("unexpected error: %s", err)
		case <-time.After(2 * time.Second):
			t.Fatal("did not receive keep-alive response")
		}
	}
}

func TestKeepAliveServerCallback(t *testing.T) {
	defer goleak.VerifyNone(t)
	pings := make(chan uint16, 10)
	conn := newTestConn(
		keepalive.NewConfig(
			keepalive.WithPeriod(10*time.Millisecond),
			keepalive.WithCookie(7),
		),
		keepalive.NewConfig(
			keepalive.WithKeepAliveFunc(
				func(ctx keepalive.CallbackContext, cookie uint16) error {
					pings <- cookie
					return ctx.Server.SendMessage(
						keepalive.NewMsgKeepAliveResponse(cookie),
					)
				},
			),
		),
	)
	defer conn.Close()
	select {
	case cookie := <-pings:
		assert.Equal(t, uint16(7), cookie)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not receive keep-alive")
	}
}

func TestKeepAliveCookieMismatch(t *testing.T) {
	defer goleak.VerifyNone(t)
	conn := newTestConn(
		keepalive.NewConfig(
			keepalive.WithPeriod(10*time.Millisecond),
			keepalive.WithCookie(1),
		),
		keepalive.NewConfig(
			keepalive.WithKeepAliveFunc(
				func(ctx keepalive.CallbackContext, cookie uint16) error {
					return ctx.Server.SendMessage(
						keepalive.NewMsgKeepAliveResponse(cookie + 1),
					)
				},
			),
		),
	)
	defer conn.Close()
	select {
	case err := <-conn.errorChan:
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unexpected cookie")
	case <-time.After(2 * time.Second):
		t.Fatal("did not receive expected error")
	}
}

func TestKeepAliveResponseTimeout(t *testing.T) {
	defer goleak.VerifyNone(t)
	conn := newTestConn(
		keepalive.NewConfig(
			keepalive.WithPeriod(10*time.Millisecond),
			keepalive.WithTimeout(50*time.Millisecond),
		),
		keepalive.NewConfig(
			keepalive.WithKeepAliveFunc(
				func(keepalive.CallbackContext, uint16) error {
					return nil
				},
			),
		),
	)
	defer conn.Close()
	select {
	case err := <-conn.errorChan:
		require.ErrorIs(t, err, protocol.ErrProtocolTimeout)
	case <-time.After(2 * time.Second):
		t.Fatal("did not receive expected timeout")
	}
}

func TestKeepAliveDoneOnStop(t *testing.T) {
	defer goleak.VerifyNone(t)
	done := make(chan struct{}, 1)
	conn := newTestConn(
		keepalive.NewConfig(keepalive.WithPeriod(time.Hour)),
		keepalive.NewConfig(
			keepalive.WithDoneFunc(func(keepalive.CallbackContext) error {
				done <- struct{}{}
				return nil
			}),
		),
	)
	require.NoError(t, conn.client.Stop())
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("server did not receive Done")
	}
	conn.Close()
}
