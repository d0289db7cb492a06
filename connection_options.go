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

package kitties

import (
	"log/slog"
	"net"
	"time"

	"github.com/blinklabs-io/gokitties/protocol/callsubmission"
	"github.com/blinklabs-io/gokitties/protocol/keepalive"
	"github.com/blinklabs-io/gokitties/protocol/kittyquery"
)

// ConnectionOptionFunc is a type that represents functions that modify the Connection config
type ConnectionOptionFunc func(*Connection)

// WithConnection specifies an existing connection to use. If none is provided, the Dial()
// function can be used to create one later
func WithConnection(conn net.Conn) ConnectionOptionFunc {
	return func(c *Connection) {
		c.conn = conn
	}
}

// WithNetwork specifies the network
func WithNetwork(network Network) ConnectionOptionFunc {
	return func(c *Connection) {
		c.networkMagic = network.NetworkMagic
	}
}

// WithNetworkMagic specifies the network magic value
func WithNetworkMagic(networkMagic uint32) ConnectionOptionFunc {
	return func(c *Connection) {
		c.networkMagic = networkMagic
	}
}

// WithErrorChan specifies the error channel to use. If none is provided, one will be created
func WithErrorChan(errorChan chan error) ConnectionOptionFunc {
	return func(c *Connection) {
		c.errorChan = errorChan
	}
}

// WithServer specifies whether to act as a server
func WithServer(server bool) ConnectionOptionFunc {
	return func(c *Connection) {
		c.server = server
	}
}

// WithLogger specifies the logger passed to the mini-protocols
func WithLogger(logger *slog.Logger) ConnectionOptionFunc {
	return func(c *Connection) {
		c.logger = logger
	}
}

// WithProtocolVersions limits the protocol versions offered or accepted in the handshake.
// The default is every supported version
func WithProtocolVersions(versions ...uint16) ConnectionOptionFunc {
	return func(c *Connection) {
		c.protocolVersions = versions
	}
}

// WithHandshakeTimeout specifies how long to wait for the remote side during the handshake
func WithHandshakeTimeout(timeout time.Duration) ConnectionOptionFunc {
	return func(c *Connection) {
		c.handshakeTimeout = timeout
	}
}

// WithDelayMuxerStart specifies whether to delay the muxer start. This is useful if you need
// to take some custom actions before the muxer starts processing messages, generally when
// acting as a server
func WithDelayMuxerStart(delayMuxerStart bool) ConnectionOptionFunc {
	return func(c *Connection) {
		c.delayMuxerStart = delayMuxerStart
	}
}

// WithKittyQueryConfig specifies KittyQuery protocol config
func WithKittyQueryConfig(cfg kittyquery.Config) ConnectionOptionFunc {
	return func(c *Connection) {
		c.kittyQueryConfig = &cfg
	}
}

// WithCallSubmissionConfig specifies CallSubmission protocol config
func WithCallSubmissionConfig(cfg callsubmission.Config) ConnectionOptionFunc {
	return func(c *Connection) {
		c.callSubmissionConfig = &cfg
	}
}

// WithKeepAlive specifies whether to send periodic keep-alives to the node. A server
// always answers them
func WithKeepAlive(keepAlive bool) ConnectionOptionFunc {
	return func(c *Connection) {
		c.sendKeepAlives = keepAlive
	}
}

// WithKeepAliveConfig specifies KeepAlive protocol config
func WithKeepAliveConfig(cfg keepalive.Config) ConnectionOptionFunc {
	return func(c *Connection) {
		c.keepAliveConfig = &cfg
	}
}
