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

// Package kitties implements a client for a kitties chain node.
//
// A connection carries a muxer and several mini-protocols. A handshake negotiates the
// protocol version and checks the network magic, after which the kitty-query,
// call-submission and keep-alive mini-protocols are available.
//
// This package is the main entry point into this library. The gallery package builds the
// reconciled kitty list on top of a NodeSource.
package kitties

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/blinklabs-io/gokitties/muxer"
	"github.com/blinklabs-io/gokitties/protocol"
	"github.com/blinklabs-io/gokitties/protocol/callsubmission"
	"github.com/blinklabs-io/gokitties/protocol/handshake"
	"github.com/blinklabs-io/gokitties/protocol/keepalive"
	"github.com/blinklabs-io/gokitties/protocol/kittyquery"
)

var (
	ErrConnectionExists    = errors.New("a connection was already established")
	ErrInvalidNetworkMagic = errors.New("invalid network magic value")
)

var connectionSerial atomic.Uint64

// ConnectionId uniquely identifies a connection. The serial number tells apart connections
// with the same addresses, such as in-memory pipes
type ConnectionId struct {
	Serial     uint64
	LocalAddr  net.Addr
	RemoteAddr net.Addr
}

func (c ConnectionId) String() string {
	var local, remote string
	if c.LocalAddr != nil {
		local = c.LocalAddr.String()
	}
	if c.RemoteAddr != nil {
		remote = c.RemoteAddr.String()
	}
	return fmt.Sprintf("%d:%s<>%s", c.Serial, local, remote)
}

// The Connection type is a wrapper around a net.Conn object that handles communication
// with a kitties node over that connection
type Connection struct {
	id                    ConnectionId
	conn                  net.Conn
	networkMagic          uint32
	server                bool
	logger                *slog.Logger
	muxer                 *muxer.Muxer
	errorChan             chan error
	protoErrorChan        chan error
	handshakeFinishedChan chan struct{}
	handshakeVersion      uint16
	handshakeTimeout      time.Duration
	protocolVersions      []uint16
	doneChan              chan struct{}
	waitGroup             sync.WaitGroup
	onceClose             sync.Once
	delayMuxerStart       bool
	// Mini-protocols
	protocolsMutex       sync.Mutex
	handshake            *handshake.Handshake
	kittyQuery           *kittyquery.KittyQuery
	kittyQueryConfig     *kittyquery.Config
	callSubmission       *callsubmission.CallSubmission
	callSubmissionConfig *callsubmission.Config
	keepAlive            *keepalive.KeepAlive
	keepAliveConfig      *keepalive.Config
	sendKeepAlives       bool
}

// NewConnection returns a new Connection object with the specified options. If a connection
// is provided, the handshake will be started. An error will be returned if the handshake fails
func NewConnection(options ...ConnectionOptionFunc) (*Connection, error) {
	c := &Connection{
		protoErrorChan:        make(chan error, 10),
		handshakeFinishedChan: make(chan struct{}),
		doneChan:              make(chan struct{}),
		handshakeTimeout:      5 * time.Second,
	}
	// Apply provided options functions
	for _, option := range options {
		option(c)
	}
	if c.errorChan == nil {
		c.errorChan = make(chan error, 10)
	}
	if c.logger == nil {
		c.logger = slog.New(slog.DiscardHandler)
	}
	if len(c.protocolVersions) == 0 {
		c.protocolVersions = GetProtocolVersions()
	}
	if c.conn != nil {
		if err := c.setupConnection(); err != nil {
			c.Close()
			return nil, err
		}
	}
	return c, nil
}

// New is an alias to NewConnection
func New(options ...ConnectionOptionFunc) (*Connection, error) {
	return NewConnection(options...)
}

// Id returns the connection ID
func (c *Connection) Id() ConnectionId {
	return c.id
}

// Muxer returns the muxer object for the connection
func (c *Connection) Muxer() *muxer.Muxer {
	return c.muxer
}

// ErrorChan returns the channel for asynchronous errors. It is closed when the connection
// is closed
func (c *Connection) ErrorChan() chan error {
	return c.errorChan
}

// ProtocolVersion returns the protocol version negotiated by the handshake
func (c *Connection) ProtocolVersion() uint16 {
	return c.handshakeVersion
}

// Dial will establish a connection using the specified protocol and address. These
// parameters are passed to the [net.Dial] func. The handshake will be started when a
// connection is established. An error will be returned if the connection fails, a
// connection was already established, or the handshake fails
func (c *Connection) Dial(proto string, address string) error {
	if c.conn != nil {
		return ErrConnectionExists
	}
	conn, err := net.Dial(proto, address)
	if err != nil {
		return err
	}
	c.conn = conn
	return c.setupConnection()
}

// Close will shutdown the connection
func (c *Connection) Close() error {
	c.onceClose.Do(func() {
		c.protocolsMutex.Lock()
		kittyQuery, callSubmission, keepAlive := c.kittyQuery, c.callSubmission, c.keepAlive
		protocols := c.protocols()
		c.protocolsMutex.Unlock()
		// Let the remote side know we're done while the muxer is still up
		if kittyQuery != nil && kittyQuery.Client != nil {
			_ = kittyQuery.Client.Stop()
		}
		if callSubmission != nil && callSubmission.Client != nil {
			_ = callSubmission.Client.Stop()
		}
		if keepAlive != nil && keepAlive.Client != nil {
			_ = keepAlive.Client.Stop()
		}
		// Close doneChan to signify that we're shutting down
		close(c.doneChan)
		for _, proto := range protocols {
			proto.Stop()
		}
		// Gracefully stop the muxer
		if c.muxer != nil {
			c.muxer.Stop()
		}
		if c.conn != nil {
			_ = c.conn.Close()
		}
		if c.muxer != nil {
			c.muxer.Wait()
		}
		for _, proto := range protocols {
			proto.Wait()
		}
		// Wait for other goroutines to finish
		c.waitGroup.Wait()
		close(c.errorChan)
	})
	return nil
}

// Handshake returns the handshake protocol handler
func (c *Connection) Handshake() *handshake.Handshake {
	return c.handshake
}

// KittyQuery returns the kitty-query protocol handler
func (c *Connection) KittyQuery() *kittyquery.KittyQuery {
	return c.kittyQuery
}

// CallSubmission returns the call-submission protocol handler. It is nil when the
// negotiated version doesn't support call submission
func (c *Connection) CallSubmission() *callsubmission.CallSubmission {
	return c.callSubmission
}

// KeepAlive returns the keep-alive protocol handler
func (c *Connection) KeepAlive() *keepalive.KeepAlive {
	return c.keepAlive
}

type stoppableProtocol interface {
	Stop()
	Wait()
}

// protocols returns the started mini-protocols. protocolsMutex must be held
func (c *Connection) protocols() []stoppableProtocol {
	var ret []stoppableProtocol
	if c.handshake != nil {
		if c.handshake.Client != nil {
			ret = append(ret, c.handshake.Client.Protocol)
		}
		if c.handshake.Server != nil {
			ret = append(ret, c.handshake.Server.Protocol)
		}
	}
	if c.kittyQuery != nil {
		if c.kittyQuery.Client != nil {
			ret = append(ret, c.kittyQuery.Client.Protocol)
		}
		if c.kittyQuery.Server != nil {
			ret = append(ret, c.kittyQuery.Server.Protocol)
		}
	}
	if c.callSubmission != nil {
		if c.callSubmission.Client != nil {
			ret = append(ret, c.callSubmission.Client.Protocol)
		}
		if c.callSubmission.Server != nil {
			ret = append(ret, c.callSubmission.Server.Protocol)
		}
	}
	if c.keepAlive != nil {
		if c.keepAlive.Client != nil {
			ret = append(ret, c.keepAlive.Client.Protocol)
		}
		if c.keepAlive.Server != nil {
			ret = append(ret, c.keepAlive.Server.Protocol)
		}
	}
	return ret
}

// sendError passes an asynchronous error to the user and shuts down the connection
func (c *Connection) sendError(err error) {
	// Errors caused by our own shutdown are not reported
	select {
	case <-c.doneChan:
		return
	default:
	}
	select {
	case <-c.doneChan:
		return
	case c.errorChan <- err:
	}
	// Close from another goroutine, since Close waits on the caller
	go c.Close()
}

// setupConnection establishes the muxer, performs the handshake, and initializes the
// mini-protocols supported by the negotiated version
func (c *Connection) setupConnection() error {
	// Check network magic value
	if c.networkMagic == 0 {
		return fmt.Errorf("%w: %d", ErrInvalidNetworkMagic, c.networkMagic)
	}
	c.id = ConnectionId{
		Serial:     connectionSerial.Add(1),
		LocalAddr:  c.conn.LocalAddr(),
		RemoteAddr: c.conn.RemoteAddr(),
	}
	c.muxer = muxer.New(c.conn)
	// Start Goroutine to pass along errors from the muxer
	c.waitGroup.Add(1)
	go func() {
		defer c.waitGroup.Done()
		select {
		case <-c.doneChan:
			return
		case err := <-c.muxer.ErrorChan():
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				// Return a bare io.EOF error if error is EOF/ErrUnexpectedEOF
				c.sendError(io.EOF)
			} else {
				// Wrap error message to denote it comes from the muxer
				c.sendError(fmt.Errorf("muxer error: %w", err))
			}
		}
	}()
	protoOptions := protocol.ProtocolOptions{
		ConnectionId: c.id.String(),
		Muxer:        c.muxer,
		Logger:       c.logger,
		ErrorChan:    c.protoErrorChan,
		Role:         protocol.ProtocolRoleClient,
	}
	if c.server {
		protoOptions.Role = protocol.ProtocolRoleServer
	}
	// Perform handshake
	handshakeConfig := handshake.NewConfig(
		handshake.WithProtocolVersions(c.protocolVersions),
		handshake.WithNetworkMagic(c.networkMagic),
		handshake.WithTimeout(c.handshakeTimeout),
		handshake.WithFinishedFunc(
			func(_ handshake.CallbackContext, version uint16) error {
				c.handshakeVersion = version
				close(c.handshakeFinishedChan)
				return nil
			},
		),
	)
	c.protocolsMutex.Lock()
	c.handshake = &handshake.Handshake{}
	if c.server {
		c.handshake.Server = handshake.NewServer(protoOptions, &handshakeConfig)
		c.handshake.Server.Start()
	} else {
		c.handshake.Client = handshake.NewClient(protoOptions, &handshakeConfig)
		c.handshake.Client.Start()
	}
	c.protocolsMutex.Unlock()
	// Wait for handshake completion or error
	select {
	case <-c.doneChan:
		// Return an error if we're shutting down
		return io.EOF
	case err := <-c.protoErrorChan:
		return err
	case <-c.handshakeFinishedChan:
	}
	c.logger.Debug(
		"handshake complete",
		"component", "network",
		"connection_id", c.id.String(),
		"version", c.handshakeVersion,
	)
	// Provide the negotiated protocol version to the various mini-protocols
	protoOptions.Version = c.handshakeVersion
	// Start Goroutine to pass along errors from the mini-protocols
	c.waitGroup.Add(1)
	go func() {
		defer c.waitGroup.Done()
		select {
		case <-c.doneChan:
			return
		case err := <-c.protoErrorChan:
			c.sendError(fmt.Errorf("protocol error: %w", err))
		}
	}()
	// Configure the relevant mini-protocols
	version := GetProtocolVersion(c.handshakeVersion)
	c.protocolsMutex.Lock()
	defer c.protocolsMutex.Unlock()
	if version.EnableKittyQueryProtocol {
		c.kittyQuery = &kittyquery.KittyQuery{}
		if c.server {
			c.kittyQuery.Server = kittyquery.NewServer(protoOptions, c.kittyQueryConfig)
			c.kittyQuery.Server.Start()
		} else {
			c.kittyQuery.Client = kittyquery.NewClient(protoOptions, c.kittyQueryConfig)
			c.kittyQuery.Client.Start()
		}
	}
	if version.EnableCallSubmissionProtocol {
		c.callSubmission = &callsubmission.CallSubmission{}
		if c.server {
			c.callSubmission.Server = callsubmission.NewServer(
				protoOptions,
				c.callSubmissionConfig,
			)
			c.callSubmission.Server.Start()
		} else {
			c.callSubmission.Client = callsubmission.NewClient(
				protoOptions,
				c.callSubmissionConfig,
			)
			c.callSubmission.Client.Start()
		}
	}
	if version.EnableKeepAliveProtocol {
		c.keepAlive = &keepalive.KeepAlive{}
		if c.server {
			c.keepAlive.Server = keepalive.NewServer(protoOptions, c.keepAliveConfig)
			c.keepAlive.Server.Start()
		} else if c.sendKeepAlives {
			c.keepAlive.Client = keepalive.NewClient(protoOptions, c.keepAliveConfig)
			c.keepAlive.Client.Start()
		}
	}
	if !c.delayMuxerStart {
		c.muxer.Start()
	}
	return nil
}
