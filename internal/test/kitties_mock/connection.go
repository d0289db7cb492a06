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

// Package kitties_mock provides a scripted peer for exercising kitties connections. The
// peer plays back a conversation of expected inbound messages and canned responses.
package kitties_mock

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net"
	"reflect"
	"time"

	"github.com/blinklabs-io/gokitties/cbor"
	"github.com/blinklabs-io/gokitties/muxer"
)

// ProtocolRole is the role of the connection under test
type ProtocolRole uint

const (
	ProtocolRoleNone   ProtocolRole = 0
	ProtocolRoleClient ProtocolRole = 1
	ProtocolRoleServer ProtocolRole = 2
)

// Connection is the test side of an in-memory pipe whose other side plays back a
// conversation
type Connection struct {
	mockConn      net.Conn
	conn          net.Conn
	conversation  []ConversationEntry
	muxer         *muxer.Muxer
	muxerRecvChan chan *muxer.Segment
	errorChan     chan error
	doneChan      chan struct{}
}

// NewConnection returns a new Connection with the provided conversation entries. The
// role is the role of the connection under test
func NewConnection(
	protocolRole ProtocolRole,
	conversation []ConversationEntry,
) *Connection {
	c := &Connection{
		conversation: conversation,
		errorChan:    make(chan error, 1),
		doneChan:     make(chan struct{}),
	}
	c.conn, c.mockConn = net.Pipe()
	c.muxer = muxer.New(c.mockConn)
	// The mock plays the opposite role of the connection under test
	muxerProtocolRole := muxer.ProtocolRoleResponder
	if protocolRole == ProtocolRoleServer {
		muxerProtocolRole = muxer.ProtocolRoleInitiator
	}
	// ProtocolUnknown catches all inbound segments
	c.muxerRecvChan = c.muxer.RegisterProtocol(
		muxer.ProtocolUnknown,
		muxerProtocolRole,
	)
	c.muxer.Start()
	go func() {
		defer close(c.doneChan)
		c.asyncLoop()
	}()
	return c
}

// ErrorChan returns a channel that receives the first conversation failure, if any
func (c *Connection) ErrorChan() <-chan error {
	return c.errorChan
}

// DoneChan returns a channel that is closed when the conversation has been played back
// or aborted
func (c *Connection) DoneChan() <-chan struct{} {
	return c.doneChan
}

// Read provides a proxy to the test side of the pipe
func (c *Connection) Read(b []byte) (n int, err error) {
	return c.conn.Read(b)
}

// Write provides a proxy to the test side of the pipe
func (c *Connection) Write(b []byte) (n int, err error) {
	return c.conn.Write(b)
}

// Close closes both sides of the pipe and waits for the mock muxer to exit
func (c *Connection) Close() error {
	c.muxer.Stop()
	connErr := c.conn.Close()
	mockErr := c.mockConn.Close()
	c.muxer.Wait()
	return errors.Join(connErr, mockErr)
}

// closeRemote closes only the mock side of the pipe, so the connection under test sees a
// clean EOF as it would from a remote peer hanging up
func (c *Connection) closeRemote() error {
	c.muxer.Stop()
	err := c.mockConn.Close()
	c.muxer.Wait()
	return err
}

func (c *Connection) LocalAddr() net.Addr {
	return c.conn.LocalAddr()
}

func (c *Connection) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

func (c *Connection) SetDeadline(t time.Time) error {
	return c.conn.SetDeadline(t)
}

func (c *Connection) SetReadDeadline(t time.Time) error {
	return c.conn.SetReadDeadline(t)
}

func (c *Connection) SetWriteDeadline(t time.Time) error {
	return c.conn.SetWriteDeadline(t)
}

func (c *Connection) fail(err error) {
	select {
	case c.errorChan <- err:
	default:
	}
}

func (c *Connection) asyncLoop() {
	for _, entry := range c.conversation {
		var err error
		switch entry.Type {
		case EntryTypeInput:
			err = c.processInputEntry(entry)
		case EntryTypeOutput:
			err = c.processOutputEntry(entry)
		case EntryTypeClose:
			err = c.closeRemote()
		default:
			err = fmt.Errorf(
				"unknown conversation entry type: %d: %#v",
				entry.Type,
				entry,
			)
		}
		if err != nil {
			if !isClosedErr(err) {
				c.fail(err)
			}
			return
		}
	}
}

func (c *Connection) processInputEntry(entry ConversationEntry) error {
	var segment *muxer.Segment
	select {
	case <-c.muxer.DoneChan():
		return c.muxerErr()
	case segment = <-c.muxerRecvChan:
	}
	if segment.GetProtocolId() != entry.ProtocolId {
		return fmt.Errorf(
			"input message protocol ID did not match expected value: expected %d, got %d",
			entry.ProtocolId,
			segment.GetProtocolId(),
		)
	}
	if segment.IsResponse() != entry.IsResponse {
		return fmt.Errorf(
			"input message response flag did not match expected value: expected %v, got %v",
			entry.IsResponse,
			segment.IsResponse(),
		)
	}
	msgType, err := cbor.DecodeIdFromList(segment.Payload)
	if err != nil {
		return fmt.Errorf("decode error: %w", err)
	}
	if entry.InputMessage == nil {
		if entry.InputMessageType != uint(msgType) { // #nosec G115
			return fmt.Errorf(
				"input message is not of expected type: expected %d, got %d",
				entry.InputMessageType,
				msgType,
			)
		}
		return nil
	}
	msg, err := entry.MsgFromCborFunc(uint(msgType), segment.Payload) // #nosec G115
	if err != nil {
		return fmt.Errorf("message from CBOR error: %w", err)
	}
	if msg == nil {
		return fmt.Errorf("received unknown message type: %d", msgType)
	}
	// Compare without the stored raw CBOR
	msg.SetCbor(nil)
	entry.InputMessage.SetCbor(nil)
	if !reflect.DeepEqual(msg, entry.InputMessage) {
		return fmt.Errorf(
			"parsed message does not match expected value: got %#v, expected %#v",
			msg,
			entry.InputMessage,
		)
	}
	return nil
}

func (c *Connection) processOutputEntry(entry ConversationEntry) error {
	payloadBuf := bytes.NewBuffer(nil)
	for _, msg := range entry.OutputMessages {
		data := msg.Cbor()
		if data == nil {
			var err error
			data, err = cbor.Encode(msg)
			if err != nil {
				return err
			}
		}
		payloadBuf.Write(data)
	}
	segment := muxer.NewSegment(
		entry.ProtocolId,
		payloadBuf.Bytes(),
		entry.IsResponse,
	)
	return c.muxer.Send(segment)
}

func (c *Connection) muxerErr() error {
	select {
	case err := <-c.muxer.ErrorChan():
		return err
	default:
		return io.EOF
	}
}

func isClosedErr(err error) bool {
	return errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrClosedPipe) ||
		errors.Is(err, net.ErrClosed) ||
		errors.Is(err, muxer.ErrMuxerShuttingDown)
}
