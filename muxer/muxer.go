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

// Package muxer multiplexes mini-protocol segments over a single connection.
package muxer

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
)

const (
	// Magic number chosen to represent unknown protocols
	ProtocolUnknown uint16 = 0xabcd
)

// ProtocolRole is the role a registered mini-protocol plays on this side of the connection
type ProtocolRole uint

const (
	ProtocolRoleNone      ProtocolRole = 0
	ProtocolRoleInitiator ProtocolRole = 1
	ProtocolRoleResponder ProtocolRole = 2
)

var ErrMuxerShuttingDown = errors.New("muxer is shutting down")

type protocolKey struct {
	id   uint16
	role ProtocolRole
}

// Muxer reads segments from a connection and routes them to the registered mini-protocols
type Muxer struct {
	conn              net.Conn
	sendMutex         sync.Mutex
	startChan         chan struct{}
	doneChan          chan struct{}
	errorChan         chan error
	protocolReceivers map[protocolKey]chan *Segment
	protocolsMutex    sync.Mutex
	onceRead          sync.Once
	onceStart         sync.Once
	onceStop          sync.Once
	waitGroup         sync.WaitGroup
}

// New returns a new Muxer for the provided connection. Reading begins when the first
// mini-protocol registers or Start is called, and stops after the first segment until
// Start is called. This gives the caller a chance to complete a handshake and register
// the negotiated mini-protocols before their traffic arrives
func New(conn net.Conn) *Muxer {
	m := &Muxer{
		conn:              conn,
		startChan:         make(chan struct{}),
		doneChan:          make(chan struct{}),
		errorChan:         make(chan error, 10),
		protocolReceivers: make(map[protocolKey]chan *Segment),
	}
	return m
}

func (m *Muxer) startReading() {
	m.onceRead.Do(func() {
		m.waitGroup.Add(1)
		go m.readLoop()
	})
}

// ErrorChan returns the channel for asynchronous muxer errors
func (m *Muxer) ErrorChan() chan error {
	return m.errorChan
}

// DoneChan returns a channel that is closed when the muxer shuts down
func (m *Muxer) DoneChan() <-chan struct{} {
	return m.doneChan
}

// Start allows the read loop to proceed past the first segment
func (m *Muxer) Start() {
	m.onceStart.Do(func() {
		close(m.startChan)
	})
	m.startReading()
}

// Stop shuts down the muxer. The underlying connection is not closed, which is the
// responsibility of the owner of the connection. Stop does not wait for the read loop,
// which only exits once the connection is closed
func (m *Muxer) Stop() {
	m.onceStop.Do(func() {
		close(m.doneChan)
	})
}

// Wait blocks until the read loop has exited
func (m *Muxer) Wait() {
	m.waitGroup.Wait()
}

func (m *Muxer) sendError(err error) {
	select {
	case <-m.doneChan:
		return
	default:
	}
	// The channel is buffered and only the first error matters
	select {
	case m.errorChan <- err:
	default:
	}
	m.Stop()
}

// RegisterProtocol registers a mini-protocol with the muxer and returns the channel on
// which its inbound segments will be delivered
func (m *Muxer) RegisterProtocol(
	protocolId uint16,
	protocolRole ProtocolRole,
) chan *Segment {
	m.protocolsMutex.Lock()
	defer m.protocolsMutex.Unlock()
	key := protocolKey{id: protocolId, role: protocolRole}
	if recvChan, ok := m.protocolReceivers[key]; ok {
		return recvChan
	}
	recvChan := make(chan *Segment, 10)
	m.protocolReceivers[key] = recvChan
	m.startReading()
	return recvChan
}

// Send writes a segment to the connection
func (m *Muxer) Send(segment *Segment) error {
	select {
	case <-m.doneChan:
		return ErrMuxerShuttingDown
	default:
	}
	// We use a mutex to make sure only one protocol can send at a time
	m.sendMutex.Lock()
	defer m.sendMutex.Unlock()
	buf := bytes.NewBuffer(nil)
	if err := binary.Write(buf, binary.BigEndian, segment.SegmentHeader); err != nil {
		return err
	}
	buf.Write(segment.Payload)
	if _, err := m.conn.Write(buf.Bytes()); err != nil {
		m.sendError(err)
		return err
	}
	return nil
}

func (m *Muxer) receiverFor(header SegmentHeader) chan *Segment {
	m.protocolsMutex.Lock()
	defer m.protocolsMutex.Unlock()
	// A response comes from the responder, so it's meant for our initiator
	role := ProtocolRoleResponder
	if header.IsResponse() {
		role = ProtocolRoleInitiator
	}
	if recvChan, ok := m.protocolReceivers[protocolKey{id: header.GetProtocolId(), role: role}]; ok {
		return recvChan
	}
	// Try the "unknown protocol" receiver if we didn't find an explicit one
	for _, role := range []ProtocolRole{ProtocolRoleInitiator, ProtocolRoleResponder} {
		if recvChan, ok := m.protocolReceivers[protocolKey{id: ProtocolUnknown, role: role}]; ok {
			return recvChan
		}
	}
	return nil
}

func (m *Muxer) readLoop() {
	defer m.waitGroup.Done()
	started := false
	for {
		header := SegmentHeader{}
		if err := binary.Read(m.conn, binary.BigEndian, &header); err != nil {
			if errors.Is(err, io.ErrUnexpectedEOF) {
				err = io.EOF
			}
			m.sendError(err)
			return
		}
		segment := &Segment{
			SegmentHeader: header,
			Payload:       make([]byte, header.PayloadLength),
		}
		// ReadFull guarantees to read the expected number of bytes or return an error
		if _, err := io.ReadFull(m.conn, segment.Payload); err != nil {
			if errors.Is(err, io.ErrUnexpectedEOF) {
				err = io.EOF
			}
			m.sendError(err)
			return
		}
		recvChan := m.receiverFor(header)
		if recvChan == nil {
			m.sendError(
				fmt.Errorf(
					"received message for unknown protocol ID %d",
					header.GetProtocolId(),
				),
			)
			return
		}
		select {
		case <-m.doneChan:
			return
		case recvChan <- segment:
		}
		// Wait until the muxer is started to continue
		// We don't want to read more than one segment until the handshake is complete
		if !started {
			select {
			case <-m.doneChan:
				return
			case <-m.startChan:
				started = true
			}
		}
	}
}
