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

// Package protocol provides the common functionality for mini-protocols
package protocol

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/blinklabs-io/gokitties/cbor"
	"github.com/blinklabs-io/gokitties/muxer"
)

// ProtocolRole is an enum of the protocol roles
type ProtocolRole uint

const (
	ProtocolRoleNone   ProtocolRole = 0 // Default (invalid) protocol role
	ProtocolRoleClient ProtocolRole = 1 // Client protocol role
	ProtocolRoleServer ProtocolRole = 2 // Server protocol role
)

func (r ProtocolRole) String() string {
	switch r {
	case ProtocolRoleClient:
		return "client"
	case ProtocolRoleServer:
		return "server"
	default:
		return "none"
	}
}

// ProtocolOptions provides common arguments for all mini-protocols
type ProtocolOptions struct {
	ConnectionId string
	Muxer        *muxer.Muxer
	Logger       *slog.Logger
	ErrorChan    chan error
	Role         ProtocolRole
	Version      uint16
}

// ProtocolConfig provides the configuration for Protocol
type ProtocolConfig struct {
	Name                string
	ProtocolId          uint16
	ConnectionId        string
	ErrorChan           chan error
	Muxer               *muxer.Muxer
	Logger              *slog.Logger
	Role                ProtocolRole
	MessageHandlerFunc  MessageHandlerFunc
	MessageFromCborFunc MessageFromCborFunc
	StateMap            StateMap
	InitialState        State
}

// MessageHandlerFunc represents a function that handles an incoming message
type MessageHandlerFunc func(Message) error

// MessageFromCborFunc represents a function that parses a mini-protocol message
type MessageFromCborFunc func(uint, []byte) (Message, error)

// Protocol implements the base functionality of a mini-protocol
type Protocol struct {
	config       ProtocolConfig
	logger       *slog.Logger
	recvChan     chan *muxer.Segment
	doneChan     chan struct{}
	stateMutex   sync.Mutex
	currentState State
	// Incremented on each transition, used to ignore stale timeouts
	transitions  uint64
	stateTimer   *time.Timer
	recvBuffer   *bytes.Buffer
	waitGroup    sync.WaitGroup
	onceStart    sync.Once
	onceStop     sync.Once
}

// New returns a new Protocol object
func New(config ProtocolConfig) *Protocol {
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	p := &Protocol{
		config:       config,
		logger:       logger,
		doneChan:     make(chan struct{}),
		currentState: config.InitialState,
		recvBuffer:   bytes.NewBuffer(nil),
	}
	return p
}

// Start registers the protocol with the muxer and starts the receive loop
func (p *Protocol) Start() {
	p.onceStart.Do(func() {
		muxerRole := muxer.ProtocolRoleInitiator
		if p.config.Role == ProtocolRoleServer {
			muxerRole = muxer.ProtocolRoleResponder
		}
		p.recvChan = p.config.Muxer.RegisterProtocol(
			p.config.ProtocolId,
			muxerRole,
		)
		p.waitGroup.Add(1)
		go p.recvLoop()
	})
}

// Stop shuts down the protocol. It does not send any message to the remote side
func (p *Protocol) Stop() {
	p.onceStop.Do(func() {
		close(p.doneChan)
		p.stateMutex.Lock()
		if p.stateTimer != nil {
			p.stateTimer.Stop()
		}
		p.stateMutex.Unlock()
	})
}

// Wait blocks until the receive loop has exited
func (p *Protocol) Wait() {
	p.waitGroup.Wait()
}

// DoneChan returns a channel that is closed when the protocol has shut down
func (p *Protocol) DoneChan() <-chan struct{} {
	return p.doneChan
}

// IsDone returns true if the protocol has shut down or reached a state with no agency
func (p *Protocol) IsDone() bool {
	select {
	case <-p.doneChan:
		return true
	default:
	}
	p.stateMutex.Lock()
	defer p.stateMutex.Unlock()
	if entry, ok := p.config.StateMap[p.currentState]; ok {
		return entry.Agency == AgencyNone
	}
	return false
}

// Logger returns the protocol logger
func (p *Protocol) Logger() *slog.Logger {
	return p.logger
}

// Role returns the protocol role
func (p *Protocol) Role() ProtocolRole {
	return p.config.Role
}

// CurrentState returns the current protocol state
func (p *Protocol) CurrentState() State {
	p.stateMutex.Lock()
	defer p.stateMutex.Unlock()
	return p.currentState
}

// SendMessage encodes a message, performs the associated state transition and hands the
// data to the muxer. Messages larger than a single segment are split over several
func (p *Protocol) SendMessage(msg Message) error {
	select {
	case <-p.doneChan:
		return ErrProtocolShuttingDown
	default:
	}
	data := msg.Cbor()
	if data == nil {
		var err error
		data, err = cbor.Encode(msg)
		if err != nil {
			return err
		}
	}
	p.stateMutex.Lock()
	if err := p.transition(msg.Type(), p.localAgency()); err != nil {
		p.stateMutex.Unlock()
		return err
	}
	p.stateMutex.Unlock()
	isResponse := p.config.Role == ProtocolRoleServer
	for len(data) > 0 {
		chunkLen := min(len(data), muxer.SegmentMaxPayloadLength)
		segment := muxer.NewSegment(p.config.ProtocolId, data[:chunkLen], isResponse)
		if err := p.config.Muxer.Send(segment); err != nil {
			return err
		}
		data = data[chunkLen:]
	}
	return nil
}

// SendError passes an error to the connection that owns the protocol
func (p *Protocol) SendError(err error) {
	select {
	case <-p.doneChan:
		return
	case p.config.ErrorChan <- fmt.Errorf("%s: %w", p.config.Name, err):
	}
}

func (p *Protocol) localAgency() Agency {
	if p.config.Role == ProtocolRoleServer {
		return AgencyServer
	}
	return AgencyClient
}

func (p *Protocol) remoteAgency() Agency {
	if p.config.Role == ProtocolRoleServer {
		return AgencyClient
	}
	return AgencyServer
}

// transition moves the state machine for the specified message type. The caller must
// hold stateMutex
func (p *Protocol) transition(msgType uint8, agency Agency) error {
	entry, ok := p.config.StateMap[p.currentState]
	if !ok {
		return fmt.Errorf(
			"%w: unknown protocol state %s",
			ErrProtocolViolationInvalidMessage,
			p.currentState,
		)
	}
	if entry.Agency != agency {
		return fmt.Errorf(
			"%w: message type %d in protocol state %s",
			ErrProtocolViolationAgency,
			msgType,
			p.currentState,
		)
	}
	for _, transition := range entry.Transitions {
		if transition.MsgType != msgType {
			continue
		}
		p.currentState = transition.NewState
		p.transitions++
		p.resetStateTimer()
		return nil
	}
	return fmt.Errorf(
		"%w: message type %d not allowed in protocol state %s",
		ErrProtocolViolationInvalidMessage,
		msgType,
		p.currentState,
	)
}

// resetStateTimer arms the timeout for the current state. The caller must hold stateMutex
func (p *Protocol) resetStateTimer() {
	if p.stateTimer != nil {
		p.stateTimer.Stop()
		p.stateTimer = nil
	}
	entry := p.config.StateMap[p.currentState]
	if entry.Timeout <= 0 {
		return
	}
	state := p.currentState
	transitions := p.transitions
	p.stateTimer = time.AfterFunc(entry.Timeout, func() {
		p.stateMutex.Lock()
		stale := p.transitions != transitions
		p.stateMutex.Unlock()
		if stale {
			return
		}
		p.SendError(
			fmt.Errorf(
				"%w: waiting on transition from protocol state %s",
				ErrProtocolTimeout,
				state,
			),
		)
	})
}

func (p *Protocol) recvLoop() {
	defer p.waitGroup.Done()
	leftoverData := false
	for {
		// Don't grab the next segment from the muxer if we still have data in the buffer
		if !leftoverData {
			select {
			case <-p.doneChan:
				return
			case <-p.config.Muxer.DoneChan():
				p.Stop()
				return
			case segment := <-p.recvChan:
				p.recvBuffer.Write(segment.Payload)
			}
		}
		leftoverData = false
		// Decode message into generic list until we can determine what type of message it is.
		// This also lets us determine how many bytes the message is
		var tmpMsg []cbor.RawMessage
		numBytesRead, err := cbor.Decode(p.recvBuffer.Bytes(), &tmpMsg)
		if err != nil {
			if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
				// This is probably a multi-part message, so we wait until we get more of
				// the message before trying to process it
				continue
			}
			p.SendError(fmt.Errorf("decode error: %w", err))
			return
		}
		msgData := p.recvBuffer.Bytes()[:numBytesRead]
		msgType, err := cbor.DecodeIdFromList(msgData)
		if err != nil {
			p.SendError(fmt.Errorf("decode error: %w", err))
			return
		}
		msg, err := p.config.MessageFromCborFunc(uint(msgType), msgData)
		if err != nil {
			p.SendError(err)
			return
		}
		if msg == nil {
			p.SendError(
				fmt.Errorf(
					"%w: unknown message type %d",
					ErrProtocolViolationInvalidMessage,
					msgType,
				),
			)
			return
		}
		if numBytesRead < p.recvBuffer.Len() {
			// There is another message in the same muxer segment, so we reset the buffer
			// with just the remaining data
			p.recvBuffer = bytes.NewBuffer(p.recvBuffer.Bytes()[numBytesRead:])
			leftoverData = true
		} else {
			// Empty out our buffer since we successfully processed the message
			p.recvBuffer.Reset()
		}
		p.stateMutex.Lock()
		err = p.transition(msg.Type(), p.remoteAgency())
		p.stateMutex.Unlock()
		if err != nil {
			p.SendError(err)
			return
		}
		if err := p.config.MessageHandlerFunc(msg); err != nil {
			if errors.Is(err, ErrProtocolShuttingDown) {
				return
			}
			p.SendError(err)
			return
		}
	}
}
