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

package protocol_test

import (
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/blinklabs-io/gokitties/cbor"
	"github.com/blinklabs-io/gokitties/muxer"
	"github.com/blinklabs-io/gokitties/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

const (
	testProtocolId  = 99
	msgTypePing     = 0
	msgTypePong     = 1
	msgTypeTestDone = 2
)

var (
	stateIdle = protocol.NewState(1, "Idle")
	stateBusy = protocol.NewState(2, "Busy")
	stateDone = protocol.NewState(3, "Done")
)

var testStateMap = protocol.StateMap{
	stateIdle: protocol.StateMapEntry{
		Agency: protocol.AgencyClient,
		Transitions: []protocol.StateTransition{
			{MsgType: msgTypePing, NewState: stateBusy},
			{MsgType: msgTypeTestDone, NewState: stateDone},
		},
	},
	stateBusy: protocol.StateMapEntry{
		Agency: protocol.AgencyServer,
		Transitions: []protocol.StateTransition{
			{MsgType: msgTypePong, NewState: stateIdle},
		},
	},
	stateDone: protocol.StateMapEntry{
		Agency: protocol.AgencyNone,
	},
}

type testMsg struct {
	protocol.MessageBase
	Payload []byte
}

func newTestMsg(msgType uint8, payload []byte) *testMsg {
	return &testMsg{
		MessageBase: protocol.MessageBase{MessageType: msgType},
		Payload:     payload,
	}
}

func testMsgFromCbor(msgType uint, data []byte) (protocol.Message, error) {
	if msgType > msgTypeTestDone {
		return nil, nil
	}
	ret := &testMsg{}
	if _, err := cbor.Decode(data, ret); err != nil {
		return nil, fmt.Errorf("decode error: %w", err)
	}
	ret.SetCbor(data)
	return ret, nil
}

type testPair struct {
	clientConn  net.Conn
	serverConn  net.Conn
	clientMuxer *muxer.Muxer
	serverMuxer *muxer.Muxer
	errorChan   chan error
}

func newTestPair() *testPair {
	p := &testPair{errorChan: make(chan error, 10)}
	p.clientConn, p.serverConn = net.Pipe()
	p.clientMuxer = muxer.New(p.clientConn)
	p.serverMuxer = muxer.New(p.serverConn)
	return p
}

func (p *testPair) newProtocol(
	role protocol.ProtocolRole,
	stateMap protocol.StateMap,
	handler protocol.MessageHandlerFunc,
) *protocol.Protocol {
	m := p.clientMuxer
	if role == protocol.ProtocolRoleServer {
		m = p.serverMuxer
	}
	return protocol.New(protocol.ProtocolConfig{
		Name:                "test",
		ProtocolId:          testProtocolId,
		ErrorChan:           p.errorChan,
		Muxer:               m,
		Role:                role,
		MessageHandlerFunc:  handler,
		MessageFromCborFunc: testMsgFromCbor,
		StateMap:            stateMap,
		InitialState:        stateIdle,
	})
}

func (p *testPair) close(protos ...*protocol.Protocol) {
	for _, proto := range protos {
		proto.Stop()
	}
	p.clientMuxer.Stop()
	p.serverMuxer.Stop()
	_ = p.clientConn.Close()
	_ = p.serverConn.Close()
	for _, proto := range protos {
		proto.Wait()
	}
	p.clientMuxer.Wait()
	p.serverMuxer.Wait()
}

func TestPingPong(t *testing.T) {
	defer goleak.VerifyNone(t)
	pair := newTestPair()
	pongChan := make(chan []byte, 1)
	var server *protocol.Protocol
	server = pair.newProtocol(
		protocol.ProtocolRoleServer,
		testStateMap,
		func(msg protocol.Message) error {
			return server.SendMessage(
				newTestMsg(msgTypePong, msg.(*testMsg).Payload),
			)
		},
	)
	client := pair.newProtocol(
		protocol.ProtocolRoleClient,
		testStateMap,
		func(msg protocol.Message) error {
			pongChan <- msg.(*testMsg).Payload
			return nil
		},
	)
	defer pair.close(client, server)
	server.Start()
	client.Start()
	pair.clientMuxer.Start()
	pair.serverMuxer.Start()

	require.NoError(t, client.SendMessage(newTestMsg(msgTypePing, []byte("hello"))))
	select {
	case payload := <-pongChan:
		assert.Equal(t, []byte("hello"), payload)
	case err := <-pair.errorChan:
		t.Fatalf("unexpected error: %s", err)
	case <-time.After(2 * time.Second):
		t.Fatalf("did not receive pong within timeout")
	}
	assert.Equal(t, stateIdle, client.CurrentState())
}

func TestLargeMessageIsSplit(t *testing.T) {
	defer goleak.VerifyNone(t)
	pair := newTestPair()
	recvChan := make(chan []byte, 1)
	server := pair.newProtocol(
		protocol.ProtocolRoleServer,
		testStateMap,
		func(msg protocol.Message) error {
			recvChan <- msg.(*testMsg).Payload
			return nil
		},
	)
	client := pair.newProtocol(protocol.ProtocolRoleClient, testStateMap, nil)
	defer pair.close(client, server)
	server.Start()
	client.Start()
	pair.clientMuxer.Start()
	pair.serverMuxer.Start()

	payload := make([]byte, muxer.SegmentMaxPayloadLength*2)
	for i := range payload {
		payload[i] = byte(i)
	}
	require.NoError(t, client.SendMessage(newTestMsg(msgTypePing, payload)))
	select {
	case got := <-recvChan:
		assert.Equal(t, payload, got)
	case err := <-pair.errorChan:
		t.Fatalf("unexpected error: %s", err)
	case <-time.After(5 * time.Second):
		t.Fatalf("did not receive message within timeout")
	}
}

func TestSendWithoutAgency(t *testing.T) {
	defer goleak.VerifyNone(t)
	pair := newTestPair()
	pingChan := make(chan struct{}, 1)
	// The server holds on to its agency
	server := pair.newProtocol(
		protocol.ProtocolRoleServer,
		testStateMap,
		func(protocol.Message) error {
			pingChan <- struct{}{}
			return nil
		},
	)
	client := pair.newProtocol(protocol.ProtocolRoleClient, testStateMap, nil)
	defer pair.close(client, server)
	server.Start()
	client.Start()
	pair.clientMuxer.Start()
	pair.serverMuxer.Start()
	// A message the current state doesn't allow is rejected before agency matters
	err := client.SendMessage(newTestMsg(msgTypePong, nil))
	assert.ErrorIs(t, err, protocol.ErrProtocolViolationInvalidMessage)
	assert.Equal(t, stateIdle, client.CurrentState())
	require.NoError(t, client.SendMessage(newTestMsg(msgTypePing, nil)))
	assert.Equal(t, stateBusy, client.CurrentState())
	select {
	case <-pingChan:
	case <-time.After(2 * time.Second):
		t.Fatalf("server did not receive ping")
	}
	err = client.SendMessage(newTestMsg(msgTypePing, nil))
	assert.ErrorIs(t, err, protocol.ErrProtocolViolationAgency)
	assert.Equal(t, stateBusy, client.CurrentState())
}

func TestSendInvalidTransition(t *testing.T) {
	defer goleak.VerifyNone(t)
	pair := newTestPair()
	doneChan := make(chan struct{})
	server := pair.newProtocol(
		protocol.ProtocolRoleServer,
		testStateMap,
		func(protocol.Message) error {
			close(doneChan)
			return nil
		},
	)
	client := pair.newProtocol(protocol.ProtocolRoleClient, testStateMap, nil)
	defer pair.close(client, server)
	server.Start()
	client.Start()
	pair.clientMuxer.Start()
	pair.serverMuxer.Start()
	require.NoError(t, client.SendMessage(newTestMsg(msgTypeTestDone, nil)))
	assert.True(t, client.IsDone())
	err := client.SendMessage(newTestMsg(msgTypePing, nil))
	assert.ErrorIs(t, err, protocol.ErrProtocolViolationAgency)
	select {
	case <-doneChan:
	case <-time.After(2 * time.Second):
		t.Fatalf("server did not receive done message")
	}
	assert.True(t, server.IsDone())
}

func TestStateTimeout(t *testing.T) {
	defer goleak.VerifyNone(t)
	pair := newTestPair()
	stateMap := testStateMap.Copy()
	entry := stateMap[stateBusy]
	entry.Timeout = 50 * time.Millisecond
	stateMap[stateBusy] = entry
	// The server never answers
	server := pair.newProtocol(
		protocol.ProtocolRoleServer,
		testStateMap,
		func(protocol.Message) error { return nil },
	)
	client := pair.newProtocol(protocol.ProtocolRoleClient, stateMap, nil)
	defer pair.close(client, server)
	server.Start()
	client.Start()
	pair.clientMuxer.Start()
	pair.serverMuxer.Start()
	require.NoError(t, client.SendMessage(newTestMsg(msgTypePing, nil)))
	select {
	case err := <-pair.errorChan:
		assert.ErrorIs(t, err, protocol.ErrProtocolTimeout)
	case <-time.After(2 * time.Second):
		t.Fatalf("did not receive timeout error")
	}
}

func TestIsDone(t *testing.T) {
	pair := newTestPair()
	client := pair.newProtocol(protocol.ProtocolRoleClient, testStateMap, nil)
	defer pair.close(client)
	assert.False(t, client.IsDone())
	client.Stop()
	assert.True(t, client.IsDone())
}
