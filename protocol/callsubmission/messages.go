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

package callsubmission

import (
	"fmt"

	"github.com/blinklabs-io/gokitties/cbor"
	"github.com/blinklabs-io/gokitties/ledger"
	"github.com/blinklabs-io/gokitties/protocol"
)

// Message types
const (
	MessageTypeSubmitCall = 0
	MessageTypeAcceptCall = 1
	MessageTypeRejectCall = 2
	MessageTypeDone       = 3
)

// NewMsgFromCbor parses a CallSubmission message from CBOR
func NewMsgFromCbor(msgType uint, data []byte) (protocol.Message, error) {
	var ret protocol.Message
	switch msgType {
	case MessageTypeSubmitCall:
		ret = &MsgSubmitCall{}
	case MessageTypeAcceptCall:
		ret = &MsgAcceptCall{}
	case MessageTypeRejectCall:
		ret = &MsgRejectCall{}
	case MessageTypeDone:
		ret = &MsgDone{}
	default:
		return nil, nil
	}
	if _, err := cbor.Decode(data, ret); err != nil {
		return nil, fmt.Errorf("%s: decode error: %w", ProtocolName, err)
	}
	// Store the raw message CBOR
	ret.SetCbor(data)
	return ret, nil
}

type MsgSubmitCall struct {
	protocol.MessageBase
	SignedCall ledger.SignedCall
}

func NewMsgSubmitCall(signedCall ledger.SignedCall) *MsgSubmitCall {
	m := &MsgSubmitCall{
		MessageBase: protocol.MessageBase{
			MessageType: MessageTypeSubmitCall,
		},
		SignedCall: signedCall,
	}
	return m
}

// MsgAcceptCall carries the hash of the applied call
type MsgAcceptCall struct {
	protocol.MessageBase
	Hash ledger.Blake2b256
}

func NewMsgAcceptCall(hash ledger.Blake2b256) *MsgAcceptCall {
	m := &MsgAcceptCall{
		MessageBase: protocol.MessageBase{
			MessageType: MessageTypeAcceptCall,
		},
		Hash: hash,
	}
	return m
}

type MsgRejectCall struct {
	protocol.MessageBase
	Reason string
}

func NewMsgRejectCall(reason string) *MsgRejectCall {
	m := &MsgRejectCall{
		MessageBase: protocol.MessageBase{
			MessageType: MessageTypeRejectCall,
		},
		Reason: reason,
	}
	return m
}

type MsgDone struct {
	protocol.MessageBase
}

func NewMsgDone() *MsgDone {
	m := &MsgDone{
		MessageBase: protocol.MessageBase{
			MessageType: MessageTypeDone,
		},
	}
	return m
}
