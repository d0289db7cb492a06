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

package kitties_mock

import (
	"github.com/blinklabs-io/gokitties/cbor"
	"github.com/blinklabs-io/gokitties/ledger"
	"github.com/blinklabs-io/gokitties/protocol"
	"github.com/blinklabs-io/gokitties/protocol/callsubmission"
	"github.com/blinklabs-io/gokitties/protocol/handshake"
	"github.com/blinklabs-io/gokitties/protocol/kittyquery"
)

const (
	MockNetworkMagic    uint32 = 999999
	MockProtocolVersion uint16 = kittyquery.ProtocolVersionPrices
)

type EntryType int

const (
	EntryTypeNone   EntryType = 0
	EntryTypeInput  EntryType = 1
	EntryTypeOutput EntryType = 2
	EntryTypeClose  EntryType = 3
)

// ConversationEntry is one step of a conversation. Input entries match either the full
// InputMessage or only InputMessageType
type ConversationEntry struct {
	Type             EntryType
	ProtocolId       uint16
	IsResponse       bool
	OutputMessages   []protocol.Message
	InputMessage     protocol.Message
	InputMessageType uint
	MsgFromCborFunc  protocol.MessageFromCborFunc
}

// ConversationEntryHandshakeRequestGeneric matches any handshake proposal from a client
var ConversationEntryHandshakeRequestGeneric = ConversationEntry{
	Type:             EntryTypeInput,
	ProtocolId:       handshake.ProtocolId,
	InputMessageType: handshake.MessageTypeProposeVersions,
}

// ConversationEntryHandshakeResponse accepts MockProtocolVersion on MockNetworkMagic
var ConversationEntryHandshakeResponse = ConversationEntry{
	Type:       EntryTypeOutput,
	ProtocolId: handshake.ProtocolId,
	IsResponse: true,
	OutputMessages: []protocol.Message{
		handshake.NewMsgAcceptVersion(MockProtocolVersion, MockNetworkMagic),
	},
}

// ConversationEntryClose closes the connection
var ConversationEntryClose = ConversationEntry{
	Type: EntryTypeClose,
}

// HandshakeResponse returns an entry accepting the provided version
func HandshakeResponse(version uint16) ConversationEntry {
	return ConversationEntry{
		Type:       EntryTypeOutput,
		ProtocolId: handshake.ProtocolId,
		IsResponse: true,
		OutputMessages: []protocol.Message{
			handshake.NewMsgAcceptVersion(version, MockNetworkMagic),
		},
	}
}

// HandshakeRefuse returns an entry refusing the proposal
func HandshakeRefuse(reason uint8, versions []uint16, message string) ConversationEntry {
	return ConversationEntry{
		Type:       EntryTypeOutput,
		ProtocolId: handshake.ProtocolId,
		IsResponse: true,
		OutputMessages: []protocol.Message{
			handshake.NewMsgRefuse(reason, versions, message),
		},
	}
}

// KittyQueryRequest returns an entry matching a kitty-query message from the client
func KittyQueryRequest(msg protocol.Message) ConversationEntry {
	return ConversationEntry{
		Type:            EntryTypeInput,
		ProtocolId:      kittyquery.ProtocolId,
		InputMessage:    msg,
		MsgFromCborFunc: kittyquery.NewMsgFromCbor,
	}
}

// KittyQueryResult returns an entry answering a kitty query with the provided value
func KittyQueryResult(result any) ConversationEntry {
	resultCbor, err := cbor.Encode(result)
	if err != nil {
		panic(err)
	}
	return ConversationEntry{
		Type:       EntryTypeOutput,
		ProtocolId: kittyquery.ProtocolId,
		IsResponse: true,
		OutputMessages: []protocol.Message{
			kittyquery.NewMsgResult(resultCbor),
		},
	}
}

// CallSubmissionRequest returns an entry matching a submitted call
func CallSubmissionRequest(signedCall ledger.SignedCall) ConversationEntry {
	return ConversationEntry{
		Type:            EntryTypeInput,
		ProtocolId:      callsubmission.ProtocolId,
		InputMessage:    callsubmission.NewMsgSubmitCall(signedCall),
		MsgFromCborFunc: callsubmission.NewMsgFromCbor,
	}
}

// CallAccepted returns an entry accepting a submitted call
func CallAccepted(hash ledger.Blake2b256) ConversationEntry {
	return ConversationEntry{
		Type:       EntryTypeOutput,
		ProtocolId: callsubmission.ProtocolId,
		IsResponse: true,
		OutputMessages: []protocol.Message{
			callsubmission.NewMsgAcceptCall(hash),
		},
	}
}

// CallRejected returns an entry rejecting a submitted call
func CallRejected(reason string) ConversationEntry {
	return ConversationEntry{
		Type:       EntryTypeOutput,
		ProtocolId: callsubmission.ProtocolId,
		IsResponse: true,
		OutputMessages: []protocol.Message{
			callsubmission.NewMsgRejectCall(reason),
		},
	}
}
