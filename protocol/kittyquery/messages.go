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

package kittyquery

import (
	"fmt"

	"github.com/blinklabs-io/gokitties/cbor"
	"github.com/blinklabs-io/gokitties/ledger"
	"github.com/blinklabs-io/gokitties/protocol"
)

// Message types
const (
	MessageTypeCount      = 0
	MessageTypeGetKitties = 1
	MessageTypeGetOwners  = 2
	MessageTypeResult     = 3
	MessageTypeDone       = 4
	MessageTypeGetPrices  = 5
)

// NewMsgFromCbor parses a KittyQuery message from CBOR
func NewMsgFromCbor(msgType uint, data []byte) (protocol.Message, error) {
	var ret protocol.Message
	switch msgType {
	case MessageTypeCount:
		ret = &MsgCount{}
	case MessageTypeGetKitties:
		ret = &MsgGetKitties{}
	case MessageTypeGetOwners:
		ret = &MsgGetOwners{}
	case MessageTypeGetPrices:
		ret = &MsgGetPrices{}
	case MessageTypeResult:
		ret = &MsgResult{}
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

type MsgCount struct {
	protocol.MessageBase
}

func NewMsgCount() *MsgCount {
	m := &MsgCount{
		MessageBase: protocol.MessageBase{
			MessageType: MessageTypeCount,
		},
	}
	return m
}

type MsgGetKitties struct {
	protocol.MessageBase
	Ids []ledger.KittyIndex
}

func NewMsgGetKitties(ids []ledger.KittyIndex) *MsgGetKitties {
	m := &MsgGetKitties{
		MessageBase: protocol.MessageBase{
			MessageType: MessageTypeGetKitties,
		},
		Ids: nonNilIds(ids),
	}
	return m
}

type MsgGetOwners struct {
	protocol.MessageBase
	Ids []ledger.KittyIndex
}

func NewMsgGetOwners(ids []ledger.KittyIndex) *MsgGetOwners {
	m := &MsgGetOwners{
		MessageBase: protocol.MessageBase{
			MessageType: MessageTypeGetOwners,
		},
		Ids: nonNilIds(ids),
	}
	return m
}

type MsgGetPrices struct {
	protocol.MessageBase
	Ids []ledger.KittyIndex
}

func NewMsgGetPrices(ids []ledger.KittyIndex) *MsgGetPrices {
	m := &MsgGetPrices{
		MessageBase: protocol.MessageBase{
			MessageType: MessageTypeGetPrices,
		},
		Ids: nonNilIds(ids),
	}
	return m
}

// MsgResult carries the CBOR encoded answer to the query that preceded it
type MsgResult struct {
	protocol.MessageBase
	Result cbor.RawMessage
}

func NewMsgResult(resultCbor []byte) *MsgResult {
	m := &MsgResult{
		MessageBase: protocol.MessageBase{
			MessageType: MessageTypeResult,
		},
		Result: resultCbor,
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

// A nil slice would encode as CBOR null rather than an empty list
func nonNilIds(ids []ledger.KittyIndex) []ledger.KittyIndex {
	if ids == nil {
		return []ledger.KittyIndex{}
	}
	return ids
}
