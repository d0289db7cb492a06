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
	"encoding/hex"
	"reflect"
	"testing"

	"github.com/blinklabs-io/gokitties/cbor"
	"github.com/blinklabs-io/gokitties/ledger"
	"github.com/blinklabs-io/gokitties/protocol"
)

type testDefinition struct {
	CborHex     string
	Message     protocol.Message
	MessageType uint
}

var tests = []testDefinition{
	{
		CborHex:     "8100",
		Message:     NewMsgCount(),
		MessageType: MessageTypeCount,
	},
	{
		CborHex:     "8201820102",
		Message:     NewMsgGetKitties([]ledger.KittyIndex{1, 2}),
		MessageType: MessageTypeGetKitties,
	},
	{
		CborHex:     "82028100",
		Message:     NewMsgGetOwners([]ledger.KittyIndex{0}),
		MessageType: MessageTypeGetOwners,
	},
	{
		CborHex:     "820580",
		Message:     NewMsgGetPrices(nil),
		MessageType: MessageTypeGetPrices,
	},
	{
		CborHex:     "820303",
		Message:     NewMsgResult([]byte{0x03}),
		MessageType: MessageTypeResult,
	},
	{
		CborHex:     "8104",
		Message:     NewMsgDone(),
		MessageType: MessageTypeDone,
	},
}

func TestDecode(t *testing.T) {
	for _, test := range tests {
		cborData, err := hex.DecodeString(test.CborHex)
		if err != nil {
			t.Fatalf("failed to decode CBOR hex: %s", err)
		}
		msg, err := NewMsgFromCbor(test.MessageType, cborData)
		if err != nil {
			t.Fatalf("failed to decode CBOR: %s", err)
		}
		// Set the raw CBOR so the comparison should succeed
		test.Message.SetCbor(cborData)
		if !reflect.DeepEqual(msg, test.Message) {
			t.Fatalf(
				"CBOR did not decode to expected message object\n  got: %#v\n  wanted: %#v",
				msg,
				test.Message,
			)
		}
	}
}

func TestEncode(t *testing.T) {
	for _, test := range tests {
		test.Message.SetCbor(nil)
		cborData, err := cbor.Encode(test.Message)
		if err != nil {
			t.Fatalf("failed to encode message to CBOR: %s", err)
		}
		cborHex := hex.EncodeToString(cborData)
		if cborHex != test.CborHex {
			t.Fatalf(
				"message did not encode to expected CBOR\n  got: %s\n  wanted: %s",
				cborHex,
				test.CborHex,
			)
		}
	}
}
