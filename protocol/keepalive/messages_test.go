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

package keepalive_test

import (
	"testing"

	"github.com/blinklabs-io/gokitties/cbor"
	"github.com/blinklabs-io/gokitties/internal/test"
	"github.com/blinklabs-io/gokitties/protocol"
	"github.com/blinklabs-io/gokitties/protocol/keepalive"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var messageTests = []struct {
	name        string
	cborHex     string
	message     protocol.Message
	messageType uint
}{
	{
		name:        "KeepAlive",
		cborHex:     "8200182a",
		message:     keepalive.NewMsgKeepAlive(0x2a),
		messageType: keepalive.MessageTypeKeepAlive,
	},
	{
		name:        "KeepAliveResponse",
		cborHex:     "820107",
		message:     keepalive.NewMsgKeepAliveResponse(7),
		messageType: keepalive.MessageTypeKeepAliveResponse,
	},
	{
		name:        "Done",
		cborHex:     "8102",
		message:     keepalive.NewMsgDone(),
		messageType: keepalive.MessageTypeDone,
	},
}

func TestMessages(t *testing.T) {
	for _, tc := range messageTests {
		t.Run(tc.name, func(t *testing.T) {
			data := test.DecodeHexString(tc.cborHex)
			msg, err := keepalive.NewMsgFromCbor(tc.messageType, data)
			require.NoError(t, err)
			// Ignore the stored CBOR when comparing
			msg.SetCbor(nil)
			assert.Equal(t, tc.message, msg)
			encoded, err := cbor.Encode(tc.message)
			require.NoError(t, err)
			assert.Equal(t, data, encoded)
		})
	}
}

func TestKeepAliveResponseCookie(t *testing.T) {
	encoded, err := cbor.Encode(keepalive.NewMsgKeepAliveResponse(0x1234))
	require.NoError(t, err)
	assert.Equal(t, test.DecodeHexString("8201191234"), encoded)
	msg, err := keepalive.NewMsgFromCbor(keepalive.MessageTypeKeepAliveResponse, encoded)
	require.NoError(t, err)
	resp, ok := msg.(*keepalive.MsgKeepAliveResponse)
	require.True(t, ok)
	assert.Equal(t, uint16(0x1234), resp.Cookie)
}

func TestUnknownMessageType(t *testing.T) {
	msg, err := keepalive.NewMsgFromCbor(9, test.DecodeHexString("8109"))
	require.NoError(t, err)
	assert.Nil(t, msg)
}
