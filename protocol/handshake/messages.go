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

package handshake

import (
	"fmt"

	"github.com/blinklabs-io/gokitties/cbor"
	"github.com/blinklabs-io/gokitties/protocol"
)

// Message types
const (
	MessageTypeProposeVersions = 0
	MessageTypeAcceptVersion   = 1
	MessageTypeRefuse          = 2
)

// Refusal reasons
const (
	RefuseReasonVersionMismatch uint8 = 0
	RefuseReasonDecodeError     uint8 = 1
	RefuseReasonRefused         uint8 = 2
)

// NewMsgFromCbor parses a Handshake message from CBOR
func NewMsgFromCbor(msgType uint, data []byte) (protocol.Message, error) {
	var ret protocol.Message
	switch msgType {
	case MessageTypeProposeVersions:
		ret = &MsgProposeVersions{}
	case MessageTypeAcceptVersion:
		ret = &MsgAcceptVersion{}
	case MessageTypeRefuse:
		ret = &MsgRefuse{}
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

// MsgProposeVersions maps each supported protocol version to the network magic the
// client expects to talk to
type MsgProposeVersions struct {
	protocol.MessageBase
	VersionMap map[uint16]uint32
}

func NewMsgProposeVersions(versionMap map[uint16]uint32) *MsgProposeVersions {
	m := &MsgProposeVersions{
		MessageBase: protocol.MessageBase{
			MessageType: MessageTypeProposeVersions,
		},
		VersionMap: versionMap,
	}
	return m
}

type MsgAcceptVersion struct {
	protocol.MessageBase
	Version      uint16
	NetworkMagic uint32
}

func NewMsgAcceptVersion(version uint16, networkMagic uint32) *MsgAcceptVersion {
	m := &MsgAcceptVersion{
		MessageBase: protocol.MessageBase{
			MessageType: MessageTypeAcceptVersion,
		},
		Version:      version,
		NetworkMagic: networkMagic,
	}
	return m
}

type MsgRefuse struct {
	protocol.MessageBase
	Reason   uint8
	Versions []uint16
	Message  string
}

func NewMsgRefuse(reason uint8, versions []uint16, message string) *MsgRefuse {
	if versions == nil {
		versions = []uint16{}
	}
	m := &MsgRefuse{
		MessageBase: protocol.MessageBase{
			MessageType: MessageTypeRefuse,
		},
		Reason:   reason,
		Versions: versions,
		Message:  message,
	}
	return m
}
