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

package muxer

import (
	"math"
	"time"
)

const (
	SegmentProtocolIdResponseFlag = 0x8000
	SegmentMaxPayloadLength       = 65535
)

// SegmentHeader is the fixed 8-byte header that precedes every segment on the wire
type SegmentHeader struct {
	Timestamp     uint32
	ProtocolId    uint16
	PayloadLength uint16
}

// Segment is a single chunk of mini-protocol data
type Segment struct {
	SegmentHeader
	Payload []byte
}

// NewSegment returns a new Segment for the specified protocol. It returns nil if the
// payload is too large to fit in a single segment
func NewSegment(protocolId uint16, payload []byte, isResponse bool) *Segment {
	if len(payload) > SegmentMaxPayloadLength {
		return nil
	}
	header := SegmentHeader{
		// Only the lower 32 bits of the timestamp are sent
		Timestamp:  uint32(time.Now().UnixNano() & math.MaxUint32), // #nosec G115
		ProtocolId: protocolId,
	}
	if isResponse {
		header.ProtocolId = header.ProtocolId | SegmentProtocolIdResponseFlag
	}
	header.PayloadLength = uint16(len(payload)) // #nosec G115
	return &Segment{
		SegmentHeader: header,
		Payload:       payload,
	}
}

// IsRequest returns true if the segment was sent by the initiator of the mini-protocol
func (s *SegmentHeader) IsRequest() bool {
	return (s.ProtocolId & SegmentProtocolIdResponseFlag) == 0
}

// IsResponse returns true if the segment was sent by the responder of the mini-protocol
func (s *SegmentHeader) IsResponse() bool {
	return (s.ProtocolId & SegmentProtocolIdResponseFlag) > 0
}

// GetProtocolId returns the protocol ID with the response flag stripped
func (s *SegmentHeader) GetProtocolId() uint16 {
	return s.ProtocolId &^ SegmentProtocolIdResponseFlag
}
