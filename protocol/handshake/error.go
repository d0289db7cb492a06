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
	"errors"
	"fmt"
)

// ErrVersionMismatch is returned when the peers share no protocol version
var ErrVersionMismatch = errors.New("no common protocol version")

// RefusedError is returned when the server refuses the proposed versions
type RefusedError struct {
	Reason   uint8
	Versions []uint16
	Message  string
}

func (e *RefusedError) Error() string {
	switch e.Reason {
	case RefuseReasonVersionMismatch:
		return fmt.Sprintf(
			"handshake refused: version mismatch (server supports %v)",
			e.Versions,
		)
	case RefuseReasonDecodeError:
		return "handshake refused: decode error: " + e.Message
	default:
		return "handshake refused: " + e.Message
	}
}

func (e *RefusedError) Is(target error) bool {
	return target == ErrVersionMismatch &&
		e.Reason == RefuseReasonVersionMismatch
}
