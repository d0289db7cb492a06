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

// Package cbor wraps github.com/fxamacker/cbor/v2 with the encoding options used on the
// wire by this module.
//
// Messages are encoded as CBOR arrays whose first item is the message type. Structs embed
// StructAsArray (or protocol.MessageBase) so their fields are encoded positionally.
//
// Encoding is deterministic: map keys are sorted using the core deterministic rules, so the
// same value always produces the same bytes. Call signing relies on this.
package cbor
