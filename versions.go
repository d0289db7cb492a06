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

package kitties

import (
	"slices"

	"github.com/blinklabs-io/gokitties/protocol/kittyquery"
)

// Protocol versions
const (
	ProtocolVersion1 uint16 = 1
	// Adds asking price queries
	ProtocolVersion2 uint16 = kittyquery.ProtocolVersionPrices
)

// ProtocolVersionFeatures lists the features enabled by a protocol version
type ProtocolVersionFeatures struct {
	EnableKittyQueryProtocol     bool
	EnableCallSubmissionProtocol bool
	EnableKeepAliveProtocol      bool
	EnablePriceQueries           bool
}

// Map of protocol versions to protocol features
var protocolVersionMap = map[uint16]ProtocolVersionFeatures{
	ProtocolVersion1: {
		EnableKittyQueryProtocol:     true,
		EnableCallSubmissionProtocol: true,
		EnableKeepAliveProtocol:      true,
	},
	ProtocolVersion2: {
		EnableKittyQueryProtocol:     true,
		EnableCallSubmissionProtocol: true,
		EnableKeepAliveProtocol:      true,
		EnablePriceQueries:           true,
	},
}

// GetProtocolVersions returns a sorted list of supported protocol versions
func GetProtocolVersions() []uint16 {
	versions := make([]uint16, 0, len(protocolVersionMap))
	for key := range protocolVersionMap {
		versions = append(versions, key)
	}
	slices.Sort(versions)
	return versions
}

// GetProtocolVersion returns the protocol version config for the specified protocol version
func GetProtocolVersion(version uint16) ProtocolVersionFeatures {
	return protocolVersionMap[version]
}
