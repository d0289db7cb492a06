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

package kitties_test

import (
	"testing"

	kitties "github.com/blinklabs-io/gokitties"
	"github.com/stretchr/testify/assert"
)

func TestNetworkLookup(t *testing.T) {
	assert.Equal(t, kitties.NetworkDev, kitties.NetworkByName("dev"))
	assert.Equal(t, kitties.NetworkLocal, kitties.NetworkByNetworkMagic(1337))
	assert.Equal(t, kitties.NetworkInvalid, kitties.NetworkByName("mainnet"))
	assert.Equal(t, kitties.NetworkInvalid, kitties.NetworkByNetworkMagic(7))
	assert.Equal(t, "127.0.0.1:9944", kitties.NetworkDev.Address())
	assert.Empty(t, kitties.NetworkInvalid.Address())
	assert.Equal(t, "local", kitties.NetworkLocal.String())
}

func TestProtocolVersions(t *testing.T) {
	assert.Equal(
		t,
		[]uint16{kitties.ProtocolVersion1, kitties.ProtocolVersion2},
		kitties.GetProtocolVersions(),
	)
	v1 := kitties.GetProtocolVersion(kitties.ProtocolVersion1)
	assert.True(t, v1.EnableKittyQueryProtocol)
	assert.True(t, v1.EnableCallSubmissionProtocol)
	assert.True(t, v1.EnableKeepAliveProtocol)
	assert.False(t, v1.EnablePriceQueries)
	assert.True(t, kitties.GetProtocolVersion(kitties.ProtocolVersion2).EnablePriceQueries)
	assert.Equal(t, kitties.ProtocolVersionFeatures{}, kitties.GetProtocolVersion(99))
}
