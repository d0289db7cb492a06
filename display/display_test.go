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

package display_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/blinklabs-io/gokitties/display"
	"github.com/blinklabs-io/gokitties/gallery"
	"github.com/blinklabs-io/gokitties/ledger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

func TestParseTag(t *testing.T) {
	testDefs := []struct {
		value    string
		expected language.Tag
	}{
		{value: "en", expected: language.English},
		{value: "en-GB", expected: language.English},
		{value: "zh", expected: language.Chinese},
		{value: "zh-CN", expected: language.Chinese},
		{value: "not a tag!", expected: language.English},
	}
	for _, test := range testDefs {
		assert.Equal(t, test.expected, display.ParseTag(test.value), "value %q", test.value)
	}
}

func TestPlaceholders(t *testing.T) {
	testDefs := []struct {
		tag     language.Tag
		payload string
		owner   string
	}{
		{tag: language.English, payload: "no kitty", owner: "kitty does not exist"},
		{tag: language.Chinese, payload: "没有猫咪", owner: "猫不存在"},
	}
	for _, test := range testDefs {
		t.Run(test.tag.String(), func(t *testing.T) {
			p := display.NewPrinter(test.tag)
			assert.Equal(t, test.tag, p.Language())
			assert.Equal(t, test.payload, p.Payload(ledger.None[ledger.Dna]()))
			assert.Equal(t, test.owner, p.Owner(ledger.None[string]()))
		})
	}
}

func TestPresentValues(t *testing.T) {
	p := display.NewPrinter(language.English)
	dna := ledger.Dna{0xde, 0xad, 0xbe, 0xef}
	assert.Equal(t, "0xdeadbeef000000000000000000000000", p.Payload(ledger.Some(dna)))
	assert.Equal(t, "5Grw", p.Owner(ledger.Some("5Grw")))
	assert.Equal(t, "not for sale", p.Price(ledger.None[ledger.Balance]()))
	assert.Equal(t, "10", p.Price(ledger.Some[ledger.Balance](10)))
	assert.Equal(t, "Status: Sending...", p.Status("Sending..."))
}

func TestTable(t *testing.T) {
	records := []gallery.Record{
		{ID: 0},
		{
			ID:      1,
			Payload: ledger.Some(ledger.Dna{0x01}),
			Owner:   ledger.Some("alice"),
		},
	}
	var buf bytes.Buffer
	require.NoError(t, display.NewPrinter(language.Chinese).Table(&buf, records, nil))
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "共 2 只猫咪", lines[0])
	assert.Contains(t, lines[1], "主人")
	assert.NotContains(t, lines[1], "价格")
	assert.Contains(t, lines[2], "没有猫咪")
	assert.Contains(t, lines[2], "猫不存在")
	assert.Contains(t, lines[3], "0x01000000000000000000000000000000")
	assert.Contains(t, lines[3], "alice")
}

func TestTableWithPrices(t *testing.T) {
	records := []gallery.Record{
		{ID: 0},
		{ID: 1, Payload: ledger.Some(ledger.Dna{}), Owner: ledger.Some("alice")},
		{ID: 2, Payload: ledger.Some(ledger.Dna{}), Owner: ledger.Some("bob")},
	}
	prices := []ledger.Option[ledger.Balance]{
		ledger.None[ledger.Balance](),
		ledger.Some[ledger.Balance](5),
	}
	var buf bytes.Buffer
	require.NoError(t, display.NewPrinter(language.English).Table(&buf, records, prices))
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "3 kitties", lines[0])
	assert.Contains(t, lines[1], "Price")
	assert.True(t, strings.HasSuffix(lines[3], "5"))
	// Records past the end of prices are shown as not for sale
	assert.True(t, strings.HasSuffix(lines[4], "not for sale"))
}
