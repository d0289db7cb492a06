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

// Package display renders kitty records for people. Placeholder text for absent records
// lives here and nowhere else.
package display

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/blinklabs-io/gokitties/gallery"
	"github.com/blinklabs-io/gokitties/ledger"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Message keys
const (
	MsgNoKitty         = "no kitty"
	MsgKittyNotExist   = "kitty does not exist"
	MsgColumnId        = "ID"
	MsgColumnDna       = "DNA"
	MsgColumnOwner     = "Owner"
	MsgColumnPrice     = "Price"
	MsgNotForSale      = "not for sale"
	MsgKittyCount      = "%d kitties"
	MsgStatus          = "Status: %s"
	dnaFormat          = "0x%s"
	defaultTabMinWidth = 5
)

var supportedTags = []language.Tag{
	language.English,
	language.Chinese,
}

var matcher = language.NewMatcher(supportedTags)

var translations = map[language.Tag]map[string]string{
	language.Chinese: {
		MsgNoKitty:       "没有猫咪",
		MsgKittyNotExist: "猫不存在",
		MsgColumnId:      "编号",
		MsgColumnDna:     "DNA",
		MsgColumnOwner:   "主人",
		MsgColumnPrice:   "价格",
		MsgNotForSale:    "不出售",
		MsgKittyCount:    "共 %d 只猫咪",
		MsgStatus:        "状态: %s",
	},
}

func init() {
	for _, key := range []string{
		MsgNoKitty,
		MsgKittyNotExist,
		MsgColumnId,
		MsgColumnDna,
		MsgColumnOwner,
		MsgColumnPrice,
		MsgNotForSale,
		MsgKittyCount,
		MsgStatus,
	} {
		if err := message.SetString(language.English, key, key); err != nil {
			panic(err)
		}
	}
	for tag, msgs := range translations {
		for key, msg := range msgs {
			if err := message.SetString(tag, key, msg); err != nil {
				panic(err)
			}
		}
	}
}

// Supported returns the supported languages
func Supported() []language.Tag {
	return append([]language.Tag{}, supportedTags...)
}

// ParseTag returns the supported language closest to value. Unknown or invalid values
// resolve to English
func ParseTag(value string) language.Tag {
	tag, err := language.Parse(value)
	if err != nil {
		return language.English
	}
	return resolve(tag)
}

func resolve(tag language.Tag) language.Tag {
	_, idx, confidence := matcher.Match(tag)
	if confidence == language.No {
		return language.English
	}
	return supportedTags[idx]
}

// Printer formats records in one language
type Printer struct {
	tag     language.Tag
	printer *message.Printer
}

// NewPrinter returns a Printer for the supported language closest to tag
func NewPrinter(tag language.Tag) *Printer {
	resolved := resolve(tag)
	return &Printer{
		tag:     resolved,
		printer: message.NewPrinter(resolved),
	}
}

// Language returns the language used by the printer
func (p *Printer) Language() language.Tag {
	return p.tag
}

// Payload renders a kitty's DNA, or a placeholder when there is no kitty at the index
func (p *Printer) Payload(payload ledger.Option[ledger.Dna]) string {
	dna, ok := payload.Get()
	if !ok {
		return p.printer.Sprintf(MsgNoKitty)
	}
	return fmt.Sprintf(dnaFormat, dna.String())
}

// Owner renders a kitty's owner, or a placeholder when the kitty has no owner
func (p *Printer) Owner(owner ledger.Option[string]) string {
	ownerStr, ok := owner.Get()
	if !ok {
		return p.printer.Sprintf(MsgKittyNotExist)
	}
	return ownerStr
}

// Price renders an asking price
func (p *Printer) Price(price ledger.Option[ledger.Balance]) string {
	amount, ok := price.Get()
	if !ok {
		return p.printer.Sprintf(MsgNotForSale)
	}
	return p.printer.Sprintf("%d", amount)
}

// Status renders the status message of a submission
func (p *Printer) Status(status string) string {
	return p.printer.Sprintf(MsgStatus, status)
}

// Table writes records as an aligned table preceded by a count line. Prices are shown
// when provided, in the same order as records
func (p *Printer) Table(
	w io.Writer,
	records []gallery.Record,
	prices []ledger.Option[ledger.Balance],
) error {
	if _, err := fmt.Fprintln(w, p.printer.Sprintf(MsgKittyCount, len(records))); err != nil {
		return err
	}
	tw := tabwriter.NewWriter(w, defaultTabMinWidth, 1, 2, ' ', 0)
	header := p.printer.Sprintf(MsgColumnId) + "\t" +
		p.printer.Sprintf(MsgColumnDna) + "\t" +
		p.printer.Sprintf(MsgColumnOwner)
	if prices != nil {
		header += "\t" + p.printer.Sprintf(MsgColumnPrice)
	}
	fmt.Fprintln(tw, header)
	for i, record := range records {
		fmt.Fprintf(
			tw,
			"%d\t%s\t%s",
			record.ID,
			p.Payload(record.Payload),
			p.Owner(record.Owner),
		)
		if prices != nil {
			price := ledger.None[ledger.Balance]()
			if i < len(prices) {
				price = prices[i]
			}
			fmt.Fprintf(tw, "\t%s", p.Price(price))
		}
		fmt.Fprintln(tw)
	}
	return tw.Flush()
}
