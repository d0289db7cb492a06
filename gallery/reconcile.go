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

package gallery

import (
	"github.com/blinklabs-io/gokitties/ledger"
)

// Reconcile builds the record list for indexes 0 through count-1 from whatever payloads
// and owners are currently held. The slices may be shorter or longer than count, as they
// can lag behind the latest count; indexes without data get empty values.
func Reconcile(
	count uint32,
	payloads []ledger.Option[ledger.Dna],
	owners []ledger.Option[string],
) []Record {
	records := make([]Record, count)
	for idx := range count {
		record := Record{
			ID: idx,
		}
		if int(idx) < len(payloads) {
			record.Payload = payloads[idx]
		}
		if int(idx) < len(owners) {
			record.Owner = owners[idx]
		}
		records[idx] = record
	}
	return records
}
