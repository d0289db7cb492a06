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

package ledger

import (
	"github.com/blinklabs-io/gokitties/cbor"
)

// cborNull is the CBOR encoding of null, which represents an absent value
var cborNull = []byte{0xf6}

// Option holds either a value or nothing. It is used in place of sentinel values to
// represent records that don't exist on chain
type Option[T any] struct {
	value T
	ok    bool
}

// Some returns an Option holding the provided value
func Some[T any](v T) Option[T] {
	return Option[T]{value: v, ok: true}
}

// None returns an empty Option
func None[T any]() Option[T] {
	return Option[T]{}
}

// Get returns the held value and whether there was one
func (o Option[T]) Get() (T, bool) {
	return o.value, o.ok
}

func (o Option[T]) IsSome() bool {
	return o.ok
}

func (o Option[T]) IsNone() bool {
	return !o.ok
}

// OrElse returns the held value, or def if there is none
func (o Option[T]) OrElse(def T) T {
	if !o.ok {
		return def
	}
	return o.value
}

// MapOption converts the value held by an Option
func MapOption[T, U any](o Option[T], f func(T) U) Option[U] {
	if !o.ok {
		return None[U]()
	}
	return Some(f(o.value))
}

func (o Option[T]) MarshalCBOR() ([]byte, error) {
	if !o.ok {
		return cborNull, nil
	}
	return cbor.Encode(o.value)
}

func (o *Option[T]) UnmarshalCBOR(data []byte) error {
	if len(data) == 1 && (data[0] == 0xf6 || data[0] == 0xf7) {
		*o = None[T]()
		return nil
	}
	var v T
	if _, err := cbor.Decode(data, &v); err != nil {
		return err
	}
	*o = Some(v)
	return nil
}
