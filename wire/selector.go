// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package wire

import (
	"fmt"

	"github.com/google/uuid"
)

// Selector routes a message to its procedure. A compact selector is a small
// process-local integer; a stable selector is a 128-bit identifier that stays
// the same across independently built extensions.
//
// Selector is comparable and can be used as a map key.
type Selector struct {
	id     uint16
	guid   uuid.UUID
	stable bool
}

// Compact returns a 2-byte selector.
func Compact(id uint16) Selector { return Selector{id: id} }

// Stable returns a 16-byte selector.
func Stable(id uuid.UUID) Selector { return Selector{guid: id, stable: true} }

// StableFromName derives a stable selector from a namespace and a procedure
// name, so both peers compute the same id without sharing a table.
func StableFromName(namespace uuid.UUID, name string) Selector {
	return Stable(uuid.NewSHA1(namespace, []byte(name)))
}

// IsStable reports whether s is a 128-bit selector.
func (s Selector) IsStable() bool { return s.stable }

// ID returns the compact id. It is zero for stable selectors.
func (s Selector) ID() uint16 { return s.id }

// GUID returns the stable id. It is the nil UUID for compact selectors.
func (s Selector) GUID() uuid.UUID { return s.guid }

func (s Selector) String() string {
	if s.stable {
		return s.guid.String()
	}
	return fmt.Sprintf("#%d", s.id)
}
