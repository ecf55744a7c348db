package minimqtt

import "fmt"

// Packet identifier errors.
var (
	ErrPacketIDExhausted = fmt.Errorf("%w: no packet identifiers available", ErrState)
	ErrPacketIDNotFound  = fmt.Errorf("%w: packet identifier not in use", ErrState)
)

const maxPacketIDs = 65535

// PacketIDManager hands out packet identifiers 1-65535 in ascending order,
// wrapping after 65535 and skipping identifiers that are still outstanding.
// It is owned by a single Client and is not safe for concurrent use.
type PacketIDManager struct {
	used map[uint16]struct{}
	last uint16
}

// NewPacketIDManager creates a new packet ID manager. The first allocated identifier is 1.
func NewPacketIDManager() *PacketIDManager {
	return &PacketIDManager{
		used: make(map[uint16]struct{}),
	}
}

// Allocate returns the next available packet ID and marks it outstanding.
func (m *PacketIDManager) Allocate() (uint16, error) {
	if len(m.used) >= maxPacketIDs {
		return 0, ErrPacketIDExhausted
	}

	for {
		m.last++
		if m.last == 0 {
			m.last = 1
		}
		if _, ok := m.used[m.last]; !ok {
			m.used[m.last] = struct{}{}
			return m.last, nil
		}
	}
}

// Release releases a packet ID for reuse.
func (m *PacketIDManager) Release(id uint16) error {
	if _, ok := m.used[id]; !ok {
		return ErrPacketIDNotFound
	}
	delete(m.used, id)
	return nil
}

// IsUsed returns true if the packet ID is currently outstanding.
func (m *PacketIDManager) IsUsed(id uint16) bool {
	_, ok := m.used[id]
	return ok
}

// InUse returns the count of outstanding packet IDs.
func (m *PacketIDManager) InUse() int {
	return len(m.used)
}

// Reset releases every outstanding packet ID. The counter keeps its position.
func (m *PacketIDManager) Reset() {
	clear(m.used)
}
