// Package history provides a bounded undo/redo stack of mask snapshots.
package history

import (
	"mask-editor/internal/mask"
)

// DefaultCapacity is the number of snapshots retained by default.
const DefaultCapacity = 20

// Manager is a bounded undo/redo stack with a current pointer. New commits
// discard the redo future; when full, the oldest snapshot is evicted.
//
// A Manager is not safe for concurrent use.
type Manager struct {
	entries  []mask.Snapshot
	index    int
	capacity int
}

// New creates a manager seeded with an initial snapshot at index 0, so undo
// can never go below that state. Capacities below 1 select DefaultCapacity.
func New(seed mask.Snapshot, capacity int) *Manager {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	entries := make([]mask.Snapshot, 1, capacity)
	entries[0] = seed
	return &Manager{entries: entries, capacity: capacity}
}

// Commit records a snapshot as the newest state.
func (m *Manager) Commit(s mask.Snapshot) {
	m.entries = m.entries[:m.index+1]
	if len(m.entries) == m.capacity {
		// Evict oldest, reusing the backing array.
		copy(m.entries, m.entries[1:])
		m.entries[len(m.entries)-1] = s
	} else {
		m.entries = append(m.entries, s)
	}
	m.index = len(m.entries) - 1
}

// Undo moves the pointer back one step and returns the snapshot to restore.
// It returns false if already at the oldest retained state.
func (m *Manager) Undo() (mask.Snapshot, bool) {
	if m.index == 0 {
		return mask.Snapshot{}, false
	}
	m.index--
	return m.entries[m.index], true
}

// Redo moves the pointer forward one step and returns the snapshot to
// restore. It returns false if already at the newest state.
func (m *Manager) Redo() (mask.Snapshot, bool) {
	if m.index >= len(m.entries)-1 {
		return mask.Snapshot{}, false
	}
	m.index++
	return m.entries[m.index], true
}

// Discard drops the newest snapshot and returns the one now current. It only
// succeeds when the pointer is at the newest entry, and unlike Undo the
// dropped state cannot be redone.
func (m *Manager) Discard() (mask.Snapshot, bool) {
	if m.index == 0 || m.index != len(m.entries)-1 {
		return mask.Snapshot{}, false
	}
	m.entries[m.index] = mask.Snapshot{}
	m.entries = m.entries[:m.index]
	m.index--
	return m.entries[m.index], true
}

// CanUndo reports whether Undo would succeed.
func (m *Manager) CanUndo() bool { return m.index > 0 }

// CanRedo reports whether Redo would succeed.
func (m *Manager) CanRedo() bool { return m.index < len(m.entries)-1 }

// Current returns the snapshot at the pointer.
func (m *Manager) Current() mask.Snapshot { return m.entries[m.index] }

// Len returns the number of retained snapshots.
func (m *Manager) Len() int { return len(m.entries) }

// Index returns the current pointer.
func (m *Manager) Index() int { return m.index }

// Capacity returns the maximum number of retained snapshots.
func (m *Manager) Capacity() int { return m.capacity }
