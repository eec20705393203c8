package queue

import (
	"github.com/encodeous/rpl/state"
)

// Queue is a fixed pool of packet buffers. Buffers are tagged with the
// component that created them so a component can drop everything it still
// has queued. It is not safe for concurrent use.
type Queue struct {
	entries []*state.Packet
	used    []bool
}

func New(length int) *Queue {
	q := &Queue{
		entries: make([]*state.Packet, length),
		used:    make([]bool, length),
	}
	for i := range q.entries {
		q.entries[i] = state.NewPacket()
	}
	return q
}

// Acquire returns an empty buffer owned by creator, or nil if none is free.
func (q *Queue) Acquire(creator state.Component) *state.Packet {
	for i, used := range q.used {
		if !used {
			q.used[i] = true
			p := q.entries[i]
			p.Reset()
			p.Generation++
			p.Creator = creator
			p.Owner = creator
			return p
		}
	}
	return nil
}

func (q *Queue) index(p *state.Packet) int {
	for i, e := range q.entries {
		if e == p {
			return i
		}
	}
	return -1
}

func (q *Queue) Release(p *state.Packet) {
	idx := q.index(p)
	if idx == -1 {
		return
	}
	p.Reset()
	q.used[idx] = false
}

// RemoveAllCreatedBy frees every allocated buffer created by creator.
func (q *Queue) RemoveAllCreatedBy(creator state.Component) {
	for i, p := range q.entries {
		if q.used[i] && p.Creator == creator {
			p.Reset()
			q.used[i] = false
		}
	}
}

func (q *Queue) IsAllocated(p *state.Packet) bool {
	idx := q.index(p)
	return idx != -1 && q.used[idx]
}

func (q *Queue) InUse() int {
	n := 0
	for _, used := range q.used {
		if used {
			n++
		}
	}
	return n
}

func (q *Queue) Len() int {
	return len(q.entries)
}
