// Package snowflake generates unique, time-sortable 64-bit ids. Messages use
// them as clustering keys so "newest first" is an id sort.
package snowflake

import (
	"errors"
	"sync"
	"time"
)

const (
	nodeBits  = 10
	seqBits   = 12
	nodeMax   = -1 ^ (-1 << nodeBits)
	seqMask   = -1 ^ (-1 << seqBits)
	timeShift = nodeBits + seqBits
	nodeShift = seqBits

	// 2025-01-01 00:00:00 UTC
	epoch int64 = 1735689600000
)

// Generator produces ids for a single node. Safe for concurrent use.
type Generator struct {
	mu   sync.Mutex
	last int64
	node int64
	seq  int64
}

// New returns a Generator for the given node id (0..1023). Node ids must be
// unique per process when several instances share a database.
func New(node int64) (*Generator, error) {
	if node < 0 || node > nodeMax {
		return nil, errors.New("snowflake: node id out of range")
	}
	return &Generator{node: node}, nil
}

// Next returns the next id. Ids generated by one Generator are strictly
// increasing.
func (g *Generator) Next() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := time.Now().UnixMilli()
	if now < g.last {
		// Clock moved backwards; hold the last observed time.
		now = g.last
	}

	if now == g.last {
		g.seq = (g.seq + 1) & seqMask
		if g.seq == 0 {
			for now <= g.last {
				now = time.Now().UnixMilli()
			}
		}
	} else {
		g.seq = 0
	}
	g.last = now

	return ((now - epoch) << timeShift) | (g.node << nodeShift) | g.seq
}
