package graph

import (
	"hash/fnv"
	"sort"
	"sync"
)

const lockStripes = 256

// NodeLocks serializes mutations that touch the same node. Ids hash onto a
// fixed set of mutexes; multi-node locks are taken in ascending stripe order
// so two writers can never wait on each other.
type NodeLocks struct {
	stripes [lockStripes]sync.Mutex
}

// NewNodeLocks creates a lock set
func NewNodeLocks() *NodeLocks {
	return &NodeLocks{}
}

// Lock acquires the locks covering ids and returns the release func
func (l *NodeLocks) Lock(ids ...string) (unlock func()) {
	idx := make([]int, 0, len(ids))
	seen := make(map[int]struct{}, len(ids))
	for _, id := range ids {
		i := stripe(id)
		if _, dup := seen[i]; dup {
			continue
		}
		seen[i] = struct{}{}
		idx = append(idx, i)
	}
	sort.Ints(idx)

	for _, i := range idx {
		l.stripes[i].Lock()
	}
	return func() {
		for j := len(idx) - 1; j >= 0; j-- {
			l.stripes[idx[j]].Unlock()
		}
	}
}

func stripe(id string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	return int(h.Sum32() % lockStripes)
}
