package delivery

import (
	"hash/fnv"
	"sync"
)

const lockStripes = 64

// recipientLocks serializes work per recipient id. Ids hash onto a fixed set
// of mutexes, so unrelated recipients may occasionally share one.
type recipientLocks struct {
	stripes [lockStripes]sync.Mutex
}

func (l *recipientLocks) lock(recipientID string) func() {
	h := fnv.New32a()
	_, _ = h.Write([]byte(recipientID))
	mu := &l.stripes[h.Sum32()%lockStripes]
	mu.Lock()
	return mu.Unlock
}
