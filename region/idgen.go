package region

import "sync"

// IDGenerator hands out incremental region identities.  It is safe for use
// by the drawing workers concurrently.
type IDGenerator struct {
	id int64
	sync.Mutex
}

// NewIDGenerator returns a generator whose first id is 1
func NewIDGenerator() *IDGenerator {
	return &IDGenerator{}
}

// NewIDGeneratorFrom returns a generator whose first id follows last
func NewIDGeneratorFrom(last int64) *IDGenerator {
	return &IDGenerator{id: last}
}

// GetNext returns the next incremental id
func (id *IDGenerator) GetNext() int64 {
	id.Lock()
	defer id.Unlock()
	id.id++
	return id.id
}
