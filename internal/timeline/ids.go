package timeline

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
)

// IDSource hands out identifiers that are unique for the lifetime of the process
// and, for UUIDSource, across processes.
type IDSource interface {
	NewID() string
}

type UUIDSource struct{}

func (UUIDSource) NewID() string { return uuid.NewString() }

// Counter is a monotonic IDSource producing prefix-1, prefix-2, ...
type Counter struct {
	prefix string
	n      atomic.Uint64
}

func NewCounter(prefix string) *Counter {
	return &Counter{prefix: prefix}
}

func (c *Counter) NewID() string {
	return fmt.Sprintf("%s-%d", c.prefix, c.n.Add(1))
}
