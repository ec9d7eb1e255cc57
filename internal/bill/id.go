package bill

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
)

// IDGenerator generates unique IDs for items and participants
type IDGenerator interface {
	Generate() string
}

// UUIDGenerator generates random UUIDs
type UUIDGenerator struct{}

// Generate returns a new random UUID string
func (UUIDGenerator) Generate() string {
	return uuid.New().String()
}

// SequenceGenerator generates prefixed monotonic IDs ("item-1", "item-2", ...)
type SequenceGenerator struct {
	Prefix string
	next   atomic.Int64
}

// NewSequenceGenerator creates a SequenceGenerator with the given prefix
func NewSequenceGenerator(prefix string) *SequenceGenerator {
	return &SequenceGenerator{Prefix: prefix}
}

// Generate returns the next ID in the sequence
func (g *SequenceGenerator) Generate() string {
	return fmt.Sprintf("%s-%d", g.Prefix, g.next.Add(1))
}
