package testutil

import (
	"context"
	"fmt"
	"sync/atomic"
)

// Sequence is an in-process stand-in for the Redis code generator.
type Sequence struct {
	n atomic.Int64
}

func (s *Sequence) NextOrderCode(context.Context) (string, error) {
	return fmt.Sprintf("ORD-TEST-%03d", s.n.Add(1)), nil
}

func (s *Sequence) NextTopupCode(context.Context) (string, error) {
	return fmt.Sprintf("TOP-TEST-%03d", s.n.Add(1)), nil
}
