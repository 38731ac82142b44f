// AngelaMos | 2026
// coretest.go

// Package coretest holds fakes shared by service tests.
package coretest

import (
	"context"
	"sync"

	"github.com/carterperez-dev/gigmarket/internal/core"
)

// Tx runs the callback inline with a nil DBTX. Repository factories used
// alongside it ignore the handle and return in-memory fakes.
type Tx struct {
	mu      sync.Mutex
	Commits int
	Fail    error
}

func (t *Tx) Conn() core.DBTX {
	return nil
}

func (t *Tx) InTx(ctx context.Context, fn func(tx core.DBTX) error) error {
	if t.Fail != nil {
		return t.Fail
	}
	if err := fn(nil); err != nil {
		return err
	}
	t.mu.Lock()
	t.Commits++
	t.mu.Unlock()
	return nil
}

var _ core.Transactor = (*Tx)(nil)
