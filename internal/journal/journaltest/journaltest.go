// AngelaMos | 2026
// journaltest.go

// Package journaltest provides an in-memory journal for service tests.
package journaltest

import (
	"context"
	"sync"

	"github.com/carterperez-dev/gigmarket/internal/core"
	"github.com/carterperez-dev/gigmarket/internal/journal"
)

type Recorder struct {
	mu      sync.Mutex
	Entries []journal.Entry
	Fail    error
}

func (r *Recorder) Record(_ context.Context, e journal.Entry) error {
	if r.Fail != nil {
		return r.Fail
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Entries = append(r.Entries, e)
	return nil
}

// Factory returns a journal.Factory that ignores the handle.
func (r *Recorder) Factory() journal.Factory {
	return func(core.DBTX) journal.Journal { return r }
}

func (r *Recorder) Actions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]string, 0, len(r.Entries))
	for _, e := range r.Entries {
		out = append(out, e.Action)
	}
	return out
}

func (r *Recorder) Last() journal.Entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.Entries) == 0 {
		return journal.Entry{}
	}
	return r.Entries[len(r.Entries)-1]
}
