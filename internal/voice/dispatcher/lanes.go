package dispatcher

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"

	"voice-agent/internal/models"
)

// lanes serializes commands per transcript stream. Commands on different
// streams run concurrently; commands on one stream run one at a time in
// arrival order.
type lanes struct {
	mu     sync.Mutex
	active map[string]*lane
}

type lane struct {
	sem  *semaphore.Weighted
	refs int
}

// acquire waits for the stream's turn or for ctx to end. The returned
// release must be called once the command has settled.
func (l *lanes) acquire(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	if l.active == nil {
		l.active = make(map[string]*lane)
	}
	ln, ok := l.active[key]
	if !ok {
		ln = &lane{sem: semaphore.NewWeighted(1)}
		l.active[key] = ln
	}
	ln.refs++
	l.mu.Unlock()

	if err := ln.sem.Acquire(ctx, 1); err != nil {
		l.leave(key, ln)
		return nil, err
	}
	return func() {
		ln.sem.Release(1)
		l.leave(key, ln)
	}, nil
}

func (l *lanes) leave(key string, ln *lane) {
	l.mu.Lock()
	defer l.mu.Unlock()
	ln.refs--
	if ln.refs == 0 {
		delete(l.active, key)
	}
}

func (l *lanes) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.active)
}

// streamKey identifies the transcript stream of ctx: the session id, else
// the employee id. Calls with neither share the default stream.
func streamKey(ctx context.Context) string {
	s := models.SessionFrom(ctx)
	switch {
	case s == nil:
		return ""
	case s.ID != "":
		return "session:" + s.ID
	case s.EmployeeID != "":
		return "employee:" + s.EmployeeID
	default:
		return ""
	}
}
