package testfixtures

import (
	"fmt"
	"sync"
)

// SessionIDs hands out predictable session identifiers ("session-1", ...) and
// remembers what it issued.
type SessionIDs struct {
	mu     sync.Mutex
	prefix string
	issued []string
}

// NewSessionIDs uses prefix, or "session" when prefix is empty.
func NewSessionIDs(prefix string) *SessionIDs {
	if prefix == "" {
		prefix = "session"
	}
	return &SessionIDs{prefix: prefix}
}

func (g *SessionIDs) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	id := fmt.Sprintf("%s-%d", g.prefix, len(g.issued)+1)
	g.issued = append(g.issued, id)
	return id
}

// NextFunc adapts Next to the func() string the auth service expects.
func (g *SessionIDs) NextFunc() func() string {
	if g == nil {
		return func() string { return "" }
	}
	return g.Next
}

// Issued returns a copy of every identifier handed out so far.
func (g *SessionIDs) Issued() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.issued...)
}
