// Package session holds the simulation session shared between the driver,
// the storage backends and the status monitor.
package session

import (
	"sync"

	"github.com/OCAP2/awareness/pkg/core"
	"github.com/google/uuid"
)

// Context holds the current session
type Context struct {
	mu      sync.RWMutex
	session *core.Session
	ended   bool
}

// NewContext creates a Context with a placeholder session.
func NewContext() *Context {
	return &Context{
		session: &core.Session{Name: "No session loaded"},
	}
}

// Get returns the current session
func (c *Context) Get() *core.Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session
}

// Set replaces the current session and marks it running.
func (c *Context) Set(s *core.Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session = s
	c.ended = false
}

// End marks the current session as finished.
func (c *Context) End() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ended = true
}

// Running reports whether a real session is set and not ended.
func (c *Context) Running() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return !c.ended && c.session != nil && c.session.ID != uuid.Nil
}
