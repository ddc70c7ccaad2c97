// Package serial holds the state shared while a pipeline document is read
// or written.
//
// Blocks are created first; everything that refers to other objects
// (connections, layouts, attribute locations, render commands) is queued on
// the DeferredQueue and resolved once every object exists. Inconsistencies
// found on the way do not abort the load: the offending item is dropped
// and a message is kept for the user.
package serial

import (
	"context"
	"errors"
	"fmt"

	"github.com/vk/glgrid/internal/ctxlog"
	"github.com/vk/glgrid/internal/graph"
)

// Context is the state of one load or save.
type Context struct {
	Objects  *ObjectIDPool
	Deferred *DeferredQueue
	Messages []string
}

// NewContext returns an empty context.
func NewContext() *Context {
	return &Context{
		Objects:  NewObjectIDPool(),
		Deferred: &DeferredQueue{},
	}
}

// Inconsistent records a problem with an item that is being dropped.
func (c *Context) Inconsistent(format string, args ...any) {
	c.Messages = append(c.Messages, fmt.Sprintf(format, args...))
}

// Defer queues fn in the given band. name identifies the item in messages.
func (c *Context) Defer(p Priority, name string, fn func() error) {
	c.Deferred.Push(p, name, fn)
}

// Finish drains the deferred queue. Tasks failing with
// graph.ErrSerialization become messages; any other error stops the drain
// and is returned.
func (c *Context) Finish(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	err := c.Deferred.Drain(ctx, func(t Task, err error) error {
		if !errors.Is(err, graph.ErrSerialization) {
			return fmt.Errorf("%s: %w", t.Name, err)
		}
		logger.Warn("Dropping inconsistent item.", "item", t.Name, "reason", graph.Reason(err))
		c.Inconsistent("%s: %s", t.Name, graph.Reason(err))
		return nil
	})
	if err != nil {
		return err
	}
	logger.Debug("Deferred queue drained.", "messages", len(c.Messages))
	return nil
}
