package cmd

import (
	"context"
	"fmt"
	"runtime/debug"
)

// Middleware wraps a handler (e.g. logging, permission check, metrics).
// The command being run is available through Context.Command.
type Middleware func(Handler) Handler

// Apply applies middlewares so that the first in the list is the outermost.
func Apply(h Handler, mws ...Middleware) Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// Recover turns a panic in the wrapped handler into a *PanicError.
func Recover() Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, c *Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = &PanicError{Where: fmt.Sprintf("command %q", c.Command.QualifiedName()), Value: r, Stack: debug.Stack()}
				}
			}()
			return next(ctx, c)
		}
	}
}
