// Package tools wraps external knowledge sources an agent may consult
// mid-reasoning. Tool failures are non-fatal: the agent proceeds with
// whatever context it already has.
package tools

import "context"

// Tool is a uniform interface over external lookup capabilities.
type Tool interface {
	Name() string
	Invoke(ctx context.Context, query string) (string, error)
}
