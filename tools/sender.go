package tools

import "context"

// Sender is the subset of transport.Multiplexer's contract the tools
// depend on: send a command to the remote host and wait for its
// correlated result or error. Tools depend on this interface rather than
// *transport.Multiplexer directly so they can be exercised against a fake
// remote host in tests.
type Sender interface {
	Send(ctx context.Context, commandType string, params map[string]interface{}) (interface{}, error)
}
