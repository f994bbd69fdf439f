// Package integration implements the Integration Registry (§4.C): three
// asset-acquisition adapters (generator, marketplace, library) behind one
// shape, each guarded by a circuit breaker.
package integration

import "context"

// Sender is the subset of transport.Multiplexer's contract the adapters
// need: send a command, wait for its correlated result or error. Adapters
// depend on this interface rather than *transport.Multiplexer directly so
// they can be exercised against a fake remote host in tests.
type Sender interface {
	Send(ctx context.Context, commandType string, params map[string]interface{}) (interface{}, error)
}

// AssetRef identifies one asset successfully acquired and imported into
// the scene.
type AssetRef struct {
	Name      string
	Type      string // e.g. "model", "material", "hdri"
	AssetType string // the caller-requested category, echoed back
}
