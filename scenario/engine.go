// Package scenario turns article text into a validated scene script,
// condenses it for shorts, and localizes it.
package scenario

import "context"

// Usage reports token consumption of a completion so the caller can
// charge the cost ledger. Engines that cannot measure return zeros.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// Engine is a text completion backend.
type Engine interface {
	Complete(ctx context.Context, system, user string) (string, Usage, error)
}
