package node

import (
	"context"

	"github.com/rhuss/llmhub/pkg/credentials"
)

// Batch is an in-memory ExecuteHost.
type Batch struct {
	// CredentialsName selects the credential set in Source. Empty uses the
	// name the node asks for.
	CredentialsName string

	// Source resolves credentials.
	Source credentials.Source

	// Parameters are static values shared by every item.
	Parameters map[string]any

	// Items is the input batch.
	Items []Item
}

var _ ExecuteHost = (*Batch)(nil)

// Credentials resolves the batch's credential set.
func (b *Batch) Credentials(ctx context.Context, name string) (*credentials.Credentials, error) {
	if b.CredentialsName != "" {
		name = b.CredentialsName
	}
	return b.Source.Credentials(ctx, name)
}

// InputData returns the batch items.
func (b *Batch) InputData() []Item {
	return b.Items
}

// NodeParameter returns the item's own value for name, falling back to the
// static batch value.
func (b *Batch) NodeParameter(name string, index int) (any, bool) {
	if index >= 0 && index < len(b.Items) {
		if v, ok := b.Items[index].Parameters[name]; ok {
			return v, true
		}
	}
	v, ok := b.Parameters[name]
	return v, ok
}
