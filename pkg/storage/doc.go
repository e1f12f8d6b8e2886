// Package storage defines execution records and the helpers shared by the
// record stores in memory and postgres.
//
// The store interface itself is transport.ExecutionStore. Records are
// scoped to their owner, set on the request context with WithOwner.
package storage
