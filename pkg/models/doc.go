// Package models resolves the model identifiers a user can pick for the
// chat node.
//
// Resolution is split into two composable steps. [Resolver.Fetch] lists the
// hub's /models endpoint and returns an error on any failure.
// [Resolver.Resolve] wraps Fetch and substitutes the fixed [Fallback] list
// for every error, so option loading never fails.
package models
