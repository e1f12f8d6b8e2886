// Package auth authenticates callers of the llmhub host API.
//
// An AuthChain asks its authenticators in order. Each votes Yes, No or
// Abstain, and the first Yes or No decides. Middleware runs the chain,
// stores the identity in the request context and applies per-tier rate
// limits. The identity's subject owns the execution records a request
// creates.
package auth
