// Package transport holds the HTTP-level plumbing shared by the llmhub host
// API: the contract between the HTTP adapter and the node, wire types,
// APIError-to-status mapping, and net/http middleware for request ids,
// panic recovery and access logging.
//
// Middleware is plain func(http.Handler) http.Handler so it composes with
// the auth and metrics middleware from their own packages. Chain(a, b, c)
// runs a first on the way in.
package transport
