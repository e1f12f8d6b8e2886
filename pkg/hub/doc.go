// Package hub provides the authenticated HTTP helper used to talk to an
// OpenAI-compatible LLM Hub.
//
// Callers describe a call with a [Request] (method, URL relative to a base
// URL, optional JSON body) and receive the decoded JSON body as an opaque
// value. Authentication material comes from the [credentials.Credentials]
// passed with each call; nothing is cached between calls.
//
// Non-2xx responses and transport failures are mapped to *api.APIError.
package hub
