// Package api defines the error types shared by the llmhub packages.
//
// Every failure that crosses a package boundary towards the host is an
// [APIError]: the hub client maps transport and HTTP failures into one, the
// node maps parameter problems into one, and the HTTP transport serializes
// it as {"error": {...}} with a status derived from its type.
//
// The package has zero external dependencies and performs no I/O.
package api
