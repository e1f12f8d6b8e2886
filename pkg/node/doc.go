// Package node exposes the LLM Hub chat-completion node to an automation
// host.
//
// A host drives the node through two entry points: LoadOptions, which
// populates the model selector, and Execute, which runs one batch of input
// items through the hub and returns one output per item. The host supplies
// credentials, input items and parameter values through the interfaces in
// this package. Batch is a ready-made host for callers that already hold
// everything in memory, such as the HTTP adapter and the CLI.
package node
