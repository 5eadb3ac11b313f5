// Package llm defines the provider-neutral chat types and the Provider
// interface implemented by each LLM backend adapter. The router in
// pkg/router composes providers into a resilient failover chain; this
// package only knows how to talk to a single backend.
package llm
