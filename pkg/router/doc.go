// Package router picks an LLM backend for each chat call, retries transient
// failures with exponential backoff, fails over along a priority-ordered
// route chain, and trips a per-provider circuit breaker so a consistently
// failing backend is skipped until its cooldown elapses.
package router
