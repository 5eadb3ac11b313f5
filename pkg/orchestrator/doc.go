// Package orchestrator drives the agentic tool-call loop for one session at
// a time: it prompts the model through the router, dispatches requested
// tools sequentially, feeds results back until the model stops asking for
// tools, detects when the model is stuck repeating the same call, prunes
// the growing conversation, and streams progress events to observers.
package orchestrator
