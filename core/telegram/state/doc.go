// Package state keeps per-chat conversation sessions: the active stage, scratch data and the
// queue of messages that must be removed from the chat when the stage is left.
//
// Stores are safe for concurrent use by key. Callers that read-modify-write a session
// must serialize per chat themselves; stage.Machine does that.
package state
