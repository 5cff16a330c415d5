// Package session keeps the in-memory conversation history of each relay
// connection.
//
// History is bounded: once a session exceeds its cap, system messages are
// kept and the oldest user and assistant messages are dropped. Sessions are
// never persisted and disappear when their connection closes.
package session
