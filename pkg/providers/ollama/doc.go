// Package ollama implements the adapter for the "ollama-chat" API family,
// the native /api/chat endpoint of an Ollama server.
//
// The stream is newline-delimited JSON. Each line carries a message
// fragment; the line with done=true carries prompt_eval_count and
// eval_count, which become the usage of the Done chunk. A stream that
// closes before done=true is treated as a failure.
package ollama
