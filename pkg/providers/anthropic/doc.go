// Package anthropic implements the adapter for the "anthropic-messages" API
// family.
//
// The Messages API takes the system prompt out of band, so system messages
// in the history are lifted into the request's system field and the
// remaining turns are sent as messages. max_tokens is mandatory and defaults
// to 4096.
//
// The SSE stream is folded into canonical chunks:
//
//	message_start        input token count recorded
//	content_block_delta  text_delta becomes a delta chunk
//	message_delta        output token count recorded
//	message_stop         Done chunk with prompt, completion and total usage
//	error                stream fails with a StreamError
//
// A stream that closes before message_stop is treated as a failure.
package anthropic
