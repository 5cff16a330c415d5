package providers

import "context"

// Adapter is implemented once per backend API family. It translates the
// canonical ChatRequest into the backend's wire format and the backend's
// streaming response into a sequence of StreamChunks.
//
// Adapters are stateless with respect to the model: every call receives the
// ResolvedModel it should talk to, so one adapter instance serves every
// provider configured with its API family.
//
// Example:
//
//	chunks, err := adapter.StreamChat(ctx, model, &ChatRequest{Messages: history})
//	if err != nil {
//	    return err
//	}
//	for chunk := range chunks {
//	    if chunk.Error != nil {
//	        return chunk.Error
//	    }
//	    if chunk.Done {
//	        break
//	    }
//	    fmt.Print(chunk.Delta)
//	}
type Adapter interface {
	// API returns the API family served by this adapter (e.g. "openai-completions").
	API() string

	// StreamChat starts a streaming chat request.
	//
	// Failures before the first byte of the stream (bad status, connection
	// refused, invalid request) are returned directly. Once the channel is
	// returned, failures arrive as a final chunk with Error set.
	//
	// The channel is always closed by the adapter. Cancelling ctx stops the
	// producer and releases the upstream connection.
	StreamChat(ctx context.Context, model *ResolvedModel, req *ChatRequest) (<-chan *StreamChunk, error)
}

// StreamReader abstracts a backend's incremental wire protocol (SSE, NDJSON).
type StreamReader interface {
	// Read returns the next chunk. A chunk with Done set ends the stream.
	// Read returns a non-nil error if the stream failed.
	Read(ctx context.Context) (*StreamChunk, error)

	// Close releases the underlying response body.
	Close() error
}

// Pump drains a StreamReader into a channel until the stream finishes, fails,
// or ctx is cancelled. It owns the reader and closes it before returning.
//
// Every send selects on ctx so the goroutine never blocks after the consumer
// has gone away.
func Pump(ctx context.Context, reader StreamReader) <-chan *StreamChunk {
	out := make(chan *StreamChunk, 16)

	go func() {
		defer close(out)
		defer reader.Close()

		for {
			chunk, err := reader.Read(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				select {
				case out <- &StreamChunk{Error: err}:
				case <-ctx.Done():
				}
				return
			}

			select {
			case out <- chunk:
			case <-ctx.Done():
				return
			}

			if chunk.Done {
				return
			}
		}
	}()

	return out
}
