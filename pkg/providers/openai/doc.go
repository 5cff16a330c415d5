// Package openai implements the adapter for the "openai-completions" API
// family: POST {base_url}/chat/completions with stream=true.
//
// The request always sets stream_options.include_usage so that the backend
// appends a usage-only payload after the last delta. That payload ends the
// stream with a Done chunk carrying token counts. Backends that ignore the
// option end with [DONE] or EOF, which produces a Done chunk without usage.
//
// System messages are sent inline as ordinary history entries.
//
// # Basic Usage
//
//	adapter := openai.NewProvider(providers.TransportOptions{})
//	chunks, err := adapter.StreamChat(ctx, &providers.ResolvedModel{
//	    ProviderName: "openai",
//	    ModelID:      "gpt-4o-mini",
//	    APIKey:       os.Getenv("OPENAI_API_KEY"),
//	}, &providers.ChatRequest{Messages: history})
package openai
