// Package chat runs conversation turns against an ordered chain of models.
//
// A turn appends the user message to its session, then tries the primary
// model and each fallback in order. Deltas from the attempt in progress are
// relayed immediately. The first attempt that completes wins: its text is
// committed as the assistant message and a done event ends the turn. When
// every attempt fails, a single error event with code MODEL_ERROR carries
// the last failure's message and nothing is committed.
//
// Fragments relayed by an attempt that later fails are not retracted, so a
// client may see an answer restart when a fallback takes over. Only done and
// error mark the end of a turn.
//
// Turns on the same session run one at a time. Configuration is read at the
// start of every turn, so a reloaded model chain applies to the next turn.
//
// Example:
//
//	svc := chat.NewService(chat.ServiceOptions{
//	    Registry: providerfactory.NewDefaultRegistry(providers.TransportOptions{}),
//	    Store:    session.NewStore(cfg.Sessions.MaxHistory),
//	})
//	events, err := svc.Chat(ctx, chat.Turn{SessionID: id, Content: "hello"})
//	if err != nil {
//	    return err // *ConfigError
//	}
//	for ev := range events {
//	    switch ev.Type {
//	    case chat.EventDelta:
//	        fmt.Print(ev.Content)
//	    case chat.EventError:
//	        fmt.Println(ev.Error.Code, ev.Error.Message)
//	    }
//	}
package chat
