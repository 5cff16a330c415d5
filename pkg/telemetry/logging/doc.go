// Package logging provides structured logging with secret redaction.
//
// # Overview
//
// The logging package wraps log/slog to provide:
//   - JSON or text output to stderr plus a daily file (yiyi-YYYY-MM-DD.log)
//   - Redaction of provider keys and bearer tokens through a ReplaceAttr hook
//   - Context helpers carrying request, session and connection IDs
//   - The YIYI_LOG_LEVEL override, accepting silly/trace/fatal as aliases
//
// # Usage
//
//	logger, err := logging.New(logging.Config{
//	    Level:  "info",
//	    Format: "json",
//	    Redact: true,
//	    Dir:    "/home/me/.yiyi/logs",
//	})
//	if err != nil {
//	    return err
//	}
//	defer logger.Shutdown()
//	logger.SetDefault()
//
//	logger.Info("calling provider", "api_key", key) // api_key=[REDACTED]
//
// Old daily files are removed by PruneOldLogs, which the gateway calls at
// startup and from the maintenance scheduler.
package logging
