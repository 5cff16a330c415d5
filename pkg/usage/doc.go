// Package usage records the token usage of completed chat turns.
//
// A record names the session, the provider and model that answered, the
// chain position that succeeded, and the prompt and completion token
// counts. Message content is never stored.
//
// # Backends
//
//   - memory: process-local, lost on restart (default)
//   - sqlite: modernc.org/sqlite, pure Go
//   - sqlite3: github.com/mattn/go-sqlite3, requires cgo
//
// Both SQLite backends share SQLLedger and the same schema. Open selects
// one from config.UsageConfig:
//
//	ledger, err := usage.Open(cfg.Usage)
//	if err != nil {
//	    return err
//	}
//	defer ledger.Close()
//
// Old records are removed with Prune, which the maintenance scheduler
// calls on the configured retention.
package usage
