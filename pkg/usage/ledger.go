package usage

import (
	"fmt"

	"yiyi-hq/gateway/pkg/config"
)

// Backend names accepted in usage.backend.
const (
	BackendMemory  = "memory"
	BackendSQLite  = "sqlite"
	BackendSQLite3 = "sqlite3"
)

// Open creates the ledger selected by cfg.Backend. The caller decides
// whether usage recording is enabled.
func Open(cfg config.UsageConfig) (Ledger, error) {
	switch cfg.Backend {
	case BackendMemory, "":
		return NewMemoryLedger(), nil
	case BackendSQLite, BackendSQLite3:
		l, err := NewSQLLedger(cfg.Backend, config.ExpandHome(cfg.Path))
		if err != nil {
			return nil, err
		}
		return l, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownBackend, cfg.Backend)
	}
}
