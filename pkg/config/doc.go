// Package config provides configuration management for the YiYi gateway.
//
// This package handles loading, validating, saving and hot-reloading the
// gateway configuration. It provides a type-safe configuration system with
// validation and defaults matching the gateway's documented behavior.
//
// # Configuration Loading
//
// The default location is ~/.yiyi/config.yaml. The file format follows the
// extension:
//
//   - .yaml, .yml: YAML
//   - .toml: TOML
//   - .json: JSON
//
// A missing file is not an error: LoadConfig returns the defaults, so a
// fresh install starts a gateway that answers every turn with a
// configuration error until a primary model is set.
//
// # Secrets and Placeholders
//
// Any string value may contain ${NAME} placeholders, replaced from the
// environment at load time. Unset variables expand to the empty string:
//
//	providers:
//	  openai:
//	    api_key: ${OPENAI_API_KEY}
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention YIYI_SECTION_FIELD.
// For example:
//
//   - YIYI_GATEWAY_PORT overrides gateway.port
//   - YIYI_MODEL_PRIMARY overrides model.primary
//   - YIYI_PROVIDERS_OPENAI_API_KEY overrides providers.openai.api_key
//
// Provider overrides apply to providers already present in the file.
//
// # Configuration Precedence
//
// Configuration values are applied in the following order (later overrides earlier):
//
//  1. Default values (defined in defaults.go)
//  2. Values from the file, with placeholders expanded
//  3. Environment variable overrides
//  4. Validation (fails fast if invalid)
//
// # Singleton Pattern
//
// For application-wide configuration access, use the singleton:
//
//	if err := config.Initialize(path); err != nil {
//	    log.Fatal(err)
//	}
//	cfg := config.GetConfig()
//
// # Hot Reload
//
// A Watcher observes the config file and calls ReloadConfig after a short
// debounce. An invalid file is logged and ignored; the previous
// configuration stays active. Consumers read GetConfig at the start of each
// unit of work, so a reload takes effect on the next chat turn.
//
// # Saving
//
// Save writes YAML and keeps the last five versions under
// <config dir>/backups/config-<timestamp><ext>.
package config
