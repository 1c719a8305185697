// Package config loads the portal's YAML configuration.
//
// Load reads the file, applies built-in defaults for anything left unset,
// lets CAMPUS_* environment variables override individual values and then
// validates the result. A config that fails validation is never returned.
//
// The token signing secret has no default. Operators supply it through
// CAMPUS_JWT_SECRET (at least 32 characters) rather than committing it to
// the file; the same goes for database DSNs and broker credentials.
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    return fmt.Errorf("loading config: %w", err)
//	}
//	ttl := cfg.GetTokenTTL()
package config
