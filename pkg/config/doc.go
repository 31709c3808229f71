// Package config holds the plugin parameter catalog and the process
// level configuration.
//
// The parameter catalog is the admin-editable key/value configuration
// of the authentication hook. It is built once at startup from a fixed
// in-code list, hydrated from the vhbshib_config table and written
// back from the settings screen. Values are coerced to the declared
// parameter kind on every set.
//
// Process level settings (listen address, database URL, redis address,
// log level) come from environment variables:
//
//	VHBSHIB_HOST="0.0.0.0"
//	VHBSHIB_PORT="8080"
//	VHBSHIB_POSTGRES_URL="postgres://localhost/ilias"
//	VHBSHIB_REDIS_ADDR="localhost:6379"
//	VHBSHIB_LOG_LEVEL="info"  # debug, info, warn, error
package config
