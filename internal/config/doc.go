// Package config resolves pinup settings.
//
// Values come from built-in defaults, then an optional TOML file at
// $XDG_CONFIG_HOME/pinup/config.toml, then PINUP_* environment variables.
// Command line flags are applied last by the CLI. The database lives at
// $XDG_DATA_HOME/pinup/pinup.db unless configured otherwise.
//
// Example config.toml:
//
//	db_path = "/home/me/notes/pinup.db"
//	log_level = "debug"
//	log_format = "json"
//	default_limit = 20
//	max_limit = 200
//	cache_size = 1000
//	reindex_on_startup = true
package config
