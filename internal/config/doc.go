// Package config provides autosave settings.
//
// Settings are assembled from three layers, later layers overriding earlier
// ones:
//
//  1. Built-in defaults (Defaults)
//  2. The settings file, by default $XDG_CONFIG_HOME/autosave/settings.toml
//  3. Environment variables prefixed with AUTOSAVE_
//
// The settings file may be TOML, YAML, or JSON (including .sublime-settings
// files); see the loader package. Provider keeps the current settings,
// reloads them when the file changes (Watch), and notifies subscribers of
// changed keys through the notify package.
//
// # Keys
//
//	save_directory     string  directory for scratch files ("~" expanded)
//	filename_format    string  template with {timestamp} and {extension}
//	insert_timestamp   bool    write the timestamp as the first line
//	timestamp_format   string  strftime pattern
//	use_microseconds   bool    append milliseconds to the timestamp
//	default_extension  string  value of {extension}
//	debug              bool    log at debug level
//	log_level          string  debug, info, warn, or error
package config
