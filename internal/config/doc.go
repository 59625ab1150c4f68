// Package config loads the self-diagnostics configuration. It exposes a
// Default() baseline, file loading (JSON with comments, or YAML) and an
// environment overlay.
//
// A minimal FLODIAG_DIAGNOSTICS.json:
//
//	{
//	    // directory for <process>.<pid>.log
//	    "LogDirectory": "./diagnostics",
//	    "FileSize": 1024,
//	    "LogLevel": "Error"
//	}
//
// Example:
//
//	cfg, err := config.Load(config.FindConfigFile())
//	if err != nil { /* handle */ }
//	config.FromEnv(&cfg)
//	if err := cfg.Validate(); err != nil { /* diagnostics disabled */ }
package config
