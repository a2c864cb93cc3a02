// Package config loads the HCL configuration of the loader.
//
// Every block and attribute is optional; anything missing keeps the value from
// Default(). The process environment is available to expressions as `env`:
//
//	log_level = env.PATCHLOADER_LOG_LEVEL
//
//	dispatch {
//	  fallback   = true
//	  deoptimize = ["android.app.Instrumentation"]
//	}
//
// Load reads a file, or every .hcl file under a directory; Parse decodes
// source already in memory. Both return a validated *Config.
package config
