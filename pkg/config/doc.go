// Package config defines the root configuration structure for Callisto and
// the YAML loading, defaulting and validation that goes with it.
//
// Configuration is loaded from a YAML file, defaults are applied for any
// omitted field, CALLISTO_* environment variables override individual
// fields, and the result is validated before use.
package config
