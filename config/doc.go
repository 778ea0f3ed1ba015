// Package config loads respcached settings from RESPCACHE_* environment
// variables.
//
// Credential fields (the JWT secret and the admin API key) may reference
// secrets with "secretref:file:<path>" or "secretref:env:<name>" and are
// resolved after parsing.
package config
