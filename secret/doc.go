// Package secret resolves credentials referenced from configuration.
//
// Values are expanded with ExpandEnvStrict, then any "secretref:" references
// are resolved through a Provider:
//
//	RESPCACHE_JWT_SECRET=secretref:file:/run/secrets/jwt
//	RESPCACHE_ADMIN_API_KEY=secretref:env:OPS_ADMIN_KEY
package secret
