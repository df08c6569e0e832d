// Package migrations embeds the identity_profiles and audit_events schemas
// applied by the Postgres integration tests.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
