// Package schema holds the embedded DDL migrations for the token ledger.
package schema

import "embed"

//go:embed *.sql
var Files embed.FS
