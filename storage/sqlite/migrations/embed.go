package migrations

import "embed"

// FS contains the embedded account store migrations.
//
//go:embed *.sql
var FS embed.FS
