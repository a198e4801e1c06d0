// Package all wires the built-in export backends into the storage factory.
//
// Importing it for side effects makes these kinds available to storage.New:
//
//   - "postgres" (tablelinker/internal/storage/postgres)
//   - "mssql"    (tablelinker/internal/storage/mssql)
//   - "mysql"    (tablelinker/internal/storage/mysql)
//   - "sqlite"   (tablelinker/internal/storage/sqlite)
//
// A binary that needs only some backends can import those packages directly.
package all

import (
	_ "tablelinker/internal/storage/mssql"
	_ "tablelinker/internal/storage/mysql"
	_ "tablelinker/internal/storage/postgres"
	_ "tablelinker/internal/storage/sqlite"
)
