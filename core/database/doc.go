// Package database handles database connections and schema inspection.
//
// It wraps GORM to open MySQL, PostgreSQL or SQLite connections from the
// application configuration. GORM's own logging is routed through zap via
// logger.NewGormLogger.
//
// # Schema Inspection
//
// GetTableColumns lists the columns of a table. The integrity feature uses it
// to verify that the objects table backing the store has the expected shape.
//
// # Usage
//
//	db, err := database.Connect(cfg.Database, log)
//	if err != nil {
//	    log.Fatal("Database connection failed", zap.Error(err))
//	}
//
//	columns, err := database.GetTableColumns(db, "objects")
package database
