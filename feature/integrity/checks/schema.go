package checks

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"graph-store/core/database"
	"graph-store/core/store"

	"gorm.io/gorm"
)

// SchemaReport is the result of a schema check.
type SchemaReport struct {
	Table          string   `json:"table"`
	Matched        bool     `json:"matched"`
	MissingColumns []string `json:"missing_columns"`
	Errors         []string `json:"errors"`
}

// CheckSchema compares the objects table with the columns declared by the
// GORM model of the database backend.
func CheckSchema(db *gorm.DB) (*SchemaReport, error) {
	if db == nil {
		return nil, errors.New("database connection is nil")
	}

	row := store.ObjectRow{}
	report := &SchemaReport{
		Table:          row.TableName(),
		Matched:        true,
		MissingColumns: []string{},
	}

	missing, err := database.MissingColumns(db, report.Table, modelColumns(row))
	if err != nil {
		report.Matched = false
		report.Errors = append(report.Errors, fmt.Sprintf("Failed to inspect table %s: %v", report.Table, err))
		return report, nil
	}
	if len(missing) > 0 {
		report.Matched = false
		report.MissingColumns = missing
	}
	return report, nil
}

// modelColumns lists the column names declared in the gorm tags of model.
func modelColumns(model any) []string {
	t := reflect.TypeOf(model)
	var columns []string
	for i := 0; i < t.NumField(); i++ {
		if col := parseGormColumn(t.Field(i).Tag.Get("gorm")); col != "" {
			columns = append(columns, col)
		}
	}
	return columns
}

func parseGormColumn(tag string) string {
	for _, p := range strings.Split(tag, ";") {
		if col, ok := strings.CutPrefix(p, "column:"); ok {
			return col
		}
	}
	return ""
}
