package model

import (
	"database/sql/driver"
	"strings"

	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/schema"
)

// Postgres text[] column, plain text elsewhere
type StringArray pq.StringArray

func (StringArray) GormDBDataType(db *gorm.DB, field *schema.Field) string {
	if db.Dialector.Name() == "postgres" {
		return "text[]"
	}
	return "text"
}

func (self *StringArray) Scan(value interface{}) error {
	return (*pq.StringArray)(self).Scan(value)
}

func (self StringArray) Value() (driver.Value, error) {
	if self == nil {
		return "{}", nil
	}
	return pq.StringArray(self).Value()
}

type arrayContains struct {
	column string
	value  string
}

// Condition matching rows whose array column contains the value
func ArrayContains(column, value string) clause.Expression {
	return arrayContains{column: column, value: value}
}

func (self arrayContains) Build(builder clause.Builder) {
	stmt, ok := builder.(*gorm.Statement)
	if ok && stmt.Dialector.Name() == "postgres" {
		builder.AddVar(builder, self.value)
		builder.WriteString(" = ANY(")
		builder.WriteQuoted(self.column)
		builder.WriteString(")")
		return
	}

	// Elsewhere the column holds the array literal, elements are always quoted
	builder.WriteQuoted(self.column)
	builder.WriteString(" LIKE ")
	builder.AddVar(builder, "%\""+strings.ReplaceAll(self.value, "\"", "\\\"")+"\"%")
}
