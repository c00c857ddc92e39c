package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Fields holds the schemaless payload of a record. It is stored as a
// jsonb column and scanned back into a plain map.
type Fields map[string]any

// Value implements driver.Valuer.
func (f Fields) Value() (driver.Value, error) {
	if f == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(f)
}

// Scan implements sql.Scanner.
func (f *Fields) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*f = Fields{}
		return nil
	case []byte:
		return json.Unmarshal(v, f)
	case string:
		return json.Unmarshal([]byte(v), f)
	default:
		return fmt.Errorf("fields: unsupported scan type %T", src)
	}
}

// Clone returns a shallow copy of the field map.
func (f Fields) Clone() Fields {
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// Record is one row of a module's dataset. All six modules share the
// records table, discriminated by the module column.
type Record struct {
	ID        string    `db:"id" json:"id"`
	Module    string    `db:"module" json:"module"`
	Fields    Fields    `db:"fields" json:"fields"`
	Version   int       `db:"version" json:"version"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// ListQuery carries the list view parameters: free-text search, category
// narrowing, sort key and direction.
type ListQuery struct {
	Search    string
	Category  string
	SortBy    string
	SortOrder string
}
