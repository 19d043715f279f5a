// Package layoutschema holds an embedded table of canonical field
// name/offset/size triples for the superblock and group descriptor,
// unmarshalled with gocsv.UnmarshalToCallback exactly the way
// disks/disks.go loads its embedded disk-geometry table. The layout
// package's own accessors are hand-written for speed and directness; this
// table exists purely so a test can cross-check those accessor offsets
// against an independent source and catch layout drift, the same role
// disks.go's geometry table plays for malformed CSV rows.
package layoutschema

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/gocarina/gocsv"
)

// FieldSpec is one row of the embedded table: the byte offset and size of
// a named field within a named on-disk struct.
type FieldSpec struct {
	Struct string `csv:"struct"`
	Field  string `csv:"field"`
	Offset int    `csv:"offset"`
	Size   int    `csv:"size"`
}

//go:embed fields.csv
var fieldsRawCSV string

var fields map[string]FieldSpec

func fieldKey(structName, field string) string {
	return structName + "." + field
}

// Lookup returns the canonical offset/size for structName.field, e.g.
// Lookup("Superblock", "FirstIno").
func Lookup(structName, field string) (FieldSpec, error) {
	spec, ok := fields[fieldKey(structName, field)]
	if !ok {
		return FieldSpec{}, fmt.Errorf("layoutschema: no field %s.%s in table", structName, field)
	}
	return spec, nil
}

func init() {
	fields = make(map[string]FieldSpec)
	err := gocsv.UnmarshalToCallback(strings.NewReader(fieldsRawCSV), func(row FieldSpec) error {
		k := fieldKey(row.Struct, row.Field)
		if _, exists := fields[k]; exists {
			return fmt.Errorf("layoutschema: duplicate row for %s", k)
		}
		fields[k] = row
		return nil
	})
	if err != nil {
		panic(fmt.Sprintf("layoutschema: malformed embedded field table: %s", err))
	}
}
