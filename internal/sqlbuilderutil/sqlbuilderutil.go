package sqlbuilderutil

import (
	"fmt"
	"reflect"
	"strings"

	"fknsrs.biz/p/reflectutil"
	"fknsrs.biz/p/sqlbuilder"

	"fknsrs.biz/p/ytwarehouse/internal/stringutil"
)

type Table struct {
	*sqlbuilder.Table
	name        string
	nameMap     map[string]string
	fieldNames  []string
	columnNames []string
}

func (t *Table) C(name string) *sqlbuilder.BasicColumn {
	if columnName, ok := t.nameMap[name]; ok {
		name = columnName
	}

	return t.Table.C(name)
}

func (t *Table) Name() string { return t.name }

// ColumnName maps a struct field name to its column name.
func (t *Table) ColumnName(name string) string {
	if columnName, ok := t.nameMap[name]; ok {
		return columnName
	}

	return name
}

// ColumnNames returns the column names in struct field order.
func (t *Table) ColumnNames() []string {
	return append([]string(nil), t.columnNames...)
}

// Row returns the field values of v in the same order as ColumnNames. v must
// be the struct the table was made from, or a pointer to it.
func (t *Table) Row(v interface{}) []interface{} {
	rv := reflect.Indirect(reflect.ValueOf(v))

	values := make([]interface{}, len(t.fieldNames))
	for i, name := range t.fieldNames {
		values[i] = rv.FieldByName(name).Interface()
	}

	return values
}

func MakeTable(v interface{}) (*Table, error) {
	s, err := reflectutil.GetDescription(v)
	if err != nil {
		return nil, fmt.Errorf("sqlbuilderutil.MakeTable: could not get struct description: %w", err)
	}

	var tableName string
	var fieldNames, columnNames []string

	nameMap := make(map[string]string)

	for _, f := range s.Fields().WithoutTagValue("sql", "-") {
		var columnName string

		sqlTag := f.Tag("sql")

		if sqlTag != nil && sqlTag.Value() != "" {
			columnName = sqlTag.Value()
		} else {
			columnName = stringutil.PascalToSnake(f.Name())
		}

		fieldNames = append(fieldNames, f.Name())
		columnNames = append(columnNames, columnName)

		nameMap[f.Name()] = columnName
		nameMap[strings.ToLower(f.Name())] = columnName
		nameMap[columnName] = columnName

		if sqlTag != nil {
			if tableParameter := sqlTag.Parameter("table"); tableParameter != nil {
				tableName = tableParameter.Value()
			}
		}
	}

	if tableName == "" {
		tableName = stringutil.PascalToSnake(s.Name())
	}

	return &Table{
		Table:       sqlbuilder.NewTable(tableName, columnNames...),
		name:        tableName,
		nameMap:     nameMap,
		fieldNames:  fieldNames,
		columnNames: columnNames,
	}, nil
}

func MustMakeTable(v interface{}) *Table {
	t, err := MakeTable(v)
	if err != nil {
		panic(err)
	}
	return t
}
