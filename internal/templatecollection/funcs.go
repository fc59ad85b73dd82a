package templatecollection

import (
	"fmt"
	"html/template"
	"reflect"
	"strconv"
	"time"

	"fknsrs.biz/p/ytwarehouse/internal/stringutil"
)

// Funcs are the helpers every dashboard template can call.
func Funcs() template.FuncMap {
	return template.FuncMap{
		"slice_length": func(v interface{}) int {
			val := reflect.ValueOf(v)
			if val.Kind() != reflect.Slice {
				panic(fmt.Errorf("expected input to be a slice"))
			}
			return val.Len()
		},
		"first_of": func(a ...interface{}) string {
			for _, e := range a {
				if s := fmt.Sprintf("%v", e); s != "" {
					return s
				}
			}

			return ""
		},
		"format_float": func(f float64) string {
			return strconv.FormatFloat(f, 'f', 2, 64)
		},
		"format_time": func(t time.Time) string {
			return t.Format(time.RFC3339)
		},
		"format_time_null": func(t *time.Time) string {
			if t == nil {
				return ""
			}

			return t.Format(time.RFC3339)
		},
		"pascal_to_snake": stringutil.PascalToSnake,
		"pascal_to_title": stringutil.PascalToTitle,
		"truncate":        stringutil.Truncate,
		"make_map": func(args ...interface{}) map[string]interface{} {
			m := make(map[string]interface{})

			for i := 0; i < len(args)/2; i++ {
				kv := args[i*2]
				vv := args[i*2+1]

				k, ok := kv.(string)
				if !ok {
					panic(fmt.Errorf("key value should be string; was instead %T", kv))
				}

				m[k] = vv
			}

			return m
		},
	}
}
