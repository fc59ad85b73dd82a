package configreader

import (
	"encoding"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml"
	"gopkg.in/yaml.v3"

	"fknsrs.biz/p/ytwarehouse/internal/stringutil"
)

// Read fills out from, in increasing order of precedence: its existing
// values, a config file, command-line flags, a dotenv file and the process
// environment.
//
// Environment names match a field's "name" tag case-insensitively, either
// bare ("LOG_LEVEL") or prefixed with the program name
// ("YTWAREHOUSE_LOG_LEVEL"). The prefixed form wins when both are set.
func Read(program string, arguments, environment []string, out interface{}) error {
	fields, err := getFields(out)
	if err != nil {
		return fmt.Errorf("configreader.Read: %w", err)
	}

	env := newEnvironment(program, environment)

	if envFile, ok := lookup(arguments, env, fields, "env_file"); ok && envFile != "" {
		extra, err := readDotenv(envFile)
		if err != nil {
			return fmt.Errorf("configreader.Read: %w", err)
		}

		env.entries = append(env.entries, extra...)
	}

	if configPath, ok := lookup(arguments, env, fields, "config"); ok && configPath != "" {
		if err := readFile(configPath, out); err != nil {
			return fmt.Errorf("configreader.Read: %w", err)
		}
	}

	if err := readArguments(program, arguments, fields); err != nil {
		return fmt.Errorf("configreader.Read: could not read command-line flags: %w", err)
	}

	for _, f := range fields {
		s, ok := env.get(f.name)
		if !ok {
			continue
		}

		if err := f.set(s); err != nil {
			return fmt.Errorf("configreader.Read: environment: %w", err)
		}
	}

	return nil
}

type encodingText interface {
	encoding.TextMarshaler
	encoding.TextUnmarshaler
}

var (
	stringType       = reflect.TypeOf("")
	boolType         = reflect.TypeOf(true)
	intType          = reflect.TypeOf(int(0))
	encodingTextType = reflect.TypeOf((*encodingText)(nil)).Elem()
)

// field is one settable struct field and the parameter name it answers to.
type field struct {
	name   string
	help   string
	goName string
	value  reflect.Value
}

func getFields(v interface{}) ([]field, error) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return nil, fmt.Errorf("value must be a non-nil pointer; was instead %T", v)
	}

	rv = rv.Elem()
	if rv.Kind() != reflect.Struct {
		return nil, fmt.Errorf("value must be a pointer to a struct; was instead %T", v)
	}

	var fields []field

	for i := 0; i < rv.NumField(); i++ {
		tf := rv.Type().Field(i)

		name := tf.Tag.Get("name")
		if name == "" {
			name = stringutil.PascalToSnake(tf.Name)
		}
		if name == "-" {
			continue
		}

		switch t := tf.Type; {
		case t == stringType, t == boolType, t == intType, reflect.PointerTo(t).Implements(encodingTextType):
		default:
			return nil, fmt.Errorf("parameter %s (%s) has unsupported type %s", tf.Name, name, t)
		}

		fields = append(fields, field{
			name:   name,
			help:   tf.Tag.Get("help"),
			goName: tf.Name,
			value:  rv.Field(i),
		})
	}

	return fields, nil
}

func (f field) String() string {
	switch f.value.Type() {
	case stringType:
		return f.value.String()
	case boolType:
		return strconv.FormatBool(f.value.Bool())
	case intType:
		return strconv.Itoa(int(f.value.Int()))
	default:
		d, err := f.value.Addr().Interface().(encoding.TextMarshaler).MarshalText()
		if err != nil {
			return ""
		}
		return string(d)
	}
}

func (f field) set(s string) error {
	switch f.value.Type() {
	case stringType:
		f.value.SetString(s)
	case boolType:
		f.value.SetBool(stringutil.LooksTrue(s))
	case intType:
		n, err := strconv.Atoi(s)
		if err != nil {
			return fmt.Errorf("could not parse parameter %s (%s) as integer: %w", f.goName, f.name, err)
		}
		f.value.SetInt(int64(n))
	default:
		if err := f.value.Addr().Interface().(encoding.TextUnmarshaler).UnmarshalText([]byte(s)); err != nil {
			return fmt.Errorf("could not unmarshal parameter %s (%s): %w", f.goName, f.name, err)
		}
	}

	return nil
}

type environment struct {
	prefix  string
	entries []string
}

func newEnvironment(program string, entries []string) *environment {
	prefix := strings.TrimSuffix(filepath.Base(program), filepath.Ext(program))

	return &environment{
		prefix:  strings.ToLower(strings.NewReplacer("-", "_", ".", "_").Replace(prefix)) + "_",
		entries: append([]string(nil), entries...),
	}
}

// get returns the first entry for name. Entries from the process come
// before anything a dotenv file added, so the process wins.
func (e *environment) get(name string) (string, bool) {
	for _, key := range []string{e.prefix + name, name} {
		key = strings.ToLower(key) + "="

		for _, entry := range e.entries {
			if len(entry) >= len(key) && strings.ToLower(entry[:len(key)]) == key {
				return entry[len(key):], true
			}
		}
	}

	return "", false
}

// lookup finds a parameter before the full parse, for the parameters that
// decide where the rest of the configuration comes from.
func lookup(arguments []string, env *environment, fields []field, name string) (string, bool) {
	flagName := "-" + name

	for i, a := range arguments {
		if (a == flagName || a == "-"+flagName) && i+1 < len(arguments) {
			return arguments[i+1], true
		}
		if s, ok := strings.CutPrefix(a, flagName+"="); ok {
			return s, true
		}
		if s, ok := strings.CutPrefix(a, "-"+flagName+"="); ok {
			return s, true
		}
	}

	if s, ok := env.get(name); ok {
		return s, true
	}

	for _, f := range fields {
		if f.name == name {
			return f.String(), true
		}
	}

	return "", false
}

// readDotenv returns the entries of a dotenv file in KEY=value form. A
// missing file is not an error.
func readDotenv(filePath string) ([]string, error) {
	m, err := godotenv.Read(filePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}

		return nil, fmt.Errorf("readDotenv: could not read %q: %w", filePath, err)
	}

	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	a := make([]string, len(keys))
	for i, k := range keys {
		a[i] = k + "=" + m[k]
	}

	return a, nil
}

func readFile(filePath string, out interface{}) error {
	fd, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("readFile: could not open config file: %w", err)
	}
	defer fd.Close()

	switch filepath.Ext(filePath) {
	case ".yaml", ".yml":
		err = yaml.NewDecoder(fd).Decode(out)
	case ".toml":
		err = toml.NewDecoder(fd).Decode(out)
	default:
		return fmt.Errorf("readFile: could not determine file type for %q", filePath)
	}

	if err != nil {
		return fmt.Errorf("readFile: could not parse %q: %w", filePath, err)
	}

	return nil
}

func readArguments(program string, arguments []string, fields []field) error {
	flagSet := flag.NewFlagSet(program, flag.ContinueOnError)

	flagSet.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS]\n", program)
		flagSet.PrintDefaults()
		os.Exit(0)
	}

	for _, f := range fields {
		switch p := f.value.Addr().Interface().(type) {
		case *string:
			flagSet.StringVar(p, f.name, *p, f.help)
		case *bool:
			flagSet.BoolVar(p, f.name, *p, f.help)
		case *int:
			flagSet.IntVar(p, f.name, *p, f.help)
		case encodingText:
			flagSet.TextVar(p, f.name, p, f.help)
		}
	}

	return flagSet.Parse(arguments)
}
