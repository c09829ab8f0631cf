package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// EnvPrefix is prepended to every env tag when reading overrides.
const EnvPrefix = "ISSNOTIFY_"

var durationType = reflect.TypeOf(time.Duration(0))

// option is one tagged field of an options struct.
type option struct {
	value reflect.Value
	flag  string
	toml  string
	env   string
}

// LoadConfig fills opts, a pointer to a flat options struct, with precedence
// CLI flags > env vars > config file. Fields carry `toml:"section.key"` and
// `env:"KEY"` tags; the file path is read from a field named Config. Flags
// explicitly set on cmd are left alone. Every invalid value is reported.
func LoadConfig(opts any, cmd *cobra.Command) error {
	v := reflect.ValueOf(opts)
	if v.Kind() != reflect.Pointer || v.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("config: expected pointer to struct, got %T", opts)
	}
	v = v.Elem()

	var configPath string
	if f := v.FieldByName("Config"); f.IsValid() && f.Kind() == reflect.String {
		configPath = f.String()
	}
	file, err := readConfigFile(configPath)
	if err != nil {
		return err
	}

	changed := changedFlags(cmd)
	var errs []error
	for _, o := range collectOptions(v) {
		if changed[o.flag] {
			continue
		}
		if o.toml != "" && file != nil {
			if raw := getNestedValue(file, o.toml); raw != nil {
				if setErr := setFieldValue(o.value, raw); setErr != nil {
					errs = append(errs, fmt.Errorf("%s: %s: %w", configPath, o.toml, setErr))
				}
			}
		}
		if o.env != "" {
			if raw := os.Getenv(EnvPrefix + o.env); raw != "" {
				if setErr := setFieldValueFromString(o.value, raw); setErr != nil {
					errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, o.env, setErr))
				}
			}
		}
	}
	return errors.Join(errs...)
}

func collectOptions(v reflect.Value) []option {
	t := v.Type()
	opts := make([]option, 0, t.NumField())
	for i := range t.NumField() {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		opts = append(opts, option{
			value: v.Field(i),
			flag:  fieldNameToFlag(f.Name),
			toml:  f.Tag.Get("toml"),
			env:   f.Tag.Get("env"),
		})
	}
	return opts
}

func changedFlags(cmd *cobra.Command) map[string]bool {
	changed := make(map[string]bool)
	if cmd == nil {
		return changed
	}
	cmd.Flags().Visit(func(f *pflag.Flag) {
		changed[f.Name] = true
	})
	return changed
}

// readConfigFile returns nil without error when path is empty or missing.
func readConfigFile(path string) (map[string]any, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	var file map[string]any
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse TOML config %s: %w", path, err)
	}
	return file, nil
}

// fieldNameToFlag converts a struct field name to a CLI flag name.
// Initialisms stay together: "LoggingLevel" -> "logging-level",
// "FeedURL" -> "feed-url", "MQTTClientID" -> "mqtt-client-id".
func fieldNameToFlag(fieldName string) string {
	runes := []rune(fieldName)
	var result []rune
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) {
			prevLower := unicode.IsLower(runes[i-1])
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if prevLower || nextLower {
				result = append(result, '-')
			}
		}
		result = append(result, unicode.ToLower(r))
	}
	return string(result)
}

// getNestedValue retrieves a value from nested map using dot notation.
func getNestedValue(data map[string]any, path string) any {
	parts := strings.Split(path, ".")
	current := data

	for i, part := range parts {
		if i == len(parts)-1 {
			return current[part]
		}
		if next, ok := current[part].(map[string]any); ok {
			current = next
		} else {
			return nil
		}
	}
	return nil
}

// setFieldValue stores a decoded TOML value. Durations accept "5m" style
// strings or whole seconds, floats accept integers.
func setFieldValue(field reflect.Value, value any) error {
	if !field.CanSet() {
		return nil
	}

	if field.Type() == durationType {
		switch d := value.(type) {
		case string:
			parsed, err := time.ParseDuration(d)
			if err != nil {
				return err
			}
			field.SetInt(int64(parsed))
		case int64:
			field.SetInt(int64(time.Duration(d) * time.Second))
		default:
			return fmt.Errorf("expected duration, got %T", value)
		}
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("expected string, got %T", value)
		}
		field.SetString(s)
	case reflect.Bool:
		b, ok := value.(bool)
		if !ok {
			return fmt.Errorf("expected bool, got %T", value)
		}
		field.SetBool(b)
	case reflect.Int:
		switch i := value.(type) {
		case int64:
			field.SetInt(i)
		case int:
			field.SetInt(int64(i))
		default:
			return fmt.Errorf("expected integer, got %T", value)
		}
	case reflect.Float64:
		switch f := value.(type) {
		case float64:
			field.SetFloat(f)
		case int64:
			field.SetFloat(float64(f))
		default:
			return fmt.Errorf("expected number, got %T", value)
		}
	case reflect.Slice:
		arr, ok := value.([]any)
		if !ok || field.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("expected list of strings, got %T", value)
		}
		list := make([]string, 0, len(arr))
		for _, item := range arr {
			s, strOk := item.(string)
			if !strOk {
				return fmt.Errorf("expected list of strings, found %T", item)
			}
			list = append(list, s)
		}
		field.Set(reflect.ValueOf(list))
	default:
		return fmt.Errorf("unsupported option type %s", field.Type())
	}
	return nil
}

// setFieldValueFromString parses an environment value. Lists are comma separated.
func setFieldValueFromString(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}

	if field.Type() == durationType {
		d, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		field.SetInt(int64(d))
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)
	case reflect.Int:
		i, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		field.SetInt(int64(i))
	case reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(f)
	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported option type %s", field.Type())
		}
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		field.Set(reflect.ValueOf(parts))
	default:
		return fmt.Errorf("unsupported option type %s", field.Type())
	}
	return nil
}
