package configutil

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/titanous/json5"
)

// LocalName returns the path of the local override file for a config file,
// `config.json5` becomes `config.local.json5`.
func LocalName(name string) string {
	ext := filepath.Ext(name)
	return fmt.Sprintf("%s.local%s", strings.TrimSuffix(name, ext), ext)
}

// Layer decodes the json5 config file at `name` and then its local override
// (see LocalName) on top of whatever `out` already holds, so callers can pass
// in a value carrying their defaults. A key present in a layer replaces the
// value wholesale, empty arrays and objects and zero values included. Absent
// keys keep what was there.
//
// It returns os.ErrNotExist if neither file exists, `out` is left untouched in
// that case.
func Layer[T any](name string, out *T) error {
	allNotFound := true

	for _, path := range []string{name, LocalName(name)} {
		contents, err := os.ReadFile(path)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return err
		}
		allNotFound = false
		if len(contents) == 0 {
			continue
		}

		var present map[string]any
		err = json5.Unmarshal(contents, &present)
		if err != nil {
			return fmt.Errorf("decode %s: %w", path, err)
		}
		target := reflect.ValueOf(out).Elem()
		if target.Kind() == reflect.Struct {
			clearPresentMaps(target, present)
		}

		err = json5.Unmarshal(contents, out)
		if err != nil {
			return fmt.Errorf("decode %s: %w", path, err)
		}
		slog.Debug("applied config layer", "path", path)
	}

	if allNotFound {
		return os.ErrNotExist
	}
	return nil
}

// clearPresentMaps zeroes the map fields of v whose key appears in the layer,
// decoding into a non-nil map would otherwise add to it instead of replacing it.
func clearPresentMaps(v reflect.Value, present map[string]any) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		name := jsonName(field)
		if name == "-" {
			continue
		}
		value, ok := lookupKey(present, name)
		if !ok {
			continue
		}

		fv := v.Field(i)
		switch fv.Kind() {
		case reflect.Map:
			fv.Set(reflect.Zero(fv.Type()))
		case reflect.Struct:
			nested, ok := value.(map[string]any)
			if ok {
				clearPresentMaps(fv, nested)
			}
		}
	}
}

func jsonName(field reflect.StructField) string {
	tag, _, _ := strings.Cut(field.Tag.Get("json"), ",")
	if tag == "" {
		return field.Name
	}
	return tag
}

// lookupKey matches keys the way the decoder does, exact first and then
// case-insensitively.
func lookupKey(present map[string]any, name string) (any, bool) {
	value, ok := present[name]
	if ok {
		return value, true
	}
	for key, value := range present {
		if strings.EqualFold(key, name) {
			return value, true
		}
	}
	return nil, false
}

// FindUpward walks up from the working directory until it finds a file called
// `name`, returning its absolute path.
func FindUpward(name string) (string, error) {
	current, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		candidate := filepath.Join(current, name)
		_, err := os.Stat(candidate)
		if err == nil {
			return candidate, nil
		}
		if !os.IsNotExist(err) {
			return "", err
		}

		parent := filepath.Dir(current)
		if parent == current {
			return "", os.ErrNotExist
		}
		current = parent
	}
}
