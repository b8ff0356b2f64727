package devices

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// textOf — ключевое поле (devices_id, eqp_no) как строка хранилища.
// Строка как есть, число своим JSON-литералом, остальное JSON-текстом.
func textOf(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		return x.String()
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}

// normalizeNumbers: json.Number -> int64 (целый литерал) или float64, рекурсивно.
func normalizeNumbers(v any) any {
	switch x := v.(type) {
	case json.Number:
		s := x.String()
		if !strings.ContainsAny(s, ".eE") {
			if n, err := x.Int64(); err == nil {
				return n
			}
		}
		f, err := x.Float64()
		if err != nil {
			return s
		}
		return f
	case []any:
		out := make([]any, len(x))
		for i := range x {
			out[i] = normalizeNumbers(x[i])
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = normalizeNumbers(e)
		}
		return out
	}
	return v
}

// displayValue печатает значение так, как его показывают клиенты прошивки:
// True/False, 1 и 1.0 различаются, списки и объекты в виде ['a', 1] / {'k': True}.
// Ключи объекта сортируются.
func displayValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "None"
	case string:
		return x
	case bool:
		if x {
			return "True"
		}
		return "False"
	case json.Number:
		return displayValue(normalizeNumbers(x))
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return displayFloat(x)
	case []any:
		parts := make([]string, len(x))
		for i, e := range x {
			parts[i] = displayNested(e)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = quote(k) + ": " + displayNested(x[k])
		}
		return "{" + strings.Join(parts, ", ") + "}"
	}
	return fmt.Sprint(v)
}

func displayNested(v any) string {
	if s, ok := v.(string); ok {
		return quote(s)
	}
	return displayValue(v)
}

func quote(s string) string {
	if strings.Contains(s, "'") && !strings.Contains(s, `"`) {
		return `"` + strings.ReplaceAll(s, `\`, `\\`) + `"`
	}
	r := strings.NewReplacer(`\`, `\\`, "'", `\'`)
	return "'" + r.Replace(s) + "'"
}

// displayFloat: 1.0, 0.5, 1e+16, 1e-05.
func displayFloat(f float64) string {
	e := strconv.FormatFloat(f, 'e', -1, 64)
	exp, err := strconv.Atoi(e[strings.IndexByte(e, 'e')+1:])
	if err == nil && (exp < -4 || exp >= 16) {
		return e
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
