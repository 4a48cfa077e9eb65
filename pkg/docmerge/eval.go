package docmerge

import (
	"context"
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"
)

// TemplateData holds the data a template is expanded against
type TemplateData map[string]interface{}

// DataResolver resolves dotted/bracket paths against a TemplateData map and
// the active loop bindings, e.g. "customer.address.city", "items[0]" or
// `prices["net"]`. Loop bindings shadow top-level data keys.
type DataResolver struct {
	Data TemplateData
}

// NewDataResolver creates a resolver over data
func NewDataResolver(data TemplateData) *DataResolver {
	return &DataResolver{Data: data}
}

// Resolve implements Resolver
func (r *DataResolver) Resolve(ctx context.Context, q Query) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	value, found, err := EvaluateVariable(q.Expr, r.Data, q.Scope)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrAbsent
	}
	return value, nil
}

// Regular expressions for parsing field access
var (
	// Matches array/map access like [0], ['key'], ["key"]
	bracketRegex = regexp.MustCompile(`^\[([^\]]+)\]`)
	// Matches dot notation like .field
	dotRegex = regexp.MustCompile(`^\.([^.\[]+)`)
)

// EvaluateVariable evaluates a variable expression with support for nested
// field access. found is false when any step of the path does not exist.
func EvaluateVariable(expression string, data TemplateData, scope *Scope) (value interface{}, found bool, err error) {
	expression = strings.TrimSpace(expression)

	parts, err := parseFieldAccess(expression)
	if err != nil {
		return nil, false, err
	}
	if len(parts) == 0 || parts[0].Type != fieldTypeIdentifier {
		return nil, false, NewResolutionError(expression, fmt.Errorf("expression must start with a name"))
	}

	current, ok := scope.Lookup(parts[0].Value)
	if !ok {
		current, ok = data[parts[0].Value]
	}
	if !ok {
		return nil, false, nil
	}

	for _, part := range parts[1:] {
		switch part.Type {
		case fieldTypeIdentifier:
			current, ok = accessField(current, part.Value)
		case fieldTypeBracket:
			current, ok = accessBracketField(current, part.Value)
		}
		if !ok {
			return nil, false, nil
		}
	}

	return current, true, nil
}

// fieldAccessPart represents a part of a field access expression
type fieldAccessPart struct {
	Type  fieldAccessType
	Value string
}

type fieldAccessType int

const (
	fieldTypeIdentifier fieldAccessType = iota
	fieldTypeBracket
)

// parseFieldAccess parses an expression into field access parts
func parseFieldAccess(expression string) ([]fieldAccessPart, error) {
	var parts []fieldAccessPart
	remaining := expression

	if remaining == "" {
		return nil, nil
	}

	// Find the first part (before any . or [)
	idx := strings.IndexAny(remaining, ".[")
	if idx == -1 {
		parts = append(parts, fieldAccessPart{
			Type:  fieldTypeIdentifier,
			Value: remaining,
		})
		return parts, nil
	}

	if idx > 0 {
		parts = append(parts, fieldAccessPart{
			Type:  fieldTypeIdentifier,
			Value: remaining[:idx],
		})
		remaining = remaining[idx:]
	}

	for remaining != "" {
		if strings.HasPrefix(remaining, ".") {
			matches := dotRegex.FindStringSubmatch(remaining)
			if len(matches) < 2 {
				return nil, NewResolutionError(expression, fmt.Errorf("invalid dot notation"))
			}
			parts = append(parts, fieldAccessPart{
				Type:  fieldTypeIdentifier,
				Value: matches[1],
			})
			remaining = remaining[len(matches[0]):]
		} else if strings.HasPrefix(remaining, "[") {
			matches := bracketRegex.FindStringSubmatch(remaining)
			if len(matches) < 2 {
				return nil, NewResolutionError(expression, fmt.Errorf("invalid bracket notation"))
			}
			parts = append(parts, fieldAccessPart{
				Type:  fieldTypeBracket,
				Value: matches[1],
			})
			remaining = remaining[len(matches[0]):]
		} else {
			return nil, NewResolutionError(expression, fmt.Errorf("unexpected character"))
		}
	}

	return parts, nil
}

// indirect strips pointers and interfaces
func indirect(v reflect.Value) (reflect.Value, bool) {
	for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return v, false
		}
		v = v.Elem()
	}
	return v, v.IsValid()
}

// accessField accesses a map key or exported struct field
func accessField(current interface{}, field string) (interface{}, bool) {
	switch v := current.(type) {
	case TemplateData:
		val, ok := v[field]
		return val, ok
	case map[string]interface{}:
		val, ok := v[field]
		return val, ok
	case map[string]string:
		val, ok := v[field]
		return val, ok
	}

	rv, ok := indirect(reflect.ValueOf(current))
	if !ok {
		return nil, false
	}
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, false
		}
		mv := rv.MapIndex(reflect.ValueOf(field).Convert(rv.Type().Key()))
		if !mv.IsValid() {
			return nil, false
		}
		return mv.Interface(), true
	case reflect.Struct:
		f := rv.FieldByName(field)
		if !f.IsValid() {
			f = rv.FieldByNameFunc(func(name string) bool { return strings.EqualFold(name, field) })
		}
		if !f.IsValid() || !f.CanInterface() {
			return nil, false
		}
		return f.Interface(), true
	}
	return nil, false
}

// accessBracketField accesses a field using bracket notation
func accessBracketField(current interface{}, key string) (interface{}, bool) {
	if idx, err := strconv.Atoi(key); err == nil {
		return accessArrayIndex(current, idx)
	}
	key = strings.Trim(key, `'"`)
	return accessField(current, key)
}

// accessArrayIndex accesses an array element by index; negative indexes
// count from the end
func accessArrayIndex(current interface{}, index int) (interface{}, bool) {
	rv, ok := indirect(reflect.ValueOf(current))
	if !ok || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
		return nil, false
	}
	if index < 0 {
		index = rv.Len() + index
	}
	if index < 0 || index >= rv.Len() {
		return nil, false
	}
	return rv.Index(index).Interface(), true
}

// toSlice converts any slice or array to []interface{}
func toSlice(val interface{}) ([]interface{}, bool) {
	if items, ok := val.([]interface{}); ok {
		return items, true
	}
	rv, ok := indirect(reflect.ValueOf(val))
	if !ok || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
		return nil, false
	}
	result := make([]interface{}, rv.Len())
	for i := range result {
		result[i] = rv.Index(i).Interface()
	}
	return result, true
}

func isTruthy(val interface{}) bool {
	if val == nil {
		return false
	}

	switch v := val.(type) {
	case bool:
		return v
	case int, int8, int16, int32, int64:
		return reflect.ValueOf(v).Int() != 0
	case uint, uint8, uint16, uint32, uint64:
		return reflect.ValueOf(v).Uint() != 0
	case float32, float64:
		return reflect.ValueOf(v).Float() != 0.0
	case string:
		return v != ""
	}

	rv := reflect.ValueOf(val)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() > 0
	case reflect.Pointer, reflect.Interface:
		return !rv.IsNil()
	}
	return true
}

// FormatValue converts a value to its string representation
func FormatValue(value interface{}) string {
	if value == nil {
		return ""
	}

	switch v := value.(type) {
	case string:
		return v
	case int, int8, int16, int32, int64:
		return fmt.Sprintf("%d", v)
	case uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", v)
	case float32:
		return strconv.FormatFloat(float64(v), 'g', 10, 32)
	case float64:
		return strconv.FormatFloat(v, 'g', 15, 64)
	case bool:
		return fmt.Sprintf("%v", v)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}
