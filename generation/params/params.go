/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package params

import "fmt"

// Extract returns the required parameter name from args, or an error when it
// is absent or not a T.
func Extract[T any](args map[string]any, name string) (T, error) {
	var zero T

	value, ok := args[name]
	if !ok {
		return zero, fmt.Errorf("%s parameter is required", name)
	}

	if v, ok := value.(T); ok {
		return v, nil
	}
	if v, ok := convertNumeric[T](value); ok {
		return v, nil
	}

	return zero, fmt.Errorf("%s parameter must be of type %T, got %T", name, zero, value)
}

// Optional returns the parameter name from args, or defaultValue when it is
// absent. A present value of the wrong type is an error, not the default.
func Optional[T any](args map[string]any, name string, defaultValue T) (T, error) {
	value, ok := args[name]
	if !ok {
		return defaultValue, nil
	}

	if v, ok := value.(T); ok {
		return v, nil
	}
	if v, ok := convertNumeric[T](value); ok {
		return v, nil
	}

	var zero T
	return zero, fmt.Errorf("%s parameter must be of type %T, got %T", name, zero, value)
}

// convertNumeric bridges JSON's float64 to the integer types tool handlers
// actually want.
func convertNumeric[T any](value any) (T, bool) {
	var zero T
	floatVal, ok := value.(float64)
	if !ok {
		return zero, false
	}
	switch any(zero).(type) {
	case int:
		return any(int(floatVal)).(T), true
	case int64:
		return any(int64(floatVal)).(T), true
	}
	return zero, false
}

// Error builds a tool result map carrying an error message for the model.
func Error(format string, args ...any) map[string]any {
	return map[string]any{
		"error": fmt.Sprintf(format, args...),
	}
}
