// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package mcp

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"workspacegen/internal/models"
)

// ValidateParameters checks params against schema and returns every
// problem found: missing required keys first (in declaration order), then
// type mismatches ordered by parameter name. Parameters the schema does not
// declare are accepted.
func ValidateParameters(schema models.InputSchema, params map[string]any) []string {
	var problems []string

	for _, key := range schema.Required {
		if _, ok := params[key]; !ok {
			problems = append(problems, fmt.Sprintf("missing required parameter %q", key))
		}
	}

	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		prop, declared := schema.Properties[name]
		if !declared || prop.Type == "" {
			continue
		}
		if got := jsonType(params[name]); !typeMatches(prop.Type, got, params[name]) {
			problems = append(problems, fmt.Sprintf("parameter %q: expected %s, got %s", name, prop.Type, got))
		}
	}
	return problems
}

// jsonType names the JSON type of a decoded value.
func jsonType(v any) string {
	switch v.(type) {
	case nil:
		return models.ParamNull
	case string:
		return models.ParamString
	case bool:
		return models.ParamBoolean
	case float64, float32, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64, json.Number:
		return models.ParamNumber
	case []any:
		return models.ParamArray
	case map[string]any:
		return models.ParamObject
	}
	return fmt.Sprintf("%T", v)
}

func typeMatches(want, got string, v any) bool {
	switch want {
	case models.ParamInteger:
		return got == models.ParamNumber && isIntegral(v)
	case models.ParamString, models.ParamNumber, models.ParamBoolean,
		models.ParamArray, models.ParamObject, models.ParamNull:
		return want == got
	}
	// Types outside the supported subset are not enforced.
	return true
}

func isIntegral(v any) bool {
	switch n := v.(type) {
	case float64:
		return n == math.Trunc(n) && !math.IsInf(n, 0)
	case float32:
		return float64(n) == math.Trunc(float64(n))
	case json.Number:
		_, err := n.Int64()
		return err == nil
	}
	return true
}
