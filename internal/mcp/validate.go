package mcp

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"

	"github.com/dune/dune-analytics-mcp-server/internal/protocol"
)

var integerString = regexp.MustCompile(`^-?[0-9]+$`)

// validateArguments checks raw call arguments against a tool's declared
// input schema: required fields present, no undeclared fields, JSON types
// matching, integer minimums honored. The one normalization performed is
// rewriting a bare numeric string supplied for an integer field (clients
// routinely send query IDs as strings). Returns the, possibly rewritten,
// argument document.
func validateArguments(schema *protocol.JSONSchema, raw json.RawMessage) (json.RawMessage, error) {
	if schema == nil {
		return raw, nil
	}

	args := map[string]json.RawMessage{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &args); err != nil {
			return nil, fmt.Errorf("arguments must be a JSON object")
		}
	}

	for _, name := range schema.Required {
		if _, ok := args[name]; !ok {
			return nil, fmt.Errorf("missing required argument %q", name)
		}
	}

	rewritten := false
	for name, value := range args {
		prop, declared := schema.Properties[name]
		if !declared {
			return nil, fmt.Errorf("unexpected argument %q", name)
		}
		normalized, changed, err := validateValue(name, prop, value)
		if err != nil {
			return nil, err
		}
		if changed {
			args[name] = normalized
			rewritten = true
		}
	}

	if !rewritten {
		return raw, nil
	}
	out, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("arguments must be a JSON object")
	}
	return out, nil
}

func validateValue(name string, schema protocol.JSONSchema, value json.RawMessage) (json.RawMessage, bool, error) {
	switch schema.Type {
	case "string":
		var s string
		if err := json.Unmarshal(value, &s); err != nil {
			return nil, false, fmt.Errorf("argument %q must be a string", name)
		}
		if len(schema.Enum) > 0 && !contains(schema.Enum, s) {
			return nil, false, fmt.Errorf("argument %q must be one of %v", name, schema.Enum)
		}
		return value, false, nil

	case "integer":
		n, normalized, err := integerValue(name, value)
		if err != nil {
			return nil, false, err
		}
		if schema.Minimum != nil && float64(n) < *schema.Minimum {
			return nil, false, fmt.Errorf("argument %q must be at least %d", name, int64(*schema.Minimum))
		}
		return normalized, string(normalized) != string(value), nil

	case "number":
		var f float64
		if err := json.Unmarshal(value, &f); err != nil {
			return nil, false, fmt.Errorf("argument %q must be a number", name)
		}
		if schema.Minimum != nil && f < *schema.Minimum {
			return nil, false, fmt.Errorf("argument %q must be at least %g", name, *schema.Minimum)
		}
		return value, false, nil

	case "boolean":
		var b bool
		if err := json.Unmarshal(value, &b); err != nil {
			return nil, false, fmt.Errorf("argument %q must be a boolean", name)
		}
		return value, false, nil

	case "object":
		fields := map[string]json.RawMessage{}
		if err := json.Unmarshal(value, &fields); err != nil {
			return nil, false, fmt.Errorf("argument %q must be an object", name)
		}
		for _, req := range schema.Required {
			if _, ok := fields[req]; !ok {
				return nil, false, fmt.Errorf("argument %q is missing field %q", name, req)
			}
		}
		for field, fieldValue := range fields {
			prop, declared := schema.Properties[field]
			if !declared {
				continue
			}
			if _, _, err := validateValue(name+"."+field, prop, fieldValue); err != nil {
				return nil, false, err
			}
		}
		return value, false, nil

	case "array":
		var items []json.RawMessage
		if err := json.Unmarshal(value, &items); err != nil {
			return nil, false, fmt.Errorf("argument %q must be an array", name)
		}
		if schema.Items != nil {
			for i, item := range items {
				if _, _, err := validateValue(fmt.Sprintf("%s[%d]", name, i), *schema.Items, item); err != nil {
					return nil, false, err
				}
			}
		}
		return value, false, nil

	default:
		return value, false, nil
	}
}

// integerValue accepts a JSON integer or a bare numeric string and returns
// the integer plus its canonical encoding.
func integerValue(name string, value json.RawMessage) (int64, json.RawMessage, error) {
	var f float64
	if err := json.Unmarshal(value, &f); err == nil {
		if f != float64(int64(f)) {
			return 0, nil, fmt.Errorf("argument %q must be an integer", name)
		}
		return int64(f), json.RawMessage(strconv.FormatInt(int64(f), 10)), nil
	}

	var s string
	if err := json.Unmarshal(value, &s); err == nil && integerString.MatchString(s) {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0, nil, fmt.Errorf("argument %q is out of integer range", name)
		}
		return n, json.RawMessage(strconv.FormatInt(n, 10)), nil
	}
	return 0, nil, fmt.Errorf("argument %q must be an integer", name)
}

func contains(list []string, want string) bool {
	for _, v := range list {
		if v == want {
			return true
		}
	}
	return false
}
