package util

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	errInvalidInput = errors.New("invalid input or empty path")
	errNoWildcard   = errors.New("no matching elements found for wildcard path")
)

// Jq resolves a dotted path like `.metadata.creator_id` or
// `.groups[0].name` against a decoded JSON map. The tenant middleware uses
// it to pull the creator ID out of OIDC introspection claims, whose shape
// varies per identity provider. `[*]` (or a bare `[]`) fans out over an
// array.
func Jq(input map[string]any, path string) (any, error) {
	if input == nil || path == "" {
		return nil, errInvalidInput
	}

	path = strings.TrimPrefix(path, ".")

	var keys []string
	start := 0
	for i := 0; i < len(path); i++ {
		if path[i] == '.' {
			if i > start {
				keys = append(keys, path[start:i])
			}
			start = i + 1
		}
	}
	if start < len(path) {
		keys = append(keys, path[start:])
	}

	var current any = input
	for i, key := range keys {
		isLastKey := i == len(keys)-1

		currentMap, ok := current.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("expected map at path segment: %s", key)
		}

		if !strings.ContainsRune(key, '[') {
			value, exists := currentMap[key]
			if !exists {
				return nil, fmt.Errorf("key not found: %s", key)
			}
			current = value
			continue
		}

		arrayKey, indexStr, err := splitKeyAndIndex(key)
		if err != nil {
			return nil, err
		}

		array, ok := currentMap[arrayKey].([]any)
		if !ok {
			return nil, fmt.Errorf("expected array at key: %s", arrayKey)
		}

		if indexStr == "*" || indexStr == "" {
			if isLastKey {
				return array, nil
			}
			return collectWildcard(array, keys[i+1:])
		}

		index, err := strconv.Atoi(indexStr)
		if err != nil || index < 0 || index >= len(array) {
			return nil, fmt.Errorf("invalid index %s at key: %s", indexStr, arrayKey)
		}
		current = array[index]
	}

	return current, nil
}

func splitKeyAndIndex(key string) (string, string, error) {
	start := strings.IndexByte(key, '[')
	end := strings.IndexByte(key, ']')
	if start == -1 || end == -1 || end < start {
		return "", "", fmt.Errorf("malformed array syntax in key: %s", key)
	}
	return key[:start], key[start+1 : end], nil
}

// collectWildcard applies the remaining path to every array element,
// flattening nested matches. Elements that do not match are skipped rather
// than failing the whole lookup.
func collectWildcard(array []any, remainingKeys []string) (any, error) {
	remainingPath := strings.Join(remainingKeys, ".")
	results := make([]any, 0, len(array))

	for _, item := range array {
		itemMap, ok := item.(map[string]any)
		if !ok {
			continue
		}
		value, err := Jq(itemMap, remainingPath)
		if err != nil {
			continue
		}
		switch v := value.(type) {
		case []any:
			results = append(results, v...)
		default:
			results = append(results, v)
		}
	}

	if len(results) == 0 {
		return nil, errNoWildcard
	}
	return results, nil
}
