package tally

import (
	"fmt"
	"sort"
	"strings"
)

// CleanString normalizes a raw Tally value: the ASCII 0x04 marker Tally
// emits inside text nodes is stripped and surrounding whitespace trimmed.
func CleanString(value string) string {
	return strings.TrimSpace(strings.ReplaceAll(value, "\x04", ""))
}

// A strategy tries one way of resolving a candidate key against a raw
// stock-item node. Strategies are pure so the fallback policy can be
// tested in isolation from XML parsing.
type strategy func(item map[string]interface{}, key string) (string, bool)

// Evaluation order is part of the contract: the attribute form of a field
// wins over a nested list wrapper carrying the same name.
var strategies = []strategy{
	attributeLookup,
	directChildLookup,
	nestedListLookup,
	userDefinedFieldLookup,
}

// ExtractValue returns the first usable string for a logical field,
// trying every strategy for each candidate key in order. Candidate keys
// prefixed with "$" are attribute references. Values that clean down to
// an empty string are treated as absent and the search continues.
func ExtractValue(item map[string]interface{}, keys ...string) (string, bool) {
	for _, k := range keys {
		if k == "" {
			continue
		}
		for _, try := range strategies {
			if v, ok := try(item, k); ok {
				if cleaned := CleanString(v); cleaned != "" {
					return cleaned, true
				}
			}
		}
	}
	return "", false
}

// attributeLookup reads "$KEY"-style candidates as element attributes.
func attributeLookup(item map[string]interface{}, key string) (string, bool) {
	if !strings.HasPrefix(key, attrPrefix) {
		return "", false
	}
	if v, ok := item[key]; ok {
		return nodeText(v)
	}
	return "", false
}

// directChildLookup reads a same-named child element's text content,
// unwrapping the "#text"-plus-attributes node shape the XML-to-map
// conversion produces for elements that carry both.
func directChildLookup(item map[string]interface{}, key string) (string, bool) {
	if strings.HasPrefix(key, attrPrefix) {
		return "", false
	}
	if v, ok := item[key]; ok {
		return nodeText(v)
	}
	return "", false
}

// nestedListLookup searches child element names case-insensitively for one
// containing the candidate key as a substring, then drills into the
// NAME.LIST.NAME or NAME sub-path of that child. Child names are scanned
// in sorted order so the winner is stable when several match.
func nestedListLookup(item map[string]interface{}, key string) (string, bool) {
	if strings.HasPrefix(key, attrPrefix) {
		return "", false
	}
	childKeys := make([]string, 0, len(item))
	for childKey := range item {
		childKeys = append(childKeys, childKey)
	}
	sort.Strings(childKeys)

	upper := strings.ToUpper(key)
	for _, childKey := range childKeys {
		if strings.HasPrefix(childKey, attrPrefix) {
			continue
		}
		if !strings.Contains(strings.ToUpper(childKey), upper) || childKey == key {
			continue
		}
		node, ok := item[childKey].(map[string]interface{})
		if !ok {
			continue
		}
		if list, ok := node["NAME.LIST"].(map[string]interface{}); ok {
			if v, ok := nodeText(list["NAME"]); ok {
				return v, true
			}
		}
		if v, ok := nodeText(node["NAME"]); ok {
			return v, true
		}
	}
	return "", false
}

// userDefinedFieldLookup checks Tally UDF-style keys: "UDF:<key>" or "UDF<key>".
func userDefinedFieldLookup(item map[string]interface{}, key string) (string, bool) {
	if v, ok := item["UDF:"+key]; ok {
		return nodeText(v)
	}
	if v, ok := item["UDF"+key]; ok {
		return nodeText(v)
	}
	return "", false
}

// nodeText extracts the text content of a parsed XML node. Plain elements
// parse to strings; elements with attributes parse to a map holding the
// text under "#text"; repeated elements parse to a slice (first one wins).
func nodeText(v interface{}) (string, bool) {
	switch node := v.(type) {
	case nil:
		return "", false
	case string:
		return node, true
	case map[string]interface{}:
		if t, ok := node[textKey]; ok {
			return nodeText(t)
		}
		return "", false
	case []interface{}:
		if len(node) == 0 {
			return "", false
		}
		return nodeText(node[0])
	default:
		return fmt.Sprint(node), true
	}
}
