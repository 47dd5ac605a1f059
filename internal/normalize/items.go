package normalize

import (
	"fmt"
	"sort"
	"strings"
)

// itemSourceKeys are tried in order against each record: an explicit items
// array, a nested checklist-items array, the generic checklist objects, an
// answers object, and finally a raw payload object.
var itemSourceKeys = []string{
	"items",
	"checklist_items",
	"checklist",
	"checklist_state",
	"answers",
	"checklist_payload",
	"payload",
}

var itemLabelKeys = []string{"label", "name", "title", "question"}
var itemValueKeys = []string{"value", "answer", "status", "result"}

// ExtractItems returns the first non-empty normalized item list found across
// the candidate sources. Sources are consulted in priority order (overrides
// before the stored report). An empty list means no candidate yielded items;
// the caller substitutes a placeholder entry at render time.
func ExtractItems(sources []map[string]any) []Item {
	for _, src := range sources {
		for _, key := range itemSourceKeys {
			v, ok := src[key]
			if !ok {
				continue
			}
			if items := normalizeItems(v); len(items) > 0 {
				return items
			}
		}
	}
	return nil
}

func normalizeItems(v any) []Item {
	switch val := v.(type) {
	case []any:
		return itemsFromArray(val)
	case map[string]any:
		// A wrapper object may carry the actual array one level down.
		for _, key := range []string{"items", "checklist_items"} {
			if arr, ok := val[key].([]any); ok {
				if items := itemsFromArray(arr); len(items) > 0 {
					return items
				}
			}
		}
		return itemsFromObject(val)
	default:
		return nil
	}
}

func itemsFromArray(arr []any) []Item {
	items := make([]Item, 0, len(arr))
	for i, entry := range arr {
		switch e := entry.(type) {
		case string:
			if strings.TrimSpace(e) == "" {
				continue
			}
			items = append(items, Item{
				Label:  fmt.Sprintf("Item %d", i+1),
				Status: StatusOf(e),
			})
		case map[string]any:
			label := pickString(valuesAt(e, itemLabelKeys), fmt.Sprintf("Item %d", i+1))
			status := StatusNotApplicable
			for _, key := range itemValueKeys {
				if raw, ok := e[key]; ok {
					status = StatusOf(raw)
					break
				}
			}
			items = append(items, Item{Label: label, Status: status})
		}
	}
	return items
}

// itemsFromObject flattens a key→answer object. Nested objects and arrays
// are skipped; keys are walked in sorted order because Go randomizes map
// iteration and the output must be deterministic.
func itemsFromObject(obj map[string]any) []Item {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	items := make([]Item, 0, len(keys))
	for _, k := range keys {
		switch obj[k].(type) {
		case map[string]any, []any:
			continue
		}
		items = append(items, Item{Label: prettifyKey(k), Status: StatusOf(obj[k])})
	}
	return items
}

func valuesAt(m map[string]any, keys []string) []any {
	var out []any
	for _, k := range keys {
		if v, ok := m[k]; ok {
			out = append(out, v)
		}
	}
	return out
}

func prettifyKey(key string) string {
	s := strings.NewReplacer("_", " ", "-", " ").Replace(strings.TrimSpace(key))
	if s == "" {
		return key
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
