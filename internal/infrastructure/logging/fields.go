package logging

import (
	"slices"

	"go.uber.org/zap"
)

func sortedKeys(extra map[ExtraKey]any) []ExtraKey {
	keys := make([]ExtraKey, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// fieldValue logs errors by their message.
func fieldValue(v any) any {
	if err, ok := v.(error); ok && err != nil {
		return err.Error()
	}
	return v
}

func zapFields(cat Category, sub SubCategory, extra map[ExtraKey]any) []zap.Field {
	fields := make([]zap.Field, 0, len(extra)+2)
	fields = append(fields,
		zap.String("Category", string(cat)),
		zap.String("SubCategory", string(sub)),
	)
	for _, k := range sortedKeys(extra) {
		fields = append(fields, zap.Any(string(k), fieldValue(extra[k])))
	}
	return fields
}

func zeroFields(extra map[ExtraKey]any) map[string]any {
	fields := make(map[string]any, len(extra))
	for k, v := range extra {
		fields[string(k)] = fieldValue(v)
	}
	return fields
}
