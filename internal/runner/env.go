package runner

import (
	"os"
	"sort"
	"strings"
)

// mergeEnvironment returns base with overrides applied: existing keys are
// replaced in place, new keys are appended in sorted order.
func mergeEnvironment(base []string, overrides map[string]string) []string {
	if len(overrides) == 0 {
		return append([]string(nil), base...)
	}
	merged := make([]string, 0, len(base)+len(overrides))
	replaced := make(map[string]struct{}, len(overrides))
	for _, kv := range base {
		equal := strings.IndexByte(kv, '=')
		if equal <= 0 {
			continue
		}
		key := kv[:equal]
		if value, ok := overrides[key]; ok {
			merged = append(merged, key+"="+value)
			replaced[key] = struct{}{}
			continue
		}
		merged = append(merged, kv)
	}
	keys := make([]string, 0, len(overrides))
	for key := range overrides {
		if _, ok := replaced[key]; !ok {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	for _, key := range keys {
		merged = append(merged, key+"="+overrides[key])
	}
	return merged
}

func processEnvironment(overrides map[string]string) []string {
	return mergeEnvironment(os.Environ(), overrides)
}
