package citation

import (
	"encoding/json"
	"sort"
)

// valuesEqual is the equality used for conflict detection: primitives
// compare directly, string slices compare as sorted sets, and anything
// composite falls back to deep JSON equality.
func valuesEqual(a, b any) bool {
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case int:
		bv, ok := b.(int)
		return ok && av == bv
	case float64:
		bv, ok := b.(float64)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	case []string:
		bv, ok := b.([]string)
		return ok && sortedKey(av) == sortedKey(bv)
	default:
		return jsonEqual(a, b)
	}
}

func sortedKey(v []string) string {
	cp := append([]string(nil), v...)
	sort.Strings(cp)
	b, _ := json.Marshal(cp)
	return string(b)
}

func jsonEqual(a, b any) bool {
	ab, errA := json.Marshal(a)
	bb, errB := json.Marshal(b)
	if errA != nil || errB != nil {
		return false
	}
	return string(ab) == string(bb)
}
