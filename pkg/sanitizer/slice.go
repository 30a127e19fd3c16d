package sanitizer

// NormalizeStringSlice applies normalizer to every item and keeps the first occurrence of
// each non-empty result. The result is never nil.
func NormalizeStringSlice(items []string, normalizer Strategy) []string {
	out := make([]string, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		v := normalizer(item)
		if v == "" {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// NormalizeIDs is used for a booking's dog ids.
func NormalizeIDs(ids []string) []string {
	return NormalizeStringSlice(ids, NormalizeID)
}
