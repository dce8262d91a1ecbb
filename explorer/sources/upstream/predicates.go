package upstream

// IsList accepts any JSON array, empty included.
func IsList(v any) bool {
	_, ok := v.([]any)
	return ok
}

// NonEmptyList accepts a JSON array with at least one element.
func NonEmptyList(v any) bool {
	l, ok := v.([]any)
	return ok && len(l) > 0
}

// First returns the first element of a JSON array as an object, or nil.
func First(v any) map[string]any {
	l, ok := v.([]any)
	if !ok || len(l) == 0 {
		return nil
	}
	m, _ := l[0].(map[string]any)
	return m
}
