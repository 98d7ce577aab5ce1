package pointers

func String(v string) *string { return &v }

// NonEmpty returns nil for the empty string.
func NonEmpty(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

func Deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
