package util

// Ptr returns a pointer to v, for optional config fields such as
// MaxRedirects where nil means "use the default".
func Ptr[T any](v T) *T {
	return &v
}
