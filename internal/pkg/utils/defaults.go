package utils

// GetOrDefault returns value unless it is the zero value of its type.
func GetOrDefault[T comparable](value T, defaultValue T) T {
	var zero T
	if value == zero {
		return defaultValue
	}
	return value
}
