package env

import "os"

// Get reads key from the process environment. Unset and empty both yield the
// fallback, so compose files that export blank variables behave like files
// that omit them.
func Get(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}
