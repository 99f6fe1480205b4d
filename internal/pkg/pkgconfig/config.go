package pkgconfig

import "io"

// Config is the abstraction business code depends on for reading
// configuration values. Implementations (for example Viper) provide
// convenience getters for common types; see the package documentation.
type Config interface {
	GetInt(key string) int64
	GetBool(key string) bool
	GetFloat(key string) float64
	GetString(key string) string
	GetBinary(key string) []byte
	GetArray(key string) []string
	GetMap(key string) map[string]string

	io.Closer
}
