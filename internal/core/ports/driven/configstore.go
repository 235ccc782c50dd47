package driven

// ConfigStore provides access to the broker's configuration file.
// Keys use dot notation, e.g. "bitbucket.consumer_key".
type ConfigStore interface {
	// Get retrieves a value by key.
	Get(key string) (any, bool)

	// GetString returns "" when key is missing or not a string.
	GetString(key string) string

	// GetInt returns 0 when key is missing or not an integer.
	GetInt(key string) int

	// GetBool returns false when key is missing or not a boolean.
	GetBool(key string) bool

	// Keys returns every key present, sorted.
	Keys() []string

	// Set stores a value and persists it.
	Set(key string, value any) error

	// Load reads the file again.
	Load() error

	// Path returns the configuration file path.
	Path() string
}
