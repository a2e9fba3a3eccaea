package store

// Config holds configuration for the backing store and the context stack above it.
type Config struct {
	// Backend selects the backing store (database, memory).
	Backend string `mapstructure:"backend" default:"database"`
	// ModelPath is the YAML file describing entities and their validation rules.
	ModelPath string `mapstructure:"model_path" default:"model.yaml"`
	// BatchThreshold is the record count from which imports use the cached batch path.
	BatchThreshold int `mapstructure:"batch_threshold" default:"10000"`
	// QueueBuffer is the number of tasks that may wait on a context queue.
	QueueBuffer int `mapstructure:"queue_buffer" default:"64"`
}

const (
	BackendDatabase = "database"
	BackendMemory   = "memory"
)

// IsValidBackend checks if the configured backend is supported.
func (c Config) IsValidBackend() bool {
	switch c.Backend {
	case BackendDatabase, BackendMemory:
		return true
	default:
		return false
	}
}
