// Package config holds the configuration of named storage connections.
package config

// StorageConfig holds configuration for a single storage connection.
type StorageConfig struct {
	// Type selects the adapter: "local" or "gcs".
	Type       string `yaml:"type"`
	BucketName string `yaml:"bucket_name"`
	// CredentialsFile is a service account key for GCS; empty uses application default credentials.
	CredentialsFile string `yaml:"credentials_file"`
	// Endpoint overrides the GCS endpoint, for emulators.
	Endpoint string `yaml:"endpoint"`
	// BaseDir is the root directory of a local adapter.
	BaseDir string `yaml:"base_dir"`
}

// DatasourcesConfig maps connection names to their configuration.
type DatasourcesConfig map[string]StorageConfig
