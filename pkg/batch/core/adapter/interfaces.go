// Package adapter defines what every external resource connection (database,
// object storage) exposes to the batch runtime.
package adapter

// ResourceConnection is an open connection to an external resource.
type ResourceConnection interface {
	// Close releases the connection.
	Close() error
	// Type returns the provider type, such as "local", "gcs" or "sqlite".
	Type() string
	// Name returns the configured connection name.
	Name() string
}

// ResourceProvider owns named connections of one resource kind.
type ResourceProvider interface {
	// CloseAll closes every connection the provider opened.
	CloseAll() error
	// Type returns the resource kind, such as "storage" or "database".
	Type() string
}
