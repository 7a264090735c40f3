package dagstore

// StoreConfig is a config for store db.
type StoreConfig struct {
	// Cache size for certified nodes.
	Nodes int
}

// DefaultStoreConfig for livenet.
func DefaultStoreConfig() StoreConfig {
	return StoreConfig{
		Nodes: 500,
	}
}

// LiteStoreConfig is for tests or inmemory.
func LiteStoreConfig() StoreConfig {
	return StoreConfig{
		Nodes: 50,
	}
}
