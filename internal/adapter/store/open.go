package store

import (
	"path/filepath"
	"strings"

	"tourrag/config"
	"tourrag/internal/port"
)

// Open picks the store implementation from the file extension: ".json" is a
// flat file, anything else a bolt database.
func Open(path string, cfg *config.Config) port.LocalStore {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return NewJSONStore(path)
	}
	return NewBoltStore(path, SchemaFromConfig(cfg))
}
