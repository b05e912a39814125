package store

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"tourrag/config"
)

// CurrentSchemaVersion is the current schema version.
// Increment this when making breaking changes to the storage format.
const CurrentSchemaVersion = 1

var keySchemaInfo = []byte("schema_info")

// SchemaInfo stamps a bolt store with what produced it.
type SchemaInfo struct {
	Version    int       `json:"version"`
	Dimension  int       `json:"dimension"`
	Model      string    `json:"model"`
	ConfigHash string    `json:"config_hash"`
	Records    int       `json:"records"`
	SavedAt    time.Time `json:"saved_at"`
}

// SchemaFromConfig builds the stamp expected for cfg.
func SchemaFromConfig(cfg *config.Config) SchemaInfo {
	return SchemaInfo{
		Version:    CurrentSchemaVersion,
		Dimension:  cfg.Embedding.Dimension,
		Model:      cfg.Embedding.Provider + "/" + cfg.Embedding.Model,
		ConfigHash: ComputeConfigHash(cfg),
	}
}

// ComputeConfigHash computes a hash of ingestion-relevant configuration.
// A different hash means the store should be rebuilt.
func ComputeConfigHash(cfg *config.Config) string {
	relevant := struct {
		ChunkSize    int    `json:"chunk_size"`
		ChunkOverlap int    `json:"chunk_overlap"`
		EmbProvider  string `json:"emb_provider"`
		EmbModel     string `json:"emb_model"`
		EmbDimension int    `json:"emb_dimension"`
	}{
		ChunkSize:    cfg.Chunking.Size,
		ChunkOverlap: cfg.Chunking.Overlap,
		EmbProvider:  cfg.Embedding.Provider,
		EmbModel:     cfg.Embedding.Model,
		EmbDimension: cfg.Embedding.Dimension,
	}

	data, _ := json.Marshal(relevant)
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:8])
}

// Check rejects a stored stamp that cannot be read with the expected one.
// Zero fields in the expected stamp are not checked.
func (want SchemaInfo) Check(got SchemaInfo) error {
	if got.Version > CurrentSchemaVersion {
		return fmt.Errorf("store created by newer version (v%d > v%d)", got.Version, CurrentSchemaVersion)
	}
	if want.Dimension != 0 && got.Dimension != 0 && want.Dimension != got.Dimension {
		return fmt.Errorf("store dimension %d does not match embedder dimension %d: re-run ingest", got.Dimension, want.Dimension)
	}
	return nil
}

// NeedsRebuild reports whether the store was produced with other settings.
func (want SchemaInfo) NeedsRebuild(got SchemaInfo) (bool, string) {
	switch {
	case got.Version < CurrentSchemaVersion:
		return true, fmt.Sprintf("schema upgrade from v%d to v%d", got.Version, CurrentSchemaVersion)
	case want.ConfigHash != "" && got.ConfigHash != want.ConfigHash:
		return true, "ingestion configuration changed"
	}
	return false, ""
}

func readSchemaInfo(db *bbolt.DB) (SchemaInfo, error) {
	var info SchemaInfo
	err := db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketMeta)
		if b == nil {
			return nil
		}
		data := b.Get(keySchemaInfo)
		if data == nil {
			return nil
		}
		return json.Unmarshal(data, &info)
	})
	if err != nil {
		return info, fmt.Errorf("failed to read schema info: %w", err)
	}
	return info, nil
}

func writeSchemaInfo(tx *bbolt.Tx, info SchemaInfo) error {
	b, err := tx.CreateBucketIfNotExists(bucketMeta)
	if err != nil {
		return err
	}
	data, err := json.Marshal(info)
	if err != nil {
		return err
	}
	return b.Put(keySchemaInfo, data)
}
