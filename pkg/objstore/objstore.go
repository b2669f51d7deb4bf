// Package objstore implements the sector-file storage boundary: opaque blob
// storage addressed by sector access strings.
package objstore

// Config carries the sector store's policy limits, loaded from the TOML
// config file (internal/config).
type Config struct {
	// MaxUnsealedBytesPerSector is the per-sector capacity limit that the
	// packing policy packs pieces against.
	MaxUnsealedBytesPerSector uint64 `toml:"max_unsealed_bytes_per_sector"`
}
