// Package config loads olapcore's tuning knobs from TOML, the same format
// matrixone's own pkg/config uses for engine options.
package config

import (
	"github.com/BurntSushi/toml"
)

// Config holds every tunable the storage engine exposes. Defaults
// reproduce the documented constants so the engine runs correctly with
// zero configuration.
type Config struct {
	// PageRowLimit is the maximum number of rows held by one data page (§4.3),
	// with one exception: the first page of an EncodingAuto column is held
	// open until DictionaryAutoSampleRows rows have buffered when that value
	// is larger, so that page can hold more than PageRowLimit rows.
	PageRowLimit int `toml:"page_row_limit"`
	// BloomTargetFPP is the bloom filter's target false-positive rate (§4.5).
	BloomTargetFPP float64 `toml:"bloom_target_fpp"`
	// ShardCount is the number of tablet-registry shards (§4.9).
	ShardCount int `toml:"shard_count"`
	// DictionaryMaxCardinality is the dictionary-encoding overflow ceiling (§4.1).
	DictionaryMaxCardinality int `toml:"dictionary_max_cardinality"`
	// ShortKeyInterval is the row interval between short-key entries (§4.5).
	ShortKeyInterval int `toml:"short_key_interval"`
	// ShortKeyMaxBytes caps the concatenated leading key-column prefix (§3).
	ShortKeyMaxBytes int `toml:"short_key_max_bytes"`
	// ShortKeyMaxColumns caps the number of leading key columns in the prefix (§3).
	ShortKeyMaxColumns int `toml:"short_key_max_columns"`
	// DictionaryAutoSampleRows is how many leading rows the "auto" encoding
	// heuristic inspects before deciding Dictionary vs Plain (§4.1).
	DictionaryAutoSampleRows int `toml:"dictionary_auto_sample_rows"`
	// DictionaryAutoMaxDistinct is the ≤256-distinct-values auto threshold (§4.1).
	DictionaryAutoMaxDistinct int `toml:"dictionary_auto_max_distinct"`
}

// Default returns the engine's documented default constants.
func Default() Config {
	return Config{
		PageRowLimit:              1024,
		BloomTargetFPP:            0.05,
		ShardCount:                64,
		DictionaryMaxCardinality:  1 << 16,
		ShortKeyInterval:          1024,
		ShortKeyMaxBytes:          36,
		ShortKeyMaxColumns:        3,
		DictionaryAutoSampleRows:  4096,
		DictionaryAutoMaxDistinct: 256,
	}
}

// Load reads a TOML file over a Default() config: fields the file does not
// set keep their Default() value, and fields it sets (zero included)
// override it.
func Load(path string) (Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
