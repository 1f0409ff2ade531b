// Package codec implements §4.1's four column encodings (Plain, RLE,
// Delta-binary, Dictionary) plus the "auto" hint's selection heuristic.
package codec

import (
	"github.com/axiomhq/hyperloglog"

	"github.com/matrixorigin/olapcore/pkg/types"
	"github.com/matrixorigin/olapcore/pkg/xerr"
)

// Encode dispatches to the codec named by enc. Dictionary may internally
// fall back to Plain (§4.1/§9); the caller finds out via the returned
// actual Encoding, which must be recorded in the page header (§4.3) since
// the footer only records the column's initial choice.
func Encode(values []types.Value, ft types.FieldType, enc types.Encoding, maxDictCardinality int) (payload []byte, actual types.Encoding) {
	switch enc {
	case types.EncodingPlain:
		return EncodePlain(values, ft), types.EncodingPlain
	case types.EncodingRLE:
		return EncodeRLE(values, ft), types.EncodingRLE
	case types.EncodingDelta:
		return EncodeDelta(values, ft), types.EncodingDelta
	case types.EncodingDictionary:
		if payload, ok := EncodeDictionary(values, ft, maxDictCardinality); ok {
			return payload, types.EncodingDictionary
		}
		return EncodePlain(values, ft), types.EncodingPlain
	default:
		return EncodePlain(values, ft), types.EncodingPlain
	}
}

// Decode dispatches to the codec named by enc (the encoding actually
// recorded on the page being decoded, per-page since encoding may be mixed
// within one column after a dictionary fallback).
func Decode(data []byte, count int, ft types.FieldType, enc types.Encoding) ([]types.Value, error) {
	switch enc {
	case types.EncodingPlain:
		return DecodePlain(data, count, ft)
	case types.EncodingRLE:
		return DecodeRLE(data, count, ft)
	case types.EncodingDelta:
		return DecodeDelta(data, count, ft)
	case types.EncodingDictionary:
		return DecodeDictionary(data, count, ft)
	default:
		return nil, xerr.New(xerr.DecodeError, "unknown encoding", "encoding", enc)
	}
}

// SelectEncoding implements the "auto" hint's heuristic: sorted integer
// columns choose Delta-binary; bytes columns with low cardinality over a
// leading sample choose Dictionary; everything else is Plain.
//
// For bytes columns a HyperLogLog sketch over the sample is consulted
// first: if the approximate cardinality is well above maxDistinct, the
// exact distinct-value set (needed to build the real dictionary) is never
// materialized, so a column that is obviously high-cardinality text skips
// straight to Plain without the O(sample) map-building cost.
func SelectEncoding(sample []types.Value, ft types.FieldType, maxDistinct int) types.Encoding {
	if ft.IsInteger() && isSorted(sample) {
		return types.EncodingDelta
	}
	if ft == types.FieldBytes {
		sk := hyperloglog.New()
		for _, v := range sample {
			sk.Insert(v.B)
		}
		if approx := sk.Estimate(); approx > uint64(maxDistinct)*4 {
			return types.EncodingPlain
		}
		distinct := make(map[string]struct{}, len(sample))
		for _, v := range sample {
			distinct[string(v.B)] = struct{}{}
			if len(distinct) > maxDistinct {
				return types.EncodingPlain
			}
		}
		return types.EncodingDictionary
	}
	return types.EncodingPlain
}

func isSorted(values []types.Value) bool {
	for i := 1; i < len(values); i++ {
		if values[i].IsNull() || values[i-1].IsNull() {
			continue
		}
		if values[i].Compare(values[i-1]) < 0 {
			return false
		}
	}
	return true
}
