package index

import (
	"encoding/binary"
	"hash/fnv"
	"math"

	"github.com/matrixorigin/olapcore/pkg/xerr"
)

// hashPair is the two 32-bit halves of an FNV-1a 64-bit hash (§4.5).
type hashPair struct{ h1, h2 uint32 }

func hashValue(value []byte) hashPair {
	h := fnv.New64a()
	_, _ = h.Write(value)
	sum := h.Sum64()
	return hashPair{h1: uint32(sum >> 32), h2: uint32(sum)}
}

// BloomAccumulator collects the hashed, deduplicated insertion set during
// column writing. The real filter can only be correctly sized once the
// final distinct count n is known, so accumulation defers bit-array
// construction to Finalize (§4.5, §9 "Bloom sizing at finalize").
type BloomAccumulator struct {
	seen map[hashPair]struct{}
}

func NewBloomAccumulator() *BloomAccumulator {
	return &BloomAccumulator{seen: make(map[hashPair]struct{})}
}

func (a *BloomAccumulator) Add(value []byte) {
	a.seen[hashValue(value)] = struct{}{}
}

// Finalize materializes a BloomFilter sized for targetFPP from the
// accumulated distinct insertion set.
func (a *BloomAccumulator) Finalize(targetFPP float64) *BloomFilter {
	n := len(a.seen)
	m := sizeBits(n, targetFPP)
	k := numProbes(m, n)
	bf := newBloomFilter(m, k)
	for hp := range a.seen {
		bf.insert(hp)
	}
	return bf
}

// sizeBits returns the number of bits, rounded up to the next power of
// two, with a 64-byte (512-bit) floor (§4.5).
func sizeBits(n int, targetFPP float64) int {
	const minBits = 512
	if n == 0 {
		return minBits
	}
	raw := -float64(n) * math.Log(targetFPP) / (math.Ln2 * math.Ln2)
	bits := int(math.Ceil(raw))
	if bits < minBits {
		bits = minBits
	}
	return nextPowerOfTwo(bits)
}

func numProbes(m, n int) int {
	if n == 0 {
		return 1
	}
	k := int(math.Round(float64(m) / float64(n) * math.Ln2))
	if k < 1 {
		k = 1
	}
	return k
}

func nextPowerOfTwo(v int) int {
	p := 1
	for p < v {
		p <<= 1
	}
	return p
}

// BloomFilter is a materialized bit array sized and inserted at finalize
// time per one column per segment (not per page).
type BloomFilter struct {
	bits    []byte
	numBits int
	k       int
}

func newBloomFilter(numBits, k int) *BloomFilter {
	return &BloomFilter{bits: make([]byte, (numBits+7)/8), numBits: numBits, k: k}
}

func (bf *BloomFilter) insert(hp hashPair) {
	for i := 0; i < bf.k; i++ {
		bit := (uint64(hp.h1) + uint64(i)*uint64(hp.h2)) % uint64(bf.numBits)
		bf.bits[bit/8] |= 1 << uint(bit%8)
	}
}

// Insert adds a raw value's hash directly to an already-sized filter,
// without resizing it. The segment writer goes through BloomAccumulator
// instead, so sizing happens once, at finalize.
func (bf *BloomFilter) Insert(value []byte) {
	bf.insert(hashValue(value))
}

// MayContain tests a raw value's hash against the filter.
func (bf *BloomFilter) MayContain(value []byte) bool {
	hp := hashValue(value)
	for i := 0; i < bf.k; i++ {
		bit := (uint64(hp.h1) + uint64(i)*uint64(hp.h2)) % uint64(bf.numBits)
		if bf.bits[bit/8]&(1<<uint(bit%8)) == 0 {
			return false
		}
	}
	return true
}

func (bf *BloomFilter) Serialize() []byte {
	out := make([]byte, 8, 8+len(bf.bits))
	binary.LittleEndian.PutUint32(out[0:4], uint32(bf.numBits))
	binary.LittleEndian.PutUint32(out[4:8], uint32(bf.k))
	return append(out, bf.bits...)
}

func DeserializeBloom(data []byte) (*BloomFilter, error) {
	if len(data) < 8 {
		return nil, xerr.New(xerr.CorruptData, "bloom filter shorter than header")
	}
	numBits := int(binary.LittleEndian.Uint32(data[0:4]))
	k := int(binary.LittleEndian.Uint32(data[4:8]))
	wantBytes := (numBits + 7) / 8
	if len(data)-8 < wantBytes {
		return nil, xerr.New(xerr.CorruptData, "bloom filter bit array truncated")
	}
	return &BloomFilter{bits: data[8 : 8+wantBytes], numBits: numBits, k: k}, nil
}
