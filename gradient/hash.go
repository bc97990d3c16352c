package gradient

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"
	"sort"
)

// Hash returns the hex sha256 digest of a gradient map. Parameter names
// are sorted before hashing, so the digest depends only on the map
// content, never on iteration order. Each entry contributes its name
// bytes followed by its elements as little-endian float64 bytes in
// row-major order.
func Hash(grads Map) string {
	names := make([]string, 0, len(grads))
	for name := range grads {
		names = append(names, name)
	}
	sort.Strings(names)

	h := sha256.New()
	var buf [8]byte
	for _, name := range names {
		h.Write([]byte(name))
		for _, v := range grads[name].Data {
			binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
			h.Write(buf[:])
		}
	}

	return hex.EncodeToString(h.Sum(nil))
}
