package cache

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"sort"

	"github.com/specialistvlad/buildgrid/internal/target"
)

// Inputs is everything a native build of one target depends on.
type Inputs struct {
	Name   string
	Source target.SourceRef
	// Platform is the planned platform, e.g. "windows/amd64".
	Platform string
	Script   string
	Options  map[string]string
	// Upstream maps each direct dependency to its own input hash, so a
	// change anywhere below a target changes its key too.
	Upstream map[string]string
}

// InputHash computes the deterministic cache key of one configured target.
// All fields are length-prefixed so adjacent values cannot run together.
func InputHash(in Inputs) string {
	h := sha256.New()
	writeField := func(s string) {
		var prefix [8]byte
		binary.BigEndian.PutUint64(prefix[:], uint64(len(s)))
		h.Write(prefix[:])
		h.Write([]byte(s))
	}

	writeField(in.Name)
	writeField(in.Source.Location)
	writeField(in.Source.Revision)
	writeField(in.Platform)
	writeField(in.Script)

	writeMap := func(m map[string]string) {
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		var count [8]byte
		binary.BigEndian.PutUint64(count[:], uint64(len(keys)))
		h.Write(count[:])
		for _, k := range keys {
			writeField(k)
			writeField(m[k])
		}
	}
	writeMap(in.Options)
	writeMap(in.Upstream)
	return hex.EncodeToString(h.Sum(nil))
}
