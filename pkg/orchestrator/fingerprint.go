package orchestrator

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"

	"github.com/lemonade-sdk/lemon-server/pkg/engine"
)

// Fingerprint returns a stable hash over opts, keyed by a canonical,
// sort-ordered encoding so map iteration order never changes the result.
// An empty or nil opts fingerprints to "", which Adapter.Matches treats as
// "matches whatever fingerprint is currently loaded".
//
// No example in the corpus offers a canonical-map-hash helper; this is
// built on stdlib encoding/json + crypto/sha256 rather than a third-party
// hashing library, since the requirement is determinism under key order,
// not cryptographic strength.
func Fingerprint(opts engine.LoadOptions) string {
	if len(opts) == 0 {
		return ""
	}

	keys := make([]string, 0, len(opts))
	for k := range opts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	ordered := make([]any, 0, len(keys)*2)
	for _, k := range keys {
		ordered = append(ordered, k, opts[k])
	}

	data, err := json.Marshal(ordered)
	if err != nil {
		// Unmarshalable option values (e.g. a func) are a caller bug; treat
		// them as producing a unique, non-matching fingerprint rather than
		// panicking.
		data = []byte(err.Error())
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])[:16]
}
