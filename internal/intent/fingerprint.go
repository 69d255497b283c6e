package intent

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"golang.org/x/text/unicode/norm"

	"github.com/calderdata/intentgate/internal/canonical"
)

// fingerprintDomain separates template fingerprints from any other sha256
// use. Bump the version when the fingerprint input shape changes.
const fingerprintDomain = "intentgate/template/v1"

// Fingerprint returns a stable hex digest of a template and its sidecar.
// The digest is computed over the canonical JSON of the pair, so sidecar
// key order and insignificant whitespace in the JSON do not affect it.
// SQL text is NFC-normalized first so visually identical templates hash
// identically.
func Fingerprint(in Intent) (string, error) {
	doc := map[string]any{
		"template_id": in.ID,
		"sql":         norm.NFC.String(in.SQL),
	}
	if in.Meta != nil {
		doc["metadata"] = in.Meta.Raw
	}
	data, err := canonical.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("fingerprint %s: %w", in.ID, err)
	}
	return hashWithDomain(fingerprintDomain, data), nil
}

func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}
