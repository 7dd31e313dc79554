package browser

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// ContainerKey computes the 16-hex-digit content key for a container: a
// SHA-256 over its inner HTML, CSS text, and target dimensions, so any
// change to the rendered pixels changes the cache filename.
func ContainerKey(innerHTML, css string, width, height int) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s\x00%s\x00%d\x00%d", innerHTML, css, width, height)
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// AppKey computes the 16-hex-digit content key for an app: its source
// directory, JSON-canonicalized parameters, title/date/tags, output name,
// and target dimensions.
func AppKey(sourceDir string, params map[string]string, title, date string, tags []string, outputName string, width, height int) string {
	canonical, _ := canonicalizeParams(params)
	h := sha256.New()
	fmt.Fprintf(h, "%s\x00%s\x00%s\x00%s\x00%s\x00%s\x00%d\x00%d",
		sourceDir, canonical, title, date, strings.Join(tags, ","), outputName, width, height)
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// canonicalizeParams produces a deterministic JSON encoding of a string
// map by sorting keys, since Go's encoding/json already sorts map keys
// for map[string]string/interface{} but this makes that guarantee
// explicit and stable across encoding/json implementation changes.
func canonicalizeParams(params map[string]string) (string, error) {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	ordered := make([]struct {
		K string `json:"k"`
		V string `json:"v"`
	}, len(keys))
	for i, k := range keys {
		ordered[i].K = k
		ordered[i].V = params[k]
	}
	b, err := json.Marshal(ordered)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
