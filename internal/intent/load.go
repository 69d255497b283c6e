package intent

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// TemplateExt and MetaExt are the on-disk extensions of an intent pair.
const (
	TemplateExt = ".sql.tmpl"
	MetaExt     = ".meta.json"
)

//go:embed metadata_schema.json
var metadataSchemaJSON string

var metadataSchema = mustCompileMetadataSchema()

func mustCompileMetadataSchema() *jsonschema.Schema {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	if err := c.AddResource("metadata.schema.json", strings.NewReader(metadataSchemaJSON)); err != nil {
		panic(fmt.Sprintf("metadata schema: %v", err))
	}
	return c.MustCompile("metadata.schema.json")
}

// LoadDir loads every *.sql.tmpl under dir, recursively, together with its
// sidecar, sorted by template id. Per-intent problems (unreadable files,
// undecodable sidecars) are recorded on the intent rather than returned:
// the gate reports malformed templates individually instead of aborting
// the run.
func LoadDir(dir string) ([]Intent, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(path, TemplateExt) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan templates: %w", err)
	}
	sort.Strings(paths)

	intents := make([]Intent, 0, len(paths))
	for _, p := range paths {
		intents = append(intents, LoadFile(p))
	}
	sort.SliceStable(intents, func(i, j int) bool { return intents[i].ID < intents[j].ID })
	return intents, nil
}

// LoadFile loads a single template and its sidecar. Load problems are
// recorded on the returned intent's Err, missing sidecars are not: a
// missing sidecar is a contract violation, not a malformed input.
func LoadFile(path string) Intent {
	in := Intent{Template: Template{
		ID:   strings.TrimSuffix(filepath.Base(path), TemplateExt),
		Path: path,
	}}

	raw, err := os.ReadFile(path)
	if err != nil {
		in.Err = fmt.Errorf("read template: %w", err)
		return in
	}
	in.SQL = string(raw)

	metaPath := strings.TrimSuffix(path, TemplateExt) + MetaExt
	data, err := os.ReadFile(metaPath)
	if err != nil {
		if os.IsNotExist(err) {
			return in
		}
		in.MetaPath = metaPath
		in.Err = fmt.Errorf("read metadata: %w", err)
		return in
	}
	in.MetaPath = metaPath

	meta, err := ParseMetadata(data)
	if err != nil {
		in.Err = fmt.Errorf("metadata %s: %w", filepath.Base(metaPath), err)
		return in
	}
	in.Meta = meta
	return in
}

// ParseMetadata decodes and structurally validates a sidecar document.
// Numbers decode as json.Number so integer and decimal defaults stay
// distinguishable. Semantic cross-field validation lives in the contract
// package.
func ParseMetadata(data []byte) (*Metadata, error) {
	var doc any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if err := metadataSchema.Validate(doc); err != nil {
		return nil, fmt.Errorf("schema: %w", err)
	}

	var meta Metadata
	dec = json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&meta); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	meta.Raw = doc.(map[string]any)
	return &meta, nil
}
