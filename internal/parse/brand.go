package parse

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	_ "embed"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed brands.json
var brandsJSON []byte

//go:embed brands_schema.json
var brandsSchemaJSON []byte

// BrandTable maps free-text brand spellings onto canonical names. Built once
// at startup and passed by reference into the certificate parser; there is
// no package-level singleton.
type BrandTable struct {
	aliases map[string]string
}

// LoadBrandTable parses and schema-validates the embedded alias table.
func LoadBrandTable() (*BrandTable, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("brands_schema.json", bytes.NewReader(brandsSchemaJSON)); err != nil {
		return nil, fmt.Errorf("add brand schema: %w", err)
	}
	schema, err := compiler.Compile("brands_schema.json")
	if err != nil {
		return nil, fmt.Errorf("compile brand schema: %w", err)
	}

	var doc any
	if err := json.Unmarshal(brandsJSON, &doc); err != nil {
		return nil, fmt.Errorf("parse brand table: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return nil, fmt.Errorf("brand table does not match schema: %w", err)
	}

	aliases := make(map[string]string)
	raw := doc.(map[string]any)
	for alias, canon := range raw {
		aliases[strings.ToUpper(strings.TrimSpace(alias))] = canon.(string)
	}
	return &BrandTable{aliases: aliases}, nil
}

// Canonical resolves a raw brand value. Unmapped values pass through
// uppercased and trimmed.
func (t *BrandTable) Canonical(raw string) string {
	v := strings.ToUpper(strings.TrimSpace(raw))
	if canon, ok := t.aliases[v]; ok {
		return canon
	}
	return v
}
