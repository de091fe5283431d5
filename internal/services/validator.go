package services

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/fintrack/backend/internal/common"
)

//go:embed schemas/*.json
var embeddedSchemas embed.FS

// Schema names.
const (
	SchemaTransactionCreate = "transaction.create"
	SchemaTransactionUpdate = "transaction.update"
	SchemaBudgetCreate      = "budget.create"
	SchemaBudgetUpdate      = "budget.update"
	SchemaCategoryCreate    = "category.create"
	SchemaCategoryUpdate    = "category.update"
	SchemaStatementItems    = "statement.items"
	SchemaAccountSettings   = "account.settings"
	SchemaAccountPassword   = "account.password"
)

// Validator holds compiled JSON schemas keyed by file name without extension.
type Validator struct {
	schemas map[string]*jsonschema.Schema
}

// NewValidator compiles the schemas bundled with the binary.
func NewValidator() (*Validator, error) {
	sub, err := fs.Sub(embeddedSchemas, "schemas")
	if err != nil {
		return nil, err
	}
	return NewValidatorFS(sub)
}

// NewValidatorFS compiles every *.json file at the root of fsys.
func NewValidatorFS(fsys fs.FS) (*Validator, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("read schema dir: %w", err)
	}
	schemas := make(map[string]*jsonschema.Schema)
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		name := strings.TrimSuffix(e.Name(), path.Ext(e.Name()))
		data, err := fs.ReadFile(fsys, e.Name())
		if err != nil {
			return nil, fmt.Errorf("read %q: %w", e.Name(), err)
		}
		schemas[name], err = jsonschema.CompileString("https://fintrack.local/schemas/"+e.Name(), string(data))
		if err != nil {
			return nil, fmt.Errorf("compile schema %q: %w", name, err)
		}
	}
	return &Validator{schemas: schemas}, nil
}

// Has reports whether a schema with the given name was loaded.
func (v *Validator) Has(name string) bool {
	_, ok := v.schemas[name]
	return ok
}

// ValidateJSON parses raw and validates it against the named schema.
// Violations come back as *common.ValidationError listing each failing location.
func (v *Validator) ValidateJSON(name string, raw []byte) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return common.NewValidationError(fmt.Sprintf("invalid JSON: %v", err))
	}
	return v.Validate(name, doc)
}

// Validate checks an already-decoded document (json.Number or float64 numbers).
func (v *Validator) Validate(name string, doc any) error {
	schema, ok := v.schemas[name]
	if !ok {
		return fmt.Errorf("unknown schema %q", name)
	}
	if err := schema.Validate(doc); err != nil {
		var ve *jsonschema.ValidationError
		if errors.As(err, &ve) {
			return common.NewValidationError(flatten(ve)...)
		}
		return common.NewValidationError(err.Error())
	}
	return nil
}

// flatten collects the leaf causes of a schema failure as "location: message".
func flatten(ve *jsonschema.ValidationError) []string {
	var out []string
	var walk func(e *jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 {
			loc := e.InstanceLocation
			if loc == "" {
				loc = "/"
			}
			out = append(out, fmt.Sprintf("%s: %s", loc, e.Message))
			return
		}
		for _, c := range e.Causes {
			walk(c)
		}
	}
	walk(ve)
	sort.Strings(out)
	return out
}
