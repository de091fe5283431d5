package services

import (
	"errors"
	"testing"
	"testing/fstest"

	"github.com/fintrack/backend/internal/common"
)

func newTestValidator(t *testing.T) *Validator {
	t.Helper()
	v, err := NewValidator()
	if err != nil {
		t.Fatalf("NewValidator: %v", err)
	}
	return v
}

func TestNewValidator_LoadsBundledSchemas(t *testing.T) {
	v := newTestValidator(t)
	for _, name := range []string{
		SchemaTransactionCreate, SchemaTransactionUpdate,
		SchemaBudgetCreate, SchemaBudgetUpdate,
		SchemaCategoryCreate, SchemaCategoryUpdate,
		SchemaAccountSettings, SchemaAccountPassword,
		SchemaStatementItems,
	} {
		if !v.Has(name) {
			t.Errorf("missing schema %q", name)
		}
	}
}

func TestValidateJSON_TransactionCreate(t *testing.T) {
	v := newTestValidator(t)

	valid := `{"type":"expense","amount":125.5,"currency":"UYU","description":"Feria","date":"2024-05-02"}`
	if err := v.ValidateJSON(SchemaTransactionCreate, []byte(valid)); err != nil {
		t.Fatalf("expected valid transaction, got: %v", err)
	}

	cases := []struct {
		name  string
		input string
	}{
		{name: "missing amount", input: `{"type":"expense","currency":"UYU","description":"x","date":"2024-05-02"}`},
		{name: "bad type", input: `{"type":"transfer","amount":1,"currency":"UYU","description":"x","date":"2024-05-02"}`},
		{name: "long currency", input: `{"type":"income","amount":1,"currency":"DOLLARS","description":"x","date":"2024-05-02"}`},
		{name: "not JSON", input: `{"type":`},
		{name: "not an object", input: `[1,2,3]`},
		{name: "server-owned field", input: `{"type":"expense","amount":1,"currency":"UYU","description":"x","date":"2024-05-02","source":"import"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := v.ValidateJSON(SchemaTransactionCreate, []byte(tc.input))
			if err == nil {
				t.Fatal("expected validation error, got nil")
			}
			if !errors.Is(err, common.ErrValidation) {
				t.Errorf("expected ErrValidation, got: %v", err)
			}
			var ve *common.ValidationError
			if !errors.As(err, &ve) || len(ve.Details) == 0 {
				t.Errorf("expected details, got: %v", err)
			}
		})
	}
}

func TestValidateJSON_TransactionUpdateRejectsImportID(t *testing.T) {
	v := newTestValidator(t)
	if err := v.ValidateJSON(SchemaTransactionUpdate, []byte(`{"notes":"x"}`)); err != nil {
		t.Fatalf("expected valid update, got: %v", err)
	}
	err := v.ValidateJSON(SchemaTransactionUpdate, []byte(`{"importId":"0b6f9c1e-4a43-4c55-9a7e-2d1f0c6b8a11"}`))
	if !errors.Is(err, common.ErrValidation) {
		t.Fatalf("expected ErrValidation, got: %v", err)
	}
}

func TestValidateJSON_UpdateRequiresAField(t *testing.T) {
	v := newTestValidator(t)
	if err := v.ValidateJSON(SchemaBudgetUpdate, []byte(`{}`)); err == nil {
		t.Fatal("expected empty update to be rejected")
	}
	if err := v.ValidateJSON(SchemaBudgetUpdate, []byte(`{"name":"Comida"}`)); err != nil {
		t.Fatalf("expected partial update to pass, got: %v", err)
	}
}

func TestValidate_StatementItemsIsStrict(t *testing.T) {
	v := newTestValidator(t)

	ok := `{"transactions":[{"date":"2024-03-05","description":"TIENDA INGLESA","amount":1520.5,"currency":"UYU","type":"expense","installments":"2/6"}]}`
	if err := v.ValidateJSON(SchemaStatementItems, []byte(ok)); err != nil {
		t.Fatalf("expected valid items, got: %v", err)
	}

	bad := map[string]string{
		"extra top-level key": `{"transactions":[],"note":"done"}`,
		"negative amount":     `{"transactions":[{"date":"2024-03-05","description":"x","amount":-1,"currency":"UYU","type":"expense"}]}`,
		"day-first date":      `{"transactions":[{"date":"05/03/2024","description":"x","amount":1,"currency":"UYU","type":"expense"}]}`,
		"unknown field":       `{"transactions":[{"date":"2024-03-05","description":"x","amount":1,"currency":"UYU","type":"expense","merchant":"y"}]}`,
	}
	for name, input := range bad {
		t.Run(name, func(t *testing.T) {
			if err := v.ValidateJSON(SchemaStatementItems, []byte(input)); !errors.Is(err, common.ErrValidation) {
				t.Fatalf("expected ErrValidation, got: %v", err)
			}
		})
	}
}

func TestValidate_UnknownSchema(t *testing.T) {
	v := newTestValidator(t)
	err := v.Validate("nope", map[string]any{})
	if err == nil || errors.Is(err, common.ErrValidation) {
		t.Fatalf("expected a plain error for an unknown schema, got: %v", err)
	}
}

func TestNewValidatorFS_RejectsBrokenSchema(t *testing.T) {
	fsys := fstest.MapFS{
		"broken.json": {Data: []byte(`{"type": 12}`)},
	}
	if _, err := NewValidatorFS(fsys); err == nil {
		t.Fatal("expected compile error")
	}
}
