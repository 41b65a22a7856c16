package tools

import (
	"context"
	"errors"
	"testing"
)

// fakeTool is a minimal Tool implementation for registry tests.
type fakeTool struct {
	def      ToolDefinition
	executed bool
}

func (f *fakeTool) Definition() ToolDefinition { return f.def }

func (f *fakeTool) Execute(ctx context.Context, argsJSON string) (string, error) {
	f.executed = true
	return "ok", nil
}

func validDef() ToolDefinition {
	return ToolDefinition{
		Name:        "summarize_numerical_data",
		Description: "Summarize dataset columns",
		Parameters: JSONSchema{
			"type": "object",
			"properties": map[string]any{
				"columns": map[string]any{
					"type":  "array",
					"items": map[string]any{"type": "string"},
				},
				"years": map[string]any{
					"type":  "array",
					"items": map[string]any{"type": "integer"},
				},
			},
			"required": []string{"columns", "years"},
		},
	}
}

func TestRegisterAndGet(t *testing.T) {
	r := NewRegistry()
	ft := &fakeTool{def: validDef()}

	if err := r.Register(ft); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	got, err := r.Get("summarize_numerical_data")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got != ft {
		t.Error("Get returned a different tool")
	}
}

func TestRegisterRejectsBadDefinitions(t *testing.T) {
	tests := []struct {
		name string
		def  ToolDefinition
	}{
		{
			name: "empty name",
			def:  ToolDefinition{Name: "", Parameters: JSONSchema{"type": "object"}},
		},
		{
			name: "nil parameters",
			def:  ToolDefinition{Name: "x", Parameters: nil},
		},
		{
			name: "missing type",
			def:  ToolDefinition{Name: "x", Parameters: JSONSchema{"properties": map[string]any{}}},
		},
		{
			name: "non-object type",
			def:  ToolDefinition{Name: "x", Parameters: JSONSchema{"type": "array"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegistry()
			if err := r.Register(&fakeTool{def: tt.def}); err == nil {
				t.Error("Register accepted invalid definition")
			}
		})
	}
}

func TestGetUnknownToolReturnsValidationError(t *testing.T) {
	r := NewRegistry()

	_, err := r.Get("no_such_tool")
	if err == nil {
		t.Fatal("expected error for unknown tool")
	}

	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %T", err)
	}
	if verr.Tool != "no_such_tool" {
		t.Errorf("ValidationError.Tool = %q, want no_such_tool", verr.Tool)
	}
}

func TestValidateCall(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(&fakeTool{def: validDef()}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	tests := []struct {
		name    string
		tool    string
		args    string
		wantErr bool
	}{
		{
			name: "valid args",
			tool: "summarize_numerical_data",
			args: `{"columns": ["UTI"], "years": [2022]}`,
		},
		{
			name:    "unknown tool",
			tool:    "generate_everything",
			args:    `{}`,
			wantErr: true,
		},
		{
			name:    "missing required field",
			tool:    "summarize_numerical_data",
			args:    `{"columns": ["UTI"]}`,
			wantErr: true,
		},
		{
			name:    "wrong type",
			tool:    "summarize_numerical_data",
			args:    `{"columns": "UTI", "years": [2022]}`,
			wantErr: true,
		},
		{
			name:    "not JSON at all",
			tool:    "summarize_numerical_data",
			args:    `columns=UTI`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := r.ValidateCall(tt.tool, tt.args)
			if tt.wantErr {
				var verr *ValidationError
				if !errors.As(err, &verr) {
					t.Fatalf("expected *ValidationError, got %v (%T)", err, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ValidateCall failed: %v", err)
			}
		})
	}
}

func TestValidateCallEmptyArgsAsEmptyObject(t *testing.T) {
	r := NewRegistry()
	def := ToolDefinition{
		Name:        "get_data_dict",
		Description: "No-arg tool",
		Parameters:  JSONSchema{"type": "object", "properties": map[string]any{}},
	}
	if err := r.Register(&fakeTool{def: def}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	if err := r.ValidateCall("get_data_dict", ""); err != nil {
		t.Errorf("empty args should validate as {}: %v", err)
	}
}

func TestGetDefinitions(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(&fakeTool{def: validDef()}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	defs := r.GetDefinitions()
	if len(defs) != 1 {
		t.Fatalf("GetDefinitions returned %d defs, want 1", len(defs))
	}
	if defs[0].Name != "summarize_numerical_data" {
		t.Errorf("unexpected definition name: %s", defs[0].Name)
	}
}
