package tuple

import (
	"testing"

	"github.com/jvjhfhg/simpledb/pkg/types"
)

func TestNewTupleDesc(t *testing.T) {
	tests := []struct {
		name           string
		fieldTypes     []types.Type
		fieldNames     []string
		expectedError  bool
		expectedLength int
	}{
		{
			name:           "Valid tuple with types and names",
			fieldTypes:     []types.Type{types.IntType, types.StringType},
			fieldNames:     []string{"id", "name"},
			expectedError:  false,
			expectedLength: 2,
		},
		{
			name:           "Valid tuple with types only",
			fieldTypes:     []types.Type{types.IntType, types.StringType},
			fieldNames:     nil,
			expectedError:  false,
			expectedLength: 2,
		},
		{
			name:          "Empty field types",
			fieldTypes:    []types.Type{},
			fieldNames:    []string{},
			expectedError: true,
		},
		{
			name:          "Mismatched types and names length",
			fieldTypes:    []types.Type{types.IntType, types.StringType},
			fieldNames:    []string{"id"},
			expectedError: true,
		},
		{
			name:           "Single field",
			fieldTypes:     []types.Type{types.IntType},
			fieldNames:     []string{"id"},
			expectedError:  false,
			expectedLength: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			td, err := NewTupleDesc(tt.fieldTypes, tt.fieldNames)

			if tt.expectedError {
				if err == nil {
					t.Errorf("Expected error but got none")
				}
				return
			}

			if err != nil {
				t.Errorf("Unexpected error: %v", err)
				return
			}

			if td.NumFields() != tt.expectedLength {
				t.Errorf("Expected %d fields, got %d", tt.expectedLength, td.NumFields())
			}
		})
	}
}

func TestTupleDescription_GetFieldName(t *testing.T) {
	withNames := mustCreateTupleDesc([]types.Type{types.IntType, types.StringType}, []string{"id", "name"})
	withoutNames := mustCreateTupleDesc([]types.Type{types.IntType, types.StringType}, nil)

	name, err := withNames.GetFieldName(0)
	if err != nil || name != "id" {
		t.Errorf("expected name %q, got %q (err=%v)", "id", name, err)
	}

	name, err = withoutNames.GetFieldName(0)
	if err != nil || name != "" {
		t.Errorf("expected empty name, got %q (err=%v)", name, err)
	}

	if _, err := withNames.GetFieldName(5); err == nil {
		t.Errorf("expected out-of-bounds error")
	}
}

func TestTupleDescription_TypeAtIndex(t *testing.T) {
	td := mustCreateTupleDesc([]types.Type{types.IntType, types.StringType}, []string{"id", "name"})

	if typ, err := td.TypeAtIndex(0); err != nil || typ != types.IntType {
		t.Errorf("expected IntType at index 0, got %v (err=%v)", typ, err)
	}
	if typ, err := td.TypeAtIndex(1); err != nil || typ != types.StringType {
		t.Errorf("expected StringType at index 1, got %v (err=%v)", typ, err)
	}
	if _, err := td.TypeAtIndex(2); err == nil {
		t.Errorf("expected out-of-bounds error")
	}
}

func TestTupleDescription_GetSize(t *testing.T) {
	tests := []struct {
		name         string
		fieldTypes   []types.Type
		expectedSize uint32
	}{
		{"Int field only", []types.Type{types.IntType}, 8},
		{"String field only", []types.Type{types.StringType}, 4 + 256},
		{"Int and String fields", []types.Type{types.IntType, types.StringType}, 8 + 260},
		{"Multiple fields", []types.Type{types.IntType, types.IntType, types.StringType}, 8 + 8 + 260},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			td := mustCreateTupleDesc(tt.fieldTypes, nil)
			if size := td.GetSize(); size != tt.expectedSize {
				t.Errorf("Expected size %d, got %d", tt.expectedSize, size)
			}
		})
	}
}

func TestTupleDescription_Equals(t *testing.T) {
	td1 := mustCreateTupleDesc([]types.Type{types.IntType, types.StringType}, []string{"id", "name"})
	td2 := mustCreateTupleDesc([]types.Type{types.IntType, types.StringType}, []string{"user_id", "username"})
	td3 := mustCreateTupleDesc([]types.Type{types.IntType}, []string{"id"})
	td4 := mustCreateTupleDesc([]types.Type{types.StringType, types.IntType}, []string{"name", "id"})

	if !td1.Equals(td2) {
		t.Errorf("expected td1 == td2 (names don't affect equality)")
	}
	if td1.Equals(td3) {
		t.Errorf("expected td1 != td3 (different field count)")
	}
	if td1.Equals(td4) {
		t.Errorf("expected td1 != td4 (different field order)")
	}
	if td1.Equals(nil) {
		t.Errorf("expected td1 != nil")
	}
}

func TestTupleDescription_String(t *testing.T) {
	td := mustCreateTupleDesc([]types.Type{types.IntType, types.StringType}, []string{"id", "name"})
	if got, want := td.String(), "INT_TYPE(id),STRING_TYPE(name)"; got != want {
		t.Errorf("expected %q, got %q", want, got)
	}

	td2 := mustCreateTupleDesc([]types.Type{types.IntType, types.StringType}, nil)
	if got, want := td2.String(), "INT_TYPE(null),STRING_TYPE(null)"; got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func mustCreateTupleDesc(fieldTypes []types.Type, fieldNames []string) *TupleDescription {
	td, err := NewTupleDesc(fieldTypes, fieldNames)
	if err != nil {
		panic(err)
	}
	return td
}
