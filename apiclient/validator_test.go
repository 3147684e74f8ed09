package apiclient

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchemaRegistry_Validate(t *testing.T) {
	r := NewSchemaRegistry()
	r.Add("user", Schema{
		Required: []string{"id", "name"},
		Types: map[string]string{
			"id":     "number",
			"name":   "string",
			"active": "boolean",
			"tags":   "array",
		},
	})

	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{
			name: "given a conforming body, then validation passes",
			body: `{"id":5,"name":"ada","active":true,"tags":["a"]}`,
		},
		{
			name: "given an optional typed field is absent, then validation passes",
			body: `{"id":5,"name":"ada"}`,
		},
		{
			name:    "given a missing required field, then it is named",
			body:    `{"id":5}`,
			wantErr: `missing required field "name"`,
		},
		{
			name:    "given a wrong type, then both types are named",
			body:    `{"id":"5","name":"ada"}`,
			wantErr: `field "id" is string, expected number`,
		},
		{
			name:    "given a non-object body, then validation fails",
			body:    `[1,2,3]`,
			wantErr: "body is not a JSON object",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := r.Validate("user", []byte(tt.body))
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSchemaRegistry_UnknownSchema(t *testing.T) {
	r := NewSchemaRegistry()

	err := r.Validate("absent", []byte(`{}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not registered")
}

func TestSchemaRegistry_NullType(t *testing.T) {
	r := NewSchemaRegistry()
	r.Add("nullable", Schema{Types: map[string]string{"deleted_at": "null"}})

	assert.NoError(t, r.Validate("nullable", []byte(`{"deleted_at":null}`)))
	assert.Error(t, r.Validate("nullable", []byte(`{"deleted_at":"2024-01-01"}`)))
}
