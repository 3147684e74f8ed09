package apiclient

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockRegistry_DisabledByDefault(t *testing.T) {
	r := NewMockRegistry()
	r.Add("GET", "/users", MockResponse{})

	assert.False(t, r.Enabled())
	assert.Nil(t, r.Lookup("GET", "/users"))
}

func TestMockRegistry_LookupDefaults(t *testing.T) {
	r := NewMockRegistry()
	r.Add("get", "/users", MockResponse{})
	r.Enable()

	resp := r.Lookup("GET", "/users")
	require.NotNil(t, resp)
	assert.Equal(t, 200, resp.Status)
	assert.JSONEq(t, `{"message":"Mock response"}`, string(resp.Body))
	assert.Equal(t, MockElapsed, resp.Elapsed)
	assert.Equal(t, "mock:///users", resp.URL)
}

func TestMockRegistry_LookupExplicitFields(t *testing.T) {
	r := NewMockRegistry()
	r.Add("POST", "/orders", MockResponse{
		Status:  201,
		Body:    map[string]any{"id": 7},
		Headers: map[string]string{"X-Mock": "1"},
		Elapsed: 5 * time.Millisecond,
	})
	r.Enable()

	resp := r.Lookup("post", "/orders")
	require.NotNil(t, resp)
	assert.Equal(t, 201, resp.Status)
	assert.JSONEq(t, `{"id":7}`, string(resp.Body))
	assert.Equal(t, "1", resp.Headers["X-Mock"])
	assert.Equal(t, 5*time.Millisecond, resp.Elapsed)
}

func TestMockRegistry_MatchIsMethodAndEndpoint(t *testing.T) {
	r := NewMockRegistry()
	r.Add("GET", "/users", MockResponse{Status: 200})
	r.Enable()

	assert.Nil(t, r.Lookup("POST", "/users"))
	assert.Nil(t, r.Lookup("GET", "/orders"))
	assert.NotNil(t, r.Lookup("GET", "/users"))
}

func TestMockRegistry_BodyForms(t *testing.T) {
	tests := []struct {
		name string
		body any
		want string
	}{
		{"given a byte slice, then it is used verbatim", []byte(`{"raw":true}`), `{"raw":true}`},
		{"given a string, then it is used verbatim", `{"s":1}`, `{"s":1}`},
		{"given a value, then it is marshaled", map[string]string{"k": "v"}, `{"k":"v"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewMockRegistry()
			r.Add("GET", "/x", MockResponse{Body: tt.body})
			r.Enable()

			resp := r.Lookup("GET", "/x")
			require.NotNil(t, resp)
			assert.JSONEq(t, tt.want, string(resp.Body))
		})
	}
}

func TestMockRegistry_DisableKeepsMocks(t *testing.T) {
	r := NewMockRegistry()
	r.Add("GET", "/users", MockResponse{})
	r.Enable()
	require.NotNil(t, r.Lookup("GET", "/users"))

	r.Disable()
	assert.Nil(t, r.Lookup("GET", "/users"))

	r.Enable()
	assert.NotNil(t, r.Lookup("GET", "/users"))
}

func TestMockRegistry_AddOverwrites(t *testing.T) {
	r := NewMockRegistry()
	r.Add("GET", "/users", MockResponse{Status: 200})
	r.Add("GET", "/users", MockResponse{Status: 503})
	r.Enable()

	resp := r.Lookup("GET", "/users")
	require.NotNil(t, resp)
	assert.Equal(t, 503, resp.Status)
}
