package console

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContractOperations(t *testing.T) {
	contract, err := LoadContract(context.Background())
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{
		"GET /api/status",
		"POST /api/generate",
		"POST /api/cancel",
		"GET /api/examples",
		"GET /api/template/preview",
		"GET /api/template/download",
		"GET /api/template/descriptor",
		"POST /api/template/save",
	}, contract.Operations())
}

func TestContractValidateBody(t *testing.T) {
	contract, err := LoadContract(context.Background())
	require.NoError(t, err)

	tests := []struct {
		name    string
		method  string
		path    string
		body    string
		wantErr string
	}{
		{name: "generate ok", method: http.MethodPost, path: "/api/generate", body: `{"prompt":"weather","timeout_seconds":30}`},
		{name: "generate requires body", method: http.MethodPost, path: "/api/generate", wantErr: "body is required"},
		{name: "generate prompt type", method: http.MethodPost, path: "/api/generate", body: `{"prompt":42}`, wantErr: "prompt"},
		{name: "generate timeout", method: http.MethodPost, path: "/api/generate", body: `{"prompt":"x","timeout_seconds":7200}`, wantErr: "timeout_seconds"},
		{name: "save empty body", method: http.MethodPost, path: "/api/template/save"},
		{name: "save name", method: http.MethodPost, path: "/api/template/save", body: `{"name":"scoreboard"}`},
		{name: "cancel has no body", method: http.MethodPost, path: "/api/cancel", body: `{"anything":true}`},
		{name: "unknown path", method: http.MethodPost, path: "/api/nope", body: `{}`, wantErr: "not part of the api contract"},
		{name: "unknown method", method: http.MethodPut, path: "/api/generate", body: `{}`, wantErr: "not part of the api contract"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := contract.ValidateBody(tt.method, tt.path, []byte(tt.body))
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestMethodAllowed(t *testing.T) {
	assert.True(t, methodAllowed(http.MethodPost))
	assert.True(t, methodAllowed(http.MethodPatch))
	assert.False(t, methodAllowed(http.MethodGet))
	assert.False(t, methodAllowed(http.MethodHead))
}
