package verifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"campusfind/internal/pkg/config"
	"campusfind/pkg/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildURL(t *testing.T) {
	tests := []struct {
		name    string
		baseURL string
		want    string
	}{
		{"empty uses default", "", "https://api.openai.com/v1/chat/completions"},
		{"trailing slash handled", "https://api.openai.com/v1/", "https://api.openai.com/v1/chat/completions"},
		{"full endpoint kept", "http://localhost:11434/v1/chat/completions", "http://localhost:11434/v1/chat/completions"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BuildURL(tt.baseURL))
		})
	}
}

func TestClient_VerifyID(t *testing.T) {
	t.Run("returns model answer", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/v1/chat/completions", r.URL.Path)
			assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

			var req chatRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			require.Len(t, req.Messages, 1)
			require.Len(t, req.Messages[0].Content, 2)
			assert.Contains(t, req.Messages[0].Content[0].Text, "Jane Doe")
			assert.Contains(t, req.Messages[0].Content[0].Text, "4VM21CS001")
			assert.Equal(t, "data:image/png;base64,AAAA", req.Messages[0].Content[1].ImageURL.URL)

			_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":" Name and USN match. "}}]}`))
		}))
		defer srv.Close()

		c := New(config.VerifierConfig{BaseURL: srv.URL + "/v1", Model: "test", APIKey: "test-key"})
		got, err := c.VerifyID(context.Background(), Input{
			IDCardImage: "data:image/png;base64,AAAA",
			FullName:    "Jane Doe",
			USN:         "4VM21CS001",
		})

		require.NoError(t, err)
		assert.Equal(t, "Name and USN match.", got)
	})

	t.Run("upstream error is external service error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":{"message":"rate limited"}}`))
		}))
		defer srv.Close()

		c := New(config.VerifierConfig{BaseURL: srv.URL})
		_, err := c.VerifyID(context.Background(), Input{IDCardImage: "https://img/x.png"})

		require.Error(t, err)
		assert.ErrorIs(t, err, errs.ErrExternalService)
		assert.Contains(t, err.Error(), "rate limited")
	})

	t.Run("no choices", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"choices":[]}`))
		}))
		defer srv.Close()

		_, err := New(config.VerifierConfig{BaseURL: srv.URL}).VerifyID(context.Background(), Input{})
		assert.ErrorIs(t, err, errs.ErrExternalService)
	})
}
