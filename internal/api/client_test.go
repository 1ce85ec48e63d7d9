package api

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tandemdrive/tandem/pkg/core"
)

func TestNew_TrimsTrailingSlash(t *testing.T) {
	c := New("http://localhost:5000/", "secret")
	assert.Equal(t, "http://localhost:5000", c.baseURL)
	assert.Equal(t, "secret", c.apiKey)
	assert.NotNil(t, c.httpClient)
}

func TestHealthcheck(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr bool
	}{
		{"ok", http.StatusOK, false},
		{"server error", http.StatusInternalServerError, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/healthcheck", r.URL.Path)
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			err := New(server.URL, "").Healthcheck(context.Background())
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestHealthcheck_ServerDown(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	assert.Error(t, New(url, "").Healthcheck(context.Background()))
}

func TestUpload_Success(t *testing.T) {
	form := map[string]string{}
	var content []byte

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, UploadPath, r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)

		if !assert.NoError(t, r.ParseMultipartForm(10<<20)) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		for _, k := range []string{"secret", "filename", "sessionName", "tag", "duration"} {
			form[k] = r.FormValue(k)
		}

		file, _, err := r.FormFile("file")
		if !assert.NoError(t, err) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer file.Close()
		content, _ = io.ReadAll(file)

		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	testFile := filepath.Join(t.TempDir(), "Coop_Drive_20260314_092653.json.gz")
	require.NoError(t, os.WriteFile(testFile, []byte("test content"), 0644))

	err := New(server.URL, "mysecret").Upload(context.Background(), testFile, core.UploadMetadata{
		SessionName: "Coop Drive",
		Tag:         "coop",
		Duration:    125.5,
	})
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		"secret":      "mysecret",
		"filename":    "Coop_Drive_20260314_092653.json.gz",
		"sessionName": "Coop Drive",
		"tag":         "coop",
		"duration":    "125.500",
	}, form)
	assert.Equal(t, "test content", string(content))
}

func TestUpload_FileNotFound(t *testing.T) {
	err := New("http://localhost:5000", "secret").Upload(context.Background(), "/nonexistent/file.json.gz", core.UploadMetadata{})
	assert.Error(t, err)
}

func TestUpload_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	testFile := filepath.Join(t.TempDir(), "test.json.gz")
	require.NoError(t, os.WriteFile(testFile, []byte("content"), 0644))

	err := New(server.URL, "wrong-secret").Upload(context.Background(), testFile, core.UploadMetadata{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}

func TestUpload_ServerDown(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	testFile := filepath.Join(t.TempDir(), "test.json.gz")
	require.NoError(t, os.WriteFile(testFile, []byte("content"), 0644))

	assert.Error(t, New(url, "").Upload(context.Background(), testFile, core.UploadMetadata{}))
}
