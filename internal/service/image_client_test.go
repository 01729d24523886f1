package service_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"novel-game/internal/config"
	"novel-game/internal/service"
)

var testImageConfig = config.ImageConfig{
	Model:        "dall-e-3",
	Size:         "1024x1024",
	Quality:      "standard",
	FetchTimeout: 5 * time.Second,
}

func newImageGenerator(baseURL string) service.ImageGenerator {
	return service.NewOpenAIImageGenerator(config.AIConfig{
		ClientType: config.AIClientOpenAI,
		BaseURL:    baseURL,
		Timeout:    5 * time.Second,
		APIKey:     "sk-test",
	}, testImageConfig, zap.NewNop())
}

func TestGenerateImage_ReturnsURL(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/images/generations", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"created":1,"data":[{"url":"https://cdn.example/cabin.png","revised_prompt":"a cabin"}]}`)
	}))
	t.Cleanup(srv.Close)

	url, err := newImageGenerator(srv.URL+"/v1").GenerateImage(context.Background(), "A cabin, oil")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/cabin.png", url)
	assert.Equal(t, "A cabin, oil", got["prompt"])
	assert.Equal(t, "dall-e-3", got["model"])
	assert.Equal(t, "1024x1024", got["size"])
	assert.EqualValues(t, 1, got["n"])
}

func TestGenerateImage_NoData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"created":1,"data":[]}`)
	}))
	t.Cleanup(srv.Close)

	_, err := newImageGenerator(srv.URL+"/v1").GenerateImage(context.Background(), "A cabin")
	assert.ErrorIs(t, err, service.ErrImageGenerationFailed)
}

func TestGenerateImage_Rejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":{"message":"content policy violation","type":"invalid_request_error"}}`)
	}))
	t.Cleanup(srv.Close)

	_, err := newImageGenerator(srv.URL+"/v1").GenerateImage(context.Background(), "A cabin")
	assert.ErrorIs(t, err, service.ErrImageGenerationFailed)
}

func TestHTTPImageFetcher(t *testing.T) {
	png := []byte{0x89, 'P', 'N', 'G'}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok.png":
			assert.Equal(t, "image/*", r.Header.Get("Accept"))
			w.Header().Set("Content-Type", "image/png")
			w.Write(png)
		case "/empty.png":
			w.WriteHeader(http.StatusOK)
		default:
			http.Error(w, "expired", http.StatusForbidden)
		}
	}))
	t.Cleanup(srv.Close)

	fetcher := service.NewHTTPImageFetcher(testImageConfig, zap.NewNop())

	tests := []struct {
		name    string
		path    string
		want    []byte
		wantErr string
	}{
		{name: "ok", path: "/ok.png", want: png},
		{name: "empty body", path: "/empty.png", wantErr: "empty body"},
		{name: "non-ok status", path: "/expired.png", wantErr: "status 403"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := fetcher.Fetch(context.Background(), srv.URL+tt.path)
			if tt.wantErr != "" {
				assert.ErrorIs(t, err, service.ErrImageFetchFailed)
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, data)
		})
	}
}

func TestHTTPImageFetcher_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL + "/gone.png"
	srv.Close()

	_, err := service.NewHTTPImageFetcher(testImageConfig, zap.NewNop()).Fetch(context.Background(), url)
	assert.ErrorIs(t, err, service.ErrImageFetchFailed)
}
