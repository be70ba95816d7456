package filestorage_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spa-comments/internal/domain"
	"spa-comments/internal/filestorage"
)

func TestHTTPClient_ResolvePresignedURLs(t *testing.T) {
	known, unknown, second := uuid.New(), uuid.New(), uuid.New()
	expires := time.Now().UTC().Add(5 * time.Minute).Truncate(time.Second)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/files/presigned", r.URL.Path)

		var req struct {
			FileIDs    []uuid.UUID `json:"file_ids"`
			TTLSeconds int         `json:"ttl_seconds"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, 300, req.TTLSeconds)
		assert.Equal(t, []uuid.UUID{second, unknown, known}, req.FileIDs)

		// answer out of order; the client restores request order
		_ = json.NewEncoder(w).Encode(map[string]any{"files": []domain.ResolvedAttachment{
			{FileID: known, URL: "http://files/known", ExpiresAt: expires},
			{FileID: second, URL: "http://files/second", ExpiresAt: expires},
		}})
	}))
	defer srv.Close()

	client := filestorage.NewHTTPClient(srv.URL+"/", time.Second)
	got, err := client.ResolvePresignedURLs(context.Background(), []uuid.UUID{second, unknown, known}, 300*time.Second)

	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, second, got[0].FileID)
	assert.Equal(t, known, got[1].FileID)
	assert.True(t, expires.Equal(got[1].ExpiresAt))
}

func TestHTTPClient_ResolvePresignedURLs_Errors(t *testing.T) {
	t.Run("Not found means nothing resolved", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer srv.Close()

		got, err := filestorage.NewHTTPClient(srv.URL, time.Second).ResolvePresignedURLs(context.Background(), []uuid.UUID{uuid.New()}, time.Minute)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("Server error is reported", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte("minio down"))
		}))
		defer srv.Close()

		_, err := filestorage.NewHTTPClient(srv.URL, time.Second).ResolvePresignedURLs(context.Background(), []uuid.UUID{uuid.New()}, time.Minute)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "minio down")
	})

	t.Run("Empty request makes no call", func(t *testing.T) {
		got, err := filestorage.NewHTTPClient("http://127.0.0.1:1", time.Second).ResolvePresignedURLs(context.Background(), nil, time.Minute)
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestHTTPClient_Upload(t *testing.T) {
	fileID := uuid.New()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/files", r.URL.Path)

		file, header, err := r.FormFile("file")
		if !assert.NoError(t, err) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer file.Close()
		data, _ := io.ReadAll(file)

		assert.Equal(t, "notes.txt", header.Filename)
		assert.Equal(t, "text/plain", header.Header.Get("Content-Type"))
		assert.Equal(t, "hello", string(data))
		assert.Empty(t, r.FormValue("max_width"))

		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(domain.StoredFile{ID: fileID, FileName: header.Filename, Size: int64(len(data))})
	}))
	defer srv.Close()

	stored, err := filestorage.NewHTTPClient(srv.URL, time.Second).Upload(context.Background(), filestorage.UploadRequest{
		FileName:    "notes.txt",
		ContentType: "text/plain",
		Kind:        domain.FileKindText,
		Size:        5,
		Content:     strings.NewReader("hello"),
	})

	require.NoError(t, err)
	assert.Equal(t, fileID, stored.ID)
	assert.EqualValues(t, 5, stored.Size)
}
