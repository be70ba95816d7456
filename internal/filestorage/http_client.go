package filestorage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"spa-comments/internal/domain"
)

// HTTPClient talks to a standalone file service over its REST API.
type HTTPClient struct {
	baseURL string
	http    *http.Client
}

func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

type presignRequest struct {
	FileIDs    []uuid.UUID `json:"file_ids"`
	TTLSeconds int         `json:"ttl_seconds"`
}

type presignResponse struct {
	Files []domain.ResolvedAttachment `json:"files"`
}

func (c *HTTPClient) ResolvePresignedURLs(ctx context.Context, ids []uuid.UUID, ttl time.Duration) ([]domain.ResolvedAttachment, error) {
	if len(ids) == 0 {
		return []domain.ResolvedAttachment{}, nil
	}

	body, err := json.Marshal(presignRequest{FileIDs: ids, TTLSeconds: int(ttl / time.Second)})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/files/presigned", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request presigned urls: %w", err)
	}
	defer resp.Body.Close()

	// none of the ids are known to the file service
	if resp.StatusCode == http.StatusNotFound {
		return []domain.ResolvedAttachment{}, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, statusError("request presigned urls", resp)
	}

	var parsed presignResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode presigned urls: %w", err)
	}

	byID := make(map[uuid.UUID]domain.ResolvedAttachment, len(parsed.Files))
	for _, f := range parsed.Files {
		byID[f.FileID] = f
	}
	resolved := make([]domain.ResolvedAttachment, 0, len(parsed.Files))
	for _, id := range ids {
		if f, ok := byID[id]; ok {
			resolved = append(resolved, f)
		}
	}
	return resolved, nil
}

func (c *HTTPClient) Upload(ctx context.Context, upload UploadRequest) (*domain.StoredFile, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, upload.FileName))
	header.Set("Content-Type", upload.ContentType)
	part, err := w.CreatePart(header)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, upload.Content); err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if upload.MaxWidth > 0 && upload.MaxHeight > 0 {
		_ = w.WriteField("max_width", strconv.Itoa(upload.MaxWidth))
		_ = w.WriteField("max_height", strconv.Itoa(upload.MaxHeight))
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/files", &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upload file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, statusError("upload file", resp)
	}

	var file domain.StoredFile
	if err := json.NewDecoder(resp.Body).Decode(&file); err != nil {
		return nil, fmt.Errorf("decode upload response: %w", err)
	}
	return &file, nil
}

func statusError(op string, resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	return fmt.Errorf("%s: file service returned %s: %s", op, resp.Status, bytes.TrimSpace(data))
}
