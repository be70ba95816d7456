package handler_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"spa-comments/internal/domain"
	"spa-comments/internal/handler"
	"spa-comments/internal/middleware"
	"spa-comments/internal/mocks"
	"spa-comments/internal/realtime"
)

type testApp struct {
	app      *fiber.App
	comments *mocks.CommentService
	captchas *mocks.CaptchaService
	searches *mocks.SearchService
}

func newTestApp(checks map[string]handler.HealthCheck) *testApp {
	logger := log.New()
	logger.SetOutput(io.Discard)
	entry := log.NewEntry(logger)

	ta := &testApp{
		comments: new(mocks.CommentService),
		captchas: new(mocks.CaptchaService),
		searches: new(mocks.SearchService),
	}
	hub := realtime.NewHub(time.Second, entry)
	h := handler.NewHandlers(ta.comments, ta.captchas, ta.searches, handler.NewRealtimeHandler(hub), handler.NewHealthHandler(checks))

	ta.app = fiber.New(fiber.Config{ErrorHandler: middleware.NewErrorHandler(entry)})
	h.Register(ta.app)
	return ta
}

func decodeErrors(t *testing.T, body io.Reader) middleware.ErrorListResponse {
	t.Helper()
	var out middleware.ErrorListResponse
	require.NoError(t, json.NewDecoder(body).Decode(&out))
	return out
}

func TestCommentHandler_Create(t *testing.T) {
	t.Run("Created", func(t *testing.T) {
		ta := newTestApp(nil)
		id := uuid.New()
		view := &domain.CommentView{ID: id, UserName: "Aurora7", Text: "Hello", Attachments: []domain.ResolvedAttachment{}}

		ta.comments.On("Create", mock.Anything, mock.MatchedBy(func(in domain.CreateCommentInput) bool {
			return in.UserName == "Aurora7" && in.CaptchaAnswer == "ABC123" && in.ParentID == nil
		})).Return(view, nil).Once()

		body := `{"user_name":"Aurora7","email":"a@example.com","text":"Hello","captcha_id":"` + uuid.NewString() + `","captcha_answer":"ABC123","attachment_ids":[]}`
		req := httptest.NewRequest("POST", "/api/v1/comments", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")

		resp, err := ta.app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusCreated, resp.StatusCode)

		var got domain.CommentView
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
		assert.Equal(t, id, got.ID)
		ta.comments.AssertExpectations(t)
	})

	t.Run("Malformed body", func(t *testing.T) {
		ta := newTestApp(nil)
		req := httptest.NewRequest("POST", "/api/v1/comments", strings.NewReader("{"))
		req.Header.Set("Content-Type", "application/json")

		resp, err := ta.app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "request.body.invalid", decodeErrors(t, resp.Body).Errors[0].Code)
		ta.comments.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("Challenge rejected", func(t *testing.T) {
		ta := newTestApp(nil)
		ta.comments.On("Create", mock.Anything, mock.Anything).Return(nil, domain.ErrorList{domain.ErrChallengeInvalid}).Once()

		req := httptest.NewRequest("POST", "/api/v1/comments", strings.NewReader(`{"user_name":"Aurora7"}`))
		req.Header.Set("Content-Type", "application/json")

		resp, err := ta.app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
		assert.Equal(t, domain.CodeCaptchaInvalid, decodeErrors(t, resp.Body).Errors[0].Code)
	})
}

func TestCommentHandler_List(t *testing.T) {
	ta := newTestApp(nil)
	page := domain.NewPaginatedResponse([]domain.CommentView{{ID: uuid.New()}}, 2, 5, 6)
	ta.comments.On("GetLatest", mock.Anything, domain.PaginationParams{Page: 2, PageSize: 5}).Return(page, nil).Once()

	resp, err := ta.app.Test(httptest.NewRequest("GET", "/api/v1/comments?page=2&page_size=5", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var got domain.PaginatedResponse[domain.CommentView]
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, 2, got.Page)
	assert.Equal(t, int64(6), got.TotalItems)
	ta.comments.AssertExpectations(t)
}

func TestCommentHandler_Get(t *testing.T) {
	t.Run("Invalid id", func(t *testing.T) {
		ta := newTestApp(nil)

		resp, err := ta.app.Test(httptest.NewRequest("GET", "/api/v1/comments/not-a-uuid", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "comments.id.invalid-format", decodeErrors(t, resp.Body).Errors[0].Code)
	})

	t.Run("Not found", func(t *testing.T) {
		ta := newTestApp(nil)
		id := uuid.New()
		ta.comments.On("GetByID", mock.Anything, id).Return(nil, domain.ErrorList{domain.ErrCommentNotFound}).Once()

		resp, err := ta.app.Test(httptest.NewRequest("GET", "/api/v1/comments/"+id.String(), nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	})
}

func multipartFile(t *testing.T, name, contentType string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="file"; filename="`+name+`"`)
	header.Set("Content-Type", contentType)
	part, err := w.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func TestCommentHandler_UploadAttachment(t *testing.T) {
	t.Run("Stored", func(t *testing.T) {
		ta := newTestApp(nil)
		stored := &domain.StoredFile{ID: uuid.New(), FileName: "notes.txt", ContentType: "text/plain", Kind: domain.FileKindText, Size: 5}
		ta.comments.On("CheckAttachmentMetadata", "text/plain", int64(5)).Return(nil).Once()
		ta.comments.On("UploadAttachment", mock.Anything, mock.MatchedBy(func(in domain.UploadAttachmentInput) bool {
			return in.FileName == "notes.txt" && in.Size == 5
		})).Return(stored, nil).Once()

		body, contentType := multipartFile(t, "notes.txt", "text/plain", []byte("hello"))
		req := httptest.NewRequest("POST", "/api/v1/comments/attachments", body)
		req.Header.Set("Content-Type", contentType)

		resp, err := ta.app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusCreated, resp.StatusCode)

		var got domain.StoredFile
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
		assert.Equal(t, stored.ID, got.ID)
		ta.comments.AssertExpectations(t)
	})

	t.Run("Rejected metadata", func(t *testing.T) {
		ta := newTestApp(nil)
		ta.comments.On("CheckAttachmentMetadata", "application/pdf", int64(3)).
			Return(domain.ErrorList{domain.Validation("file", domain.CodeAttachmentContentType, "nope")}).Once()

		body, contentType := multipartFile(t, "doc.pdf", "application/pdf", []byte("pdf"))
		req := httptest.NewRequest("POST", "/api/v1/comments/attachments", body)
		req.Header.Set("Content-Type", contentType)

		resp, err := ta.app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
		ta.comments.AssertNotCalled(t, "UploadAttachment", mock.Anything, mock.Anything)
	})

	t.Run("Missing file", func(t *testing.T) {
		ta := newTestApp(nil)
		req := httptest.NewRequest("POST", "/api/v1/comments/attachments", strings.NewReader(""))
		req.Header.Set("Content-Type", "multipart/form-data; boundary=x")

		resp, err := ta.app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "comments.attachments.file-required", decodeErrors(t, resp.Body).Errors[0].Code)
	})
}

func TestCaptchaHandler_Create(t *testing.T) {
	id := uuid.New()
	challenge := &domain.Captcha{ID: id, Image: []byte{0x89, 'P', 'N', 'G'}, ContentType: "image/png"}

	t.Run("PNG body", func(t *testing.T) {
		ta := newTestApp(nil)
		ta.captchas.On("Create", mock.Anything).Return(challenge, nil).Once()

		resp, err := ta.app.Test(httptest.NewRequest("GET", "/api/v1/captcha", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
		assert.Equal(t, id.String(), resp.Header.Get(handler.HeaderCaptchaID))

		data, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Equal(t, challenge.Image, data)
	})

	t.Run("JSON body", func(t *testing.T) {
		ta := newTestApp(nil)
		ta.captchas.On("Create", mock.Anything).Return(challenge, nil).Once()

		resp, err := ta.app.Test(httptest.NewRequest("GET", "/api/v1/captcha?format=json", nil))
		require.NoError(t, err)

		var got handler.CaptchaResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
		assert.Equal(t, id.String(), got.CaptchaID)
		assert.Equal(t, base64.StdEncoding.EncodeToString(challenge.Image), got.ImageBase64)
	})

	t.Run("Store down", func(t *testing.T) {
		ta := newTestApp(nil)
		ta.captchas.On("Create", mock.Anything).Return(nil, domain.ErrorList{domain.Upstream(errors.New("redis"))}).Once()

		resp, err := ta.app.Test(httptest.NewRequest("GET", "/api/v1/captcha", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
	})
}

func TestSearchHandler_Search(t *testing.T) {
	t.Run("Parses query", func(t *testing.T) {
		ta := newTestApp(nil)
		result := domain.NewPaginatedResponse([]domain.SearchItemView{{UserName: "Aurora7"}}, 1, 10, 1)
		ta.searches.On("Search", mock.Anything, domain.SearchQuery{
			Text: "hello", UserName: "Aurora7", Page: 1, PageSize: 10, SortBy: "user_name", SortDesc: false,
		}).Return(result, nil).Once()

		resp, err := ta.app.Test(httptest.NewRequest("GET", "/api/v1/comments/search?text=hello&user_name=Aurora7&page_size=10&sort_by=user_name&sort_desc=false", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		ta.searches.AssertExpectations(t)
	})

	t.Run("Validation failure", func(t *testing.T) {
		ta := newTestApp(nil)
		ta.searches.On("Search", mock.Anything, mock.Anything).
			Return(domain.PaginatedResponse[domain.SearchItemView]{}, domain.ErrorList{domain.Validation("sort_by", "search.sort-by.invalid", "bad")}).Once()

		resp, err := ta.app.Test(httptest.NewRequest("GET", "/api/v1/comments/search?sort_by=email", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	})
}

func TestRealtimeHandler_RequiresUpgrade(t *testing.T) {
	ta := newTestApp(nil)

	resp, err := ta.app.Test(httptest.NewRequest("GET", "/ws/comments", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUpgradeRequired, resp.StatusCode)
}

func TestHealthHandler_Check(t *testing.T) {
	ok := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("connection refused") }

	resp, err := newTestApp(map[string]handler.HealthCheck{"postgres": ok}).app.Test(httptest.NewRequest("GET", "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, err = newTestApp(map[string]handler.HealthCheck{"postgres": ok, "redis": down}).app.Test(httptest.NewRequest("GET", "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)

	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "degraded", body.Status)
	assert.Equal(t, "connection refused", body.Checks["redis"])
}
