package domain

import (
	"io"
	"mime"
	"strings"
	"time"

	"github.com/google/uuid"
)

type FileKind string

const (
	FileKindImage FileKind = "image"
	FileKindText  FileKind = "text"
)

const (
	MaxTextAttachmentSize int64 = 100 * 1024
	MaxAttachmentSize     int64 = 10 * 1024 * 1024

	ImageMaxWidth  = 320
	ImageMaxHeight = 240
)

var allowedContentTypes = map[string]FileKind{
	"image/png":  FileKindImage,
	"image/jpeg": FileKindImage,
	"image/jpg":  FileKindImage,
	"image/gif":  FileKindImage,
	"text/plain": FileKindText,
	"text/utf-8": FileKindText,
}

// NormalizeContentType lower-cases the media type and strips parameters.
func NormalizeContentType(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType, _, _ = strings.Cut(contentType, ";")
	}
	return strings.ToLower(strings.TrimSpace(mediaType))
}

// CheckAttachment enforces the content-type allow-list and size ceilings.
func CheckAttachment(contentType string, size int64) (FileKind, error) {
	kind, ok := allowedContentTypes[NormalizeContentType(contentType)]
	if !ok {
		return "", Validation("file", CodeAttachmentContentType, "Only PNG, JPEG, GIF images and plain text files are allowed")
	}
	if kind == FileKindText && size > MaxTextAttachmentSize {
		return "", Validation("file", CodeAttachmentTextTooLarge, "Text attachments must be at most 100 KB")
	}
	if size > MaxAttachmentSize {
		return "", Validation("file", CodeAttachmentFileTooLarge, "Attachments must be at most 10 MB")
	}
	return kind, nil
}

type ResolvedAttachment struct {
	FileID    uuid.UUID `json:"file_id"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at_utc"`
}

type StoredFile struct {
	ID          uuid.UUID `json:"id"`
	FileName    string    `json:"file_name"`
	ContentType string    `json:"content_type"`
	Kind        FileKind  `json:"kind"`
	Size        int64     `json:"size"`
	Width       *int      `json:"width,omitempty"`
	Height      *int      `json:"height,omitempty"`
	StoragePath string    `json:"-"`
	CreatedAt   time.Time `json:"created_at"`
}

type UploadAttachmentInput struct {
	FileName    string
	ContentType string
	Size        int64
	Content     io.Reader
}
