package domain

import (
	"html"
	"net/url"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

const (
	UserNameMinLength = 3
	UserNameMaxLength = 20
	EmailMaxLength    = 320
	HomePageMaxLength = 2048
	TextMaxLength     = 2000
)

var (
	userNamePattern = regexp.MustCompile(`^[A-Za-z0-9]+$`)
	emailPattern    = regexp.MustCompile(`^[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}$`)
)

type UserName string

func NewUserName(raw string) (UserName, error) {
	if strings.TrimSpace(raw) == "" {
		return "", Validation("user_name", "comments.user-name.required", "User name is required")
	}
	n := utf8.RuneCountInString(raw)
	if n < UserNameMinLength {
		return "", Validation("user_name", "comments.user-name.too-short", "User name must be at least 3 characters")
	}
	if n > UserNameMaxLength {
		return "", Validation("user_name", "comments.user-name.too-long", "User name must be at most 20 characters")
	}
	if !userNamePattern.MatchString(raw) {
		return "", Validation("user_name", "comments.user-name.invalid-format", "User name may contain only latin letters and digits")
	}
	return UserName(raw), nil
}

type Email string

func NewEmail(raw string) (Email, error) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return "", Validation("email", "comments.email.required", "Email is required")
	}
	if len(v) > EmailMaxLength {
		return "", Validation("email", "comments.email.too-long", "Email must be at most 320 characters")
	}
	if !emailPattern.MatchString(v) {
		return "", Validation("email", "comments.email.invalid-format", "Email format is invalid")
	}
	return Email(v), nil
}

type HomePage string

// NewHomePage returns nil for an absent or blank value.
func NewHomePage(raw *string) (*HomePage, error) {
	if raw == nil {
		return nil, nil
	}
	v := strings.TrimSpace(*raw)
	if v == "" {
		return nil, nil
	}
	if len(v) > HomePageMaxLength {
		return nil, Validation("home_page", "comments.home-page.too-long", "Home page must be at most 2048 characters")
	}
	u, err := url.Parse(v)
	if err != nil || !u.IsAbs() || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, Validation("home_page", "comments.home-page.invalid-format", "Home page must be an absolute http or https URL")
	}
	hp := HomePage(v)
	return &hp, nil
}

type Text string

// NewText measures the decoded text, so entities produced by sanitizing count
// as the single character they stand for.
func NewText(raw string) (Text, error) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return "", Validation("text", "comments.text.required", "Text is required")
	}
	if utf8.RuneCountInString(html.UnescapeString(v)) > TextMaxLength {
		return "", Validation("text", "comments.text.too-long", "Text must be at most 2000 characters")
	}
	return Text(v), nil
}

// CommentAttachment references a file owned by the file storage service.
type CommentAttachment struct {
	FileID uuid.UUID
}

// NormalizeAttachmentIDs drops zero ids and duplicates, keeping first-seen order.
func NormalizeAttachmentIDs(ids []uuid.UUID) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(ids))
	seen := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		if id == uuid.Nil {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

type CommentFields struct {
	ParentID *uuid.UUID
	UserName UserName
	Email    Email
	HomePage *HomePage
	Text     Text
}

type Comment struct {
	ID          uuid.UUID
	ParentID    *uuid.UUID
	UserName    UserName
	Email       Email
	HomePage    *HomePage
	Text        Text
	CreatedAt   time.Time
	UpdatedAt   *time.Time
	Attachments []CommentAttachment
}

func NewComment(id uuid.UUID, fields CommentFields, createdAt time.Time, attachmentIDs []uuid.UUID) *Comment {
	attachments := make([]CommentAttachment, 0, len(attachmentIDs))
	for _, fileID := range attachmentIDs {
		attachments = append(attachments, CommentAttachment{FileID: fileID})
	}
	return &Comment{
		ID:          id,
		ParentID:    fields.ParentID,
		UserName:    fields.UserName,
		Email:       fields.Email,
		HomePage:    fields.HomePage,
		Text:        fields.Text,
		CreatedAt:   createdAt.UTC(),
		Attachments: attachments,
	}
}

func (c *Comment) AttachmentIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(c.Attachments))
	for _, a := range c.Attachments {
		ids = append(ids, a.FileID)
	}
	return ids
}

func (c *Comment) HomePageValue() *string {
	if c.HomePage == nil {
		return nil
	}
	v := string(*c.HomePage)
	return &v
}

type CreateCommentInput struct {
	ParentID      *uuid.UUID  `json:"parent_id"`
	UserName      string      `json:"user_name"`
	Email         string      `json:"email"`
	HomePage      *string     `json:"home_page"`
	Text          string      `json:"text"`
	CaptchaID     uuid.UUID   `json:"captcha_id"`
	CaptchaAnswer string      `json:"captcha_answer"`
	AttachmentIDs []uuid.UUID `json:"attachment_ids"`
}

// ValidateCreateComment checks every field and returns all failures together.
func ValidateCreateComment(in CreateCommentInput) (CommentFields, ErrorList) {
	var (
		fields CommentFields
		errs   ErrorList
		err    error
	)
	collect := func(err error) {
		if err != nil {
			errs = append(errs, Errors(err)...)
		}
	}

	if in.ParentID != nil {
		if *in.ParentID == uuid.Nil {
			errs = append(errs, Validation("parent_id", "comments.parent.invalid-format", "Parent comment id is invalid"))
		} else {
			parent := *in.ParentID
			fields.ParentID = &parent
		}
	}

	fields.UserName, err = NewUserName(in.UserName)
	collect(err)
	fields.Email, err = NewEmail(in.Email)
	collect(err)
	fields.HomePage, err = NewHomePage(in.HomePage)
	collect(err)
	fields.Text, err = NewText(in.Text)
	collect(err)

	if in.CaptchaID == uuid.Nil {
		errs = append(errs, Validation("captcha_id", "captcha.id.required", "Captcha id is required"))
	}
	if strings.TrimSpace(in.CaptchaAnswer) == "" {
		errs = append(errs, Validation("captcha_answer", "captcha.answer.required", "Captcha answer is required"))
	}
	return fields, errs
}

type CommentView struct {
	ID          uuid.UUID            `json:"id"`
	ParentID    *uuid.UUID           `json:"parent_id"`
	UserName    string               `json:"user_name"`
	Email       string               `json:"email"`
	HomePage    *string              `json:"home_page"`
	Text        string               `json:"text"`
	CreatedAt   time.Time            `json:"created_at"`
	Attachments []ResolvedAttachment `json:"attachments"`
}

func NewCommentView(c *Comment, attachments []ResolvedAttachment) CommentView {
	if attachments == nil {
		attachments = []ResolvedAttachment{}
	}
	return CommentView{
		ID:          c.ID,
		ParentID:    c.ParentID,
		UserName:    string(c.UserName),
		Email:       string(c.Email),
		HomePage:    c.HomePageValue(),
		Text:        string(c.Text),
		CreatedAt:   c.CreatedAt,
		Attachments: attachments,
	}
}

// CommentRecord is a stored comment as read back from the database.
type CommentRecord struct {
	ID            uuid.UUID
	ParentID      *uuid.UUID
	UserName      string
	Email         string
	HomePage      *string
	Text          string
	CreatedAt     time.Time
	UpdatedAt     *time.Time
	AttachmentIDs []uuid.UUID
}

func (r CommentRecord) View(attachments []ResolvedAttachment) CommentView {
	if attachments == nil {
		attachments = []ResolvedAttachment{}
	}
	return CommentView{
		ID:          r.ID,
		ParentID:    r.ParentID,
		UserName:    r.UserName,
		Email:       r.Email,
		HomePage:    r.HomePage,
		Text:        r.Text,
		CreatedAt:   r.CreatedAt.UTC(),
		Attachments: attachments,
	}
}
