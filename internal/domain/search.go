package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	SearchSortCreatedAt = "created_at"
	SearchSortUserName  = "user_name"

	SearchTextMaxLength     = 1000
	SearchUserNameMaxLength = 100

	// SearchMaxWindow matches the default index.max_result_window.
	SearchMaxWindow = 10000
)

// SearchDocument is the denormalized projection of a comment, keyed by its id.
type SearchDocument struct {
	ID            uuid.UUID   `json:"id"`
	ParentID      *uuid.UUID  `json:"parent_id"`
	UserName      string      `json:"user_name"`
	Email         string      `json:"email"`
	HomePage      *string     `json:"home_page"`
	Text          string      `json:"text"`
	CreatedAt     time.Time   `json:"created_at"`
	AttachmentIDs []uuid.UUID `json:"attachment_ids"`
}

func NewSearchDocument(e CommentCreatedEvent) SearchDocument {
	ids := e.AttachmentIDs
	if ids == nil {
		ids = []uuid.UUID{}
	}
	return SearchDocument{
		ID:            e.CommentID,
		ParentID:      e.ParentID,
		UserName:      e.UserName,
		Email:         e.Email,
		HomePage:      e.HomePage,
		Text:          e.Text,
		CreatedAt:     e.CreatedAt.UTC(),
		AttachmentIDs: ids,
	}
}

type SearchQuery struct {
	Text     string `query:"text"`
	UserName string `query:"user_name"`
	Page     int    `query:"page"`
	PageSize int    `query:"page_size"`
	SortBy   string `query:"sort_by"`
	SortDesc bool   `query:"sort_desc"`
}

func (q SearchQuery) Check() ErrorList {
	errs := PaginationParams{Page: q.Page, PageSize: q.PageSize}.Check("search")
	if len(errs) == 0 && q.Page*q.PageSize > SearchMaxWindow {
		errs = append(errs, Validation("page", "search.page.out-of-range", "Search results are limited to the first 10000 matches"))
	}
	if len([]rune(q.Text)) > SearchTextMaxLength {
		errs = append(errs, Validation("text", "search.text.too-long", "Search text must be at most 1000 characters"))
	}
	if len([]rune(q.UserName)) > SearchUserNameMaxLength {
		errs = append(errs, Validation("user_name", "search.user-name.too-long", "User name filter must be at most 100 characters"))
	}
	switch q.SortBy {
	case "", SearchSortCreatedAt, SearchSortUserName:
	default:
		errs = append(errs, Validation("sort_by", "search.sort-by.invalid", "Sort field must be created_at or user_name"))
	}
	return errs
}

type SearchItemView struct {
	ID        uuid.UUID  `json:"id"`
	ParentID  *uuid.UUID `json:"parent_id"`
	UserName  string     `json:"user_name"`
	Text      string     `json:"text"`
	CreatedAt time.Time  `json:"created_at"`
}
