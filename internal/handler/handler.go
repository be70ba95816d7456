package handler

import (
	"github.com/gofiber/fiber/v2"

	"spa-comments/internal/service/captcha"
	"spa-comments/internal/service/comment"
	"spa-comments/internal/service/search"
)

type Handlers struct {
	Comment  *CommentHandler
	Captcha  *CaptchaHandler
	Search   *SearchHandler
	Realtime *RealtimeHandler
	Health   *HealthHandler
}

func NewHandlers(
	comments comment.Service,
	captchas captcha.Service,
	searches search.Service,
	realtime *RealtimeHandler,
	health *HealthHandler,
) *Handlers {
	return &Handlers{
		Comment:  NewCommentHandler(comments),
		Captcha:  NewCaptchaHandler(captchas),
		Search:   NewSearchHandler(searches),
		Realtime: realtime,
		Health:   health,
	}
}

// Register mounts every route. /metrics is mounted by the caller.
func (h *Handlers) Register(app *fiber.App) {
	app.Get("/health", h.Health.Check)

	v1 := app.Group("/api/v1")
	v1.Get("/captcha", h.Captcha.Create)

	comments := v1.Group("/comments")
	comments.Post("/", h.Comment.Create)
	comments.Get("/", h.Comment.List)
	comments.Get("/search", h.Search.Search)
	comments.Post("/attachments", h.Comment.UploadAttachment)
	comments.Get("/:commentId", h.Comment.Get)

	ws := app.Group("/ws", h.Realtime.RequireUpgrade)
	ws.Get("/comments", h.Realtime.Stream())
}
