package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"spa-comments/internal/domain"
	"spa-comments/internal/middleware"
	"spa-comments/internal/service/comment"
)

type CommentHandler struct {
	commentService comment.Service
}

func NewCommentHandler(commentService comment.Service) *CommentHandler {
	return &CommentHandler{commentService: commentService}
}

func (h *CommentHandler) Create(c *fiber.Ctx) error {
	var input domain.CreateCommentInput
	if err := c.BodyParser(&input); err != nil {
		return middleware.InvalidBody()
	}

	view, err := h.commentService.Create(c.UserContext(), input)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(view)
}

func (h *CommentHandler) List(c *fiber.Ctx) error {
	result, err := h.commentService.GetLatest(c.UserContext(), getPaginationParams(c))
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(result)
}

func (h *CommentHandler) Get(c *fiber.Ctx) error {
	commentID, err := uuid.Parse(c.Params("commentId"))
	if err != nil {
		return domain.ErrorList{domain.Validation("commentId", "comments.id.invalid-format", "Comment id is invalid")}
	}

	view, err := h.commentService.GetByID(c.UserContext(), commentID)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(view)
}

func (h *CommentHandler) UploadAttachment(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return domain.ErrorList{domain.Validation("file", "comments.attachments.file-required", "A file is required")}
	}

	contentType := fileHeader.Header.Get(fiber.HeaderContentType)
	if err := h.commentService.CheckAttachmentMetadata(contentType, fileHeader.Size); err != nil {
		return err
	}

	file, err := fileHeader.Open()
	if err != nil {
		return middleware.BadRequest("Failed to read file")
	}
	defer file.Close()

	stored, err := h.commentService.UploadAttachment(c.UserContext(), domain.UploadAttachmentInput{
		FileName:    fileHeader.Filename,
		ContentType: contentType,
		Size:        fileHeader.Size,
		Content:     file,
	})
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(stored)
}

// getPaginationParams keeps out-of-range values so the service can reject them.
func getPaginationParams(c *fiber.Ctx) domain.PaginationParams {
	params := domain.DefaultPagination()
	params.Page = c.QueryInt("page", params.Page)
	params.PageSize = c.QueryInt("page_size", params.PageSize)
	return params
}
