package handler

import (
	"github.com/gofiber/fiber/v2"

	"spa-comments/internal/domain"
	"spa-comments/internal/middleware"
	"spa-comments/internal/service/search"
)

type SearchHandler struct {
	searchService search.Service
}

func NewSearchHandler(searchService search.Service) *SearchHandler {
	return &SearchHandler{searchService: searchService}
}

func (h *SearchHandler) Search(c *fiber.Ctx) error {
	defaults := domain.DefaultPagination()
	query := domain.SearchQuery{
		Page:     defaults.Page,
		PageSize: defaults.PageSize,
		SortDesc: true,
	}
	if err := c.QueryParser(&query); err != nil {
		return middleware.BadRequest("Invalid query parameters")
	}

	result, err := h.searchService.Search(c.UserContext(), query)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(result)
}
