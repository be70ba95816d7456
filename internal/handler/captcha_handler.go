package handler

import (
	"encoding/base64"

	"github.com/gofiber/fiber/v2"

	"spa-comments/internal/service/captcha"
)

const HeaderCaptchaID = "X-Captcha-Id"

type CaptchaHandler struct {
	captchaService captcha.Service
}

func NewCaptchaHandler(captchaService captcha.Service) *CaptchaHandler {
	return &CaptchaHandler{captchaService: captchaService}
}

type CaptchaResponse struct {
	CaptchaID   string `json:"captcha_id"`
	ImageBase64 string `json:"image_base64"`
	ContentType string `json:"content_type"`
}

func (h *CaptchaHandler) Create(c *fiber.Ctx) error {
	challenge, err := h.captchaService.Create(c.UserContext())
	if err != nil {
		return err
	}

	c.Set(fiber.HeaderCacheControl, "no-store")
	c.Set(HeaderCaptchaID, challenge.ID.String())

	if c.Query("format") == "json" {
		return c.JSON(CaptchaResponse{
			CaptchaID:   challenge.ID.String(),
			ImageBase64: base64.StdEncoding.EncodeToString(challenge.Image),
			ContentType: challenge.ContentType,
		})
	}

	c.Set(fiber.HeaderContentType, challenge.ContentType)
	return c.Send(challenge.Image)
}
