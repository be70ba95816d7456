package domain

import "github.com/google/uuid"

type Captcha struct {
	ID          uuid.UUID
	Image       []byte
	ContentType string
}
