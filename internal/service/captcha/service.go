package captcha

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"spa-comments/internal/domain"
)

const DefaultTTL = 5 * time.Minute

type Service interface {
	Create(ctx context.Context) (*domain.Captcha, error)
	// Validate consumes the challenge whatever the outcome. A missing or
	// expired challenge is reported as false, not as an error.
	Validate(ctx context.Context, id uuid.UUID, answer string) (bool, error)
}

type Options struct {
	TTL    time.Duration
	Length int
	// Cost is the bcrypt cost used for stored answers.
	Cost int
}

type service struct {
	store    Store
	ttl      time.Duration
	length   int
	cost     int
	generate func(length int) (string, error)
	render   func(text string) ([]byte, error)
}

func NewService(store Store, opts Options) Service {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.Length <= 0 {
		opts.Length = DefaultLength
	}
	if opts.Cost == 0 {
		opts.Cost = bcrypt.DefaultCost
	}
	return &service{
		store:    store,
		ttl:      opts.TTL,
		length:   opts.Length,
		cost:     opts.Cost,
		generate: GenerateText,
		render:   RenderPNG,
	}
}

func normalizeAnswer(answer string) string {
	return strings.ToUpper(strings.TrimSpace(answer))
}

func (s *service) Create(ctx context.Context) (*domain.Captcha, error) {
	text, err := s.generate(s.length)
	if err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(normalizeAnswer(text)), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash captcha answer: %w", err)
	}

	img, err := s.render(text)
	if err != nil {
		return nil, err
	}

	id := uuid.New()
	if err := s.store.Save(ctx, id, hash, s.ttl); err != nil {
		return nil, err
	}

	return &domain.Captcha{ID: id, Image: img, ContentType: "image/png"}, nil
}

func (s *service) Validate(ctx context.Context, id uuid.UUID, answer string) (bool, error) {
	if id == uuid.Nil {
		return false, nil
	}

	hash, ok, err := s.store.Take(ctx, id)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}

	normalized := normalizeAnswer(answer)
	if normalized == "" {
		return false, nil
	}
	return bcrypt.CompareHashAndPassword(hash, []byte(normalized)) == nil, nil
}
