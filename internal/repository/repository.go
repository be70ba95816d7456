package repository

import (
	"github.com/jmoiron/sqlx"
)

type Repositories struct {
	Comment CommentRepository
	Outbox  OutboxRepository
}

func NewRepositories(db *sqlx.DB) *Repositories {
	return &Repositories{
		Comment: NewCommentRepository(db),
		Outbox:  NewOutboxRepository(db),
	}
}
