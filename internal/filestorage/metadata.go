package filestorage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"spa-comments/internal/domain"
)

const filesCollection = "files"

type MetadataStore interface {
	Insert(ctx context.Context, file domain.StoredFile) error
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.StoredFile, error)
}

type fileDocument struct {
	ID          string    `bson:"_id"`
	FileName    string    `bson:"file_name"`
	ContentType string    `bson:"content_type"`
	Kind        string    `bson:"kind"`
	Size        int64     `bson:"size"`
	Width       *int      `bson:"width,omitempty"`
	Height      *int      `bson:"height,omitempty"`
	StoragePath string    `bson:"storage_path"`
	CreatedAt   time.Time `bson:"created_at"`
}

type mongoMetadataStore struct {
	coll *mongo.Collection
}

func NewMongoMetadataStore(db *mongo.Database) MetadataStore {
	return &mongoMetadataStore{coll: db.Collection(filesCollection)}
}

func (s *mongoMetadataStore) Insert(ctx context.Context, file domain.StoredFile) error {
	_, err := s.coll.InsertOne(ctx, fileDocument{
		ID:          file.ID.String(),
		FileName:    file.FileName,
		ContentType: file.ContentType,
		Kind:        string(file.Kind),
		Size:        file.Size,
		Width:       file.Width,
		Height:      file.Height,
		StoragePath: file.StoragePath,
		CreatedAt:   file.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("insert file metadata %s: %w", file.ID, err)
	}
	return nil
}

func (s *mongoMetadataStore) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.StoredFile, error) {
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, id.String())
	}

	cur, err := s.coll.Find(ctx, bson.M{"_id": bson.M{"$in": keys}})
	if err != nil {
		return nil, fmt.Errorf("find file metadata: %w", err)
	}

	var docs []fileDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("read file metadata: %w", err)
	}

	files := make([]domain.StoredFile, 0, len(docs))
	for _, doc := range docs {
		id, err := uuid.Parse(doc.ID)
		if err != nil {
			return nil, fmt.Errorf("parse file id %q: %w", doc.ID, err)
		}
		files = append(files, domain.StoredFile{
			ID:          id,
			FileName:    doc.FileName,
			ContentType: doc.ContentType,
			Kind:        domain.FileKind(doc.Kind),
			Size:        doc.Size,
			Width:       doc.Width,
			Height:      doc.Height,
			StoragePath: doc.StoragePath,
			CreatedAt:   doc.CreatedAt,
		})
	}
	return files, nil
}
