package retriever

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"school-api/internal/database/model"
)

type Vectorizer interface {
	Embed(ctx context.Context, inputs []string) ([][]float32, error)
}

type VectorStore interface {
	Upsert(ctx context.Context, ids []int64, vectors [][]float32) error
	Delete(ctx context.Context, ids ...int64) error
	Search(ctx context.Context, query []float32, topK int) ([]Hit, error)
}

// Index maintains and queries profile embeddings.
type Index struct {
	embedder Vectorizer
	store    VectorStore
}

func NewIndex(embedder Vectorizer, store VectorStore) *Index {
	return &Index{embedder: embedder, store: store}
}

// ProfileText is the text embedded for a profile.
func ProfileText(p model.TeacherProfile) string {
	parts := make([]string, 0, 2)
	if name := strings.TrimSpace(p.Name); name != "" {
		parts = append(parts, name)
	}
	if bio := strings.TrimSpace(p.Bio); bio != "" {
		parts = append(parts, bio)
	}
	return strings.Join(parts, "\n")
}

func (ix *Index) Index(ctx context.Context, p model.TeacherProfile) error {
	text := ProfileText(p)
	if text == "" {
		return ix.store.Delete(ctx, p.ID)
	}
	vec, err := ix.embedOne(ctx, text)
	if err != nil {
		return err
	}
	return ix.store.Upsert(ctx, []int64{p.ID}, [][]float32{vec})
}

func (ix *Index) Remove(ctx context.Context, profileID int64) error {
	return ix.store.Delete(ctx, profileID)
}

// Search returns matching profile ids, best first.
func (ix *Index) Search(ctx context.Context, query string, topK int) ([]int64, error) {
	vec, err := ix.embedOne(ctx, query)
	if err != nil {
		return nil, err
	}
	hits, err := ix.store.Search(ctx, vec, topK)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, len(hits))
	for i, h := range hits {
		ids[i] = h.ProfileID
	}
	return ids, nil
}

func (ix *Index) embedOne(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("text is empty")
	}
	vecs, err := ix.embedder.Embed(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("embed: %w", err)
	}
	if len(vecs) == 0 {
		return nil, errors.New("no embedding returned")
	}
	return vecs[0], nil
}
