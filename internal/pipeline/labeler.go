package pipeline

import (
	"context"

	"partcat/internal/classify"
	"partcat/internal/domain"
	"partcat/internal/fallback"
	"partcat/internal/taxonomy"
)

// Remote is the model-backed classifier for one batch.
type Remote interface {
	ClassifyCategories(ctx context.Context, rows []domain.Row) (map[int]string, error)
	ClassifyBodywork(ctx context.Context, rows []domain.Row) (map[int]bool, error)
}

// labeler produces the cell text for each row of a batch in one mode.
type labeler interface {
	classify(ctx context.Context, batch []domain.Row) map[int]string
	fallback(row domain.Row) string
}

type categoryLabeler struct {
	remote   Remote
	driver   classify.Driver
	keywords *fallback.Classifier
}

func (l categoryLabeler) classify(ctx context.Context, batch []domain.Row) map[int]string {
	return classify.Resilient[string](ctx, l.driver, batch, l.remote.ClassifyCategories)
}

func (l categoryLabeler) fallback(row domain.Row) string {
	return l.keywords.CategoryFor(row)
}

type bodyworkLabeler struct {
	remote   Remote
	driver   classify.Driver
	keywords *fallback.Classifier
}

func (l bodyworkLabeler) classify(ctx context.Context, batch []domain.Row) map[int]string {
	flags := classify.Resilient[bool](ctx, l.driver, batch, l.remote.ClassifyBodywork)
	out := make(map[int]string, len(flags))
	for row, v := range flags {
		out[row] = taxonomy.FormatYesNo(v)
	}
	return out
}

func (l bodyworkLabeler) fallback(row domain.Row) string {
	return taxonomy.FormatYesNo(l.keywords.BodyworkFor(row))
}
