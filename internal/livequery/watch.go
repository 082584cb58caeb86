package livequery

import (
	"context"

	"agency/internal/domain/repository"
)

// Result is a decoded live query state.
type Result[T any] struct {
	Items   []T
	Loading bool
	Err     error
}

// Decoder turns a stored document into a typed value.
type Decoder[T any] func(*repository.Document) (T, error)

// Watch subscribes to q and decodes every snapshot with decode. Documents that
// fail to decode are logged and left out instead of failing the subscription.
func Watch[T any](ctx context.Context, m *Manager, q repository.Query, decode Decoder[T], fn func(Result[T])) *Subscription {
	return m.Subscribe(ctx, q, func(st State) {
		fn(DecodeState(m, q, st, decode))
	})
}

// DecodeState converts a raw subscription state into a typed result.
func DecodeState[T any](m *Manager, q repository.Query, st State, decode Decoder[T]) Result[T] {
	res := Result[T]{Loading: st.Loading, Err: st.Err}
	res.Items = make([]T, 0, len(st.Documents))
	for _, doc := range st.Documents {
		item, err := decode(doc)
		if err != nil {
			m.logger.Warn("dropping undecodable document",
				"collection", q.Collection.String(),
				"id", doc.ID,
				"error", err,
			)

			continue
		}
		res.Items = append(res.Items, item)
	}

	return res
}
