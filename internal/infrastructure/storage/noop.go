package storage

import (
	"context"
	"io"
)

// Noop discards documents. It keeps the permit metadata flows working in
// environments without a configured bucket (local development, CI).
type Noop struct{}

func (Noop) Put(ctx context.Context, key string, body io.Reader) error {
	_, err := io.Copy(io.Discard, body)
	return err
}

func (Noop) URL(ctx context.Context, key string) (string, error) { return "", nil }

func (Noop) Delete(ctx context.Context, key string) error { return nil }
