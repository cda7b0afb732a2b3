package core

import "context"

// Source is the part of an account (local database or remote server) that
// the dispatch engine itself needs: an identity and a last-error slot.
// Business operations are defined by the layers that build job bodies.
//
// Implementations must make SetLastError and LastError safe for concurrent
// use: several jobs may run against the same source at once.
type Source interface {
	ID() uint64
	LastError() string
	SetLastError(msg string)
}

// SourceResolver looks up a source by id at the moment a job starts.
// It returns ErrSourceNotFound (possibly wrapped) when the id is unknown.
type SourceResolver interface {
	GetSource(ctx context.Context, id uint64) (Source, error)
}

// SourceResolverFunc adapts an ordinary function to SourceResolver.
type SourceResolverFunc func(ctx context.Context, id uint64) (Source, error)

// GetSource calls f(ctx, id).
func (f SourceResolverFunc) GetSource(ctx context.Context, id uint64) (Source, error) {
	return f(ctx, id)
}
