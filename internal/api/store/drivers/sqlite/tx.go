package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/aussiebroadwan/collab/internal/api/store"
)

// ErrNestedTx is returned when Tx is called on a transaction.
var ErrNestedTx = errors.New("sqlite: nested transactions are not supported")

// txStore is a Store bound to one *sql.Tx.
type txStore struct {
	tx *sql.Tx
}

func (t *txStore) Users() store.Users                 { return &usersRepo{db: t.tx} }
func (t *txStore) RefreshTokens() store.RefreshTokens { return &refreshTokensRepo{db: t.tx} }
func (t *txStore) Projects() store.Projects           { return &projectsRepo{db: t.tx} }
func (t *txStore) Conversations() store.Conversations { return &conversationsRepo{db: t.tx} }
func (t *txStore) Messages() store.Messages           { return &messagesRepo{db: t.tx} }

func (t *txStore) Commit() error   { return t.tx.Commit() }
func (t *txStore) Rollback() error { return t.tx.Rollback() }

func (t *txStore) Tx(context.Context) (store.Tx, error) { return nil, ErrNestedTx }

// WithTx joins the open transaction; the outermost caller commits.
func (t *txStore) WithTx(_ context.Context, fn func(tx store.Tx) error) error {
	return fn(t)
}

// Schema and connection belong to the parent Store.
func (t *txStore) ApplyMigrations() error     { return nil }
func (t *txStore) Ping(context.Context) error { return nil }
func (t *txStore) Close() error               { return nil }
