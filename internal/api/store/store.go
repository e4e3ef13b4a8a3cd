package store

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/collab/internal/api/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers implement this.
// It exposes sub-repositories to keep concerns tidy and testable, and so a
// transaction can't accidentally be started inside another one.
type Store interface {
	Users() Users
	RefreshTokens() RefreshTokens
	Projects() Projects
	Conversations() Conversations
	Messages() Messages

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes a function within a transaction. If fn returns an
	// error the transaction is rolled back, otherwise it is committed.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByUsername is used during password login.
	GetUserByUsername(ctx context.Context, username string) (domain.User, error)

	// GetUserByEmail is used by the external identity exchange. Emails are
	// compared lower-cased.
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	// CreateUser inserts a new user. Returns ErrAlreadyExists when the
	// username or email is taken.
	CreateUser(ctx context.Context, u domain.User) error

	CountUsers(ctx context.Context) (int, error)
}

type RefreshTokens interface {
	CreateRefreshToken(ctx context.Context, t domain.RefreshToken) error

	// GetRefreshTokenByHash returns the record by its jti fingerprint.
	GetRefreshTokenByHash(ctx context.Context, hash string) (domain.RefreshToken, error)

	// RevokeRefreshToken flips revoked=1 and bumps updated_at. Returns
	// ErrNotFound if no live record matched, so of two concurrent rotations
	// only one succeeds.
	RevokeRefreshToken(ctx context.Context, hash string) error

	// RevokeAllUserRefreshTokens is used when a revoked token is replayed.
	RevokeAllUserRefreshTokens(ctx context.Context, userID string) error

	// DeleteExpiredRefreshTokens is housekeeping; returns rows removed.
	DeleteExpiredRefreshTokens(ctx context.Context, now time.Time) (int64, error)
}

type Projects interface {
	CreateProject(ctx context.Context, p domain.Project) error
	GetProject(ctx context.Context, id string) (domain.Project, error)

	// ListProjects returns every project, newest first.
	ListProjects(ctx context.Context) ([]domain.Project, error)

	// UpdateProject replaces the mutable fields; creator and created_at are
	// never touched.
	UpdateProject(ctx context.Context, p domain.Project) error

	DeleteProject(ctx context.Context, id string) error
}

type Conversations interface {
	// CreateConversation returns ErrAlreadyExists if the pair already talks.
	CreateConversation(ctx context.Context, c domain.Conversation) error
	GetConversation(ctx context.Context, id string) (domain.Conversation, error)
	GetConversationByPair(ctx context.Context, userA, userB string) (domain.Conversation, error)

	// ListConversationsForUser returns conversations userID takes part in.
	ListConversationsForUser(ctx context.Context, userID string) ([]domain.Conversation, error)
}

type Messages interface {
	CreateMessage(ctx context.Context, m domain.Message) error
	GetMessage(ctx context.Context, id string) (domain.Message, error)

	// ListMessages returns messages of a conversation oldest first.
	ListMessages(ctx context.Context, conversationID string) ([]domain.Message, error)

	DeleteMessage(ctx context.Context, id string) error
}
