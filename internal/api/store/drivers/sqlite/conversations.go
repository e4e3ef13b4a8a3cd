package sqlite

import (
	"context"

	"github.com/aussiebroadwan/collab/internal/api/domain"
)

type conversationsRepo struct {
	db dbtx
}

func scanConversation(row interface{ Scan(...any) error }) (domain.Conversation, error) {
	var c domain.Conversation
	err := row.Scan(&c.ID, &c.User1ID, &c.User2ID, &c.CreatedAt)
	return c, err
}

func (r *conversationsRepo) CreateConversation(ctx context.Context, c domain.Conversation) error {
	u1, u2 := domain.OrderedPair(c.User1ID, c.User2ID)
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO conversations (id, user1_id, user2_id, created_at) VALUES (?, ?, ?, ?)`,
		c.ID, u1, u2, utc(c.CreatedAt))
	return mapConstraint(err)
}

func (r *conversationsRepo) GetConversation(ctx context.Context, id string) (domain.Conversation, error) {
	c, err := scanConversation(r.db.QueryRowContext(ctx,
		`SELECT id, user1_id, user2_id, created_at FROM conversations WHERE id = ?`, id))
	if err != nil {
		return domain.Conversation{}, mapNotFound(err)
	}
	return c, nil
}

func (r *conversationsRepo) GetConversationByPair(ctx context.Context, userA, userB string) (domain.Conversation, error) {
	u1, u2 := domain.OrderedPair(userA, userB)
	c, err := scanConversation(r.db.QueryRowContext(ctx,
		`SELECT id, user1_id, user2_id, created_at FROM conversations WHERE user1_id = ? AND user2_id = ?`,
		u1, u2))
	if err != nil {
		return domain.Conversation{}, mapNotFound(err)
	}
	return c, nil
}

func (r *conversationsRepo) ListConversationsForUser(ctx context.Context, userID string) ([]domain.Conversation, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user1_id, user2_id, created_at FROM conversations
		WHERE user1_id = ? OR user2_id = ?
		ORDER BY created_at DESC, id DESC`, userID, userID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []domain.Conversation
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
