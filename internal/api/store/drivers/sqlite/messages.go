package sqlite

import (
	"context"

	"github.com/aussiebroadwan/collab/internal/api/domain"
)

type messagesRepo struct {
	db dbtx
}

func scanMessage(row interface{ Scan(...any) error }) (domain.Message, error) {
	var m domain.Message
	err := row.Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.Content, &m.Timestamp)
	return m, err
}

func (r *messagesRepo) CreateMessage(ctx context.Context, m domain.Message) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO messages (id, conversation_id, sender_id, content, timestamp) VALUES (?, ?, ?, ?, ?)`,
		m.ID, m.ConversationID, m.SenderID, m.Content, utc(m.Timestamp))
	return mapConstraint(err)
}

func (r *messagesRepo) GetMessage(ctx context.Context, id string) (domain.Message, error) {
	m, err := scanMessage(r.db.QueryRowContext(ctx,
		`SELECT id, conversation_id, sender_id, content, timestamp FROM messages WHERE id = ?`, id))
	if err != nil {
		return domain.Message{}, mapNotFound(err)
	}
	return m, nil
}

func (r *messagesRepo) ListMessages(ctx context.Context, conversationID string) ([]domain.Message, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, conversation_id, sender_id, content, timestamp FROM messages
		WHERE conversation_id = ?
		ORDER BY timestamp ASC, id ASC`, conversationID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []domain.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *messagesRepo) DeleteMessage(ctx context.Context, id string) error {
	return expectOne(r.db.ExecContext(ctx, `DELETE FROM messages WHERE id = ?`, id))
}
