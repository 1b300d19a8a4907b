package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cwrk-planet/chat-service/internal/domain"

	"github.com/jackc/pgx/v5/pgxpool"
)

type ChatRepository struct {
	db *pgxpool.Pool
}

func NewChatRepository(db *pgxpool.Pool) *ChatRepository {
	return &ChatRepository{db: db}
}

func (r *ChatRepository) Save(ctx context.Context, m *domain.ChatMessage) error {
	atts, err := json.Marshal(attachmentsOrEmpty(m.Attachments))
	if err != nil {
		return fmt.Errorf("encode attachments: %w", err)
	}

	row := r.db.QueryRow(ctx, `
		INSERT INTO messages (room_id, sender_id, body, type, attachments, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`, m.RoomID, m.SenderID, m.Body, m.Type, atts, m.Status)

	return row.Scan(&m.ID, &m.CreatedAt)
}

// History возвращает историю сообщений комнаты с курсорной пагинацией (created_at,id DESC).
func (r *ChatRepository) History(ctx context.Context, roomID, after string, limit int) ([]domain.ChatMessage, string, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 100 {
		limit = 100
	}
	cur, err := DecodeCursor(after)
	if err != nil {
		return nil, "", fmt.Errorf("decode cursor: %w", err)
	}

	const baseQuery = `
		SELECT id, room_id, sender_id, body, type, attachments, status, created_at
		FROM messages
		WHERE room_id = $1
		  AND (
		    $2::timestamptz IS NULL
		    OR created_at < $2
		    OR (created_at = $2 AND id < $3)
		  )
		ORDER BY created_at DESC, id DESC
		LIMIT $4
	`

	var createdAt any
	var id any
	if cur != nil {
		createdAt = cur.CreatedAt
		id = cur.ID
	}

	rows, err := r.db.Query(ctx, baseQuery, roomID, createdAt, id, limit)
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()

	var out []domain.ChatMessage
	for rows.Next() {
		var (
			m    domain.ChatMessage
			atts []byte
		)
		if err := rows.Scan(&m.ID, &m.RoomID, &m.SenderID, &m.Body, &m.Type, &atts, &m.Status, &m.CreatedAt); err != nil {
			return nil, "", err
		}
		if len(atts) > 0 {
			if err := json.Unmarshal(atts, &m.Attachments); err != nil {
				return nil, "", fmt.Errorf("decode attachments: %w", err)
			}
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, "", err
	}

	var next string
	if len(out) == limit {
		last := out[len(out)-1]
		if c, e := EncodeCursor(Cursor{CreatedAt: last.CreatedAt, ID: last.ID}); e == nil {
			next = c
		}
	}
	return out, next, nil
}

func attachmentsOrEmpty(atts []domain.Attachment) []domain.Attachment {
	if atts == nil {
		return []domain.Attachment{}
	}
	return atts
}
