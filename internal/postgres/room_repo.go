package postgres

import (
	"context"
	"errors"

	"github.com/cwrk-planet/chat-service/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const pgUniqueViolation = "23505"

type RoomRepository struct {
	db *pgxpool.Pool
}

func NewRoomRepository(db *pgxpool.Pool) *RoomRepository {
	return &RoomRepository{db: db}
}

// Create inserts the room together with its initial member rows. For
// group rooms the owner row is flagged admin. Admin state lives on the
// member row, so a member delete can never leave a dangling grant.
func (r *RoomRepository) Create(ctx context.Context, room *domain.Room) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var owner, name any
	if room.IsGroup {
		owner = room.OwnerID
	}
	if room.Name != "" {
		// direct rooms are unnamed; NULL keeps them out of the unique index
		name = room.Name
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO rooms (name, description, is_group, owner_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`,
		name, room.Description, room.IsGroup, owner,
	).Scan(&room.ID, &room.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return domain.ErrRoomExists
		}
		return err
	}

	for _, uid := range room.Members {
		isAdmin := room.IsGroup && uid == room.OwnerID
		if _, err := tx.Exec(ctx, `
			INSERT INTO room_members (room_id, user_id, is_admin)
			VALUES ($1, $2, $3)
			ON CONFLICT DO NOTHING`,
			room.ID, uid, isAdmin); err != nil {
			return err
		}
	}
	if room.IsGroup {
		room.Admins = []string{room.OwnerID}
	}

	return tx.Commit(ctx)
}

func (r *RoomRepository) Get(ctx context.Context, id string) (*domain.Room, error) {
	var (
		rm          domain.Room
		owner, name *string
	)
	err := r.db.QueryRow(ctx, `
		SELECT id, name, description, is_group, owner_id, last_message_id, created_at
		FROM rooms WHERE id=$1`, id).
		Scan(&rm.ID, &name, &rm.Description, &rm.IsGroup, &owner, &rm.LastMessageID, &rm.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrRoomNotFound
		}
		return nil, err
	}
	if name != nil {
		rm.Name = *name
	}
	if owner != nil {
		rm.OwnerID = *owner
	}

	rows, err := r.db.Query(ctx, `
		SELECT user_id, is_admin FROM room_members
		WHERE room_id=$1 ORDER BY joined_at ASC`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			uid     string
			isAdmin bool
		)
		if err := rows.Scan(&uid, &isAdmin); err != nil {
			return nil, err
		}
		rm.Members = append(rm.Members, uid)
		if isAdmin {
			rm.Admins = append(rm.Admins, uid)
		}
	}

	return &rm, rows.Err()
}

// AddMembers inserts the given users, skipping ids that are already
// members.
func (r *RoomRepository) AddMembers(ctx context.Context, roomID string, userIDs []string) error {
	for _, uid := range userIDs {
		if _, err := r.db.Exec(ctx, `
			INSERT INTO room_members (room_id, user_id)
			VALUES ($1, $2)
			ON CONFLICT DO NOTHING`, roomID, uid); err != nil {
			return err
		}
	}
	return nil
}

func (r *RoomRepository) RemoveMember(ctx context.Context, roomID, userID string) error {
	cmd, err := r.db.Exec(ctx,
		`DELETE FROM room_members WHERE room_id=$1 AND user_id=$2`, roomID, userID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotMember
	}
	return nil
}

func (r *RoomRepository) SetAdmin(ctx context.Context, roomID, userID string, admin bool) error {
	cmd, err := r.db.Exec(ctx,
		`UPDATE room_members SET is_admin=$3 WHERE room_id=$1 AND user_id=$2`,
		roomID, userID, admin)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotMember
	}
	return nil
}

func (r *RoomRepository) UpdateLastMessage(ctx context.Context, roomID, messageID string) error {
	_, err := r.db.Exec(ctx,
		`UPDATE rooms SET last_message_id=$2 WHERE id=$1`, roomID, messageID)
	return err
}

func (r *RoomRepository) ListByMember(ctx context.Context, userID string) ([]domain.Room, error) {
	rows, err := r.db.Query(ctx, `
		SELECT r.id, r.name, r.description, r.is_group, r.owner_id, r.last_message_id, r.created_at
		FROM rooms r
		JOIN room_members m ON m.room_id = r.id
		WHERE m.user_id = $1
		ORDER BY r.created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Room
	for rows.Next() {
		var (
			rm          domain.Room
			owner, name *string
		)
		if err := rows.Scan(&rm.ID, &name, &rm.Description, &rm.IsGroup, &owner, &rm.LastMessageID, &rm.CreatedAt); err != nil {
			return nil, err
		}
		if name != nil {
			rm.Name = *name
		}
		if owner != nil {
			rm.OwnerID = *owner
		}
		out = append(out, rm)
	}
	return out, rows.Err()
}
