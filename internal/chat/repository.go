package chat

import (
	"context"
	"database/sql"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) CreateMessage(ctx context.Context, sender, recipient int, text string) (int, error) {
	var id int
	query := `INSERT INTO messages (sender_id, recipient_id, body) VALUES ($1, $2, $3) RETURNING id`
	err := r.db.QueryRowContext(ctx, query, sender, recipient, text).Scan(&id)
	return id, err
}

func (r *Repository) CreateFileMessage(ctx context.Context, sender, recipient int, file *FileMeta) (int, error) {
	var id int
	query := `
		INSERT INTO messages (sender_id, recipient_id, body, file_name, file_url, file_content_type, file_size)
		VALUES ($1, $2, '', $3, $4, $5, $6) RETURNING id
	`
	err := r.db.QueryRowContext(ctx, query, sender, recipient, file.Filename, file.URL, file.ContentType, file.Size).Scan(&id)
	return id, err
}

// MessagesBetween returns the full conversation between two users, oldest
// first. Backs the history endpoint.
func (r *Repository) MessagesBetween(ctx context.Context, a, b int) ([]*Message, error) {
	query := `
		SELECT id, sender_id, recipient_id, body, file_name, file_url, file_content_type, file_size, created_at
		FROM messages
		WHERE (sender_id = $1 AND recipient_id = $2) OR (sender_id = $2 AND recipient_id = $1)
		ORDER BY created_at ASC
	`
	rows, err := r.db.QueryContext(ctx, query, a, b)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []*Message
	for rows.Next() {
		msg := &Message{}
		var fileName, fileURL, fileType sql.NullString
		var fileSize sql.NullInt64
		if err := rows.Scan(&msg.ID, &msg.Sender, &msg.Recipient, &msg.Text,
			&fileName, &fileURL, &fileType, &fileSize, &msg.CreatedAt); err != nil {
			return nil, err
		}
		if fileName.Valid {
			msg.File = &FileMeta{
				Filename:    fileName.String,
				URL:         fileURL.String,
				ContentType: fileType.String,
				Size:        fileSize.Int64,
			}
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}
