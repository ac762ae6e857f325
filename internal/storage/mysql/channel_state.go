package mysql

import (
	"context"
	"database/sql"
	"errors"

	"reservation_ingest/internal/domain"
)

// EnsureSchema creates the channel_state table when it is missing.
func (r *Repo) EnsureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, createChannelStateSQL)
	return err
}

func (r *Repo) GetCursor(ctx context.Context, channelID string) (domain.CursorEntry, error) {
	var (
		e    domain.CursorEntry
		name sql.NullString
	)
	err := r.db.QueryRowContext(ctx, getCursorSQL, channelID).Scan(&e.ChannelID, &e.LastReadTS, &name, &e.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.CursorEntry{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.CursorEntry{}, err
	}
	e.ChannelName = name.String
	return e, nil
}

func (r *Repo) SetCursor(ctx context.Context, e domain.CursorEntry) error {
	_, err := r.db.ExecContext(ctx, setCursorSQL, e.ChannelID, e.ChannelName, e.LastReadTS, e.UpdatedAt.UTC())
	return err
}

func (r *Repo) ListCursors(ctx context.Context) ([]domain.CursorEntry, error) {
	rows, err := r.db.QueryContext(ctx, listCursorsSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.CursorEntry{}
	for rows.Next() {
		var (
			e    domain.CursorEntry
			name sql.NullString
		)
		if err := rows.Scan(&e.ChannelID, &e.LastReadTS, &name, &e.UpdatedAt); err != nil {
			return nil, err
		}
		e.ChannelName = name.String
		out = append(out, e)
	}
	return out, rows.Err()
}
