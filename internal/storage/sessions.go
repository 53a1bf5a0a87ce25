package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/zonecast/synchub/internal/domain"
)

const sessionColumns = `id, name, active, playing, position, seek, volume,
	target_type, target_audio_zone_id, target_connection_id, target_output_id,
	playlist_id, quality`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(r rowScanner) (domain.Session, error) {
	var (
		s            domain.Session
		position     sql.NullInt64
		seek, volume sql.NullFloat64
		targetType   sql.NullString
		zoneID       sql.NullInt64
		connID       sql.NullString
		outputID     sql.NullString
		quality      sql.NullString
	)
	err := r.Scan(&s.ID, &s.Name, &s.Active, &s.Playing, &position, &seek, &volume,
		&targetType, &zoneID, &connID, &outputID, &s.Playlist.ID, &quality)
	if err != nil {
		return s, err
	}
	if position.Valid {
		v := int(position.Int64)
		s.Position = &v
	}
	if seek.Valid {
		s.Seek = &seek.Float64
	}
	if volume.Valid {
		s.Volume = &volume.Float64
	}
	if targetType.Valid {
		s.PlaybackTarget = &domain.PlaybackTarget{
			Type:         domain.PlaybackTargetType(targetType.String),
			AudioZoneID:  zoneID.Int64,
			ConnectionID: connID.String,
			OutputID:     outputID.String,
		}
	}
	if quality.Valid {
		s.Quality = &domain.PlaybackQuality{Format: quality.String}
	}
	return s, nil
}

func targetColumns(t *domain.PlaybackTarget) (any, any, any, any) {
	if t == nil {
		return nil, nil, nil, nil
	}
	switch t.Type {
	case domain.TargetAudioZone:
		return string(t.Type), t.AudioZoneID, nil, nil
	default:
		return string(t.Type), nil, t.ConnectionID, t.OutputID
	}
}

func (d *DB) GetSessions(ctx context.Context) ([]domain.Session, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	rows, err := d.db.QueryContext(ctx, `SELECT `+sessionColumns+` FROM sessions ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("get sessions: %w", err)
	}
	var sessions []domain.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		sessions = append(sessions, s)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range sessions {
		tracks, err := listTracks(ctx, d.db, sessions[i].Playlist.ID)
		if err != nil {
			return nil, err
		}
		sessions[i].Playlist.Tracks = tracks
	}
	return sessions, nil
}

func (d *DB) GetSession(ctx context.Context, id int64) (domain.Session, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return getSession(ctx, d.db, id)
}

func getSession(ctx context.Context, q querier, id int64) (domain.Session, error) {
	s, err := scanSession(q.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return s, ErrNotFound
	}
	if err != nil {
		return s, fmt.Errorf("get session: %w", err)
	}
	s.Playlist.Tracks, err = listTracks(ctx, q, s.Playlist.ID)
	return s, err
}

func (d *DB) CreateSession(ctx context.Context, in domain.CreateSession) (domain.Session, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var id int64
	err := d.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `INSERT INTO session_playlists DEFAULT VALUES`)
		if err != nil {
			return fmt.Errorf("create playlist: %w", err)
		}
		playlistID, err := res.LastInsertId()
		if err != nil {
			return err
		}
		if err := insertTracks(ctx, tx, playlistID, in.Playlist.Tracks); err != nil {
			return err
		}

		tt, zone, conn, out := targetColumns(in.PlaybackTarget)
		res, err = tx.ExecContext(ctx,
			`INSERT INTO sessions (name, target_type, target_audio_zone_id, target_connection_id, target_output_id, playlist_id)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			in.Name, tt, zone, conn, out, playlistID,
		)
		if err != nil {
			return fmt.Errorf("create session: %w", err)
		}
		id, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return domain.Session{}, err
	}
	return getSession(ctx, d.db, id)
}

// UpdateSession writes only the non-nil fields of in. A playlist, when
// present, replaces the stored track list.
func (d *DB) UpdateSession(ctx context.Context, in domain.UpdateSession) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	var (
		sets []string
		args []any
	)
	set := func(col string, v any) {
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}
	if in.Name != nil {
		set("name", *in.Name)
	}
	if in.Active != nil {
		set("active", *in.Active)
	}
	if in.Playing != nil {
		set("playing", *in.Playing)
	}
	if in.Position != nil {
		set("position", *in.Position)
	}
	if in.Seek != nil {
		set("seek", *in.Seek)
	}
	if in.Volume != nil {
		set("volume", *in.Volume)
	}
	if in.Quality != nil {
		set("quality", in.Quality.Format)
	}
	if in.PlaybackTarget != nil {
		tt, zone, conn, out := targetColumns(in.PlaybackTarget)
		set("target_type", tt)
		set("target_audio_zone_id", zone)
		set("target_connection_id", conn)
		set("target_output_id", out)
	}

	return d.inTx(ctx, func(tx *sql.Tx) error {
		var playlistID int64
		err := tx.QueryRowContext(ctx, `SELECT playlist_id FROM sessions WHERE id = ?`, in.SessionID).Scan(&playlistID)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("update session: %w", err)
		}

		if len(sets) > 0 {
			query := `UPDATE sessions SET ` + strings.Join(sets, ", ") + ` WHERE id = ?`
			if _, err := tx.ExecContext(ctx, query, append(args, in.SessionID)...); err != nil {
				return fmt.Errorf("update session: %w", err)
			}
		}

		if in.Playlist != nil {
			if _, err := tx.ExecContext(ctx, `DELETE FROM session_playlist_tracks WHERE playlist_id = ?`, playlistID); err != nil {
				return fmt.Errorf("clear playlist: %w", err)
			}
			if err := insertTracks(ctx, tx, playlistID, in.Playlist.Tracks); err != nil {
				return err
			}
		}
		return nil
	})
}

func (d *DB) DeleteSession(ctx context.Context, id int64) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.inTx(ctx, func(tx *sql.Tx) error {
		var playlistID int64
		err := tx.QueryRowContext(ctx, `SELECT playlist_id FROM sessions WHERE id = ?`, id).Scan(&playlistID)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("delete session: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id); err != nil {
			return fmt.Errorf("delete session: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM session_playlists WHERE id = ?`, playlistID); err != nil {
			return fmt.Errorf("delete playlist: %w", err)
		}
		return nil
	})
}

func (d *DB) GetSessionPlaylist(ctx context.Context, sessionID int64) (domain.SessionPlaylist, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var p domain.SessionPlaylist
	err := d.db.QueryRowContext(ctx, `SELECT playlist_id FROM sessions WHERE id = ?`, sessionID).Scan(&p.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return p, ErrNotFound
	}
	if err != nil {
		return p, fmt.Errorf("get session playlist: %w", err)
	}
	p.Tracks, err = listTracks(ctx, d.db, p.ID)
	return p, err
}

func insertTracks(ctx context.Context, q querier, playlistID int64, tracks []domain.PlaylistTrack) error {
	for i, t := range tracks {
		_, err := q.ExecContext(ctx,
			`INSERT INTO session_playlist_tracks (playlist_id, position, track_id, source) VALUES (?, ?, ?, ?)`,
			playlistID, i, t.ID, t.Source,
		)
		if err != nil {
			return fmt.Errorf("insert track: %w", err)
		}
	}
	return nil
}

func listTracks(ctx context.Context, q querier, playlistID int64) ([]domain.PlaylistTrack, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT track_id, source FROM session_playlist_tracks WHERE playlist_id = ? ORDER BY position`, playlistID)
	if err != nil {
		return nil, fmt.Errorf("list tracks: %w", err)
	}
	defer rows.Close()

	tracks := []domain.PlaylistTrack{}
	for rows.Next() {
		var t domain.PlaylistTrack
		if err := rows.Scan(&t.ID, &t.Source); err != nil {
			return nil, err
		}
		tracks = append(tracks, t)
	}
	return tracks, rows.Err()
}
