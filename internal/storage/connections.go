package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/zonecast/synchub/internal/domain"
)

func (d *DB) GetConnections(ctx context.Context) ([]domain.Connection, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	rows, err := d.db.QueryContext(ctx, `SELECT id, name, created_at, updated_at FROM connections ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("get connections: %w", err)
	}
	var conns []domain.Connection
	for rows.Next() {
		var c domain.Connection
		if err := rows.Scan(&c.ID, &c.Name, &c.Created, &c.Updated); err != nil {
			rows.Close()
			return nil, err
		}
		conns = append(conns, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	players, err := listPlayers(ctx, d.db, `SELECT id, connection_id, name, audio_output_id, created_at, updated_at FROM players ORDER BY id`)
	if err != nil {
		return nil, err
	}
	byConn := make(map[string][]domain.Player)
	for _, p := range players {
		byConn[p.ConnectionID] = append(byConn[p.ConnectionID], p)
	}
	for i := range conns {
		conns[i].Players = byConn[conns[i].ID]
	}
	return conns, nil
}

// RegisterConnection upserts the connection and each of its players.
func (d *DB) RegisterConnection(ctx context.Context, in domain.RegisterConnection) (domain.Connection, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	err := d.inTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO connections (id, name) VALUES (?, ?)
			 ON CONFLICT(id) DO UPDATE SET name = excluded.name, updated_at = CURRENT_TIMESTAMP`,
			in.ConnectionID, in.Name,
		)
		if err != nil {
			return fmt.Errorf("upsert connection: %w", err)
		}
		for _, p := range in.Players {
			if _, err := upsertPlayer(ctx, tx, in.ConnectionID, p); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return domain.Connection{}, err
	}
	return getConnection(ctx, d.db, in.ConnectionID)
}

func (d *DB) CreatePlayer(ctx context.Context, connectionID string, in domain.RegisterPlayer) (domain.Player, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var exists int
	err := d.db.QueryRowContext(ctx, `SELECT 1 FROM connections WHERE id = ?`, connectionID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Player{}, fmt.Errorf("connection %q: %w", connectionID, ErrNotFound)
	}
	if err != nil {
		return domain.Player{}, fmt.Errorf("create player: %w", err)
	}
	return upsertPlayer(ctx, d.db, connectionID, in)
}

func upsertPlayer(ctx context.Context, q querier, connectionID string, in domain.RegisterPlayer) (domain.Player, error) {
	_, err := q.ExecContext(ctx,
		`INSERT INTO players (connection_id, name, audio_output_id) VALUES (?, ?, ?)
		 ON CONFLICT(connection_id, audio_output_id) DO UPDATE SET name = excluded.name, updated_at = CURRENT_TIMESTAMP`,
		connectionID, in.Name, in.AudioOutputID,
	)
	if err != nil {
		return domain.Player{}, fmt.Errorf("upsert player: %w", err)
	}
	var p domain.Player
	err = q.QueryRowContext(ctx,
		`SELECT id, connection_id, name, audio_output_id, created_at, updated_at
		 FROM players WHERE connection_id = ? AND audio_output_id = ?`,
		connectionID, in.AudioOutputID,
	).Scan(&p.ID, &p.ConnectionID, &p.Name, &p.AudioOutputID, &p.Created, &p.Updated)
	if err != nil {
		return domain.Player{}, fmt.Errorf("read player: %w", err)
	}
	return p, nil
}

func getConnection(ctx context.Context, q querier, id string) (domain.Connection, error) {
	var c domain.Connection
	err := q.QueryRowContext(ctx, `SELECT id, name, created_at, updated_at FROM connections WHERE id = ?`, id).
		Scan(&c.ID, &c.Name, &c.Created, &c.Updated)
	if errors.Is(err, sql.ErrNoRows) {
		return c, ErrNotFound
	}
	if err != nil {
		return c, fmt.Errorf("get connection: %w", err)
	}
	c.Players, err = listPlayers(ctx, q,
		`SELECT id, connection_id, name, audio_output_id, created_at, updated_at FROM players WHERE connection_id = ? ORDER BY id`, id)
	return c, err
}

func listPlayers(ctx context.Context, q querier, query string, args ...any) ([]domain.Player, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}
	defer rows.Close()

	var players []domain.Player
	for rows.Next() {
		var p domain.Player
		if err := rows.Scan(&p.ID, &p.ConnectionID, &p.Name, &p.AudioOutputID, &p.Created, &p.Updated); err != nil {
			return nil, err
		}
		players = append(players, p)
	}
	return players, rows.Err()
}
