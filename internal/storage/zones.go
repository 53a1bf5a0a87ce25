package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/zonecast/synchub/internal/domain"
)

const zonePlayersQuery = `SELECT p.id, p.connection_id, p.name, p.audio_output_id, p.created_at, p.updated_at
	FROM audio_zone_players zp JOIN players p ON p.id = zp.player_id
	WHERE zp.audio_zone_id = ? ORDER BY p.id`

func (d *DB) GetAudioZones(ctx context.Context) ([]domain.AudioZone, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	rows, err := d.db.QueryContext(ctx, `SELECT id, name FROM audio_zones ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("get audio zones: %w", err)
	}
	var zones []domain.AudioZone
	for rows.Next() {
		var z domain.AudioZone
		if err := rows.Scan(&z.ID, &z.Name); err != nil {
			rows.Close()
			return nil, err
		}
		zones = append(zones, z)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range zones {
		zones[i].Players, err = listPlayers(ctx, d.db, zonePlayersQuery, zones[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return zones, nil
}

func (d *DB) GetAudioZone(ctx context.Context, id int64) (domain.AudioZone, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return getAudioZone(ctx, d.db, id)
}

func getAudioZone(ctx context.Context, q querier, id int64) (domain.AudioZone, error) {
	var z domain.AudioZone
	err := q.QueryRowContext(ctx, `SELECT id, name FROM audio_zones WHERE id = ?`, id).Scan(&z.ID, &z.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return z, ErrNotFound
	}
	if err != nil {
		return z, fmt.Errorf("get audio zone: %w", err)
	}
	z.Players, err = listPlayers(ctx, q, zonePlayersQuery, id)
	return z, err
}

func (d *DB) CreateAudioZone(ctx context.Context, in domain.CreateAudioZone) (domain.AudioZone, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var id int64
	err := d.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `INSERT INTO audio_zones (name) VALUES (?)`, in.Name)
		if err != nil {
			return fmt.Errorf("create audio zone: %w", err)
		}
		if id, err = res.LastInsertId(); err != nil {
			return err
		}
		return setZonePlayers(ctx, tx, id, in.Players)
	})
	if err != nil {
		return domain.AudioZone{}, err
	}
	return getAudioZone(ctx, d.db, id)
}

// UpdateAudioZone renames the zone and, when Players is non-nil, replaces its members.
func (d *DB) UpdateAudioZone(ctx context.Context, in domain.UpdateAudioZone) (domain.AudioZone, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	err := d.inTx(ctx, func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM audio_zones WHERE id = ?`, in.ID).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("update audio zone: %w", err)
		}
		if in.Name != nil {
			if _, err := tx.ExecContext(ctx, `UPDATE audio_zones SET name = ? WHERE id = ?`, *in.Name, in.ID); err != nil {
				return fmt.Errorf("rename audio zone: %w", err)
			}
		}
		if in.Players != nil {
			if _, err := tx.ExecContext(ctx, `DELETE FROM audio_zone_players WHERE audio_zone_id = ?`, in.ID); err != nil {
				return fmt.Errorf("clear zone players: %w", err)
			}
			return setZonePlayers(ctx, tx, in.ID, in.Players)
		}
		return nil
	})
	if err != nil {
		return domain.AudioZone{}, err
	}
	return getAudioZone(ctx, d.db, in.ID)
}

func (d *DB) DeleteAudioZone(ctx context.Context, id int64) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	res, err := d.db.ExecContext(ctx, `DELETE FROM audio_zones WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete audio zone: %w", err)
	}
	return requireAffected(res)
}

func (d *DB) GetAudioZonePlayers(ctx context.Context, id int64) ([]domain.Player, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return listPlayers(ctx, d.db, zonePlayersQuery, id)
}

// GetAudioZonesWithSessions returns one entry per session targeting a zone.
func (d *DB) GetAudioZonesWithSessions(ctx context.Context) ([]domain.AudioZoneWithSession, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	rows, err := d.db.QueryContext(ctx,
		`SELECT z.id, s.id, z.name FROM sessions s
		 JOIN audio_zones z ON z.id = s.target_audio_zone_id
		 WHERE s.target_type = ? ORDER BY z.id, s.id`, string(domain.TargetAudioZone))
	if err != nil {
		return nil, fmt.Errorf("get zones with sessions: %w", err)
	}
	var out []domain.AudioZoneWithSession
	for rows.Next() {
		var z domain.AudioZoneWithSession
		if err := rows.Scan(&z.ID, &z.SessionID, &z.Name); err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, z)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range out {
		out[i].Players, err = listPlayers(ctx, d.db, zonePlayersQuery, out[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

func setZonePlayers(ctx context.Context, tx *sql.Tx, zoneID int64, players []int64) error {
	for _, pid := range players {
		_, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO audio_zone_players (audio_zone_id, player_id) VALUES (?, ?)`, zoneID, pid)
		if err != nil {
			return fmt.Errorf("add zone player %d: %w", pid, err)
		}
	}
	return nil
}
