package persist

import (
	"context"
	"fmt"
	"time"
)

// StatsRepo is the write-behind sink for session statistics. Everything here
// is write-only from the simulation's perspective during live play; failures
// are the caller's to log and swallow — they never reach game state.

// ProfileDelta is an accumulated increment to a player's lifetime profile.
type ProfileDelta struct {
	PlayerName    string
	Earned        int64
	TowersBuilt   int
	GhostKills    int
	SecondsPlayed int64
}

// SessionRow is one finished play session.
type SessionRow struct {
	ID          string
	PlayerName  string
	Role        string
	Earned      int64
	TowersBuilt int
	GhostKills  int
	StartedAt   time.Time
	EndedAt     time.Time
}

// TowerRow is one placed tower's lifetime record.
type TowerRow struct {
	TowerID   string
	OwnerName string
	TowerType string
	RoomID    int
	Kills     int
}

// HighScore is one leaderboard line.
type HighScore struct {
	PlayerName string
	Earned     int64
	EndedAt    time.Time
}

type StatsRepo struct {
	db *DB
}

func NewStatsRepo(db *DB) *StatsRepo {
	return &StatsRepo{db: db}
}

// ApplyProfileDeltas upserts a batch of profile increments in one
// transaction.
func (r *StatsRepo) ApplyProfileDeltas(ctx context.Context, deltas []ProfileDelta) error {
	if len(deltas) == 0 {
		return nil
	}
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("profile begin: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, d := range deltas {
		if _, err := tx.Exec(ctx,
			`INSERT INTO player_profiles (player_name, total_earned, towers_built, ghost_kills, seconds_played, updated_at)
			 VALUES ($1, $2, $3, $4, $5, now())
			 ON CONFLICT (player_name) DO UPDATE SET
			   total_earned   = player_profiles.total_earned + EXCLUDED.total_earned,
			   towers_built   = player_profiles.towers_built + EXCLUDED.towers_built,
			   ghost_kills    = player_profiles.ghost_kills + EXCLUDED.ghost_kills,
			   seconds_played = player_profiles.seconds_played + EXCLUDED.seconds_played,
			   updated_at     = now()`,
			d.PlayerName, d.Earned, d.TowersBuilt, d.GhostKills, d.SecondsPlayed,
		); err != nil {
			return fmt.Errorf("profile upsert %s: %w", d.PlayerName, err)
		}
	}
	return tx.Commit(ctx)
}

// InsertSession records one finished session summary.
func (r *StatsRepo) InsertSession(ctx context.Context, row SessionRow) error {
	_, err := r.db.Pool.Exec(ctx,
		`INSERT INTO game_sessions (id, player_name, role, earned, towers_built, ghost_kills, started_at, ended_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		row.ID, row.PlayerName, row.Role, row.Earned, row.TowersBuilt, row.GhostKills, row.StartedAt, row.EndedAt,
	)
	if err != nil {
		return fmt.Errorf("session insert: %w", err)
	}
	return nil
}

// UpsertTowerStats records or bumps a tower's lifetime kill count.
func (r *StatsRepo) UpsertTowerStats(ctx context.Context, rows []TowerRow) error {
	if len(rows) == 0 {
		return nil
	}
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("tower begin: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, t := range rows {
		if _, err := tx.Exec(ctx,
			`INSERT INTO tower_stats (tower_id, owner_name, tower_type, room_id, kills)
			 VALUES ($1, $2, $3, $4, $5)
			 ON CONFLICT (tower_id) DO UPDATE SET
			   kills = tower_stats.kills + EXCLUDED.kills`,
			t.TowerID, t.OwnerName, t.TowerType, t.RoomID, t.Kills,
		); err != nil {
			return fmt.Errorf("tower upsert %s: %w", t.TowerID, err)
		}
	}
	return tx.Commit(ctx)
}

// TopScores returns the top-N sessions by money earned.
func (r *StatsRepo) TopScores(ctx context.Context, n int) ([]HighScore, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT player_name, earned, ended_at
		 FROM game_sessions ORDER BY earned DESC LIMIT $1`, n)
	if err != nil {
		return nil, fmt.Errorf("top scores: %w", err)
	}
	defer rows.Close()

	var out []HighScore
	for rows.Next() {
		var hs HighScore
		if err := rows.Scan(&hs.PlayerName, &hs.Earned, &hs.EndedAt); err != nil {
			return nil, fmt.Errorf("top scores scan: %w", err)
		}
		out = append(out, hs)
	}
	return out, rows.Err()
}
