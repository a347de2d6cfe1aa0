package handler

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nightwatch/server/internal/net"
	"go.uber.org/zap"
)

const (
	defaultScoreLimit = 10
	maxScoreLimit     = 50
	scoreQueryTimeout = 5 * time.Second
)

type highScoresReq struct {
	Limit int `json:"limit"`
}

type highScoreDTO struct {
	PlayerName string `json:"playerName"`
	Earned     int64  `json:"earned"`
	EndedAt    int64  `json:"endedAt"`
}

// HandleHighScores answers a leaderboard request from the stats sink. The
// query runs off the game loop; the reply goes straight to the session's
// output queue. Without a configured database the reply is an empty list.
func HandleHighScores(sess *net.Session, raw json.RawMessage, deps *Deps) {
	var req highScoresReq
	if err := json.Unmarshal(raw, &req); err != nil {
		return
	}
	limit := req.Limit
	if limit <= 0 {
		limit = defaultScoreLimit
	}
	if limit > maxScoreLimit {
		limit = maxScoreLimit
	}

	if deps.Stats == nil {
		sess.Send("high_scores", map[string]any{"scores": []highScoreDTO{}})
		return
	}

	repo := deps.Stats
	log := deps.Log
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), scoreQueryTimeout)
		defer cancel()

		rows, err := repo.TopScores(ctx, limit)
		if err != nil {
			log.Warn("high score query failed", zap.Error(err))
			return
		}
		scores := make([]highScoreDTO, 0, len(rows))
		for _, r := range rows {
			scores = append(scores, highScoreDTO{
				PlayerName: r.PlayerName,
				Earned:     r.Earned,
				EndedAt:    r.EndedAt.UnixMilli(),
			})
		}
		sess.SendDirect("high_scores", map[string]any{"scores": scores})
	}()
}
