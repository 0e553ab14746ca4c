// Package mastery computes the volume × accuracy × difficulty score of a
// user over a period. Scores are derived on demand and never stored.
package mastery

import (
	"context"
	"math"
	"time"

	"github.com/vytor/quizflash/internal/errors"
	"github.com/vytor/quizflash/internal/logger"
	"github.com/vytor/quizflash/internal/repository"
)

type Result struct {
	UserID        int64     `json:"user_id"`
	Start         time.Time `json:"start"`
	End           time.Time `json:"end"`
	Total         int       `json:"total"`
	Correct       int       `json:"correct"`
	Accuracy      float64   `json:"accuracy"`
	AvgDifficulty float64   `json:"avg_difficulty"`
	Score         int       `json:"score"`
	DisplayScore  int       `json:"display_score"`
}

type Scorer interface {
	Score(ctx context.Context, userID int64, start, end time.Time) (*Result, error)
}

type scorer struct {
	gateway repository.Gateway
}

func NewScorer(gateway repository.Gateway) Scorer {
	return &scorer{gateway: gateway}
}

func (s *scorer) Score(ctx context.Context, userID int64, start, end time.Time) (*Result, error) {
	log := logger.FromContext(ctx).WithPrefix("mastery")
	log.Debug("scoring user %d from %s to %s", userID, start.Format(time.RFC3339), end.Format(time.RFC3339))

	if !end.After(start) {
		return nil, errors.NewValidationError("period", "end must be after start")
	}

	stats, err := s.gateway.AnswerStats(ctx, userID, start, end)
	if err != nil {
		log.Error("failed to aggregate answers: %v", err)
		return nil, errors.NewPersistenceError("compute mastery", err)
	}

	res := &Result{
		UserID:        userID,
		Start:         start,
		End:           end,
		Total:         stats.Total,
		Correct:       stats.Correct,
		AvgDifficulty: stats.AvgDifficulty,
		Score:         Compute(stats.Total, stats.Correct, stats.AvgDifficulty),
	}
	if stats.Total > 0 {
		res.Accuracy = float64(stats.Correct) / float64(stats.Total)
	}
	res.DisplayScore = DisplayScore(res.Score)
	return res, nil
}

// Compute returns round(total × correct/total × max(1, avgDifficulty)).
func Compute(total, correct int, avgDifficulty float64) int {
	if total <= 0 {
		return 0
	}
	accuracy := float64(correct) / float64(total)
	return int(math.Round(float64(total) * accuracy * math.Max(1, avgDifficulty)))
}

// DisplayScore rounds a score to the nearest hundred.
func DisplayScore(score int) int {
	return int(math.Round(float64(score)/100) * 100)
}
