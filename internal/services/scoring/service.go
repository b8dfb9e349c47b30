package scoring

import (
	"math"
	"sort"

	"github.com/mcoot/trivia-go/internal/model"
)

// DefaultPointsPerCorrect is awarded for each correct answer
const DefaultPointsPerCorrect = 10

// Service computes round evaluations and final rankings.
// It holds no mutable state and works only on snapshots.
type Service struct {
	pointsPerCorrect int
}

// New creates a new ScoringService
func New(pointsPerCorrect int) *Service {
	return &Service{
		pointsPerCorrect: pointsPerCorrect,
	}
}

// PointsPerCorrect returns the configured award for a correct answer
func (s *Service) PointsPerCorrect() int {
	return s.pointsPerCorrect
}

// Evaluate scores one round for every player in the snapshot.
// A player is correct only if their stored answer equals correct exactly;
// unanswered and wrong slots earn nothing.
func (s *Service) Evaluate(players []model.Player, round int, correct model.Letter) []model.Evaluation {
	evals := make([]model.Evaluation, 0, len(players))
	for _, p := range players {
		letter := p.AnswerFor(round)
		isCorrect := letter != model.Unanswered && letter == correct

		eval := model.Evaluation{
			ConnID:          p.ConnID,
			Name:            p.Name,
			Letter:          letter,
			IsCorrect:       isCorrect,
			NewScore:        p.Score,
			NewCorrectCount: p.CorrectCount,
		}
		if isCorrect {
			eval.NewScore += s.pointsPerCorrect
			eval.NewCorrectCount++
		}
		evals = append(evals, eval)
	}
	return evals
}

// Rank orders players by score descending. Equal scores keep join order.
func (s *Service) Rank(players []model.Player, totalRounds int) []model.Standing {
	sorted := make([]model.Player, len(players))
	copy(sorted, players)

	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].JoinSeq < sorted[j].JoinSeq
	})
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Score > sorted[j].Score
	})

	standings := make([]model.Standing, 0, len(sorted))
	for i, p := range sorted {
		standings = append(standings, model.Standing{
			Rank:         i + 1,
			Name:         p.Name,
			Score:        p.Score,
			CorrectCount: p.CorrectCount,
			Accuracy:     Accuracy(p.CorrectCount, totalRounds),
		})
	}
	return standings
}

// Accuracy returns correct/total as a percentage rounded to one decimal,
// half away from zero. Zero rounds yields zero.
func Accuracy(correct, totalRounds int) float64 {
	if totalRounds <= 0 {
		return 0
	}
	pct := float64(correct) * 100 / float64(totalRounds)
	return math.Round(pct*10) / 10
}

// Interface for dependency injection
type ServiceInterface interface {
	Evaluate(players []model.Player, round int, correct model.Letter) []model.Evaluation
	Rank(players []model.Player, totalRounds int) []model.Standing
	PointsPerCorrect() int
}

var _ ServiceInterface = (*Service)(nil)
