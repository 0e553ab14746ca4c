package selector_test

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"github.com/vytor/quizflash/internal/locks"
	"github.com/vytor/quizflash/internal/models"
	"github.com/vytor/quizflash/internal/repository"
	"github.com/vytor/quizflash/internal/scheduler"
	"github.com/vytor/quizflash/internal/selector"
	"github.com/vytor/quizflash/internal/testutil"
)

func TestNextTarget(t *testing.T) {
	assert.Equal(t, 3.5, selector.NextTarget(3.0, true))
	assert.Equal(t, 2.5, selector.NextTarget(3.0, false))
	assert.Equal(t, 5.0, selector.NextTarget(4.8, true))
	assert.Equal(t, 1.0, selector.NextTarget(1.2, false))
}

func TestSplitTarget(t *testing.T) {
	tests := []struct {
		target, due, fresh int
	}{
		{10, 7, 3},
		{5, 4, 1},
		{1, 1, 0},
		{3, 2, 1},
	}
	for _, tt := range tests {
		due, fresh := selector.SplitTarget(tt.target)
		assert.Equal(t, tt.due, due, "target %d", tt.target)
		assert.Equal(t, tt.fresh, fresh, "target %d", tt.target)
	}
}

type SelectorSuite struct {
	suite.Suite
	store repository.Store
	sched scheduler.Scheduler
	sel   selector.Selector
	clock time.Time
	ctx   context.Context
}

func (s *SelectorSuite) SetupTest() {
	s.store = testutil.NewTestStore(s.T())
	s.clock = time.Now().UTC()
	now := func() time.Time { return s.clock }
	s.sched = scheduler.New(s.store, locks.NewKeyedMutex(), scheduler.WithClock(now))
	s.sel = selector.New(s.store, s.sched, selector.WithClock(now), selector.WithRand(rand.New(rand.NewSource(1))))
	s.ctx = context.Background()
}

func TestSelectorSuite(t *testing.T) {
	suite.Run(t, new(SelectorSuite))
}

func (s *SelectorSuite) session(mode models.Mode, target int, categories ...int64) *models.QuizSession {
	return &models.QuizSession{
		ID:          "s",
		UserID:      1,
		Mode:        mode,
		Categories:  categories,
		TargetCount: target,
		State:       models.StateInitializing,
	}
}

func (s *SelectorSuite) markSeen(questionID int64, index int, at time.Time) {
	_, err := s.store.AppendAnswerLog(s.ctx, models.AnswerLog{
		UserID: 1, SessionID: "earlier", QuestionIndex: index, QuestionID: questionID,
		IsCorrect: true, Mode: models.ModeAdaptive, CreatedAt: at,
	})
	s.Require().NoError(err)
}

func (s *SelectorSuite) TestQuick_FixedCountFromCategories() {
	testutil.SeedQuestions(s.T(), s.store, 1, 1, 2, 3, 4, 5, 1.5, 2.5, 3.5, 4.5, 2.2, 3.3, 4.4)
	testutil.SeedQuestions(s.T(), s.store, 2, 3, 3, 3)

	qs, err := s.sel.Initial(s.ctx, s.session(models.ModeQuick, 25, 1))
	s.Require().NoError(err)
	s.Len(qs, selector.QuickCount)
	for _, q := range qs {
		s.Equal(int64(1), q.CategoryID)
	}
}

func (s *SelectorSuite) TestTest_StaticBand() {
	testutil.SeedQuestions(s.T(), s.store, 1, 1.0, 2.0, 3.0, 4.0, 5.0)

	session := s.session(models.ModeTest, 10, 1)
	session.Band = models.BandHard
	qs, err := s.sel.Initial(s.ctx, session)
	s.Require().NoError(err)
	s.Len(qs, 2)
	for _, q := range qs {
		s.Equal(models.BandHard, q.Band())
	}
}

func (s *SelectorSuite) TestAdaptive_StartsWithEasiestUnseen() {
	ids := testutil.SeedQuestions(s.T(), s.store, 1, 3.0, 1.0, 2.0)
	s.markSeen(ids[1], 0, s.clock.Add(-time.Hour))

	qs, err := s.sel.Initial(s.ctx, s.session(models.ModeAdaptive, 5, 1))
	s.Require().NoError(err)
	s.Require().Len(qs, 1)
	s.Equal(ids[2], qs[0].ID)
}

func (s *SelectorSuite) TestAdaptive_NextClosestToTarget() {
	ids := testutil.SeedQuestions(s.T(), s.store, 1, 3.0, 3.4, 3.7, 2.0, 4.2)
	testutil.SeedQuestions(s.T(), s.store, 2, 3.5)

	session := s.session(models.ModeAdaptive, 5, 1)
	session.Questions = []models.SessionQuestion{{QuestionID: ids[0], Difficulty: 3.0, Answered: true, Correct: true}}

	next, err := s.sel.Next(s.ctx, session, true)
	s.Require().NoError(err)
	s.Require().NotNil(next)
	s.Equal(ids[1], next.ID)

	// answered within the window, so no longer eligible
	s.markSeen(ids[1], 0, s.clock.Add(-time.Hour))
	next, err = s.sel.Next(s.ctx, session, true)
	s.Require().NoError(err)
	s.Equal(ids[2], next.ID)

	next, err = s.sel.Next(s.ctx, session, false)
	s.Require().NoError(err)
	s.Equal(ids[3], next.ID)
}

func (s *SelectorSuite) TestAdaptive_SeenLongAgoIsEligible() {
	ids := testutil.SeedQuestions(s.T(), s.store, 1, 3.0, 3.5)
	s.markSeen(ids[1], 0, s.clock.Add(-48*time.Hour))

	session := s.session(models.ModeAdaptive, 5, 1)
	session.Questions = []models.SessionQuestion{{QuestionID: ids[0], Difficulty: 3.0}}

	next, err := s.sel.Next(s.ctx, session, true)
	s.Require().NoError(err)
	s.Require().NotNil(next)
	s.Equal(ids[1], next.ID)
}

func (s *SelectorSuite) TestAdaptive_PoolExhausted() {
	ids := testutil.SeedQuestions(s.T(), s.store, 1, 3.0)

	session := s.session(models.ModeAdaptive, 5, 1)
	session.Questions = []models.SessionQuestion{{QuestionID: ids[0], Difficulty: 3.0}}

	next, err := s.sel.Next(s.ctx, session, true)
	s.NoError(err)
	s.Nil(next)
}

func (s *SelectorSuite) TestNext_OnlyAdaptive() {
	ids := testutil.SeedQuestions(s.T(), s.store, 1, 3.0, 3.5)
	session := s.session(models.ModeQuick, 10, 1)
	session.Questions = []models.SessionQuestion{{QuestionID: ids[0], Difficulty: 3.0}}

	next, err := s.sel.Next(s.ctx, session, true)
	s.NoError(err)
	s.Nil(next)
}

func (s *SelectorSuite) TestSpacedRepetition_DueShortfallMovesToNew() {
	ids := testutil.SeedQuestions(s.T(), s.store, 5,
		1.0, 1.2, 1.4, 1.6, 1.8, 2.0, 2.2, 2.4, 2.6, 2.8, 3.0, 3.2,
		3.4, 3.6, 3.8, 4.0, 4.2, 4.4, 4.6, 4.8, 5.0, 5.0, 5.0, 5.0)
	due := map[int64]bool{}
	for _, id := range ids[20:] {
		_, err := s.sched.InitializeCard(s.ctx, 1, id)
		s.Require().NoError(err)
		due[id] = true
	}
	s.clock = s.clock.Add(2 * 24 * time.Hour)

	qs, err := s.sel.Initial(s.ctx, s.session(models.ModeSpacedRepetition, 10, 5))
	s.Require().NoError(err)
	s.Require().Len(qs, 10)

	seen := map[int64]bool{}
	dueCount := 0
	for _, q := range qs {
		s.False(seen[q.ID], "question %d selected twice", q.ID)
		seen[q.ID] = true
		if due[q.ID] {
			dueCount++
		}
	}
	s.Equal(4, dueCount)
	// new cards come easiest first
	for _, id := range ids[:6] {
		s.True(seen[id], "expected new question %d", id)
	}
}

// newCardsSpy records the limits NewCards is called with.
type newCardsSpy struct {
	scheduler.Scheduler
	limits []int
}

func (n *newCardsSpy) NewCards(ctx context.Context, userID int64, categories []int64, limit int) ([]models.Question, error) {
	n.limits = append(n.limits, limit)
	return n.Scheduler.NewCards(ctx, userID, categories, limit)
}

func (s *SelectorSuite) TestSpacedRepetition_SingleSlotSkipsNewCards() {
	ids := testutil.SeedQuestions(s.T(), s.store, 1, 1.0, 2.0, 3.0, 4.0)
	_, err := s.sched.InitializeCard(s.ctx, 1, ids[2])
	s.Require().NoError(err)
	s.clock = s.clock.Add(48 * time.Hour)

	spy := &newCardsSpy{Scheduler: s.sched}
	sel := selector.New(s.store, spy, selector.WithClock(func() time.Time { return s.clock }))

	questions, err := sel.Initial(s.ctx, s.session(models.ModeSpacedRepetition, 1, 1))
	s.Require().NoError(err)
	s.Require().Len(questions, 1)
	s.Equal(ids[2], questions[0].ID)
	s.Empty(spy.limits)
}

func (s *SelectorSuite) TestSpacedRepetition_NewShortfallMovesToDue() {
	ids := testutil.SeedQuestions(s.T(), s.store, 5, 1, 2, 3, 4, 5, 1, 2, 3, 4, 5)
	for _, id := range ids[:9] {
		_, err := s.sched.InitializeCard(s.ctx, 1, id)
		s.Require().NoError(err)
	}
	s.clock = s.clock.Add(2 * 24 * time.Hour)

	qs, err := s.sel.Initial(s.ctx, s.session(models.ModeSpacedRepetition, 10, 5))
	s.Require().NoError(err)
	s.Len(qs, 10)
}

func (s *SelectorSuite) TestSpacedRepetition_ColdHistoryFillsFromPool() {
	testutil.SeedQuestions(s.T(), s.store, 5, 1, 2, 3)

	qs, err := s.sel.Initial(s.ctx, s.session(models.ModeSpacedRepetition, 10, 5))
	s.Require().NoError(err)
	s.Len(qs, 3)
}

func (s *SelectorSuite) TestEmptyPool() {
	for _, mode := range []models.Mode{models.ModeQuick, models.ModeTest, models.ModeAdaptive, models.ModeSpacedRepetition} {
		qs, err := s.sel.Initial(s.ctx, s.session(mode, 10, 42))
		s.NoError(err, "mode %s", mode)
		s.Empty(qs, "mode %s", mode)
	}
}
