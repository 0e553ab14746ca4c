package scheduler_test

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"github.com/vytor/quizflash/internal/errors"
	"github.com/vytor/quizflash/internal/locks"
	"github.com/vytor/quizflash/internal/repository"
	"github.com/vytor/quizflash/internal/scheduler"
	"github.com/vytor/quizflash/internal/testutil"
	"github.com/vytor/quizflash/internal/testutil/mocks"
)

type SchedulerSuite struct {
	suite.Suite
	store repository.Store
	sched scheduler.Scheduler
	clock time.Time
	ctx   context.Context
}

func (s *SchedulerSuite) SetupTest() {
	s.store = testutil.NewTestStore(s.T())
	s.clock = time.Now().UTC()
	s.sched = scheduler.New(s.store, locks.NewKeyedMutex(), scheduler.WithClock(func() time.Time { return s.clock }))
	s.ctx = context.Background()
}

func TestSchedulerSuite(t *testing.T) {
	suite.Run(t, new(SchedulerSuite))
}

func (s *SchedulerSuite) TestInitializeCard_Idempotent() {
	qid, _ := testutil.SeedMultipleChoice(s.T(), s.store, 1, 3.0)

	first, err := s.sched.InitializeCard(s.ctx, 1, qid)
	s.Require().NoError(err)
	s.Equal(1, first.IntervalDays)
	s.WithinDuration(s.clock.Add(24*time.Hour), first.NextReviewAt, time.Millisecond)

	s.clock = s.clock.Add(time.Hour)
	second, err := s.sched.InitializeCard(s.ctx, 1, qid)
	s.Require().NoError(err)
	s.Equal(first.ID, second.ID)
	s.WithinDuration(first.NextReviewAt, second.NextReviewAt, time.Millisecond)
}

func (s *SchedulerSuite) TestProcessReview_CreatesAndAdvancesCard() {
	qid, _ := testutil.SeedMultipleChoice(s.T(), s.store, 1, 3.0)

	card, err := s.sched.ProcessReview(s.ctx, 1, qid, 5)
	s.Require().NoError(err)
	s.Equal(1, card.Repetitions)
	s.Equal(1, card.IntervalDays)

	card, err = s.sched.ProcessReview(s.ctx, 1, qid, 5)
	s.Require().NoError(err)
	s.Equal(2, card.Repetitions)
	s.Equal(6, card.IntervalDays)

	stored, err := s.store.GetCard(s.ctx, 1, qid)
	s.Require().NoError(err)
	s.Equal(card.ID, stored.ID)
	s.Equal(6, stored.IntervalDays)
	s.InDelta(card.EaseFactor, stored.EaseFactor, 1e-9)
	s.WithinDuration(s.clock.Add(6*24*time.Hour), stored.NextReviewAt, time.Millisecond)

	card, err = s.sched.ProcessReview(s.ctx, 1, qid, 1)
	s.Require().NoError(err)
	s.Equal(0, card.Repetitions)
	s.Equal(1, card.IntervalDays)
}

func (s *SchedulerSuite) TestProcessReview_RejectsQuality() {
	_, err := s.sched.ProcessReview(s.ctx, 1, 1, 6)
	s.True(errors.IsValidation(err))
}

func (s *SchedulerSuite) TestDueAndNewCards() {
	ids := testutil.SeedQuestions(s.T(), s.store, 5, 2.0, 3.0, 4.0)
	_, err := s.sched.InitializeCard(s.ctx, 1, ids[1])
	s.Require().NoError(err)

	due, err := s.sched.DueCards(s.ctx, 1, []int64{5}, 10)
	s.Require().NoError(err)
	s.Empty(due)

	s.clock = s.clock.Add(25 * time.Hour)
	due, err = s.sched.DueCards(s.ctx, 1, []int64{5}, 10)
	s.Require().NoError(err)
	s.Require().Len(due, 1)
	s.Equal(ids[1], due[0].QuestionID)

	fresh, err := s.sched.NewCards(s.ctx, 1, []int64{5}, 10)
	s.Require().NoError(err)
	s.Require().Len(fresh, 2)
	s.Equal(ids[0], fresh[0].ID)
	s.Equal(ids[2], fresh[1].ID)
}

func TestProcessReview_PersistenceFailure(t *testing.T) {
	store := new(mocks.MockStore)
	store.On("Atomic", mock.Anything).Return(nil)
	store.On("GetCard", mock.Anything, int64(1), int64(2)).Return(nil, nil)
	store.On("UpsertCard", mock.Anything, mock.Anything).Return(int64(10), nil)
	store.On("AppendReviewLog", mock.Anything, mock.Anything).Return(int64(0), stderrors.New("disk full"))

	sched := scheduler.New(store, locks.NewKeyedMutex())
	card, err := sched.ProcessReview(context.Background(), 1, 2, 4)

	if card != nil {
		t.Fatalf("expected no card, got %+v", card)
	}
	if !errors.IsPersistence(err) {
		t.Fatalf("expected persistence error, got %v", err)
	}
	store.AssertExpectations(t)
}
