// Package housekeeping runs periodic maintenance on a cron schedule: meetings
// whose start time has passed are marked completed and expired sessions are
// swept.
package housekeeping

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/adhocore/gronx"

	"github.com/tinyland-inc/botper/pkg/logger"
	"github.com/tinyland-inc/botper/pkg/session"
	"github.com/tinyland-inc/botper/pkg/store"
)

var ErrInvalidSchedule = errors.New("invalid cron schedule")

type Service struct {
	schedule string
	meetings store.MeetingStore
	sessions []*session.Store
	now      func() time.Time
	after    func(time.Duration) <-chan time.Time
}

type Option func(*Service)

// WithSessions adds session stores to sweep on every run.
func WithSessions(stores ...*session.Store) Option {
	return func(s *Service) { s.sessions = append(s.sessions, stores...) }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func withAfter(after func(time.Duration) <-chan time.Time) Option {
	return func(s *Service) { s.after = after }
}

func NewService(schedule string, meetings store.MeetingStore, opts ...Option) (*Service, error) {
	if !gronx.New().IsValid(schedule) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSchedule, schedule)
	}
	s := &Service{
		schedule: schedule,
		meetings: meetings,
		now:      time.Now,
		after:    time.After,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Result is what one run changed.
type Result struct {
	MeetingsCompleted int64
	SessionsSwept     int
}

// RunOnce performs a single maintenance pass.
func (s *Service) RunOnce(ctx context.Context) (Result, error) {
	now := s.now()
	var res Result
	for _, st := range s.sessions {
		res.SessionsSwept += st.Sweep(now)
	}
	if s.meetings == nil {
		return res, nil
	}
	n, err := s.meetings.CompletePastMeetings(ctx, now)
	if err != nil {
		return res, fmt.Errorf("complete past meetings: %w", err)
	}
	res.MeetingsCompleted = n
	return res, nil
}

// Run blocks until ctx is done, running a pass at every schedule tick.
func (s *Service) Run(ctx context.Context) error {
	logger.InfoCF("housekeeping", "Housekeeping started", map[string]any{"schedule": s.schedule})
	for {
		now := s.now()
		next, err := gronx.NextTickAfter(s.schedule, now, false)
		if err != nil {
			return fmt.Errorf("next tick for %q: %w", s.schedule, err)
		}

		select {
		case <-ctx.Done():
			logger.InfoC("housekeeping", "Housekeeping stopped")
			return nil
		case <-s.after(next.Sub(now)):
		}

		res, err := s.RunOnce(ctx)
		if err != nil {
			logger.ErrorCF("housekeeping", "Housekeeping pass failed", map[string]any{"error": err.Error()})
			continue
		}
		if res.MeetingsCompleted > 0 || res.SessionsSwept > 0 {
			logger.InfoCF("housekeeping", "Housekeeping pass", map[string]any{
				"meetings_completed": res.MeetingsCompleted,
				"sessions_swept":     res.SessionsSwept,
			})
		}
	}
}
