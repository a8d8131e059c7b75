package daemon

import (
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"

	"git.home.luguber.info/inful/blogbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/blogbuilder/internal/logfields"
)

// schedule requests rebuilds on a fixed interval, a cron expression, or
// both. A tick that fires while the previous request is still running is
// rescheduled rather than queued.
type schedule struct {
	cron gocron.Scheduler
	jobs int
}

// newSchedule registers the configured jobs without starting them. It
// returns nil when neither interval nor expression is set.
func newSchedule(interval time.Duration, expression string, request func()) (*schedule, error) {
	if interval <= 0 && expression == "" {
		return nil, nil
	}
	if interval < 0 {
		return nil, errors.ValidationError("rebuild interval must not be negative").
			WithContext("interval", interval.String()).
			Build()
	}

	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, errors.RuntimeError("create rebuild scheduler").WithCause(err).Build()
	}
	sched := &schedule{cron: s}

	if interval > 0 {
		if err := sched.add(gocron.DurationJob(interval), "interval-rebuild", request); err != nil {
			_ = s.Shutdown()
			return nil, errors.RuntimeError("schedule interval rebuild").
				WithCause(err).
				WithContext("interval", interval.String()).
				Build()
		}
	}
	if expression != "" {
		if err := sched.add(gocron.CronJob(expression, false), "cron-rebuild", request); err != nil {
			_ = s.Shutdown()
			return nil, errors.ValidationError("invalid cron expression").
				WithCause(err).
				WithContext("cron", expression).
				Build()
		}
	}
	return sched, nil
}

func (s *schedule) add(def gocron.JobDefinition, name string, request func()) error {
	_, err := s.cron.NewJob(def,
		gocron.NewTask(request),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err == nil {
		s.jobs++
	}
	return err
}

func (s *schedule) start() {
	slog.Info("Rebuild schedule started", slog.Int("jobs", s.jobs))
	s.cron.Start()
}

func (s *schedule) stop() {
	if err := s.cron.Shutdown(); err != nil {
		slog.Warn("Rebuild schedule did not stop cleanly", logfields.Error(err))
	}
}
