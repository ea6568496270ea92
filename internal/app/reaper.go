package app

import (
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// Reaper periodically drops finished and abandoned rooms.
type Reaper struct {
	service   *ChallengeService
	interval  time.Duration
	retention time.Duration
	idle      time.Duration
	scheduler gocron.Scheduler
}

func NewReaper(service *ChallengeService, interval, retention, idle time.Duration) *Reaper {
	return &Reaper{service: service, interval: interval, retention: retention, idle: idle}
}

// Start schedules the sweep. A non-positive interval disables it.
func (r *Reaper) Start() error {
	if r.interval <= 0 {
		return nil
	}
	sched, err := gocron.NewScheduler()
	if err != nil {
		return err
	}
	if _, err := sched.NewJob(
		gocron.DurationJob(r.interval),
		gocron.NewTask(r.Sweep),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	); err != nil {
		_ = sched.Shutdown()
		return err
	}
	sched.Start()
	r.scheduler = sched
	return nil
}

// Sweep runs one pass.
func (r *Reaper) Sweep() {
	if n := r.service.Reap(r.retention, r.idle); n > 0 {
		log.Printf("[reaper] removed %d rooms", n)
	}
}

func (r *Reaper) Stop() error {
	if r.scheduler == nil {
		return nil
	}
	return r.scheduler.Shutdown()
}
