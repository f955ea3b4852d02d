package app

import (
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// Janitor periodically sweeps stale sessions out of the session repository.
type Janitor struct {
	service   *QuizService
	cron      *cron.Cron
	schedule  string
	introTTL  time.Duration
	retention time.Duration
}

func NewJanitor(service *QuizService, schedule string, introTTL, retention time.Duration) *Janitor {
	return &Janitor{
		service:   service,
		cron:      cron.New(),
		schedule:  schedule,
		introTTL:  introTTL,
		retention: retention,
	}
}

// Start registers the sweep and starts the scheduler.
func (j *Janitor) Start() error {
	if _, err := j.cron.AddFunc(j.schedule, j.run); err != nil {
		return err
	}
	j.cron.Start()
	log.Printf("session janitor scheduled %q (intro ttl %s, retention %s)", j.schedule, j.introTTL, j.retention)
	return nil
}

// Stop halts the scheduler and waits for a running sweep to finish.
func (j *Janitor) Stop() {
	<-j.cron.Stop().Done()
}

func (j *Janitor) run() {
	if n := j.service.Sweep(j.introTTL, j.retention); n > 0 {
		log.Printf("session janitor dropped %d sessions", n)
	}
}
