package scheduler

import (
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// Schedule describes a recurring job: a whole-second interval or a cron
// expression (standard five fields, or six with a leading seconds field).
type Schedule struct {
	IntervalSeconds int    `json:"interval_seconds,omitempty"`
	CronExpr        string `json:"cron,omitempty"`
}

// Interval schedules catch up in whole multiples; cron schedules are
// re-advanced at most this many times before giving up, guarding against
// an expression that never produces a future time.
const maxCronAdvances = 1000

var secondsParser = cron.NewParser(
	cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow,
)

// NextRun computes the next run strictly after now. Interval schedules
// advance from the last run (or now when there is none) by whole multiples
// of the interval, so a job that slept through several slots lands on the
// next on-grid time rather than firing repeatedly. Malformed descriptors
// degrade to nil; display callers never see an error.
func NextRun(schedule Schedule, lastRun *time.Time, now time.Time) *time.Time {
	if schedule.IntervalSeconds > 0 {
		return nextIntervalRun(time.Duration(schedule.IntervalSeconds)*time.Second, lastRun, now)
	}
	if schedule.CronExpr != "" {
		return nextCronRun(schedule.CronExpr, lastRun, now)
	}

	log.Warn().Msg("schedule descriptor has neither interval nor cron expression")
	return nil
}

func nextIntervalRun(interval time.Duration, lastRun *time.Time, now time.Time) *time.Time {
	anchor := now
	if lastRun != nil {
		anchor = *lastRun
	}

	next := anchor
	if !next.After(now) {
		steps := now.Sub(anchor)/interval + 1
		next = anchor.Add(steps * interval)
	}
	return &next
}

func nextCronRun(expr string, lastRun *time.Time, now time.Time) *time.Time {
	sched, err := cron.ParseStandard(expr)
	if err != nil {
		sched, err = secondsParser.Parse(expr)
	}
	if err != nil {
		log.Warn().Str("cron", expr).Err(err).Msg("malformed cron expression")
		return nil
	}

	// Anchoring on the last run keeps the grid stable, but the iterator
	// may then yield times at or before now; advance until it does not.
	anchor := now
	if lastRun != nil && lastRun.Before(now) {
		anchor = *lastRun
	}

	next := sched.Next(anchor)
	for i := 0; !next.After(now); i++ {
		if i >= maxCronAdvances || next.IsZero() {
			log.Warn().Str("cron", expr).Msg("cron schedule produced no future run")
			return nil
		}
		next = sched.Next(next)
	}
	return &next
}
