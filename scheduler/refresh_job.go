package scheduler

import (
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"pricetrack/models"
)

// RefreshFunc runs one catalog-wide price refresh.
type RefreshFunc func() (models.BatchSummary, error)

// RefreshJob periodically refreshes the whole catalog on a cron spec
// (with a seconds field).
type RefreshJob struct {
	cron    *cron.Cron
	spec    string
	refresh RefreshFunc
}

func NewRefreshJob(spec string, refresh RefreshFunc) *RefreshJob {
	return &RefreshJob{
		cron:    cron.New(cron.WithSeconds()),
		spec:    spec,
		refresh: refresh,
	}
}

// Start schedules the refresh and also kicks one off immediately.
func (j *RefreshJob) Start() {
	if _, err := j.cron.AddFunc(j.spec, j.run); err != nil {
		log.Error().Str("spec", j.spec).Err(err).Msg("failed to schedule catalog refresh")
		return
	}

	go j.run()

	j.cron.Start()
	log.Info().Str("spec", j.spec).Msg("catalog refresh scheduled")
}

// Stop halts the schedule; a refresh already in flight finishes.
func (j *RefreshJob) Stop() {
	if j.cron != nil {
		j.cron.Stop()
	}
}

func (j *RefreshJob) run() {
	log.Info().Msg("starting scheduled catalog refresh")

	summary, err := j.refresh()
	if err != nil {
		log.Error().Err(err).Msg("catalog refresh aborted")
		return
	}

	log.Info().
		Int("total", summary.TotalURLs).
		Int("ok", summary.SuccessfulURLs).
		Int("failed", summary.FailedURLs).
		Msg("catalog refresh finished")
}
