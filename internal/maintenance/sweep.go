// Package maintenance runs the time-driven status transitions: listings
// and offers that lapse, internships that start and finish.
package maintenance

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"InternHub-backend/internal/database"
	"InternHub-backend/internal/events"
	"InternHub-backend/internal/metrics"
	"InternHub-backend/internal/model"
	"InternHub-backend/internal/notify"
)

// Task names used in logs and metrics.
const (
	TaskCloseJobs           = "close_expired_jobs"
	TaskExpireOffers        = "expire_offers"
	TaskStartInternships    = "start_internships"
	TaskCompleteInternships = "complete_internships"
)

// DefaultBatchSize caps how many records of one task a pass touches. Drain
// repeats passes until the backlog is empty.
const DefaultBatchSize = 500

// Result counts what one pass changed.
type Result struct {
	JobsClosed           int `json:"jobs_closed"`
	OffersExpired        int `json:"offers_expired"`
	InternshipsStarted   int `json:"internships_started"`
	InternshipsCompleted int `json:"internships_completed"`
	Skipped              int `json:"skipped"`
	Failed               int `json:"failed"`
}

// Total is the number of records transitioned.
func (r Result) Total() int {
	return r.JobsClosed + r.OffersExpired + r.InternshipsStarted + r.InternshipsCompleted
}

func (r *Result) add(o Result) {
	r.JobsClosed += o.JobsClosed
	r.OffersExpired += o.OffersExpired
	r.InternshipsStarted += o.InternshipsStarted
	r.InternshipsCompleted += o.InternshipsCompleted
	r.Skipped += o.Skipped
	r.Failed += o.Failed
}

// Sweeper applies due transitions. Every record is moved in its own
// transaction so one failure never blocks the rest of the pass.
type Sweeper struct {
	DB        *database.DBinstanceStruct
	Events    events.Publisher
	BatchSize int
	Now       func() time.Time
}

// NewSweeper creates a sweeper publishing to pub.
func NewSweeper(db *database.DBinstanceStruct, pub events.Publisher) *Sweeper {
	if pub == nil {
		pub = events.NopPublisher{}
	}
	return &Sweeper{
		DB:        db,
		Events:    pub,
		BatchSize: DefaultBatchSize,
		Now:       func() time.Time { return time.Now().UTC() },
	}
}

type step func(tx *gorm.DB, id uint, now time.Time) (model.StatusChange, error)

// Sweep runs every task once against now.
func (s *Sweeper) Sweep(ctx context.Context, now time.Time) (Result, error) {
	start := time.Now()
	defer func() { metrics.SweepDuration.Observe(time.Since(start).Seconds()) }()

	var res Result
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	tasks := []struct {
		name    string
		query   *gorm.DB
		apply   step
		counter *int
	}{
		{
			name:    TaskCloseJobs,
			query:   s.DB.Model(&model.Job{}).Where("status = ? AND expires_at <= ?", model.JobActive, now),
			apply:   closeJob,
			counter: &res.JobsClosed,
		},
		{
			name:    TaskExpireOffers,
			query:   s.DB.Model(&model.Application{}).Where("status = ? AND offer_expires_at <= ?", model.ApplicationPendingAcceptance, now),
			apply:   expireOffer,
			counter: &res.OffersExpired,
		},
		{
			name:    TaskStartInternships,
			query:   s.DB.Model(&model.Internship{}).Where("status = ? AND start_date <= ?", model.InternshipUpcoming, today),
			apply:   startInternship,
			counter: &res.InternshipsStarted,
		},
		{
			name:    TaskCompleteInternships,
			query:   s.DB.Model(&model.Internship{}).Where("status = ? AND end_date < ?", model.InternshipActive, today),
			apply:   completeInternship,
			counter: &res.InternshipsCompleted,
		},
	}

	for _, task := range tasks {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		var ids []uint
		if err := task.query.WithContext(ctx).Order("id ASC").Limit(s.batchSize()).Pluck("id", &ids).Error; err != nil {
			slog.Error("sweep query failed", slog.String("task", task.name), slog.String("error", err.Error()))
			metrics.SweepItems.WithLabelValues(task.name, "failed").Inc()
			res.Failed++
			continue
		}
		for _, id := range ids {
			switch s.apply(ctx, task.name, id, now, task.apply) {
			case "ok":
				*task.counter++
			case "skipped":
				res.Skipped++
			default:
				res.Failed++
			}
		}
	}

	return res, ctx.Err()
}

func (s *Sweeper) apply(ctx context.Context, task string, id uint, now time.Time, fn step) string {
	var change model.StatusChange
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		change, err = fn(tx, id, now)
		return err
	})

	outcome := "ok"
	switch {
	case err == nil:
		events.PublishChanges(ctx, s.Events, change)
	case errors.Is(err, model.ErrConflict), errors.Is(err, model.ErrNotDue), errors.Is(err, model.ErrInvalidTransition):
		// someone else moved it between the query and the update
		outcome = "skipped"
	default:
		outcome = "failed"
		slog.Error("sweep item failed",
			slog.String("task", task),
			slog.Uint64("id", uint64(id)),
			slog.String("error", err.Error()))
	}
	metrics.SweepItems.WithLabelValues(task, outcome).Inc()
	return outcome
}

func (s *Sweeper) batchSize() int {
	if s.BatchSize <= 0 {
		return DefaultBatchSize
	}
	return s.BatchSize
}

func closeJob(tx *gorm.DB, id uint, now time.Time) (model.StatusChange, error) {
	var job model.Job
	if err := tx.Preload("Company").First(&job, id).Error; err != nil {
		return model.StatusChange{}, err
	}
	change, err := job.Expire(now)
	if err != nil {
		return change, err
	}
	if err := database.SaveTransition(tx, &job, change); err != nil {
		return change, err
	}
	return change, notify.Send(tx, notify.ForChange(job.Company.OwnerUserID, model.NotifyJobClosed, change))
}

func expireOffer(tx *gorm.DB, id uint, now time.Time) (model.StatusChange, error) {
	var app model.Application
	if err := tx.Preload("Job.Company").First(&app, id).Error; err != nil {
		return model.StatusChange{}, err
	}
	change, err := app.Expire(now)
	if err != nil {
		return change, err
	}
	if err := database.SaveTransition(tx, &app, change); err != nil {
		return change, err
	}
	return change, notify.Send(tx,
		notify.ForChange(app.StudentID, model.NotifyApplicationUpdated, change),
		notify.ForChange(app.Job.Company.OwnerUserID, model.NotifyOfferAnswered, change),
	)
}

func startInternship(tx *gorm.DB, id uint, now time.Time) (model.StatusChange, error) {
	return moveInternship(tx, id, func(in *model.Internship) (model.StatusChange, error) {
		return in.Start(now)
	})
}

func completeInternship(tx *gorm.DB, id uint, now time.Time) (model.StatusChange, error) {
	return moveInternship(tx, id, func(in *model.Internship) (model.StatusChange, error) {
		return in.Complete(now)
	})
}

func moveInternship(tx *gorm.DB, id uint, move func(*model.Internship) (model.StatusChange, error)) (model.StatusChange, error) {
	var in model.Internship
	if err := tx.Preload("Company").First(&in, id).Error; err != nil {
		return model.StatusChange{}, err
	}
	change, err := move(&in)
	if err != nil {
		return change, err
	}
	if err := database.SaveTransition(tx, &in, change); err != nil {
		return change, err
	}
	return change, notify.Send(tx,
		notify.ForChange(in.StudentID, model.NotifyInternshipUpdated, change),
		notify.ForChange(in.Company.OwnerUserID, model.NotifyInternshipUpdated, change),
	)
}
