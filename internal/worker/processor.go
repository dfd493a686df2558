// Package worker runs the background jobs behind the circulation service.
package worker

import (
	"context"
	"log"
	"time"

	"github.com/hibiken/asynq"

	"github.com/jmdelacruz/bibliotek/internal/model"
	"github.com/jmdelacruz/bibliotek/internal/policy"
	"github.com/jmdelacruz/bibliotek/internal/queue"
	"github.com/jmdelacruz/bibliotek/internal/repository"
)

// Processor is plugged into the asynq worker loop. The sweep only records
// notice rows; stored fines change exclusively through return and renew.
type Processor struct {
	reports  *repository.ReportStore
	policies *policy.Service
	now      func() time.Time
}

// NewProcessor constructs a worker processor. A nil clock defaults to
// time.Now.
func NewProcessor(reports *repository.ReportStore, policies *policy.Service, clock func() time.Time) *Processor {
	if clock == nil {
		clock = time.Now
	}
	return &Processor{reports: reports, policies: policies, now: clock}
}

// Handler registers the job handlers.
func (p *Processor) Handler() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.OverdueSweepTask, p.handleOverdueSweep)
	return mux
}

func (p *Processor) handleOverdueSweep(ctx context.Context, _ *asynq.Task) error {
	now := p.now()
	fineRate, err := p.policies.FinePerDay(ctx)
	if err != nil {
		return err
	}
	loans, err := p.reports.OverdueLoans(ctx, now)
	if err != nil {
		return err
	}
	for _, loan := range loans {
		days := model.DaysLate(loan.DueDate, now)
		projected := int64(days) * int64(fineRate)
		if err := p.reports.RecordOverdueNotice(ctx, loan.CirculationID, days, projected, now); err != nil {
			return err
		}
	}
	log.Printf("overdue sweep: %d loans past due", len(loans))
	return nil
}
