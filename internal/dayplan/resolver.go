package dayplan

import (
	"context"
	"fmt"

	"lg/mealmind-go-api/internal/mealplan"
)

// Outcome is what a resolved date offers the user.
type Outcome int

const (
	// OutcomeLoaded means a plan exists and is loaded.
	OutcomeLoaded Outcome = iota
	// OutcomeAbsent means today or a past day has no plan. Nothing can be
	// created for it.
	OutcomeAbsent
	// OutcomeCreatable means a future day has no plan yet; Create can
	// generate one.
	OutcomeCreatable
)

func (o Outcome) String() string {
	switch o {
	case OutcomeLoaded:
		return "loaded"
	case OutcomeAbsent:
		return "absent"
	case OutcomeCreatable:
		return "creatable"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// Resolution is the result of resolving one calendar date.
type Resolution struct {
	Day     Day
	Outcome Outcome
	// Future is true when the date is after today.
	Future bool
}

// Resolve fetches d and classifies the result. Past days and today without a
// plan are absent; future days without one are creatable.
func (p *Planner) Resolve(ctx context.Context, d mealplan.Date) (Resolution, error) {
	day, err := p.Fetch(ctx, d)
	if err != nil {
		return Resolution{Day: day}, err
	}
	res := Resolution{Day: day, Future: d.After(p.Today())}
	switch {
	case day.Phase == Loaded:
		res.Outcome = OutcomeLoaded
	case res.Future:
		res.Outcome = OutcomeCreatable
	default:
		res.Outcome = OutcomeAbsent
	}
	return res, nil
}

// ResolveString parses "YYYY-MM-DD" and resolves it. A malformed date fails
// with mealplan.ErrValidation before any request is made.
func (p *Planner) ResolveString(ctx context.Context, s string) (Resolution, error) {
	d, err := mealplan.ParseDate(s)
	if err != nil {
		return Resolution{}, err
	}
	return p.Resolve(ctx, d)
}

// Create asks the service to generate the plan for a future date and moves
// it to Loaded. Today and past dates return ErrNotCreatable.
func (p *Planner) Create(ctx context.Context, d mealplan.Date) (Day, error) {
	if !d.After(p.Today()) {
		return p.Snapshot(d), ErrNotCreatable
	}

	p.mu.Lock()
	e := p.entryLocked(d)
	t := p.nextTicketLocked()
	e.loadTicket = t
	e.loading = true
	p.mu.Unlock()

	log := p.log.With("date", d.String(), "ticket", t)
	resp, err := p.remote.GenerateForDate(ctx, d)
	return p.finishFetch(log, d, t, func(e *entry) error {
		if err != nil {
			return err
		}
		e.applyLoaded(resp.Recommendation, t)
		log.Info("plan created", "status", resp.Status)
		return nil
	})
}
