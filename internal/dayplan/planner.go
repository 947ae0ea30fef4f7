// Package dayplan is the client-side engine for daily plans: it tracks each
// date's recommendation through fetch and per-slot regeneration, keeps the
// check-in ledger, resolves arbitrary calendar dates to fetch-or-create
// outcomes, and refreshes the derived energy metrics.
package dayplan

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"lg/mealmind-go-api/internal/logger"
	"lg/mealmind-go-api/internal/mealplan"
	"lg/mealmind-go-api/internal/nutrition"
)

// Remote is the subset of the recommendation service the planner needs.
// *planclient.Client satisfies it.
type Remote interface {
	Today(ctx context.Context) (mealplan.TodayResponse, error)
	Day(ctx context.Context, d mealplan.Date) (mealplan.DayResponse, error)
	GenerateForDate(ctx context.Context, d mealplan.Date) (mealplan.GenerateForDateResponse, error)
	Regenerate(ctx context.Context, d mealplan.Date, slot mealplan.Slot) (mealplan.RegenerateResponse, error)
	Checkin(ctx context.Context, d mealplan.Date, food, activity bool) (mealplan.CheckinResponse, error)
	GetProfile(ctx context.Context) (mealplan.StoredProfile, error)
	RecordWeight(ctx context.Context, weight float64, d mealplan.Date) (mealplan.WeightRecordResponse, error)
}

// Planner holds the per-date state for one signed-in user.
type Planner struct {
	remote Remote
	now    func() time.Time
	loc    *time.Location
	log    *logger.Logger

	regen singleflight.Group

	mu       sync.Mutex
	days     map[string]*entry
	ticket   uint64
	overview Overview
}

// Overview is the user-level summary kept alongside the per-date state.
type Overview struct {
	Metrics      nutrition.Metrics
	Profile      *nutrition.Profile
	Progress     mealplan.ProgramProgress
	CheckinStats mealplan.CheckinStats
}

// Option customises a Planner.
type Option func(*Planner)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(p *Planner) { p.now = now }
}

// WithLocation sets the zone that decides which calendar day is "today".
func WithLocation(loc *time.Location) Option {
	return func(p *Planner) { p.loc = loc }
}

// WithLogger attaches a logger.
func WithLogger(l *logger.Logger) Option {
	return func(p *Planner) { p.log = l }
}

// New returns an empty planner backed by remote.
func New(remote Remote, opts ...Option) *Planner {
	p := &Planner{
		remote: remote,
		now:    time.Now,
		loc:    time.Local,
		days:   make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.log = logger.OrNop(p.log)
	return p
}

// Today returns the current calendar day.
func (p *Planner) Today() mealplan.Date {
	return mealplan.Today(p.now(), p.loc)
}

// Reset forgets every date and the overview. Call it on logout.
func (p *Planner) Reset() {
	p.mu.Lock()
	p.days = make(map[string]*entry)
	p.overview = Overview{}
	p.mu.Unlock()
}

// Snapshot returns the current state of d without any network call.
func (p *Planner) Snapshot(d mealplan.Date) Day {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.entryLocked(d).snapshot(d)
}

// Overview returns the latest metrics, progress and stats.
func (p *Planner) Overview() Overview {
	p.mu.Lock()
	defer p.mu.Unlock()
	ov := p.overview
	if ov.Profile != nil {
		prof := *ov.Profile
		ov.Profile = &prof
	}
	return ov
}

func (p *Planner) entryLocked(d mealplan.Date) *entry {
	key := d.String()
	e, ok := p.days[key]
	if !ok {
		e = newEntry()
		p.days[key] = e
	}
	return e
}

func (p *Planner) nextTicketLocked() uint64 {
	p.ticket++
	return p.ticket
}

/* ─── Fetch ──────────────────────────────────────────────────────────── */

// Fetch loads the recommendation for d. Today's date goes through the today
// endpoint, which also refreshes the overview and check-in status. A missing
// plan is not an error: the returned Day is in the NotFound phase. Any other
// failure leaves the prior state in place and is returned.
func (p *Planner) Fetch(ctx context.Context, d mealplan.Date) (Day, error) {
	p.mu.Lock()
	e := p.entryLocked(d)
	t := p.nextTicketLocked()
	e.loadTicket = t
	e.loading = true
	p.mu.Unlock()

	log := p.log.With("date", d.String(), "ticket", t)
	log.Debug("fetch start")

	if d.Equal(p.Today()) {
		resp, err := p.remote.Today(ctx)
		return p.finishFetch(log, d, t, func(e *entry) error {
			if err != nil {
				return err
			}
			e.applyLoaded(resp.Recommendation, t)
			if resp.AlreadyCheckedIn {
				e.confirmCheckin(nil)
			}
			p.overview.Metrics = nutrition.Metrics(resp.Metrics)
			p.overview.Progress = resp.ProgramProgress
			p.overview.CheckinStats = resp.CheckinStats
			return nil
		})
	}

	resp, err := p.remote.Day(ctx, d)
	return p.finishFetch(log, d, t, func(e *entry) error {
		switch {
		case errors.Is(err, mealplan.ErrNotFound):
			e.phase = NotFound
			e.rec = nil
			return nil
		case err != nil:
			return err
		case resp.Recommendation == nil:
			e.phase = NotFound
			e.rec = nil
			return nil
		}
		e.applyLoaded(*resp.Recommendation, t)
		if resp.Checkin != nil {
			e.confirmCheckin(resp.Checkin)
		}
		return nil
	})
}

// finishFetch applies a whole-entry response issued under ticket t, unless a
// newer whole-entry request has been issued since.
func (p *Planner) finishFetch(log *logger.Logger, d mealplan.Date, t uint64, apply func(e *entry) error) (Day, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e := p.entryLocked(d)
	if e.loadTicket != t {
		log.Debug("fetch superseded", "newer", e.loadTicket)
		return e.snapshot(d), ErrSuperseded
	}
	e.loading = false
	if err := apply(e); err != nil {
		log.Warn("fetch failed", "error", err, "phase", e.phase.String())
		return e.snapshot(d), fmt.Errorf("fetch %s: %w", d, err)
	}
	log.Debug("fetch done", "phase", e.phase.String())
	return e.snapshot(d), nil
}

/* ─── Regenerate ─────────────────────────────────────────────────────── */

// Regenerate replaces one slot of a Loaded date. Different slots proceed
// independently; concurrent calls for the same date and slot share a single
// request and all receive its outcome. On failure the slot returns to Idle
// with its previous data.
func (p *Planner) Regenerate(ctx context.Context, d mealplan.Date, slot mealplan.Slot) (Day, error) {
	if _, err := mealplan.ParseSlot(string(slot)); err != nil {
		return Day{}, err
	}

	p.mu.Lock()
	e := p.entryLocked(d)
	switch {
	case e.phase != Loaded || e.rec == nil:
		day := e.snapshot(d)
		p.mu.Unlock()
		return day, ErrNotLoaded
	case e.checkin == CheckedIn:
		day := e.snapshot(d)
		p.mu.Unlock()
		return day, ErrDayCheckedIn
	}
	p.mu.Unlock()

	key := d.String() + "|" + string(slot)
	v, err, shared := p.regen.Do(key, func() (interface{}, error) {
		return p.regenerate(ctx, d, slot)
	})
	if shared {
		p.log.Debug("regenerate coalesced", "date", d.String(), "slot", string(slot))
	}
	day, _ := v.(Day)
	return day, err
}

func (p *Planner) regenerate(ctx context.Context, d mealplan.Date, slot mealplan.Slot) (Day, error) {
	p.mu.Lock()
	e := p.entryLocked(d)
	t := p.nextTicketLocked()
	e.slots[slot] = Regenerating
	p.mu.Unlock()

	resp, err := p.remote.Regenerate(ctx, d, slot)

	p.mu.Lock()
	defer p.mu.Unlock()
	e = p.entryLocked(d)
	e.slots[slot] = Idle
	log := p.log.With("date", d.String(), "slot", string(slot), "ticket", t)

	if err != nil {
		if errors.Is(err, mealplan.ErrDayCheckedIn) {
			e.confirmCheckin(nil)
		}
		log.Warn("regenerate failed", "error", err)
		return e.snapshot(d), fmt.Errorf("regenerate %s: %w", slot, err)
	}
	if e.rec == nil || e.slotApplied[slot] > t {
		log.Debug("regenerate superseded")
		return e.snapshot(d), ErrSuperseded
	}
	updated := e.rec.WithSlot(slot, resp.Recommendations)
	e.rec = &updated
	e.slotApplied[slot] = t
	log.Debug("regenerate applied")
	return e.snapshot(d), nil
}

/* ─── Check-in ledger ────────────────────────────────────────────────── */

// SetDraft records unsubmitted completion toggles for d.
func (p *Planner) SetDraft(d mealplan.Date, food, activity bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e := p.entryLocked(d)
	if e.checkin != NotCheckedIn {
		return
	}
	e.draft = Draft{FoodCompleted: food, ActivityCompleted: activity}
}

// Draft returns the unsubmitted toggles for d.
func (p *Planner) Draft(d mealplan.Date) Draft {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.entryLocked(d).draft
}

// SubmitDraft submits the current draft for d. A date already CheckedIn is
// returned unchanged.
func (p *Planner) SubmitDraft(ctx context.Context, d mealplan.Date) (Day, error) {
	p.mu.Lock()
	e := p.entryLocked(d)
	if e.checkin == CheckedIn {
		day := e.snapshot(d)
		p.mu.Unlock()
		return day, nil
	}
	dr := e.draft
	p.mu.Unlock()
	return p.Submit(ctx, d, dr.FoodCompleted, dr.ActivityCompleted)
}

// Submit checks in d. A date already CheckedIn is returned unchanged whatever
// the flags; a concurrent submit joins the one in flight. Otherwise both flags
// false is rejected locally. The service reporting a duplicate is treated as
// success. After a confirmed check-in the metrics are refreshed without
// refetching the plan.
func (p *Planner) Submit(ctx context.Context, d mealplan.Date, food, activity bool) (Day, error) {
	p.mu.Lock()
	e := p.entryLocked(d)
	switch e.checkin {
	case CheckedIn:
		day := e.snapshot(d)
		p.mu.Unlock()
		return day, nil
	case Submitting:
		call := e.submit
		p.mu.Unlock()
		select {
		case <-call.done:
			return call.day, call.err
		case <-ctx.Done():
			return p.Snapshot(d), ctx.Err()
		}
	}
	if !food && !activity {
		day := e.snapshot(d)
		p.mu.Unlock()
		return day, ErrNothingCompleted
	}
	call := &submitCall{done: make(chan struct{})}
	e.submit = call
	e.checkin = Submitting
	p.mu.Unlock()

	log := p.log.With("date", d.String())
	resp, err := p.remote.Checkin(ctx, d, food, activity)

	p.mu.Lock()
	e = p.entryLocked(d)
	confirmed := false
	switch {
	case err == nil:
		e.confirmCheckin(&resp.Checkin)
		confirmed = true
	case errors.Is(err, mealplan.ErrAlreadyCheckedIn):
		log.Info("check-in already recorded")
		var record *mealplan.Checkin
		if !resp.Checkin.Date.IsZero() {
			record = &resp.Checkin
		}
		e.confirmCheckin(record)
		e.duplicate = true
		confirmed = true
		err = nil
	default:
		e.checkin = NotCheckedIn
		err = fmt.Errorf("check in %s: %w", d, err)
		log.Warn("check-in failed", "error", err)
	}
	e.submit = nil
	p.mu.Unlock()

	if confirmed {
		if _, rerr := p.RefreshMetrics(ctx); rerr != nil {
			log.Warn("metrics refresh after check-in failed", "error", rerr)
		}
	}

	call.day, call.err = p.Snapshot(d), err
	close(call.done)
	return call.day, call.err
}

/* ─── Metrics ────────────────────────────────────────────────────────── */

// RefreshMetrics reloads the profile and recomputes the metrics locally. The
// previous target is the fallback when the profile is incomplete. On failure
// the overview is left unchanged.
func (p *Planner) RefreshMetrics(ctx context.Context) (nutrition.Metrics, error) {
	stored, err := p.remote.GetProfile(ctx)
	if err != nil {
		return p.Overview().Metrics, fmt.Errorf("refresh metrics: %w", err)
	}
	prof := stored.Nutrition()

	p.mu.Lock()
	defer p.mu.Unlock()
	m := nutrition.Compute(&prof, p.overview.Metrics.TargetCalories)
	p.overview.Metrics = m
	p.overview.Profile = &prof
	return m, nil
}

// RecordWeight logs a weigh-in and, when the service moved the profile
// weight, refreshes the metrics so the overview follows the new target. A
// failed refresh is logged; the weigh-in itself already succeeded.
func (p *Planner) RecordWeight(ctx context.Context, weight float64, d mealplan.Date) (mealplan.WeightRecordResponse, nutrition.Metrics, error) {
	resp, err := p.remote.RecordWeight(ctx, weight, d)
	if err != nil {
		return resp, p.Overview().Metrics, err
	}
	if !resp.ProfileUpdated {
		return resp, p.Overview().Metrics, nil
	}
	m, err := p.RefreshMetrics(ctx)
	if err != nil {
		p.log.Warn("metrics refresh after weigh-in failed", "error", err)
	}
	return resp, m, nil
}
