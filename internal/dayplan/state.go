package dayplan

import (
	"errors"
	"fmt"

	"lg/mealmind-go-api/internal/mealplan"
)

// Phase is the lifecycle of one date's recommendation.
type Phase int

const (
	Unfetched Phase = iota
	Loading
	Loaded
	NotFound
)

func (p Phase) String() string {
	switch p {
	case Unfetched:
		return "unfetched"
	case Loading:
		return "loading"
	case Loaded:
		return "loaded"
	case NotFound:
		return "not_found"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// SlotPhase tracks regeneration of one slot.
type SlotPhase int

const (
	Idle SlotPhase = iota
	Regenerating
)

func (s SlotPhase) String() string {
	if s == Regenerating {
		return "regenerating"
	}
	return "idle"
}

// CheckinPhase is the ledger state for one date. Submitting is the
// optimistic, unconfirmed state; CheckedIn is only set once the service has
// accepted the check-in or reported it as a duplicate.
type CheckinPhase int

const (
	NotCheckedIn CheckinPhase = iota
	Submitting
	CheckedIn
)

func (c CheckinPhase) String() string {
	switch c {
	case Submitting:
		return "submitting"
	case CheckedIn:
		return "checked_in"
	}
	return "not_checked_in"
}

var (
	// ErrNotLoaded is returned when a slot operation targets a date that is
	// not in the Loaded phase.
	ErrNotLoaded = errors.New("recommendation not loaded")
	// ErrDayCheckedIn is returned when regenerating a finalized day.
	ErrDayCheckedIn = mealplan.ErrDayCheckedIn
	// ErrNothingCompleted rejects a check-in with both flags false.
	ErrNothingCompleted = fmt.Errorf("%w: mark food or activity as completed", mealplan.ErrValidation)
	// ErrNotCreatable is returned when creating a plan for today or the past.
	ErrNotCreatable = errors.New("only future days can be created")
	// ErrSuperseded reports a response dropped because a newer request for
	// the same date or slot was issued after it.
	ErrSuperseded = errors.New("response superseded by a newer request")
)

// Draft holds completion toggles made before a check-in is submitted. Drafts
// live in memory only and are lost with the Planner.
type Draft struct {
	FoodCompleted     bool
	ActivityCompleted bool
}

// Day is a snapshot of one date's state. Recommendation is a private copy.
type Day struct {
	Date           mealplan.Date
	Phase          Phase
	Recommendation *mealplan.Recommendation
	Slots          map[mealplan.Slot]SlotPhase
	Checkin        CheckinPhase
	CheckinRecord  *mealplan.Checkin
	// Duplicate is set when the service answered a submit with an existing
	// check-in.
	Duplicate bool
	Draft     Draft
}

// entry is the mutable per-date state guarded by Planner.mu.
type entry struct {
	phase   Phase // settled phase; Loading is derived from loading
	loading bool
	rec     *mealplan.Recommendation

	// loadTicket is the newest whole-entry request (fetch or create) issued;
	// responses carrying an older ticket are dropped.
	loadTicket uint64
	// slotApplied is the ticket of the request whose data each slot holds.
	slotApplied map[mealplan.Slot]uint64
	slots       map[mealplan.Slot]SlotPhase

	checkin   CheckinPhase
	record    *mealplan.Checkin
	duplicate bool
	submit    *submitCall
	draft     Draft
}

type submitCall struct {
	done chan struct{}
	day  Day
	err  error
}

func newEntry() *entry {
	return &entry{
		slotApplied: make(map[mealplan.Slot]uint64, len(mealplan.Slots)),
		slots:       make(map[mealplan.Slot]SlotPhase, len(mealplan.Slots)),
	}
}

func (e *entry) snapshot(d mealplan.Date) Day {
	day := Day{
		Date:    d,
		Phase:   e.phase,
		Slots:   make(map[mealplan.Slot]SlotPhase, len(mealplan.Slots)),
		Checkin:   e.checkin,
		Duplicate: e.duplicate,
		Draft:     e.draft,
	}
	if e.loading {
		day.Phase = Loading
	}
	if e.rec != nil {
		rec := e.rec.Clone()
		day.Recommendation = &rec
	}
	if e.record != nil {
		rec := *e.record
		day.CheckinRecord = &rec
	}
	for _, s := range mealplan.Slots {
		day.Slots[s] = e.slots[s]
	}
	return day
}

// applyLoaded installs a freshly loaded recommendation fetched under ticket.
// Slots already holding data from a newer request keep it.
func (e *entry) applyLoaded(rec mealplan.Recommendation, ticket uint64) {
	merged := rec.Clone()
	if e.rec != nil {
		for _, s := range mealplan.Slots {
			if e.slotApplied[s] > ticket {
				merged = merged.WithSlot(s, *e.rec)
			}
		}
	}
	for _, s := range mealplan.Slots {
		if e.slotApplied[s] < ticket {
			e.slotApplied[s] = ticket
		}
	}
	e.rec = &merged
	e.phase = Loaded
}

// confirmCheckin marks the date as checked in. CheckedIn never reverts.
func (e *entry) confirmCheckin(record *mealplan.Checkin) {
	e.checkin = CheckedIn
	if record != nil {
		rec := *record
		e.record = &rec
	}
	e.draft = Draft{}
}
