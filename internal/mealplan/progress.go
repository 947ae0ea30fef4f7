package mealplan

import (
	"math"
	"time"
)

// DefaultDietDuration is the program length in days.
const DefaultDietDuration = 30

// ProgramProgress places today inside the fixed-length program.
type ProgramProgress struct {
	DayInProgram  int `json:"day_in_program"`
	DietDuration  int `json:"diet_duration"`
	DaysRemaining int `json:"days_remaining"`
}

// Progress computes program progress for an enrollment starting on start.
// Day one is the start date itself; days before the start clamp to day one.
func Progress(start, today Date, duration int) ProgramProgress {
	if duration <= 0 {
		duration = DefaultDietDuration
	}
	day := today.DaysSince(start) + 1
	if day < 1 {
		day = 1
	}
	remaining := duration - day
	if remaining < 0 {
		remaining = 0
	}
	return ProgramProgress{DayInProgram: day, DietDuration: duration, DaysRemaining: remaining}
}

// CheckinStats are display aggregates over a user's check-in history.
type CheckinStats struct {
	TotalCompleted int `json:"total_completed"`
	Streak         int `json:"streak"`
	LastWeek       int `json:"last_week"`
}

// Stats derives the aggregates as of today. Only fully completed days count.
// The streak counts consecutive completed days ending yesterday; last_week
// counts completed days in [today-7, today).
func Stats(checkins []Checkin, today Date) CheckinStats {
	var st CheckinStats
	done := make(map[string]bool, len(checkins))
	weekStart := today.AddDays(-7)
	for _, c := range checkins {
		if !c.Completed() {
			continue
		}
		st.TotalCompleted++
		done[c.Date.String()] = true
		if !c.Date.Before(weekStart) && c.Date.Before(today) {
			st.LastWeek++
		}
	}
	for d := today.AddDays(-1); done[d.String()]; d = d.AddDays(-1) {
		st.Streak++
	}
	return st
}

/* ─── Weight ─────────────────────────────────────────────────────────── */

// WeightEntry is one dated weigh-in. A user has at most one per date.
type WeightEntry struct {
	ID        int        `json:"id,omitempty"`
	Date      Date       `json:"date"`
	Weight    float64    `json:"weight"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

// WeightStats compares the first logged weight with the current one.
type WeightStats struct {
	Start   float64 `json:"start"`
	Current float64 `json:"current"`
	Goal    float64 `json:"goal"`
	Change  float64 `json:"change"`
}

// NewWeightStats uses the oldest entry as the start; with no entries the
// current weight is also the start. entries must be oldest first.
func NewWeightStats(entries []WeightEntry, current, goal float64) WeightStats {
	start := current
	if len(entries) > 0 {
		start = entries[0].Weight
	}
	if goal == 0 {
		goal = current
	}
	return WeightStats{
		Start:   start,
		Current: current,
		Goal:    goal,
		Change:  math.Round((current-start)*10) / 10,
	}
}

/* ─── Adherence ──────────────────────────────────────────────────────── */

// Adherence status bands, by percentage of fully completed check-ins.
const (
	AdherenceNoData    = "no_data"
	AdherenceExcellent = "excellent"
	AdherenceGood      = "good"
	AdherenceModerate  = "moderate"
	AdherencePoor      = "poor"
)

// Adherence summarises how closely a user followed their plans. Percentages
// are over the check-ins in the window, not over calendar days.
type Adherence struct {
	Status           string  `json:"status"`
	Message          string  `json:"message"`
	CheckinDays      int     `json:"checkin_days"`
	CompletedDays    int     `json:"completed_days"`
	FoodDays         int     `json:"food_days"`
	ActivityDays     int     `json:"activity_days"`
	AdherencePercent float64 `json:"adherence_percent"`
	FoodPercent      float64 `json:"food_adherence_percent"`
	ActivityPercent  float64 `json:"activity_adherence_percent"`
	Insight          string  `json:"insight,omitempty"`
}

// AnalyzeAdherence derives the summary from a window of check-ins. An
// insight is set when food and activity rates differ by more than 20 points.
func AnalyzeAdherence(checkins []Checkin) Adherence {
	a := Adherence{CheckinDays: len(checkins)}
	if a.CheckinDays == 0 {
		a.Status, a.Message = AdherenceNoData, "No check-in data available"
		return a
	}
	for _, c := range checkins {
		if c.FoodCompleted {
			a.FoodDays++
		}
		if c.ActivityCompleted {
			a.ActivityDays++
		}
		if c.Completed() {
			a.CompletedDays++
		}
	}
	pct := func(n int) float64 {
		return math.Round(float64(n)*1000/float64(a.CheckinDays)) / 10
	}
	a.AdherencePercent = pct(a.CompletedDays)
	a.FoodPercent = pct(a.FoodDays)
	a.ActivityPercent = pct(a.ActivityDays)

	switch {
	case a.AdherencePercent >= 80:
		a.Status, a.Message = AdherenceExcellent, "Excellent adherence to the plan"
	case a.AdherencePercent >= 60:
		a.Status, a.Message = AdherenceGood, "Good adherence to the plan"
	case a.AdherencePercent >= 40:
		a.Status, a.Message = AdherenceModerate, "Moderate adherence to the plan"
	default:
		a.Status, a.Message = AdherencePoor, "Poor adherence to the plan"
	}
	switch {
	case a.FoodPercent > a.ActivityPercent+20:
		a.Insight = "Diet adherence is stronger than exercise adherence"
	case a.ActivityPercent > a.FoodPercent+20:
		a.Insight = "Exercise adherence is stronger than diet adherence"
	}
	return a
}
