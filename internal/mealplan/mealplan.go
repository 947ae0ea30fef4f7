// Package mealplan holds the daily plan data model shared by the
// recommendation service and its clients: recommendations, slots,
// check-ins, program progress and the JSON envelopes of every endpoint.
package mealplan

import (
	"fmt"
	"time"
)

// Slot is one independently regenerable part of a day's plan.
type Slot string

const (
	Breakfast  Slot = "breakfast"
	Lunch      Slot = "lunch"
	Dinner     Slot = "dinner"
	Activities Slot = "activities"
)

// Slots lists every slot in display order.
var Slots = []Slot{Breakfast, Lunch, Dinner, Activities}

// ParseSlot validates a slot name.
func ParseSlot(s string) (Slot, error) {
	switch Slot(s) {
	case Breakfast, Lunch, Dinner, Activities:
		return Slot(s), nil
	}
	return "", fmt.Errorf("%w: invalid slot %q, use breakfast, lunch, dinner, or activities", ErrValidation, s)
}

// IsMeal reports whether the slot holds a meal (and so counts toward
// total_calories).
func (s Slot) IsMeal() bool {
	return s == Breakfast || s == Lunch || s == Dinner
}

// Intensity grades an activity.
type Intensity string

const (
	Low    Intensity = "low"
	Medium Intensity = "medium"
	High   Intensity = "high"
)

// Meal is one meal slot.
type Meal struct {
	Name     string  `json:"name"`
	Calories int     `json:"calories"`
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
	Fat      float64 `json:"fat"`
}

// Activity is one entry in the activities slot.
type Activity struct {
	Name            string    `json:"name"`
	DurationMinutes int       `json:"duration_minutes"`
	CaloriesBurned  int       `json:"calories_burned"`
	Intensity       Intensity `json:"intensity"`
}

// Recommendation is one user's plan for one calendar date.
type Recommendation struct {
	ID             int        `json:"id,omitempty"`
	Date           Date       `json:"date"`
	Breakfast      Meal       `json:"breakfast"`
	Lunch          Meal       `json:"lunch"`
	Dinner         Meal       `json:"dinner"`
	Activities     []Activity `json:"activities"`
	TotalCalories  int        `json:"total_calories"`
	TargetCalories int        `json:"target_calories"`
	CreatedAt      *time.Time `json:"created_at,omitempty"`
}

// MealTotal sums the calories of the three meals.
func (r Recommendation) MealTotal() int {
	return r.Breakfast.Calories + r.Lunch.Calories + r.Dinner.Calories
}

// Clone returns a deep copy.
func (r Recommendation) Clone() Recommendation {
	out := r
	if r.Activities != nil {
		out.Activities = make([]Activity, len(r.Activities))
		copy(out.Activities, r.Activities)
	}
	if r.CreatedAt != nil {
		t := *r.CreatedAt
		out.CreatedAt = &t
	}
	return out
}

// Meal returns the meal held by a meal slot.
func (r Recommendation) Meal(slot Slot) (Meal, bool) {
	switch slot {
	case Breakfast:
		return r.Breakfast, true
	case Lunch:
		return r.Lunch, true
	case Dinner:
		return r.Dinner, true
	}
	return Meal{}, false
}

// WithSlot returns a copy of r whose slot is taken from src. Every other slot
// is left as it was. Replacing a meal recomputes total_calories; replacing
// activities leaves it alone. target_calories is never touched.
func (r Recommendation) WithSlot(slot Slot, src Recommendation) Recommendation {
	out := r.Clone()
	switch slot {
	case Breakfast:
		out.Breakfast = src.Breakfast
	case Lunch:
		out.Lunch = src.Lunch
	case Dinner:
		out.Dinner = src.Dinner
	case Activities:
		out.Activities = src.Clone().Activities
		return out
	default:
		return out
	}
	out.TotalCalories = out.MealTotal()
	return out
}

/* ─── Check-ins ──────────────────────────────────────────────────────── */

// Checkin is the single completion record for a (user, date).
type Checkin struct {
	ID                int        `json:"id,omitempty"`
	Date              Date       `json:"date"`
	FoodCompleted     bool       `json:"food_completed"`
	ActivityCompleted bool       `json:"activity_completed"`
	Notes             string     `json:"notes,omitempty"`
	CreatedAt         *time.Time `json:"created_at,omitempty"`
}

// Completed reports whether both parts of the day were done.
func (c Checkin) Completed() bool {
	return c.FoodCompleted && c.ActivityCompleted
}

// CheckinFlags is the per-day completion summary attached to calendar rows.
type CheckinFlags struct {
	FoodCompleted     bool `json:"food_completed"`
	ActivityCompleted bool `json:"activity_completed"`
	IsCompleted       bool `json:"is_completed"`
}

// Flags summarises the check-in.
func (c Checkin) Flags() CheckinFlags {
	return CheckinFlags{
		FoodCompleted:     c.FoodCompleted,
		ActivityCompleted: c.ActivityCompleted,
		IsCompleted:       c.Completed(),
	}
}
