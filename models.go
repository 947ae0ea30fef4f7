package main

import (
	"time"

	"lg/mealmind-go-api/internal/mealplan"
	"lg/mealmind-go-api/internal/nutrition"
)

/* ─── Domain structs ─────────────────────────────────────────────────── */

// user maps to the users table. Password is hidden from JSON responses.
type user struct {
	ID        int        `json:"id" db:"id"`
	Email     string     `json:"email" db:"email"`
	Username  string     `json:"username" db:"username"`
	Password  string     `json:"-" db:"password"`
	CreatedAt *time.Time `json:"created_at" db:"created_at"`
}

func (u user) public() mealplan.User {
	out := mealplan.User{ID: u.ID, Email: u.Email, Username: u.Username}
	if u.CreatedAt != nil {
		out.CreatedAt = u.CreatedAt.UTC().Format(time.RFC3339)
	}
	return out
}

// profileRow maps to profiles. One row per user; created_at is the program
// enrollment date and is reset whenever setup runs again.
type profileRow struct {
	UserID              int       `db:"user_id"`
	Age                 int       `db:"age"`
	Gender              string    `db:"gender"`
	Weight              float64   `db:"weight"`
	Height              float64   `db:"height"`
	GoalWeight          float64   `db:"goal_weight"`
	ActivityLevel       string    `db:"activity_level"`
	DietaryRestrictions []string  `db:"dietary_restrictions"`
	DietDurationDays    int       `db:"diet_duration_days"`
	CreatedAt           time.Time `db:"created_at"`
	UpdatedAt           time.Time `db:"updated_at"`
}

func (p profileRow) nutrition() nutrition.Profile {
	return p.stored().Nutrition()
}

func (p profileRow) stored() mealplan.StoredProfile {
	restrictions := p.DietaryRestrictions
	if restrictions == nil {
		restrictions = []string{}
	}
	return mealplan.StoredProfile{
		Age:                 p.Age,
		Gender:              p.Gender,
		Weight:              p.Weight,
		Height:              p.Height,
		GoalWeight:          p.GoalWeight,
		ActivityLevel:       p.ActivityLevel,
		DietaryRestrictions: restrictions,
		DietDurationDays:    p.DietDurationDays,
		CreatedAt:           p.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:           p.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// startDate is the first program day in loc.
func (p profileRow) startDate(loc *time.Location) mealplan.Date {
	return mealplan.Today(p.CreatedAt, loc)
}

// recommendationRow maps to daily_recommendations. Meal and activity columns
// are jsonb.
type recommendationRow struct {
	ID             int                 `db:"id"`
	UserID         int                 `db:"user_id"`
	Date           mealplan.Date       `db:"date"`
	Breakfast      mealplan.Meal       `db:"breakfast"`
	Lunch          mealplan.Meal       `db:"lunch"`
	Dinner         mealplan.Meal       `db:"dinner"`
	Activities     []mealplan.Activity `db:"activities"`
	TotalCalories  int                 `db:"total_calories"`
	TargetCalories int                 `db:"target_calories"`
	CreatedAt      *time.Time          `db:"created_at"`
}

func (r recommendationRow) toRecommendation() mealplan.Recommendation {
	activities := r.Activities
	if activities == nil {
		activities = []mealplan.Activity{}
	}
	return mealplan.Recommendation{
		ID:             r.ID,
		Date:           r.Date,
		Breakfast:      r.Breakfast,
		Lunch:          r.Lunch,
		Dinner:         r.Dinner,
		Activities:     activities,
		TotalCalories:  r.TotalCalories,
		TargetCalories: r.TargetCalories,
		CreatedAt:      r.CreatedAt,
	}
}

// checkinRow maps to daily_checkins. At most one row per (user_id, date).
type checkinRow struct {
	ID                int           `db:"id"`
	UserID            int           `db:"user_id"`
	RecommendationID  *int          `db:"recommendation_id"`
	Date              mealplan.Date `db:"date"`
	FoodCompleted     bool          `db:"food_completed"`
	ActivityCompleted bool          `db:"activity_completed"`
	Notes             *string       `db:"notes"`
	CreatedAt         *time.Time    `db:"created_at"`
}

func (c checkinRow) toCheckin() mealplan.Checkin {
	out := mealplan.Checkin{
		ID:                c.ID,
		Date:              c.Date,
		FoodCompleted:     c.FoodCompleted,
		ActivityCompleted: c.ActivityCompleted,
		CreatedAt:         c.CreatedAt,
	}
	if c.Notes != nil {
		out.Notes = *c.Notes
	}
	return out
}

// weightLogRow maps to weight_logs. At most one row per (user_id, date).
type weightLogRow struct {
	ID        int           `db:"id"`
	UserID    int           `db:"user_id"`
	Date      mealplan.Date `db:"date"`
	Weight    float64       `db:"weight"`
	CreatedAt *time.Time    `db:"created_at"`
}

func (w weightLogRow) toEntry() mealplan.WeightEntry {
	return mealplan.WeightEntry{ID: w.ID, Date: w.Date, Weight: w.Weight, CreatedAt: w.CreatedAt}
}
