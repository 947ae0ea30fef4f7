package mealplan

import (
	"github.com/google/uuid"

	"lg/mealmind-go-api/internal/nutrition"
)

/* ─── Auth ───────────────────────────────────────────────────────────── */

// User is the public account shape.
type User struct {
	ID        int    `json:"id"`
	Email     string `json:"email"`
	Username  string `json:"username"`
	CreatedAt string `json:"created_at,omitempty"`
}

type SignupRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type SignupResponse struct {
	Message string `json:"message"`
	User    User   `json:"user"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	User        User   `json:"user"`
	HasProfile  bool   `json:"has_profile"`
}

type MeResponse struct {
	User       User `json:"user"`
	HasProfile bool `json:"has_profile"`
}

/* ─── Profile ────────────────────────────────────────────────────────── */

// StoredProfile is a profile as returned by the service, with its
// enrollment timestamp and the program length.
type StoredProfile struct {
	Age                 int      `json:"age"`
	Gender              string   `json:"gender"`
	Weight              float64  `json:"weight"`
	Height              float64  `json:"height"`
	GoalWeight          float64  `json:"goal_weight"`
	ActivityLevel       string   `json:"activity_level"`
	DietaryRestrictions []string `json:"dietary_restrictions"`
	DietDurationDays    int      `json:"diet_duration_days,omitempty"`
	CreatedAt           string   `json:"created_at,omitempty"`
	UpdatedAt           string   `json:"updated_at,omitempty"`
}

type ProfileResponse struct {
	Message string        `json:"message,omitempty"`
	Profile StoredProfile `json:"profile"`
}

// ProfilePatch is the body of PUT /profile/update. Nil fields are left as is.
type ProfilePatch struct {
	Age                 *int      `json:"age,omitempty"`
	Gender              *string   `json:"gender,omitempty"`
	Weight              *float64  `json:"weight,omitempty"`
	Height              *float64  `json:"height,omitempty"`
	GoalWeight          *float64  `json:"goal_weight,omitempty"`
	ActivityLevel       *string   `json:"activity_level,omitempty"`
	DietaryRestrictions *[]string `json:"dietary_restrictions,omitempty"`
}

/* ─── Recommendations ────────────────────────────────────────────────── */

// TodayMetrics is the energy budget reported alongside today's plan.
type TodayMetrics struct {
	BMR            float64 `json:"bmr"`
	TDEE           float64 `json:"tdee"`
	TargetCalories float64 `json:"target_calories"`
}

type TodayResponse struct {
	Recommendation   Recommendation  `json:"recommendation"`
	Metrics          TodayMetrics    `json:"metrics"`
	IsNew            bool            `json:"is_new"`
	AlreadyCheckedIn bool            `json:"already_checked_in"`
	ProgramProgress  ProgramProgress `json:"program_progress"`
	CheckinStats     CheckinStats    `json:"checkin_stats"`
}

type DayResponse struct {
	Status         string          `json:"status"`
	Recommendation *Recommendation `json:"recommendation,omitempty"`
	Checkin        *Checkin        `json:"checkin"`
}

type GenerateForDateRequest struct {
	Date string `json:"date"`
}

type GenerateForDateResponse struct {
	Status         string         `json:"status"`
	Message        string         `json:"message,omitempty"`
	Recommendation Recommendation `json:"recommendation"`
}

type MonthAheadResponse struct {
	Status         string   `json:"status"`
	Message        string   `json:"message,omitempty"`
	Created        int      `json:"created"`
	AlreadyExisted int      `json:"already_existed"`
	CreatedDates   []string `json:"created_dates"`
}

type RegenerateRequest struct {
	Date string `json:"date,omitempty"`
}

// RegenerateResponse carries the whole updated plan under "recommendations";
// clients read only the regenerated slot from it.
type RegenerateResponse struct {
	Recommendations Recommendation `json:"recommendations"`
	Message         string         `json:"message"`
}

type CheckinRequest struct {
	FoodCompleted     *bool  `json:"food_completed"`
	ActivityCompleted *bool  `json:"activity_completed"`
	Date              string `json:"date,omitempty"`
	Notes             string `json:"notes,omitempty"`
}

type CheckinResponse struct {
	Message                string          `json:"message"`
	Checkin                Checkin         `json:"checkin"`
	RecommendationUpdated  bool            `json:"recommendation_updated"`
	NextDayRecommendation  *Recommendation `json:"next_day_recommendation,omitempty"`
	NextDate               string          `json:"next_date"`
	WillRegenerateTomorrow bool            `json:"will_regenerate_tomorrow"`
}

// MonthEntry is one calendar row: the plan plus its check-in summary.
type MonthEntry struct {
	Recommendation
	Checkin *CheckinFlags `json:"checkin"`
}

type MonthResponse struct {
	Status          string       `json:"status"`
	Recommendations []MonthEntry `json:"recommendations"`
}

// HistoryEntry pairs a past plan with its check-in, if any.
type HistoryEntry struct {
	Recommendation Recommendation `json:"recommendation"`
	Checkin        *Checkin       `json:"checkin"`
}

type HistoryResponse struct {
	History []HistoryEntry `json:"history"`
}

/* ─── Progress ───────────────────────────────────────────────────────── */

// WeightRecordRequest is the body of POST /progress/weight/record. Date
// defaults to today.
type WeightRecordRequest struct {
	Weight *float64 `json:"weight"`
	Date   string   `json:"date,omitempty"`
}

// WeightRecordResponse reports the stored entry and the profile after it.
// ProfileUpdated is false when a later entry already set the current weight.
type WeightRecordResponse struct {
	Message        string        `json:"message"`
	Entry          WeightEntry   `json:"entry"`
	Profile        StoredProfile `json:"profile"`
	ProfileUpdated bool          `json:"profile_updated"`
	Metrics        TodayMetrics  `json:"metrics"`
}

type WeightLogResponse struct {
	Entries []WeightEntry `json:"entries"`
}

// Period is the inclusive date window an analysis covers.
type Period struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Days      int    `json:"days"`
}

type AdherenceResponse struct {
	Period   Period    `json:"period"`
	Analysis Adherence `json:"analysis"`
}

type UserStatsResponse struct {
	Progress ProgramProgress `json:"progress"`
	Weight   WeightStats     `json:"weight"`
	Checkins CheckinStats    `json:"checkins"`
}

// ErrorBody is the service's error envelope.
type ErrorBody struct {
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// NewRequestID returns a fresh correlation id for X-Request-ID.
func NewRequestID() string {
	return uuid.NewString()
}

// Nutrition converts the stored profile into calculator input.
func (p StoredProfile) Nutrition() nutrition.Profile {
	return nutrition.Profile{
		Age:                 p.Age,
		Gender:              nutrition.Gender(p.Gender),
		WeightKG:            p.Weight,
		HeightCM:            p.Height,
		GoalWeightKG:        p.GoalWeight,
		ActivityLevel:       nutrition.ActivityLevel(p.ActivityLevel),
		DietaryRestrictions: p.DietaryRestrictions,
	}
}
