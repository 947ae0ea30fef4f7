// Package nutrition derives energy targets (BMR, TDEE, daily calorie target)
// from a body profile. Every function is pure and rounds its own result.
package nutrition

import (
	"fmt"
	"math"
	"strings"
)

// Gender is the profile's sex for the Mifflin-St Jeor constant.
type Gender string

const (
	Male   Gender = "male"
	Female Gender = "female"
)

// ActivityLevel selects the TDEE multiplier.
type ActivityLevel string

const (
	Sedentary  ActivityLevel = "sedentary"
	Light      ActivityLevel = "light"
	Moderate   ActivityLevel = "moderate"
	Active     ActivityLevel = "active"
	VeryActive ActivityLevel = "very_active"
)

// activityMultipliers is the single source of truth for valid activity levels.
var activityMultipliers = map[ActivityLevel]float64{
	Sedentary:  1.2,
	Light:      1.375,
	Moderate:   1.55,
	Active:     1.725,
	VeryActive: 1.9,
}

const defaultMultiplier = 1.55

// Multiplier returns the TDEE multiplier for level and whether level is known.
func Multiplier(level ActivityLevel) (float64, bool) {
	m, ok := activityMultipliers[level]
	return m, ok
}

// Profile is a user's body profile. JSON keys follow the service wire format.
type Profile struct {
	Age                 int           `json:"age"`
	Gender              Gender        `json:"gender"`
	WeightKG            float64       `json:"weight"`
	HeightCM            float64       `json:"height"`
	GoalWeightKG        float64       `json:"goal_weight"`
	ActivityLevel       ActivityLevel `json:"activity_level"`
	DietaryRestrictions []string      `json:"dietary_restrictions"`
}

// Metrics is the derived energy budget for a profile. Never persisted.
type Metrics struct {
	BMR            float64 `json:"bmr"`
	TDEE           float64 `json:"tdee"`
	TargetCalories float64 `json:"target_calories"`
}

// round mirrors JavaScript Math.round: halves round toward +Inf.
func round(x float64) float64 {
	return math.Floor(x + 0.5)
}

// BMR computes basal metabolic rate with the Mifflin-St Jeor equation.
// Gender is matched case-insensitively; any non-male gender uses the female
// constant. Returns 0 when weight, height or age is non-positive or gender is
// unset.
func BMR(p Profile) float64 {
	if p.WeightKG <= 0 || p.HeightCM <= 0 || p.Age <= 0 || p.Gender == "" {
		return 0
	}
	base := 10*p.WeightKG + 6.25*p.HeightCM - 5*float64(p.Age)
	if strings.EqualFold(string(p.Gender), string(Male)) {
		return round(base + 5)
	}
	return round(base - 161)
}

// TDEE scales bmr by the activity multiplier. Unknown levels use moderate;
// a zero bmr or empty level yields 0.
func TDEE(bmr float64, level ActivityLevel) float64 {
	if bmr == 0 || level == "" {
		return 0
	}
	m, ok := activityMultipliers[level]
	if !ok {
		m = defaultMultiplier
	}
	return round(bmr * m)
}

// TargetCalories applies a 500 kcal deficit when losing weight and a 300 kcal
// surplus when gaining. When the profile or tdee is missing it returns
// fallback, the caller's last known target.
func TargetCalories(p *Profile, tdee, fallback float64) float64 {
	if p == nil || tdee == 0 || p.WeightKG == 0 || p.GoalWeightKG == 0 {
		return fallback
	}
	switch {
	case p.GoalWeightKG < p.WeightKG:
		return round(tdee - 500)
	case p.GoalWeightKG > p.WeightKG:
		return round(tdee + 300)
	default:
		return tdee
	}
}

// Compute runs the full chain for p. fallback is used for the target when it
// cannot be derived.
func Compute(p *Profile, fallback float64) Metrics {
	if p == nil {
		return Metrics{TargetCalories: fallback}
	}
	bmr := BMR(*p)
	tdee := TDEE(bmr, p.ActivityLevel)
	return Metrics{
		BMR:            bmr,
		TDEE:           tdee,
		TargetCalories: TargetCalories(p, tdee, fallback),
	}
}

// CaloriesToBurn is the daily activity goal: the gap between tdee and target,
// raised to 200 when the gap is under 100.
func CaloriesToBurn(tdee, target float64) float64 {
	burn := math.Max(0, tdee-target)
	if burn < 100 {
		return 200
	}
	return burn
}

/* ─── Validation ─────────────────────────────────────────────────────── */

// FieldError is one failing profile field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError lists every failing profile field.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + " " + f.Message
	}
	return "invalid profile: " + strings.Join(parts, "; ")
}

// Validate checks the profile ranges and enums. It returns nil or a
// *ValidationError.
func (p Profile) Validate() error {
	var errs []FieldError
	add := func(field, msg string) {
		errs = append(errs, FieldError{Field: field, Message: msg})
	}
	if p.Age < 13 || p.Age > 100 {
		add("age", "must be between 13 and 100")
	}
	if p.Gender != Male && p.Gender != Female {
		add("gender", "must be male or female")
	}
	if !inRange(p.WeightKG, 30, 300) {
		add("weight", "must be between 30 and 300 kg")
	}
	if !inRange(p.HeightCM, 100, 250) {
		add("height", "must be between 100 and 250 cm")
	}
	if !inRange(p.GoalWeightKG, 30, 300) {
		add("goal_weight", "must be between 30 and 300 kg")
	}
	if _, ok := activityMultipliers[p.ActivityLevel]; !ok {
		add("activity_level", fmt.Sprintf("must be one of: %s", strings.Join(levelNames(), ", ")))
	}
	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}

func inRange(v, lo, hi float64) bool {
	return v >= lo && v <= hi
}

func levelNames() []string {
	return []string{string(Sedentary), string(Light), string(Moderate), string(Active), string(VeryActive)}
}
