package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"strings"
	"sync"
	"time"

	"lg/mealmind-go-api/internal/logger"
	"lg/mealmind-go-api/internal/mealplan"
	"lg/mealmind-go-api/internal/nutrition"
)

// mealSplit is each meal's share of the daily target.
var mealSplit = map[mealplan.Slot]float64{
	mealplan.Breakfast: 0.25,
	mealplan.Lunch:     0.35,
	mealplan.Dinner:    0.40,
}

const (
	maxActivities      = 5
	minActivityMinutes = 15
	maxActivityMinutes = 120
)

// generator builds daily plans from the static catalog, optionally asking
// OpenAI for meal ideas first.
type generator struct {
	mu  sync.Mutex
	rng *rand.Rand

	openAIBaseURL string
	openAIKey     string
	httpClient    *http.Client
	log           *logger.Logger
}

func newGenerator(seed int64, openAIBaseURL, openAIKey string, log *logger.Logger) *generator {
	return &generator{
		rng:           rand.New(rand.NewSource(seed)),
		openAIBaseURL: openAIBaseURL,
		openAIKey:     openAIKey,
		httpClient:    &http.Client{Timeout: openAITimeout},
		log:           logger.OrNop(log),
	}
}

/* ─── Plans ──────────────────────────────────────────────────────────── */

// plan builds a full day for profile p on date d.
func (g *generator) plan(ctx context.Context, p nutrition.Profile, d mealplan.Date) mealplan.Recommendation {
	m := nutrition.Compute(&p, 0)
	target := int(m.TargetCalories)
	rec := mealplan.Recommendation{Date: d, TargetCalories: target}
	rec.Breakfast = g.meal(ctx, mealplan.Breakfast, target, p.DietaryRestrictions, "")
	rec.Lunch = g.meal(ctx, mealplan.Lunch, target, p.DietaryRestrictions, "")
	rec.Dinner = g.meal(ctx, mealplan.Dinner, target, p.DietaryRestrictions, "")
	rec.TotalCalories = rec.MealTotal()
	rec.Activities = g.activities(nutrition.CaloriesToBurn(m.TDEE, m.TargetCalories), nil)
	return rec
}

// meal picks one meal for slot. exclude is the name being replaced.
func (g *generator) meal(ctx context.Context, slot mealplan.Slot, dailyTarget int, restrictions []string, exclude string) mealplan.Meal {
	slotTarget := float64(dailyTarget) * mealSplit[slot]
	if g.openAIKey != "" {
		m, err := g.suggestMeal(ctx, slot, slotTarget, restrictions, exclude)
		if err == nil {
			return m
		}
		g.log.Warn("meal suggestion failed, using catalog", "slot", string(slot), "error", err)
	}
	return g.catalogMeal(slot, slotTarget, restrictions, exclude)
}

// catalogMeal picks a random dish within 25% of target, widening to 40% and
// then to any calorie count before using the slot's fallback meal.
func (g *generator) catalogMeal(slot mealplan.Slot, target float64, restrictions []string, exclude string) mealplan.Meal {
	var eligible []food
	for _, f := range foodCatalog {
		if f.servesSlot(slot) && f.allows(restrictions) && !strings.EqualFold(f.Name, exclude) {
			eligible = append(eligible, f)
		}
	}
	for _, window := range [][2]float64{{0.75, 1.25}, {0.6, 1.4}, {0, math.Inf(1)}} {
		var candidates []food
		for _, f := range eligible {
			kcal := float64(f.Calories)
			if kcal >= target*window[0] && kcal <= target*window[1] {
				candidates = append(candidates, f)
			}
		}
		if len(candidates) > 0 {
			return candidates[g.intn(len(candidates))].Meal
		}
	}
	return fallbackMeals[slot]
}

// activities proposes up to five alternatives, each burning the full goal in
// 15 to 120 minutes. Names in exclude are skipped.
func (g *generator) activities(burn float64, exclude []string) []mealplan.Activity {
	skip := make(map[string]bool, len(exclude))
	for _, name := range exclude {
		skip[strings.ToLower(name)] = true
	}
	var available []activityKind
	for _, a := range activityCatalog {
		if !skip[strings.ToLower(a.Name)] {
			available = append(available, a)
		}
	}
	if len(available) == 0 {
		available = activityCatalog
	}
	g.shuffle(len(available), func(i, j int) { available[i], available[j] = available[j], available[i] })

	var out []mealplan.Activity
	for _, a := range available {
		minutes := burn / a.CaloriesPerHour * 60
		if minutes < minActivityMinutes || minutes > maxActivityMinutes {
			continue
		}
		out = append(out, mealplan.Activity{
			Name:            a.Name,
			DurationMinutes: int(math.Round(minutes)),
			CaloriesBurned:  int(math.Round(burn)),
			Intensity:       a.Intensity,
		})
		if len(out) == maxActivities {
			break
		}
	}
	if len(out) == 0 {
		// Goal too large or small for any single activity: clamp the first.
		a := available[0]
		minutes := math.Max(minActivityMinutes, math.Min(maxActivityMinutes, burn/a.CaloriesPerHour*60))
		out = append(out, mealplan.Activity{
			Name:            a.Name,
			DurationMinutes: int(math.Round(minutes)),
			CaloriesBurned:  int(math.Round(a.CaloriesPerHour * minutes / 60)),
			Intensity:       a.Intensity,
		})
	}
	return out
}

func (g *generator) intn(n int) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rng.Intn(n)
}

func (g *generator) shuffle(n int, swap func(i, j int)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rng.Shuffle(n, swap)
}

/* ─── OpenAI meal suggestions ────────────────────────────────────────── */

const mealSystemPromptTemplate = `You are a meal planner. Suggest one %s of about %.0f kcal.
Dietary restrictions: %s.
Do not suggest: %s.
Return a JSON object with:
- "name" (string, title case)
- "calories" (integer)
- "protein" (grams, number)
- "carbs" (grams, number)
- "fat" (grams, number)
Return only valid JSON, no explanation.`

const (
	openAIModel       = "gpt-4o-mini"
	openAITimeout     = 15 * time.Second
	openAIErrorPrefix = 1 << 10
)

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

// chatRequest is the body sent to /v1/chat/completions.
type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	Temperature    float64        `json:"temperature"`
	ResponseFormat responseFormat `json:"response_format"`
}

// chatCompletion is the subset of the completions response that is read.
type chatCompletion struct {
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
}

// chatFailure is the error envelope returned with non-2xx statuses.
type chatFailure struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// mealSuggestion is the JSON object the prompt asks for.
type mealSuggestion struct {
	Name     string  `json:"name"`
	Calories int     `json:"calories"`
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
	Fat      float64 `json:"fat"`
}

// decodeMeal reads the first choice as a meal. A truncated answer, missing
// name, non-positive calories, negative macros or a repeat of exclude is
// rejected.
func (c chatCompletion) decodeMeal(exclude string) (mealplan.Meal, error) {
	if len(c.Choices) == 0 {
		return mealplan.Meal{}, errors.New("no choices in completion")
	}
	choice := c.Choices[0]
	if choice.FinishReason == "length" {
		return mealplan.Meal{}, errors.New("completion truncated")
	}
	var s mealSuggestion
	if err := json.Unmarshal([]byte(choice.Message.Content), &s); err != nil {
		return mealplan.Meal{}, fmt.Errorf("parse suggestion: %w", err)
	}
	s.Name = strings.TrimSpace(s.Name)
	switch {
	case s.Name == "" || s.Calories <= 0:
		return mealplan.Meal{}, fmt.Errorf("unusable suggestion %q", choice.Message.Content)
	case s.Protein < 0 || s.Carbs < 0 || s.Fat < 0:
		return mealplan.Meal{}, fmt.Errorf("negative macros in %q", s.Name)
	case strings.EqualFold(s.Name, exclude):
		return mealplan.Meal{}, fmt.Errorf("suggestion repeats %q", exclude)
	}
	return mealplan.Meal{Name: s.Name, Calories: s.Calories, Protein: s.Protein, Carbs: s.Carbs, Fat: s.Fat}, nil
}

// suggestMeal asks the completions API for one meal near target kcal.
func (g *generator) suggestMeal(ctx context.Context, slot mealplan.Slot, target float64, restrictions []string, exclude string) (mealplan.Meal, error) {
	restr := "none"
	if len(restrictions) > 0 {
		restr = strings.Join(restrictions, ", ")
	}
	avoid := "nothing"
	if exclude != "" {
		avoid = exclude
	}
	completion, err := g.complete(ctx, chatRequest{
		Model: openAIModel,
		Messages: []chatMessage{
			{Role: "system", Content: fmt.Sprintf(mealSystemPromptTemplate, slot, target, restr, avoid)},
			{Role: "user", Content: fmt.Sprintf("Suggest a %s.", slot)},
		},
		Temperature:    0.7,
		ResponseFormat: responseFormat{Type: "json_object"},
	})
	if err != nil {
		return mealplan.Meal{}, err
	}
	return completion.decodeMeal(exclude)
}

// complete posts req and decodes the completion. Non-2xx statuses carry the
// API's error message when it sends one.
func (g *generator) complete(ctx context.Context, req chatRequest) (chatCompletion, error) {
	var out chatCompletion
	if g.openAIKey == "" {
		return out, errors.New("OPENAI_API_KEY not set")
	}
	body, err := json.Marshal(req)
	if err != nil {
		return out, fmt.Errorf("marshal completion request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.openAIBaseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return out, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+g.openAIKey)

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return out, fmt.Errorf("completion request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, openAIErrorPrefix))
		var failure chatFailure
		if json.Unmarshal(raw, &failure) == nil && failure.Error.Message != "" {
			return out, fmt.Errorf("completion status %d: %s", resp.StatusCode, failure.Error.Message)
		}
		return out, fmt.Errorf("completion status %d: %s", resp.StatusCode, bytes.TrimSpace(raw))
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return out, fmt.Errorf("decode completion: %w", err)
	}
	return out, nil
}
