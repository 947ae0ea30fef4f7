package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"lg/mealmind-go-api/internal/mealplan"
	"lg/mealmind-go-api/internal/nutrition"
)

// setupOpenAIMock starts a fake chat completions server and returns a
// generator pointed at it plus a function to set the next response. The
// last request body is captured in *last.
func setupOpenAIMock(t *testing.T) (*generator, func(int, interface{}), *chatRequest) {
	t.Helper()
	var (
		mu         sync.Mutex
		mockStatus = http.StatusOK
		mockBody   interface{}
		last       chatRequest
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		if r.URL.Path != "/v1/chat/completions" || r.Header.Get("Authorization") != "Bearer test-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&last)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(mockStatus)
		json.NewEncoder(w).Encode(mockBody)
	}))
	t.Cleanup(srv.Close)

	setMock := func(status int, body interface{}) {
		mu.Lock()
		mockStatus, mockBody = status, body
		mu.Unlock()
	}
	return newGenerator(7, srv.URL, "test-key", nil), setMock, &last
}

// openAIChatResponse wraps a content string in the OpenAI chat completions
// response shape (choices[0].message.content).
func openAIChatResponse(content string) map[string]interface{} {
	return map[string]interface{}{
		"choices": []map[string]interface{}{
			{"message": map[string]interface{}{"content": content}},
		},
	}
}

var testProfile = nutrition.Profile{
	Age: 25, Gender: nutrition.Male, WeightKG: 70, HeightCM: 170, GoalWeightKG: 65,
	ActivityLevel: nutrition.Moderate,
}

func catalogDish(name string) (food, bool) {
	for _, f := range foodCatalog {
		if f.Name == name {
			return f, true
		}
	}
	return food{}, false
}

/* ─── Catalog plans ──────────────────────────────────────────────────── */

// TestPlan_Shape verifies totals, activity bounds and the burn goal for the
// reference profile.
func TestPlan_Shape(t *testing.T) {
	g := newGenerator(1, "", "", nil)
	d, _ := mealplan.ParseDate("2026-03-10")

	for i := 0; i < 20; i++ {
		rec := g.plan(context.Background(), testProfile, d)
		if rec.TargetCalories != 2047 {
			t.Fatalf("expected target 2047, got %d", rec.TargetCalories)
		}
		if rec.TotalCalories != rec.MealTotal() {
			t.Errorf("total %d does not match meals %d", rec.TotalCalories, rec.MealTotal())
		}
		if !rec.Date.Equal(d) {
			t.Errorf("expected date %s, got %s", d, rec.Date)
		}
		if n := len(rec.Activities); n < 1 || n > maxActivities {
			t.Fatalf("expected 1-%d activities, got %d", maxActivities, n)
		}
		for _, a := range rec.Activities {
			if a.DurationMinutes < minActivityMinutes || a.DurationMinutes > maxActivityMinutes {
				t.Errorf("%s: duration %d out of range", a.Name, a.DurationMinutes)
			}
			if a.CaloriesBurned != 500 {
				t.Errorf("%s: expected 500 kcal burned, got %d", a.Name, a.CaloriesBurned)
			}
		}
	}
}

// TestCatalogMeal_Restrictions verifies every pick carries the requested tag
// and unknown restrictions are ignored.
func TestCatalogMeal_Restrictions(t *testing.T) {
	g := newGenerator(3, "", "", nil)
	for i := 0; i < 50; i++ {
		for _, slot := range []mealplan.Slot{mealplan.Breakfast, mealplan.Lunch, mealplan.Dinner} {
			m := g.catalogMeal(slot, 600, []string{tagVegan, "low_sodium"}, "")
			f, ok := catalogDish(m.Name)
			if !ok {
				t.Fatalf("%s: expected a catalog dish, got %q", slot, m.Name)
			}
			if !f.allows([]string{tagVegan}) {
				t.Errorf("%s: %q is not vegan", slot, m.Name)
			}
			if !f.servesSlot(slot) {
				t.Errorf("%q does not serve %s", m.Name, slot)
			}
		}
	}
}

// TestCatalogMeal_WidensWindow verifies a target no dish is near still
// yields an eligible dish rather than the fallback.
func TestCatalogMeal_WidensWindow(t *testing.T) {
	g := newGenerator(5, "", "", nil)
	m := g.catalogMeal(mealplan.Breakfast, 100, []string{tagVegan, tagGlutenFree}, "")
	if m.Name != "Smoothie Bowl" && m.Name != "Chia Pudding" {
		t.Errorf("expected a vegan gluten-free breakfast, got %q", m.Name)
	}
}

// TestCatalogMeal_Exclude verifies the excluded dish is never picked.
func TestCatalogMeal_Exclude(t *testing.T) {
	g := newGenerator(9, "", "", nil)
	for i := 0; i < 30; i++ {
		m := g.catalogMeal(mealplan.Breakfast, 300, []string{tagVegan, tagGlutenFree}, "chia pudding")
		if m.Name != "Smoothie Bowl" {
			t.Fatalf("expected the only other candidate, got %q", m.Name)
		}
	}
}

/* ─── Activities ─────────────────────────────────────────────────────── */

// TestActivities_Exclude verifies excluded names are skipped.
func TestActivities_Exclude(t *testing.T) {
	g := newGenerator(11, "", "", nil)
	exclude := []string{"Jogging", "cycling", "Swimming", "Aerobics", "Badminton"}
	acts := g.activities(500, exclude)
	if len(acts) != 3 {
		t.Fatalf("expected the 3 remaining feasible activities, got %d", len(acts))
	}
	for _, a := range acts {
		for _, name := range exclude {
			if strings.EqualFold(a.Name, name) {
				t.Errorf("excluded activity %q returned", a.Name)
			}
		}
	}
}

// TestActivities_Clamp verifies an unreachable goal yields one activity at
// the maximum duration.
func TestActivities_Clamp(t *testing.T) {
	g := newGenerator(13, "", "", nil)
	acts := g.activities(5000, nil)
	if len(acts) != 1 {
		t.Fatalf("expected one clamped activity, got %d", len(acts))
	}
	a := acts[0]
	if a.DurationMinutes != maxActivityMinutes {
		t.Errorf("expected %d minutes, got %d", maxActivityMinutes, a.DurationMinutes)
	}
	for _, k := range activityCatalog {
		if k.Name == a.Name && a.CaloriesBurned != int(k.CaloriesPerHour*2) {
			t.Errorf("expected %d kcal for two hours of %s, got %d", int(k.CaloriesPerHour*2), a.Name, a.CaloriesBurned)
		}
	}
}

/* ─── OpenAI suggestions ─────────────────────────────────────────────── */

// TestMeal_OpenAISuccess verifies a valid suggestion is used as is.
func TestMeal_OpenAISuccess(t *testing.T) {
	g, setMock, last := setupOpenAIMock(t)
	setMock(http.StatusOK, openAIChatResponse(`{"name":"Tempeh Bowl","calories":510,"protein":30,"carbs":55,"fat":16}`))

	m := g.meal(context.Background(), mealplan.Breakfast, 2047, []string{tagVegan}, "Avocado Toast")
	want := mealplan.Meal{Name: "Tempeh Bowl", Calories: 510, Protein: 30, Carbs: 55, Fat: 16}
	if m != want {
		t.Errorf("expected %+v, got %+v", want, m)
	}
	if len(last.Messages) != 2 || !strings.Contains(last.Messages[0].Content, "vegan") || !strings.Contains(last.Messages[0].Content, "Avocado Toast") {
		t.Errorf("prompt missing restrictions or exclusion: %+v", last.Messages)
	}
}

// TestMeal_OpenAIFallback verifies failed or unusable suggestions fall back
// to the catalog.
func TestMeal_OpenAIFallback(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   interface{}
	}{
		{"server error", http.StatusInternalServerError, map[string]string{"error": "boom"}},
		{"no choices", http.StatusOK, map[string]interface{}{"choices": []interface{}{}}},
		{"not json", http.StatusOK, openAIChatResponse("a nice salad")},
		{"zero calories", http.StatusOK, openAIChatResponse(`{"name":"Air","calories":0}`)},
		{"repeats excluded", http.StatusOK, openAIChatResponse(`{"name":"avocado toast","calories":450}`)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, setMock, _ := setupOpenAIMock(t)
			setMock(tt.status, tt.body)
			m := g.meal(context.Background(), mealplan.Breakfast, 2047, nil, "Avocado Toast")
			if _, ok := catalogDish(m.Name); !ok {
				t.Errorf("expected a catalog dish, got %q", m.Name)
			}
			if m.Name == "Avocado Toast" {
				t.Error("excluded dish returned")
			}
		})
	}
}

// TestSuggestMeal_NoKey verifies the request is not attempted without a key.
func TestSuggestMeal_NoKey(t *testing.T) {
	g := newGenerator(1, "http://127.0.0.1:1", "", nil)
	if _, err := g.suggestMeal(context.Background(), mealplan.Lunch, 700, nil, ""); err == nil {
		t.Error("expected an error without an API key")
	}
}

// TestSuggestMeal_RequestShape verifies model, JSON mode and the error
// message surfaced from a failed completion.
func TestSuggestMeal_RequestShape(t *testing.T) {
	g, setMock, last := setupOpenAIMock(t)
	setMock(http.StatusTooManyRequests, map[string]interface{}{"error": map[string]string{"message": "rate limited"}})

	_, err := g.suggestMeal(context.Background(), mealplan.Dinner, 800, nil, "")
	if err == nil || !strings.Contains(err.Error(), "rate limited") {
		t.Errorf("expected the API message in the error, got %v", err)
	}
	if last.Model != openAIModel || last.ResponseFormat.Type != "json_object" {
		t.Errorf("unexpected request: model=%q format=%+v", last.Model, last.ResponseFormat)
	}
}

// TestChatCompletion_DecodeMeal checks the validation folded into decoding.
func TestChatCompletion_DecodeMeal(t *testing.T) {
	completion := func(content, finish string) chatCompletion {
		var c chatCompletion
		raw, _ := json.Marshal(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"role": "assistant", "content": content}, "finish_reason": finish},
			},
		})
		_ = json.Unmarshal(raw, &c)
		return c
	}
	tests := []struct {
		name    string
		c       chatCompletion
		want    mealplan.Meal
		wantErr bool
	}{
		{"valid", completion(`{"name":" Lentil Soup ","calories":420,"protein":22,"carbs":50,"fat":9}`, "stop"),
			mealplan.Meal{Name: "Lentil Soup", Calories: 420, Protein: 22, Carbs: 50, Fat: 9}, false},
		{"truncated", completion(`{"name":"Lentil`, "length"), mealplan.Meal{}, true},
		{"negative fat", completion(`{"name":"Odd Salad","calories":300,"fat":-2}`, "stop"), mealplan.Meal{}, true},
		{"blank name", completion(`{"name":"  ","calories":300}`, "stop"), mealplan.Meal{}, true},
		{"excluded", completion(`{"name":"SALMON","calories":600}`, "stop"), mealplan.Meal{}, true},
		{"empty", chatCompletion{}, mealplan.Meal{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.c.decodeMeal("Salmon")
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}
