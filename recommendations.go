package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"lg/mealmind-go-api/internal/mealplan"
	"lg/mealmind-go-api/internal/nutrition"
)

const (
	// topUpDays is how far ahead plans are kept generated.
	topUpDays = 30
	// historyLimit is the number of past plans returned by /history.
	historyLimit = 7
	// generateWorkers bounds concurrent plan generation for one request.
	generateWorkers = 4
)

/* ─── Plan helpers ───────────────────────────────────────────────────── */

// ensurePlan returns the plan for d, generating and storing one when none
// exists. created reports whether this call stored it. A concurrent insert
// for the same date is resolved by reading the winner's row.
func (h *Handler) ensurePlan(ctx context.Context, userID int, p nutrition.Profile, d mealplan.Date) (rec mealplan.Recommendation, created bool, err error) {
	rec, err = h.store.recommendation(ctx, userID, d)
	if err == nil {
		return rec, false, nil
	}
	if !errors.Is(err, mealplan.ErrNotFound) {
		return rec, false, err
	}
	rec, err = h.store.insertRecommendation(ctx, userID, h.gen.plan(ctx, p, d))
	if errors.Is(err, errDuplicate) {
		rec, err = h.store.recommendation(ctx, userID, d)
		return rec, false, err
	}
	return rec, err == nil, err
}

// fillRange generates every missing plan in [from, to]. It returns the dates
// it created and how many already existed.
func (h *Handler) fillRange(ctx context.Context, userID int, p nutrition.Profile, from, to mealplan.Date) ([]mealplan.Date, int, error) {
	existing, err := h.store.recommendationsBetween(ctx, userID, from, to)
	if err != nil {
		return nil, 0, err
	}
	have := make(map[string]bool, len(existing))
	for _, r := range existing {
		have[r.Date.String()] = true
	}

	var (
		mu      sync.Mutex
		created []mealplan.Date
		dupes   int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(generateWorkers)
	for d := from; !d.After(to); d = d.AddDays(1) {
		if have[d.String()] {
			continue
		}
		d := d
		g.Go(func() error {
			_, err := h.store.insertRecommendation(gctx, userID, h.gen.plan(gctx, p, d))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case errors.Is(err, errDuplicate):
				dupes++
			case err != nil:
				return fmt.Errorf("generate %s: %w", d, err)
			default:
				created = append(created, d)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return created, len(existing) + dupes, err
	}
	return created, len(existing) + dupes, nil
}

// topUp keeps topUpDays of plans generated ahead of today. Failures are
// logged only; the caller already has today's plan.
func (h *Handler) topUp(ctx context.Context, userID int, p nutrition.Profile, today mealplan.Date) {
	n, err := h.store.countRecommendationsFrom(ctx, userID, today)
	if err != nil {
		h.log.Warn("count future plans failed", "user_id", userID, "error", err)
		return
	}
	if n >= topUpDays {
		return
	}
	created, _, err := h.fillRange(ctx, userID, p, today.AddDays(1), today.AddDays(topUpDays))
	if err != nil {
		h.log.Warn("top up plans failed", "user_id", userID, "created", len(created), "error", err)
		return
	}
	h.log.Debug("topped up plans", "user_id", userID, "created", len(created))
}

// requireProfile loads the caller's profile or writes a 404.
func (h *Handler) requireProfile(c *gin.Context) (profileRow, bool) {
	row, err := h.store.profile(c, c.GetInt("user_id"))
	if err != nil {
		h.storeError(c, err, "User profile not found", "failed to fetch profile")
		return row, false
	}
	return row, true
}

// bindOptionalJSON binds the body when one was sent. It writes a 400 and
// returns false on malformed JSON.
func bindOptionalJSON(c *gin.Context, out interface{}) bool {
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(out); err != nil && !errors.Is(err, io.EOF) {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func invalidDate(c *gin.Context) {
	apiErrorCode(c, http.StatusBadRequest, "invalid_date", "Invalid date format. Use YYYY-MM-DD")
}

/* ─── Today ──────────────────────────────────────────────────────────── */

// getToday returns today's plan, creating it when missing, together with
// the energy budget, program progress and check-in stats.
// GET /api/recommendations/today
func (h *Handler) getToday(c *gin.Context) {
	userID := c.GetInt("user_id")
	row, ok := h.requireProfile(c)
	if !ok {
		return
	}
	today := h.today()
	p := row.nutrition()

	rec, created, err := h.ensurePlan(c, userID, p, today)
	if err != nil {
		h.storeError(c, err, "No recommendation found for today", "failed to load today's plan")
		return
	}
	h.topUp(c, userID, p, today)

	checkins, err := h.store.checkins(c, userID)
	if err != nil {
		h.storeError(c, err, "", "failed to fetch check-ins")
		return
	}
	checkedIn := false
	for _, ci := range checkins {
		if ci.Date.Equal(today) {
			checkedIn = true
			break
		}
	}

	m := nutrition.Compute(&p, float64(rec.TargetCalories))
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, mealplan.TodayResponse{
		Recommendation:   rec,
		Metrics:          mealplan.TodayMetrics{BMR: m.BMR, TDEE: m.TDEE, TargetCalories: m.TargetCalories},
		IsNew:            created,
		AlreadyCheckedIn: checkedIn,
		ProgramProgress:  mealplan.Progress(row.startDate(h.loc), today, row.DietDurationDays),
		CheckinStats:     mealplan.Stats(checkins, today),
	})
}

/* ─── Single day ─────────────────────────────────────────────────────── */

// getDay returns the stored plan for one date and its check-in, if any.
// GET /api/recommendations/day/:date
func (h *Handler) getDay(c *gin.Context) {
	userID := c.GetInt("user_id")
	d, err := mealplan.ParseDate(c.Param("date"))
	if err != nil {
		invalidDate(c)
		return
	}

	rec, err := h.store.recommendation(c, userID, d)
	if errors.Is(err, mealplan.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{
			"status":  "not_found",
			"error":   "No recommendation found for " + d.String(),
			"message": "No recommendation found for " + d.String(),
		})
		return
	}
	if err != nil {
		h.storeError(c, err, "", "failed to fetch recommendation")
		return
	}

	resp := mealplan.DayResponse{Status: "success", Recommendation: &rec}
	ci, err := h.store.checkin(c, userID, d)
	switch {
	case err == nil:
		resp.Checkin = &ci
	case !errors.Is(err, mealplan.ErrNotFound):
		h.storeError(c, err, "", "failed to fetch check-in")
		return
	}
	c.JSON(http.StatusOK, resp)
}

// generateForDate creates the plan for a date unless one exists.
// POST /api/recommendations/generate_for_date
func (h *Handler) generateForDate(c *gin.Context) {
	userID := c.GetInt("user_id")
	var body mealplan.GenerateForDateRequest
	if err := c.ShouldBindJSON(&body); err != nil || body.Date == "" {
		apiError(c, http.StatusBadRequest, "Date parameter is required")
		return
	}
	d, err := mealplan.ParseDate(body.Date)
	if err != nil {
		invalidDate(c)
		return
	}
	row, ok := h.requireProfile(c)
	if !ok {
		return
	}

	rec, created, err := h.ensurePlan(c, userID, row.nutrition(), d)
	if err != nil {
		h.storeError(c, err, "", "failed to generate recommendation")
		return
	}
	if !created {
		c.JSON(http.StatusOK, mealplan.GenerateForDateResponse{
			Status:         "exists",
			Message:        "Recommendation for " + d.String() + " already exists",
			Recommendation: rec,
		})
		return
	}
	h.log.Info("plan created", "user_id", userID, "date", d.String())
	c.JSON(http.StatusCreated, mealplan.GenerateForDateResponse{
		Status:         "created",
		Message:        "Created new recommendation for " + d.String(),
		Recommendation: rec,
	})
}

// generateMonthAhead fills tomorrow through tomorrow+30.
// POST /api/recommendations/generate_month_ahead
func (h *Handler) generateMonthAhead(c *gin.Context) {
	userID := c.GetInt("user_id")
	row, ok := h.requireProfile(c)
	if !ok {
		return
	}
	from := h.today().AddDays(1)
	created, existed, err := h.fillRange(c, userID, row.nutrition(), from, from.AddDays(topUpDays))
	if err != nil {
		h.storeError(c, err, "", "failed to generate recommendations")
		return
	}

	dates := make([]string, len(created))
	for i, d := range created {
		dates[i] = d.String()
	}
	c.JSON(http.StatusCreated, mealplan.MonthAheadResponse{
		Status:         "success",
		Message:        fmt.Sprintf("Successfully generated recommendations for the next %d days", topUpDays),
		Created:        len(created),
		AlreadyExisted: existed,
		CreatedDates:   dates,
	})
}

/* ─── Regenerate ─────────────────────────────────────────────────────── */

// regenerate replaces one slot of a plan. Other slots and target_calories
// are kept; total_calories follows the meals.
// POST /api/recommendations/regenerate/:slot
func (h *Handler) regenerate(c *gin.Context) {
	userID := c.GetInt("user_id")
	slot, err := mealplan.ParseSlot(c.Param("slot"))
	if err != nil {
		apiErrorCode(c, http.StatusBadRequest, "invalid_slot", "Invalid meal type. Use breakfast, lunch, dinner, or activities")
		return
	}
	var body mealplan.RegenerateRequest
	if !bindOptionalJSON(c, &body) {
		return
	}
	d := h.today()
	if body.Date != "" {
		if d, err = mealplan.ParseDate(body.Date); err != nil {
			invalidDate(c)
			return
		}
	}

	row, ok := h.requireProfile(c)
	if !ok {
		return
	}
	rec, err := h.store.recommendation(c, userID, d)
	if err != nil {
		h.storeError(c, err, "No recommendation found for "+d.String(), "failed to fetch recommendation")
		return
	}
	if _, err := h.store.checkin(c, userID, d); err == nil {
		apiErrorCode(c, http.StatusConflict, "day_checked_in", "This day is already checked in")
		return
	} else if !errors.Is(err, mealplan.ErrNotFound) {
		h.storeError(c, err, "", "failed to fetch check-in")
		return
	}

	release, ok, err := h.locks.acquire(c, slotLockKey(userID, d.String(), string(slot)))
	if err != nil {
		h.log.Error("acquire slot lock failed", "error", err)
		apiError(c, http.StatusInternalServerError, "failed to regenerate recommendation")
		return
	}
	if !ok {
		apiErrorCode(c, http.StatusConflict, "regeneration_in_progress", "This slot is already being regenerated")
		return
	}
	defer release()

	p := row.nutrition()
	var replacement mealplan.Recommendation
	if slot.IsMeal() {
		current, _ := rec.Meal(slot)
		m := h.gen.meal(c, slot, rec.TargetCalories, p.DietaryRestrictions, current.Name)
		switch slot {
		case mealplan.Breakfast:
			replacement.Breakfast = m
		case mealplan.Lunch:
			replacement.Lunch = m
		case mealplan.Dinner:
			replacement.Dinner = m
		}
	} else {
		names := make([]string, len(rec.Activities))
		for i, a := range rec.Activities {
			names[i] = a.Name
		}
		m := nutrition.Compute(&p, float64(rec.TargetCalories))
		replacement.Activities = h.gen.activities(nutrition.CaloriesToBurn(m.TDEE, float64(rec.TargetCalories)), names)
	}

	updated, err := h.store.updateRecommendation(c, userID, rec.WithSlot(slot, replacement))
	if errors.Is(err, errCheckedIn) {
		apiErrorCode(c, http.StatusConflict, "day_checked_in", "This day is already checked in")
		return
	}
	if err != nil {
		h.storeError(c, err, "No recommendation found for "+d.String(), "failed to regenerate recommendation")
		return
	}
	h.log.Info("slot regenerated", "user_id", userID, "date", d.String(), "slot", string(slot))
	c.JSON(http.StatusOK, mealplan.RegenerateResponse{
		Recommendations: updated,
		Message:         strings.ToUpper(string(slot[:1])) + string(slot[1:]) + " regenerated successfully",
	})
}

/* ─── Calendar ───────────────────────────────────────────────────────── */

// getMonth lists a calendar month of plans with their check-in flags.
// GET /api/recommendations/month/:year/:month
func (h *Handler) getMonth(c *gin.Context) {
	userID := c.GetInt("user_id")
	year, yerr := strconv.Atoi(c.Param("year"))
	month, merr := strconv.Atoi(c.Param("month"))
	if yerr != nil || merr != nil || year < 2020 || year > 2050 || month < 1 || month > 12 {
		apiError(c, http.StatusBadRequest, "Invalid year or month")
		return
	}
	from := mealplan.NewDate(time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC))
	to := mealplan.NewDate(from.AddDate(0, 1, -1))

	recs, err := h.store.recommendationsBetween(c, userID, from, to)
	if err != nil {
		h.storeError(c, err, "", "failed to fetch recommendations")
		return
	}
	checkins, err := h.store.checkinsBetween(c, userID, from, to)
	if err != nil {
		h.storeError(c, err, "", "failed to fetch check-ins")
		return
	}
	byDate := make(map[string]mealplan.Checkin, len(checkins))
	for _, ci := range checkins {
		byDate[ci.Date.String()] = ci
	}

	entries := make([]mealplan.MonthEntry, len(recs))
	for i, r := range recs {
		entries[i] = mealplan.MonthEntry{Recommendation: r}
		if ci, ok := byDate[r.Date.String()]; ok {
			flags := ci.Flags()
			entries[i].Checkin = &flags
		}
	}
	c.JSON(http.StatusOK, mealplan.MonthResponse{Status: "success", Recommendations: entries})
}

// getHistory returns the most recent plans up to today, newest first.
// GET /api/recommendations/history
func (h *Handler) getHistory(c *gin.Context) {
	userID := c.GetInt("user_id")
	today := h.today()
	recs, err := h.store.recentRecommendations(c, userID, today, historyLimit)
	if err != nil {
		h.storeError(c, err, "", "failed to fetch history")
		return
	}
	history := make([]mealplan.HistoryEntry, 0, len(recs))
	if len(recs) == 0 {
		c.JSON(http.StatusOK, mealplan.HistoryResponse{History: history})
		return
	}

	checkins, err := h.store.checkinsBetween(c, userID, recs[len(recs)-1].Date, today)
	if err != nil {
		h.storeError(c, err, "", "failed to fetch check-ins")
		return
	}
	byDate := make(map[string]mealplan.Checkin, len(checkins))
	for _, ci := range checkins {
		byDate[ci.Date.String()] = ci
	}
	for _, r := range recs {
		entry := mealplan.HistoryEntry{Recommendation: r}
		if ci, ok := byDate[r.Date.String()]; ok {
			entry.Checkin = &ci
		}
		history = append(history, entry)
	}
	c.JSON(http.StatusOK, mealplan.HistoryResponse{History: history})
}
