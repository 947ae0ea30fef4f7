package main

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"lg/mealmind-go-api/internal/mealplan"
	"lg/mealmind-go-api/internal/nutrition"
)

// defaultProgressDays is the look-back window when days or start is omitted.
const defaultProgressDays = 30

/* ─── Weight ─────────────────────────────────────────────────────────── */

// recordWeight logs a weigh-in and moves the profile weight to it, so BMR,
// TDEE and the calorie target follow. Posting the same date again replaces
// that day's entry. A backdated entry older than the latest one is logged
// without touching the profile.
// POST /api/progress/weight/record. Body: { "weight": 71.5, "date"?: "YYYY-MM-DD" }.
func (h *Handler) recordWeight(c *gin.Context) {
	userID := c.GetInt("user_id")
	var body mealplan.WeightRecordRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.Weight == nil {
		apiError(c, http.StatusBadRequest, "Weight is required")
		return
	}

	today := h.today()
	d := today
	if body.Date != "" {
		var err error
		if d, err = mealplan.ParseDate(body.Date); err != nil {
			invalidDate(c)
			return
		}
		if d.After(today) {
			apiErrorCode(c, http.StatusBadRequest, "future_date", "Cannot record weight for a future date")
			return
		}
	}

	row, err := h.store.profile(c, userID)
	if err != nil {
		h.storeError(c, err, "Profile not found", "failed to fetch profile")
		return
	}
	p := row.nutrition()
	p.WeightKG = *body.Weight
	if err := p.Validate(); err != nil {
		validationError(c, err)
		return
	}

	entry, row, updated, err := h.store.recordWeight(c, userID, mealplan.WeightEntry{Date: d, Weight: *body.Weight})
	if err != nil {
		h.storeError(c, err, "Profile not found", "failed to record weight")
		return
	}
	p = row.nutrition()
	m := nutrition.Compute(&p, 0)

	h.log.Info("weight recorded", "user_id", userID, "date", d.String(), "profile_updated", updated)
	c.JSON(http.StatusCreated, mealplan.WeightRecordResponse{
		Message:        fmt.Sprintf("Weight recorded: %g kg on %s", entry.Weight, d),
		Entry:          entry,
		Profile:        row.stored(),
		ProfileUpdated: updated,
		Metrics:        mealplan.TodayMetrics{BMR: m.BMR, TDEE: m.TDEE, TargetCalories: m.TargetCalories},
	})
}

// getWeightLog returns weigh-ins within [start, end], oldest first. Both
// params are optional; the default window is the last 30 days.
// GET /api/progress/weight?start=YYYY-MM-DD&end=YYYY-MM-DD
func (h *Handler) getWeightLog(c *gin.Context) {
	userID := c.GetInt("user_id")
	end := h.today()
	start := end.AddDays(-defaultProgressDays)
	var err error
	if s := c.Query("start"); s != "" {
		if start, err = mealplan.ParseDate(s); err != nil {
			invalidDate(c)
			return
		}
	}
	if s := c.Query("end"); s != "" {
		if end, err = mealplan.ParseDate(s); err != nil {
			invalidDate(c)
			return
		}
	}
	if start.After(end) {
		apiError(c, http.StatusBadRequest, "start must not be after end")
		return
	}

	entries, err := h.store.weightLogs(c, userID, start, end)
	if err != nil {
		h.storeError(c, err, "", "failed to fetch weight log")
		return
	}
	if entries == nil {
		entries = []mealplan.WeightEntry{}
	}
	c.JSON(http.StatusOK, mealplan.WeightLogResponse{Entries: entries})
}

/* ─── Adherence ──────────────────────────────────────────────────────── */

// daysParam reads ?days=N, defaulting to 30. N must be in [1, 365].
func daysParam(c *gin.Context) (int, error) {
	s := c.Query("days")
	if s == "" {
		return defaultProgressDays, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > 365 {
		return 0, errors.New("days must be an integer between 1 and 365")
	}
	return n, nil
}

// getAdherence summarises check-ins over the last N days, today included.
// GET /api/progress/adherence?days=N
func (h *Handler) getAdherence(c *gin.Context) {
	userID := c.GetInt("user_id")
	days, err := daysParam(c)
	if err != nil {
		apiError(c, http.StatusBadRequest, err.Error())
		return
	}
	end := h.today()
	start := end.AddDays(-days)

	checkins, err := h.store.checkinsBetween(c, userID, start, end)
	if err != nil {
		h.storeError(c, err, "", "failed to fetch check-ins")
		return
	}
	c.JSON(http.StatusOK, mealplan.AdherenceResponse{
		Period:   mealplan.Period{StartDate: start.String(), EndDate: end.String(), Days: days},
		Analysis: mealplan.AnalyzeAdherence(checkins),
	})
}

/* ─── Stats ──────────────────────────────────────────────────────────── */

// getStats reports program progress, start/current/goal weight and the
// check-in aggregates shown on the dashboard.
// GET /api/progress/stats
func (h *Handler) getStats(c *gin.Context) {
	userID := c.GetInt("user_id")
	row, err := h.store.profile(c, userID)
	if err != nil {
		h.storeError(c, err, "Profile not found", "failed to fetch profile")
		return
	}
	var logged []mealplan.WeightEntry
	first, err := h.store.firstWeight(c, userID)
	switch {
	case err == nil:
		logged = []mealplan.WeightEntry{first}
	case !errors.Is(err, mealplan.ErrNotFound):
		h.storeError(c, err, "", "failed to fetch weight log")
		return
	}
	checkins, err := h.store.checkins(c, userID)
	if err != nil {
		h.storeError(c, err, "", "failed to fetch check-ins")
		return
	}

	today := h.today()
	c.JSON(http.StatusOK, mealplan.UserStatsResponse{
		Progress: mealplan.Progress(row.startDate(h.loc), today, row.DietDurationDays),
		Weight:   mealplan.NewWeightStats(logged, row.Weight, row.GoalWeight),
		Checkins: mealplan.Stats(checkins, today),
	})
}
