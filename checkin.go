package main

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"lg/mealmind-go-api/internal/mealplan"
)

// checkinConflict is the 409 body for a second check-in on the same date.
// It carries the stored record so clients can treat it as confirmation.
type checkinConflict struct {
	mealplan.ErrorBody
	Checkin mealplan.Checkin `json:"checkin"`
}

func alreadyCheckedIn(c *gin.Context, existing mealplan.Checkin) {
	c.JSON(http.StatusConflict, checkinConflict{
		ErrorBody: mealplan.ErrorBody{
			Error:     "Already checked in today",
			Code:      "already_checked_in",
			RequestID: c.GetString("request_id"),
		},
		Checkin: existing,
	})
}

// checkin records completion for a date (today by default). A date can be
// checked in once. When the day was not fully completed, tomorrow's plan is
// rebuilt from the current profile unless tomorrow is already checked in.
// POST /api/recommendations/checkin
func (h *Handler) checkin(c *gin.Context) {
	userID := c.GetInt("user_id")
	var body mealplan.CheckinRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.FoodCompleted == nil || body.ActivityCompleted == nil {
		apiError(c, http.StatusBadRequest, "Missing food_completed or activity_completed")
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
			apiErrorCode(c, http.StatusBadRequest, "future_date", "Cannot check in for a future date")
			return
		}
	}

	rec, err := h.store.recommendation(c, userID, d)
	if err != nil {
		h.storeError(c, err, "No recommendation found for "+d.String(), "failed to fetch recommendation")
		return
	}
	if existing, err := h.store.checkin(c, userID, d); err == nil {
		alreadyCheckedIn(c, existing)
		return
	} else if !errors.Is(err, mealplan.ErrNotFound) {
		h.storeError(c, err, "", "failed to fetch check-in")
		return
	}

	ci, err := h.store.insertCheckin(c, userID, rec.ID, mealplan.Checkin{
		Date:              d,
		FoodCompleted:     *body.FoodCompleted,
		ActivityCompleted: *body.ActivityCompleted,
		Notes:             body.Notes,
	})
	if errors.Is(err, errDuplicate) {
		// Lost a race with a concurrent check-in for the same date.
		if existing, ferr := h.store.checkin(c, userID, d); ferr == nil {
			alreadyCheckedIn(c, existing)
			return
		}
	}
	if err != nil {
		h.storeError(c, err, "", "failed to save check-in")
		return
	}
	h.log.Info("checked in", "user_id", userID, "date", d.String(), "completed", ci.Completed())

	tomorrow := d.AddDays(1)
	resp := mealplan.CheckinResponse{
		Message:                "Check-in successful",
		Checkin:                ci,
		RecommendationUpdated:  ci.Completed(),
		NextDate:               tomorrow.String(),
		WillRegenerateTomorrow: !ci.Completed(),
	}

	next, err := h.store.recommendation(c, userID, tomorrow)
	hasNext := err == nil
	if err != nil && !errors.Is(err, mealplan.ErrNotFound) {
		h.log.Warn("fetch next day failed", "user_id", userID, "error", err)
	}
	if !ci.Completed() {
		if rebuilt, ok := h.rebuildDay(c, userID, tomorrow, hasNext); ok {
			next, hasNext = rebuilt, true
		}
	}
	if hasNext {
		resp.NextDayRecommendation = &next
	}
	c.JSON(http.StatusCreated, resp)
}

// rebuildDay replaces (or creates) the plan for d from the current profile.
// Failures are logged; the check-in itself has already been stored.
func (h *Handler) rebuildDay(c *gin.Context, userID int, d mealplan.Date, exists bool) (mealplan.Recommendation, bool) {
	if _, err := h.store.checkin(c, userID, d); err == nil {
		return mealplan.Recommendation{}, false
	}
	row, err := h.store.profile(c, userID)
	if err != nil {
		h.log.Warn("rebuild next day skipped", "user_id", userID, "error", err)
		return mealplan.Recommendation{}, false
	}
	plan := h.gen.plan(c, row.nutrition(), d)
	var rec mealplan.Recommendation
	if exists {
		rec, err = h.store.updateRecommendation(c, userID, plan)
	} else {
		rec, err = h.store.insertRecommendation(c, userID, plan)
	}
	if err != nil {
		h.log.Warn("rebuild next day failed", "user_id", userID, "date", d.String(), "error", err)
		return mealplan.Recommendation{}, false
	}
	return rec, true
}
