package main

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"lg/mealmind-go-api/internal/mealplan"
	"lg/mealmind-go-api/internal/nutrition"
)

// validationError writes a 400 listing every failing profile field.
func validationError(c *gin.Context, err error) {
	var ve *nutrition.ValidationError
	if errors.As(err, &ve) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":      err.Error(),
			"code":       "invalid_profile",
			"fields":     ve.Fields,
			"request_id": c.GetString("request_id"),
		})
		return
	}
	apiError(c, http.StatusBadRequest, err.Error())
}

// normalizeRestrictions lowercases, trims and de-duplicates restriction tags.
func normalizeRestrictions(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, r := range in {
		r = strings.ToLower(strings.TrimSpace(r))
		if r == "" || seen[r] {
			continue
		}
		seen[r] = true
		out = append(out, r)
	}
	return out
}

// setupProfile creates the profile, replacing any existing one. Running it
// again restarts the program: day one becomes today and unchecked plans from
// today on are dropped so they are rebuilt for the new target.
// POST /api/profile/setup
func (h *Handler) setupProfile(c *gin.Context) {
	userID := c.GetInt("user_id")
	var body nutrition.Profile
	if err := c.ShouldBindJSON(&body); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	body.Gender = nutrition.Gender(strings.ToLower(string(body.Gender)))
	body.DietaryRestrictions = normalizeRestrictions(body.DietaryRestrictions)
	if err := body.Validate(); err != nil {
		validationError(c, err)
		return
	}

	row, err := h.store.saveProfile(c, userID, body, h.dietDuration)
	if err != nil {
		h.storeError(c, err, "user not found", "failed to save profile")
		return
	}
	dropped, err := h.store.deleteUncheckedAfter(c, userID, h.today().AddDays(-1))
	if err != nil {
		// Stale plans only carry the old target; setup itself succeeded.
		h.log.Warn("drop stale plans failed", "user_id", userID, "error", err)
	}

	h.log.Info("profile saved", "user_id", userID, "dropped_plans", dropped)
	c.JSON(http.StatusCreated, mealplan.ProfileResponse{Message: "Profile created successfully", Profile: row.stored()})
}

// getProfile returns the stored profile.
// GET /api/profile/get
func (h *Handler) getProfile(c *gin.Context) {
	row, err := h.store.profile(c, c.GetInt("user_id"))
	if err != nil {
		h.storeError(c, err, "Profile not found", "failed to fetch profile")
		return
	}
	c.JSON(http.StatusOK, mealplan.ProfileResponse{Profile: row.stored()})
}

// updateProfile applies a partial update. Only fields present in the body are
// changed; the merged profile must still validate.
// PUT /api/profile/update
func (h *Handler) updateProfile(c *gin.Context) {
	userID := c.GetInt("user_id")
	var patch mealplan.ProfilePatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	row, err := h.store.profile(c, userID)
	if err != nil {
		h.storeError(c, err, "Profile not found", "failed to fetch profile")
		return
	}
	p := row.nutrition()
	if patch.Age != nil {
		p.Age = *patch.Age
	}
	if patch.Gender != nil {
		p.Gender = nutrition.Gender(strings.ToLower(*patch.Gender))
	}
	if patch.Weight != nil {
		p.WeightKG = *patch.Weight
	}
	if patch.Height != nil {
		p.HeightCM = *patch.Height
	}
	if patch.GoalWeight != nil {
		p.GoalWeightKG = *patch.GoalWeight
	}
	if patch.ActivityLevel != nil {
		p.ActivityLevel = nutrition.ActivityLevel(*patch.ActivityLevel)
	}
	if patch.DietaryRestrictions != nil {
		p.DietaryRestrictions = normalizeRestrictions(*patch.DietaryRestrictions)
	}
	if err := p.Validate(); err != nil {
		validationError(c, err)
		return
	}

	row, err = h.store.updateProfile(c, userID, p)
	if err != nil {
		h.storeError(c, err, "Profile not found", "failed to update profile")
		return
	}
	c.JSON(http.StatusOK, mealplan.ProfileResponse{Message: "Profile updated successfully", Profile: row.stored()})
}

// resetProfile deletes the profile row only. Plans and check-ins are kept.
// POST /api/profile/reset
func (h *Handler) resetProfile(c *gin.Context) {
	userID := c.GetInt("user_id")
	if err := h.store.deleteProfile(c, userID); err != nil {
		h.storeError(c, err, "No profile found", "failed to reset profile")
		return
	}
	h.log.Info("profile reset", "user_id", userID)
	c.JSON(http.StatusOK, gin.H{"message": "Profile reset successfully"})
}
