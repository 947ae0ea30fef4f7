package main

import (
	"errors"
	"net/http"
	"net/mail"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"lg/mealmind-go-api/internal/mealplan"
)

// dummyHash is a pre-computed bcrypt hash used when a login email isn't found.
// Running bcrypt against it (instead of returning early) keeps response time
// constant, preventing timing-based account enumeration.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("dummy"), bcrypt.DefaultCost)

const minPasswordLength = 6

// accessClaims are the JWT claims of an access token. Subject is the user id.
type accessClaims struct {
	jwt.RegisteredClaims
}

// issueToken signs an HS256 access token for userID.
func (h *Handler) issueToken(userID int) (string, error) {
	now := h.now()
	claims := accessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.Itoa(userID),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(h.jwtTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(h.jwtSecret)
}

// parseToken validates a token and returns its user id.
func (h *Handler) parseToken(tokenString string) (int, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &accessClaims{}, func(t *jwt.Token) (interface{}, error) {
		return h.jwtSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(h.now))
	if err != nil {
		return 0, err
	}
	claims, ok := parsed.Claims.(*accessClaims)
	if !ok || !parsed.Valid {
		return 0, jwt.ErrTokenInvalidClaims
	}
	return strconv.Atoi(claims.Subject)
}

// signup creates an account.
// POST /api/auth/signup (public).
func (h *Handler) signup(c *gin.Context) {
	var body mealplan.SignupRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	body.Email = strings.TrimSpace(body.Email)
	body.Username = strings.TrimSpace(body.Username)
	if body.Email == "" || body.Username == "" || body.Password == "" {
		apiError(c, http.StatusBadRequest, "Missing required fields")
		return
	}
	if _, err := mail.ParseAddress(body.Email); err != nil {
		apiError(c, http.StatusBadRequest, "invalid email address")
		return
	}
	if len(body.Password) < minPasswordLength {
		apiError(c, http.StatusBadRequest, "password must be at least 6 characters")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(body.Password), bcrypt.DefaultCost)
	if err != nil {
		h.log.Error("hash password failed", "error", err)
		apiError(c, http.StatusInternalServerError, "failed to create user")
		return
	}
	u, err := h.store.createUser(c, body.Email, body.Username, string(hash))
	if errors.Is(err, errDuplicate) {
		apiErrorCode(c, http.StatusBadRequest, "email_taken", "Email already registered")
		return
	}
	if err != nil {
		h.storeError(c, err, "user not found", "failed to create user")
		return
	}

	h.log.Info("user created", "user_id", u.ID)
	c.JSON(http.StatusCreated, mealplan.SignupResponse{Message: "User created successfully", User: u.public()})
}

// login verifies email/password and returns an access token.
// POST /api/auth/login (public).
func (h *Handler) login(c *gin.Context) {
	var body mealplan.LoginRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.Email == "" || body.Password == "" {
		apiError(c, http.StatusBadRequest, "Missing email or password")
		return
	}

	u, lookupErr := h.store.userByEmail(c, strings.TrimSpace(body.Email))
	if lookupErr != nil && !errors.Is(lookupErr, mealplan.ErrNotFound) {
		h.storeError(c, lookupErr, "", "failed to look up user")
		return
	}

	// Always run bcrypt to keep response time constant regardless of whether the
	// email was found.
	hashToCheck := string(dummyHash)
	if lookupErr == nil {
		hashToCheck = u.Password
	}
	compareErr := bcrypt.CompareHashAndPassword([]byte(hashToCheck), []byte(body.Password))
	if lookupErr != nil || compareErr != nil {
		apiError(c, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	token, err := h.issueToken(u.ID)
	if err != nil {
		h.log.Error("sign token failed", "error", err)
		apiError(c, http.StatusInternalServerError, "failed to sign token")
		return
	}
	hasProfile, err := h.hasProfile(c, u.ID)
	if err != nil {
		h.storeError(c, err, "", "failed to fetch profile")
		return
	}

	h.log.Info("login", "user_id", u.ID)
	c.JSON(http.StatusOK, mealplan.LoginResponse{AccessToken: token, User: u.public(), HasProfile: hasProfile})
}

// me returns the authenticated user.
// GET /api/auth/me
func (h *Handler) me(c *gin.Context) {
	userID := c.GetInt("user_id")
	u, err := h.store.userByID(c, userID)
	if err != nil {
		h.storeError(c, err, "User not found", "failed to fetch user")
		return
	}
	hasProfile, err := h.hasProfile(c, userID)
	if err != nil {
		h.storeError(c, err, "", "failed to fetch profile")
		return
	}
	c.JSON(http.StatusOK, mealplan.MeResponse{User: u.public(), HasProfile: hasProfile})
}

func (h *Handler) hasProfile(c *gin.Context, userID int) (bool, error) {
	_, err := h.store.profile(c, userID)
	if errors.Is(err, mealplan.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

// authMiddleware validates the Bearer token and sets user_id on the context.
func (h *Handler) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			apiErrorCode(c, http.StatusUnauthorized, "missing_token", "missing or invalid authorization header")
			c.Abort()
			return
		}

		userID, err := h.parseToken(strings.TrimPrefix(header, "Bearer "))
		if errors.Is(err, jwt.ErrTokenExpired) {
			apiErrorCode(c, http.StatusUnauthorized, "token_expired", "token has expired")
			c.Abort()
			return
		}
		if err != nil {
			apiErrorCode(c, http.StatusUnauthorized, "invalid_token", "invalid token")
			c.Abort()
			return
		}

		c.Set("user_id", userID)
		c.Next()
	}
}
