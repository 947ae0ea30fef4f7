// CLI tool to create a user with a bcrypt-hashed password and, optionally,
// a starting profile.
// Usage: go run ./cmd/create-user
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"

	"lg/mealmind-go-api/internal/mealplan"
	"lg/mealmind-go-api/internal/nutrition"
)

func main() {
	_ = godotenv.Load()

	conn, err := pgx.Connect(context.Background(), os.Getenv("DB_URL"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Unable to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer conn.Close(context.Background())

	p := newPrompter(os.Stdin, os.Stdout)
	username := p.ask("Username")
	email := p.ask("Email")
	password := p.ask("Password")
	if username == "" || email == "" || len(password) < 6 {
		fmt.Fprintln(os.Stderr, "username and email are required; password needs 6+ characters")
		os.Exit(1)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error hashing password: %v\n", err)
		os.Exit(1)
	}

	var userID int
	err = conn.QueryRow(context.Background(),
		`INSERT INTO users (username, email, password) VALUES ($1, $2, $3) RETURNING id`,
		username, email, string(hash),
	).Scan(&userID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating user: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("\nUser created successfully!\n")
	fmt.Printf("  ID:       %d\n", userID)
	fmt.Printf("  Username: %s\n", username)

	if !strings.EqualFold(p.ask("Create profile now? (y/N)"), "y") {
		return
	}
	prof, err := p.profile()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid profile: %v\n", err)
		os.Exit(1)
	}
	_, err = conn.Exec(context.Background(),
		`INSERT INTO profiles (user_id, age, gender, weight, height, goal_weight, activity_level,
		                       dietary_restrictions, diet_duration_days)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		userID, prof.Age, string(prof.Gender), prof.WeightKG, prof.HeightCM, prof.GoalWeightKG,
		string(prof.ActivityLevel), prof.DietaryRestrictions, mealplan.DefaultDietDuration)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating profile: %v\n", err)
		os.Exit(1)
	}
	m := nutrition.Compute(&prof, 0)
	fmt.Printf("  Profile:  BMR %.0f, TDEE %.0f, target %.0f kcal\n", m.BMR, m.TDEE, m.TargetCalories)
}

// prompter reads one trimmed line per question.
type prompter struct {
	r *bufio.Reader
	w io.Writer
}

func newPrompter(r io.Reader, w io.Writer) *prompter {
	return &prompter{r: bufio.NewReader(r), w: w}
}

func (p *prompter) ask(label string) string {
	fmt.Fprintf(p.w, "%s: ", label)
	line, _ := p.r.ReadString('\n')
	return strings.TrimSpace(line)
}

// profile prompts for every profile field and validates the result.
func (p *prompter) profile() (nutrition.Profile, error) {
	var prof nutrition.Profile
	var err error
	if prof.Age, err = strconv.Atoi(p.ask("Age")); err != nil {
		return prof, fmt.Errorf("age: %w", err)
	}
	prof.Gender = nutrition.Gender(strings.ToLower(p.ask("Gender (male/female)")))
	for _, f := range []struct {
		label string
		dst   *float64
	}{
		{"Weight (kg)", &prof.WeightKG},
		{"Height (cm)", &prof.HeightCM},
		{"Goal weight (kg)", &prof.GoalWeightKG},
	} {
		if *f.dst, err = strconv.ParseFloat(p.ask(f.label), 64); err != nil {
			return prof, fmt.Errorf("%s: %w", f.label, err)
		}
	}
	prof.ActivityLevel = nutrition.ActivityLevel(p.ask("Activity level (sedentary/light/moderate/active/very_active)"))
	prof.DietaryRestrictions = []string{}
	for _, r := range strings.Split(p.ask("Dietary restrictions (comma separated, blank for none)"), ",") {
		if r = strings.ToLower(strings.TrimSpace(r)); r != "" {
			prof.DietaryRestrictions = append(prof.DietaryRestrictions, r)
		}
	}
	return prof, prof.Validate()
}
