package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"strconv"
	"strings"

	"lg/mealmind-go-api/internal/dayplan"
	"lg/mealmind-go-api/internal/mealplan"
	"lg/mealmind-go-api/internal/nutrition"
)

type command func(ctx context.Context, a *app, args []string) error

var commands = map[string]command{
	"signup":      cmdSignup,
	"login":       cmdLogin,
	"me":          cmdMe,
	"profile":     cmdProfile,
	"today":       cmdToday,
	"day":         cmdDay,
	"regen":       cmdRegen,
	"checkin":     cmdCheckin,
	"month-ahead": cmdMonthAhead,
	"month":       cmdMonth,
	"history":     cmdHistory,
	"weight":      cmdWeight,
	"progress":    cmdProgress,
}

func newFlags(a *app, name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.out)
	return fs
}

// dateFlag parses an optional -date value, defaulting to today.
func dateFlag(a *app, s string) (mealplan.Date, error) {
	if s == "" {
		return a.planner.Today(), nil
	}
	return mealplan.ParseDate(s)
}

/* ─── Account ────────────────────────────────────────────────────────── */

func cmdSignup(ctx context.Context, a *app, args []string) error {
	fs := newFlags(a, "signup")
	var req mealplan.SignupRequest
	fs.StringVar(&req.Email, "email", "", "email address")
	fs.StringVar(&req.Username, "username", "", "display name")
	fs.StringVar(&req.Password, "password", "", "password (6+ characters)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	resp, err := a.client.Signup(ctx, req)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s: %s (id %d)\n", resp.Message, resp.User.Email, resp.User.ID)
	return nil
}

func cmdLogin(ctx context.Context, a *app, args []string) error {
	fs := newFlags(a, "login")
	email := fs.String("email", "", "email address")
	password := fs.String("password", "", "password")
	if err := fs.Parse(args); err != nil {
		return err
	}
	resp, err := a.client.Login(ctx, *email, *password)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Signed in as %s.\n", resp.User.Username)
	if !resp.HasProfile {
		fmt.Fprintln(a.out, "No profile yet: run `mealmind profile setup`.")
	}
	fmt.Fprintf(a.out, "export MEALMIND_TOKEN=%s\n", resp.AccessToken)
	return nil
}

func cmdMe(ctx context.Context, a *app, _ []string) error {
	resp, err := a.client.Me(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s <%s> id %d, profile: %t\n", resp.User.Username, resp.User.Email, resp.User.ID, resp.HasProfile)
	return nil
}

/* ─── Profile ────────────────────────────────────────────────────────── */

func cmdProfile(ctx context.Context, a *app, args []string) error {
	sub := "show"
	if len(args) > 0 {
		sub, args = args[0], args[1:]
	}
	switch sub {
	case "show":
		p, err := a.client.GetProfile(ctx)
		if err != nil {
			return err
		}
		printProfile(a.out, p)
		return nil
	case "setup":
		return profileSetup(ctx, a, args)
	case "update":
		return profileUpdate(ctx, a, args)
	case "reset":
		if err := a.client.ResetProfile(ctx); err != nil {
			return err
		}
		fmt.Fprintln(a.out, "Profile reset.")
		return nil
	}
	return fmt.Errorf("unknown profile command %q", sub)
}

func profileSetup(ctx context.Context, a *app, args []string) error {
	fs := newFlags(a, "profile setup")
	var p nutrition.Profile
	var gender, level, restrictions string
	fs.IntVar(&p.Age, "age", 0, "age in years")
	fs.StringVar(&gender, "gender", "", "male or female")
	fs.Float64Var(&p.WeightKG, "weight", 0, "weight in kg")
	fs.Float64Var(&p.HeightCM, "height", 0, "height in cm")
	fs.Float64Var(&p.GoalWeightKG, "goal", 0, "goal weight in kg")
	fs.StringVar(&level, "activity", string(nutrition.Moderate), "sedentary|light|moderate|active|very_active")
	fs.StringVar(&restrictions, "restrictions", "", "comma-separated dietary restrictions")
	if err := fs.Parse(args); err != nil {
		return err
	}
	p.Gender = nutrition.Gender(strings.ToLower(gender))
	p.ActivityLevel = nutrition.ActivityLevel(level)
	p.DietaryRestrictions = splitList(restrictions)

	stored, err := a.client.SetupProfile(ctx, p)
	if err != nil {
		return err
	}
	printProfile(a.out, stored)
	return nil
}

func profileUpdate(ctx context.Context, a *app, args []string) error {
	fs := newFlags(a, "profile update")
	age := fs.Int("age", 0, "age in years")
	weight := fs.Float64("weight", 0, "weight in kg")
	height := fs.Float64("height", 0, "height in cm")
	goal := fs.Float64("goal", 0, "goal weight in kg")
	level := fs.String("activity", "", "activity level")
	restrictions := fs.String("restrictions", "", "comma-separated dietary restrictions")
	if err := fs.Parse(args); err != nil {
		return err
	}

	// Only flags given on the command line become part of the patch.
	var patch mealplan.ProfilePatch
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "age":
			patch.Age = age
		case "weight":
			patch.Weight = weight
		case "height":
			patch.Height = height
		case "goal":
			patch.GoalWeight = goal
		case "activity":
			patch.ActivityLevel = level
		case "restrictions":
			list := splitList(*restrictions)
			patch.DietaryRestrictions = &list
		}
	})
	stored, err := a.client.UpdateProfile(ctx, patch)
	if err != nil {
		return err
	}
	printProfile(a.out, stored)
	return nil
}

func splitList(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

/* ─── Plans ──────────────────────────────────────────────────────────── */

func cmdToday(ctx context.Context, a *app, _ []string) error {
	day, err := a.planner.Fetch(ctx, a.planner.Today())
	if err != nil {
		return err
	}
	printOverview(a.out, a.planner.Overview())
	printDay(a.out, day)
	return nil
}

func cmdDay(ctx context.Context, a *app, args []string) error {
	fs := newFlags(a, "day")
	create := fs.Bool("create", false, "generate a plan when a future day has none")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("%w: day needs a YYYY-MM-DD date", mealplan.ErrValidation)
	}
	res, err := a.planner.ResolveString(ctx, fs.Arg(0))
	if err != nil {
		return err
	}
	switch res.Outcome {
	case dayplan.OutcomeAbsent:
		fmt.Fprintf(a.out, "No plan for %s.\n", res.Day.Date)
		return nil
	case dayplan.OutcomeCreatable:
		if !*create {
			fmt.Fprintf(a.out, "No plan for %s yet. Re-run with -create to generate one.\n", res.Day.Date)
			return nil
		}
		day, err := a.planner.Create(ctx, res.Day.Date)
		if err != nil {
			return err
		}
		printDay(a.out, day)
		return nil
	}
	printDay(a.out, res.Day)
	return nil
}

func cmdRegen(ctx context.Context, a *app, args []string) error {
	fs := newFlags(a, "regen")
	date := fs.String("date", "", "date (default today)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("%w: regen needs a slot", mealplan.ErrValidation)
	}
	slot, err := mealplan.ParseSlot(fs.Arg(0))
	if err != nil {
		return err
	}
	d, err := dateFlag(a, *date)
	if err != nil {
		return err
	}
	if _, err := a.planner.Fetch(ctx, d); err != nil {
		return err
	}
	day, err := a.planner.Regenerate(ctx, d, slot)
	if errors.Is(err, dayplan.ErrDayCheckedIn) {
		return fmt.Errorf("%s is already checked in; its plan is final", d)
	}
	if err != nil {
		return err
	}
	printDay(a.out, day)
	return nil
}

func cmdCheckin(ctx context.Context, a *app, args []string) error {
	fs := newFlags(a, "checkin")
	date := fs.String("date", "", "date (default today)")
	food := fs.Bool("food", false, "meals were followed")
	activity := fs.Bool("activity", false, "activity was done")
	if err := fs.Parse(args); err != nil {
		return err
	}
	d, err := dateFlag(a, *date)
	if err != nil {
		return err
	}
	if _, err := a.planner.Fetch(ctx, d); err != nil {
		return err
	}
	wasCheckedIn := a.planner.Snapshot(d).Checkin == dayplan.CheckedIn
	a.planner.SetDraft(d, *food, *activity)
	day, err := a.planner.SubmitDraft(ctx, d)
	if err != nil {
		return err
	}
	switch rec := day.CheckinRecord; {
	case rec == nil:
		fmt.Fprintf(a.out, "Already checked in for %s.\n", d)
	case wasCheckedIn || day.Duplicate:
		fmt.Fprintf(a.out, "Already checked in for %s (food: %t, activity: %t).\n", d, rec.FoodCompleted, rec.ActivityCompleted)
	default:
		fmt.Fprintf(a.out, "Checked in for %s (food: %t, activity: %t).\n", d, rec.FoodCompleted, rec.ActivityCompleted)
	}
	if m := a.planner.Overview().Metrics; m.TargetCalories > 0 {
		fmt.Fprintf(a.out, "Daily target: %.0f kcal\n", m.TargetCalories)
	}
	return nil
}

func cmdMonthAhead(ctx context.Context, a *app, _ []string) error {
	resp, err := a.client.GenerateMonthAhead(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Created %d plans, %d already existed.\n", resp.Created, resp.AlreadyExisted)
	return nil
}

func cmdMonth(ctx context.Context, a *app, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("%w: month needs YEAR MONTH", mealplan.ErrValidation)
	}
	year, yerr := strconv.Atoi(args[0])
	month, merr := strconv.Atoi(args[1])
	if yerr != nil || merr != nil {
		return fmt.Errorf("%w: YEAR and MONTH must be numbers", mealplan.ErrValidation)
	}
	resp, err := a.client.Month(ctx, year, month)
	if err != nil {
		return err
	}
	printMonth(a.out, resp.Recommendations)
	return nil
}

func cmdHistory(ctx context.Context, a *app, _ []string) error {
	resp, err := a.client.History(ctx)
	if err != nil {
		return err
	}
	printHistory(a.out, resp.History)
	return nil
}

/* ─── Progress ───────────────────────────────────────────────────────── */

// cmdWeight records a weigh-in, or lists them with "weight log".
func cmdWeight(ctx context.Context, a *app, args []string) error {
	if len(args) > 0 && args[0] == "log" {
		entries, err := a.client.WeightLog(ctx, mealplan.Date{}, mealplan.Date{})
		if err != nil {
			return err
		}
		printWeightLog(a.out, entries)
		return nil
	}

	fs := newFlags(a, "weight")
	date := fs.String("date", "", "date of the weigh-in (default today)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("%w: weight needs a value in kg", mealplan.ErrValidation)
	}
	kg, err := strconv.ParseFloat(fs.Arg(0), 64)
	if err != nil {
		return fmt.Errorf("%w: weight must be a number", mealplan.ErrValidation)
	}
	var d mealplan.Date
	if *date != "" {
		if d, err = mealplan.ParseDate(*date); err != nil {
			return err
		}
	}

	resp, m, err := a.planner.RecordWeight(ctx, kg, d)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Recorded %.1f kg for %s.\n", resp.Entry.Weight, resp.Entry.Date)
	if !resp.ProfileUpdated {
		fmt.Fprintf(a.out, "A later weigh-in exists; profile weight stays %.1f kg.\n", resp.Profile.Weight)
		return nil
	}
	fmt.Fprintf(a.out, "BMR %.0f | TDEE %.0f | target %.0f kcal\n", m.BMR, m.TDEE, m.TargetCalories)
	return nil
}

// cmdProgress prints weight stats and adherence over the last -days days.
func cmdProgress(ctx context.Context, a *app, args []string) error {
	fs := newFlags(a, "progress")
	days := fs.Int("days", 0, "adherence window in days (default 30)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	stats, err := a.client.Stats(ctx)
	if err != nil {
		return err
	}
	adherence, err := a.client.Adherence(ctx, *days)
	if err != nil {
		return err
	}
	printProgress(a.out, stats, adherence)
	return nil
}
