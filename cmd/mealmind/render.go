package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"lg/mealmind-go-api/internal/dayplan"
	"lg/mealmind-go-api/internal/mealplan"
)

func printProfile(w io.Writer, p mealplan.StoredProfile) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Age\t%d\n", p.Age)
	fmt.Fprintf(tw, "Gender\t%s\n", p.Gender)
	fmt.Fprintf(tw, "Weight\t%.1f kg\n", p.Weight)
	fmt.Fprintf(tw, "Height\t%.1f cm\n", p.Height)
	fmt.Fprintf(tw, "Goal\t%.1f kg\n", p.GoalWeight)
	fmt.Fprintf(tw, "Activity\t%s\n", p.ActivityLevel)
	restrictions := "none"
	if len(p.DietaryRestrictions) > 0 {
		restrictions = strings.Join(p.DietaryRestrictions, ", ")
	}
	fmt.Fprintf(tw, "Restrictions\t%s\n", restrictions)
	tw.Flush()
}

func printOverview(w io.Writer, o dayplan.Overview) {
	fmt.Fprintf(w, "Day %d of %d (%d remaining) | BMR %.0f | TDEE %.0f | target %.0f kcal\n",
		o.Progress.DayInProgram, o.Progress.DietDuration, o.Progress.DaysRemaining,
		o.Metrics.BMR, o.Metrics.TDEE, o.Metrics.TargetCalories)
	fmt.Fprintf(w, "Completed %d days | streak %d | last week %d\n\n",
		o.CheckinStats.TotalCompleted, o.CheckinStats.Streak, o.CheckinStats.LastWeek)
}

func printDay(w io.Writer, day dayplan.Day) {
	if day.Recommendation == nil {
		fmt.Fprintf(w, "%s: %s\n", day.Date, day.Phase)
		return
	}
	rec := day.Recommendation
	fmt.Fprintf(w, "%s  %d / %d kcal  [%s]\n", rec.Date, rec.TotalCalories, rec.TargetCalories, day.Checkin)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, slot := range []mealplan.Slot{mealplan.Breakfast, mealplan.Lunch, mealplan.Dinner} {
		m, _ := rec.Meal(slot)
		fmt.Fprintf(tw, "  %s\t%s\t%d kcal\tP %.0fg C %.0fg F %.0fg\n", slot, m.Name, m.Calories, m.Protein, m.Carbs, m.Fat)
	}
	for i, act := range rec.Activities {
		label := ""
		if i == 0 {
			label = string(mealplan.Activities)
		}
		fmt.Fprintf(tw, "  %s\t%s\t%d min\t%d kcal (%s)\n", label, act.Name, act.DurationMinutes, act.CaloriesBurned, act.Intensity)
	}
	tw.Flush()
}

func printMonth(w io.Writer, entries []mealplan.MonthEntry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No plans this month.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tKCAL\tTARGET\tCHECK-IN")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%s\n", e.Date, e.TotalCalories, e.TargetCalories, flagsLabel(e.Checkin))
	}
	tw.Flush()
}

func printHistory(w io.Writer, entries []mealplan.HistoryEntry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No history yet.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tKCAL\tTARGET\tCHECK-IN")
	for _, e := range entries {
		var flags *mealplan.CheckinFlags
		if e.Checkin != nil {
			f := e.Checkin.Flags()
			flags = &f
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%s\n", e.Recommendation.Date, e.Recommendation.TotalCalories,
			e.Recommendation.TargetCalories, flagsLabel(flags))
	}
	tw.Flush()
}

func flagsLabel(f *mealplan.CheckinFlags) string {
	switch {
	case f == nil:
		return "-"
	case f.IsCompleted:
		return "done"
	case f.FoodCompleted:
		return "food only"
	case f.ActivityCompleted:
		return "activity only"
	}
	return "missed"
}

func printWeightLog(w io.Writer, entries []mealplan.WeightEntry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No weigh-ins recorded.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%.1f kg\n", e.Date, e.Weight)
	}
	tw.Flush()
}

func printProgress(w io.Writer, s mealplan.UserStatsResponse, a mealplan.AdherenceResponse) {
	fmt.Fprintf(w, "Day %d of %d | weight %.1f -> %.1f kg (goal %.1f, change %+.1f)\n",
		s.Progress.DayInProgram, s.Progress.DietDuration,
		s.Weight.Start, s.Weight.Current, s.Weight.Goal, s.Weight.Change)
	an := a.Analysis
	fmt.Fprintf(w, "Adherence %s to %s: %.1f%% (%s) | food %.1f%% | activity %.1f%%\n",
		a.Period.StartDate, a.Period.EndDate, an.AdherencePercent, an.Status, an.FoodPercent, an.ActivityPercent)
	if an.Insight != "" {
		fmt.Fprintln(w, an.Insight)
	}
}
