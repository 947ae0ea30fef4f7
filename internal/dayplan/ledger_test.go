package dayplan

import (
	"context"
	"errors"
	"sync"
	"testing"

	"lg/mealmind-go-api/internal/mealplan"
	"lg/mealmind-go-api/internal/planclient"
)

func acceptCheckin() func(context.Context, mealplan.Date, bool, bool) (mealplan.CheckinResponse, error) {
	return func(_ context.Context, d mealplan.Date, food, act bool) (mealplan.CheckinResponse, error) {
		return mealplan.CheckinResponse{
			Message: "Check-in recorded",
			Checkin: mealplan.Checkin{Date: d, FoodCompleted: food, ActivityCompleted: act},
		}, nil
	}
}

/* ─── Submit ─────────────────────────────────────────────────────────── */

// TestSubmit_BothFalseRejectedLocally verifies nothing is sent.
func TestSubmit_BothFalseRejectedLocally(t *testing.T) {
	r := &fakeRemote{checkin: acceptCheckin()}
	day, err := newPlanner(r).Submit(context.Background(), today(), false, false)
	if !errors.Is(err, ErrNothingCompleted) || !errors.Is(err, mealplan.ErrValidation) {
		t.Fatalf("expected ErrNothingCompleted, got %v", err)
	}
	if r.Calls("checkin") != 0 {
		t.Error("request sent")
	}
	if day.Checkin != NotCheckedIn {
		t.Errorf("checkin = %s", day.Checkin)
	}
}

// TestSubmit_SuccessRefreshesMetricsOnly verifies a confirmed check-in
// recomputes metrics from the profile without refetching the plan.
func TestSubmit_SuccessRefreshesMetricsOnly(t *testing.T) {
	d := today().AddDays(-1)
	r := &fakeRemote{checkin: acceptCheckin()}
	p := loaded(t, r, d)
	dayCalls := r.Calls("day")

	day, err := p.Submit(context.Background(), d, true, false)
	if err != nil {
		t.Fatal(err)
	}
	if day.Checkin != CheckedIn || day.CheckinRecord == nil || !day.CheckinRecord.FoodCompleted {
		t.Errorf("checkin = %s, record = %+v", day.Checkin, day.CheckinRecord)
	}
	if r.Calls("profile") != 1 {
		t.Errorf("profile calls = %d, want 1", r.Calls("profile"))
	}
	if r.Calls("day") != dayCalls || r.Calls("today") != 0 {
		t.Error("recommendation was refetched")
	}
	if m := p.Overview().Metrics; m.BMR != 1643 || m.TDEE != 2547 || m.TargetCalories != 2047 {
		t.Errorf("metrics = %+v", m)
	}
	if day.Recommendation == nil || day.Recommendation.Breakfast.Name != "Oatmeal" {
		t.Error("recommendation lost after check-in")
	}
}

// TestSubmit_DuplicateIsSuccess verifies the service's duplicate response
// ends in the same state as a first check-in.
func TestSubmit_DuplicateIsSuccess(t *testing.T) {
	for _, apiErr := range []*planclient.APIError{
		{Status: 409, Message: "Already checked in today"},
		{Status: 400, Message: "Already checked in today"},
	} {
		r := &fakeRemote{checkin: func(context.Context, mealplan.Date, bool, bool) (mealplan.CheckinResponse, error) {
			return mealplan.CheckinResponse{}, apiErr
		}}
		p := newPlanner(r)
		day, err := p.Submit(context.Background(), today(), true, true)
		if err != nil {
			t.Fatalf("%d: unexpected error %v", apiErr.Status, err)
		}
		if day.Checkin != CheckedIn {
			t.Errorf("%d: checkin = %s", apiErr.Status, day.Checkin)
		}
	}
}

// TestSubmit_SecondSubmitIsNoop verifies a CheckedIn date sends nothing and
// reports the same state.
func TestSubmit_SecondSubmitIsNoop(t *testing.T) {
	r := &fakeRemote{checkin: acceptCheckin()}
	p := newPlanner(r)
	first, err := p.Submit(context.Background(), today(), true, true)
	if err != nil {
		t.Fatal(err)
	}
	second, err := p.Submit(context.Background(), today(), false, true)
	if err != nil {
		t.Fatal(err)
	}
	if r.Calls("checkin") != 1 {
		t.Errorf("checkin calls = %d, want 1", r.Calls("checkin"))
	}
	if mustJSON(t, first) != mustJSON(t, second) {
		t.Errorf("state changed:\n%+v\n%+v", first, second)
	}
}

// TestSubmitDraft_CheckedInDayIsNoop verifies a draft submitted for a day the
// service already reports as checked in succeeds without a request, even
// though the draft was discarded.
func TestSubmitDraft_CheckedInDayIsNoop(t *testing.T) {
	r := &fakeRemote{
		checkin: acceptCheckin(),
		today: func(context.Context) (mealplan.TodayResponse, error) {
			return mealplan.TodayResponse{Recommendation: recFor(today()), AlreadyCheckedIn: true}, nil
		},
	}
	p := newPlanner(r)
	if _, err := p.Fetch(context.Background(), today()); err != nil {
		t.Fatal(err)
	}
	before := p.Snapshot(today())

	p.SetDraft(today(), true, false)
	day, err := p.SubmitDraft(context.Background(), today())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if day.Checkin != CheckedIn || r.Calls("checkin") != 0 {
		t.Errorf("checkin = %s, calls = %d", day.Checkin, r.Calls("checkin"))
	}
	if mustJSON(t, before) != mustJSON(t, day) {
		t.Errorf("ledger changed:\n%+v\n%+v", before, day)
	}

	if _, err := p.Submit(context.Background(), today(), false, false); err != nil {
		t.Errorf("empty submit on a checked-in day: %v", err)
	}
}

// TestSubmit_DuplicateKeepsStoredRecord verifies the record carried by a
// duplicate response is kept.
func TestSubmit_DuplicateKeepsStoredRecord(t *testing.T) {
	r := &fakeRemote{checkin: func(_ context.Context, d mealplan.Date, _, _ bool) (mealplan.CheckinResponse, error) {
		return mealplan.CheckinResponse{Checkin: mealplan.Checkin{ID: 4, Date: d, FoodCompleted: true}},
			&planclient.APIError{Status: 409, Code: "already_checked_in", Message: "Already checked in today"}
	}}
	day, err := newPlanner(r).Submit(context.Background(), today(), true, true)
	if err != nil {
		t.Fatal(err)
	}
	if day.CheckinRecord == nil || day.CheckinRecord.ID != 4 || day.CheckinRecord.ActivityCompleted {
		t.Errorf("record = %+v, want the stored one", day.CheckinRecord)
	}
	if !day.Duplicate {
		t.Error("expected Duplicate")
	}
}

// TestSubmit_FailureRevertsAndKeepsDraft verifies a transient failure
// returns to NotCheckedIn and keeps the user's toggles.
func TestSubmit_FailureRevertsAndKeepsDraft(t *testing.T) {
	r := &fakeRemote{checkin: func(context.Context, mealplan.Date, bool, bool) (mealplan.CheckinResponse, error) {
		return mealplan.CheckinResponse{}, errors.New("network down")
	}}
	p := newPlanner(r)
	p.SetDraft(today(), true, false)

	day, err := p.SubmitDraft(context.Background(), today())
	if err == nil {
		t.Fatal("expected error")
	}
	if day.Checkin != NotCheckedIn {
		t.Errorf("checkin = %s", day.Checkin)
	}
	if dr := p.Draft(today()); !dr.FoodCompleted || dr.ActivityCompleted {
		t.Errorf("draft = %+v", dr)
	}
	if r.Calls("profile") != 0 {
		t.Error("metrics refreshed after failed check-in")
	}
}

// TestSubmit_RefreshFailureStillSucceeds verifies a metrics refresh error is
// not reported as a check-in failure.
func TestSubmit_RefreshFailureStillSucceeds(t *testing.T) {
	r := &fakeRemote{
		checkin: acceptCheckin(),
		profile: func(context.Context) (mealplan.StoredProfile, error) {
			return mealplan.StoredProfile{}, errors.New("profile service down")
		},
	}
	day, err := newPlanner(r).Submit(context.Background(), today(), true, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if day.Checkin != CheckedIn {
		t.Errorf("checkin = %s", day.Checkin)
	}
}

// TestSubmit_ConcurrentJoin verifies a submit issued while another is in
// flight shares its outcome.
func TestSubmit_ConcurrentJoin(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	inner := acceptCheckin()
	r := &fakeRemote{checkin: func(ctx context.Context, d mealplan.Date, f, a bool) (mealplan.CheckinResponse, error) {
		close(started)
		<-release
		return inner(ctx, d, f, a)
	}}
	p := newPlanner(r)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		p.Submit(context.Background(), today(), true, true)
	}()
	<-started
	if got := p.Snapshot(today()).Checkin; got != Submitting {
		t.Errorf("phase while in flight = %s, want submitting", got)
	}

	var joined Day
	var joinErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		joined, joinErr = p.Submit(context.Background(), today(), true, false)
	}()
	close(release)
	wg.Wait()

	if joinErr != nil || joined.Checkin != CheckedIn {
		t.Errorf("joined = %s, %v", joined.Checkin, joinErr)
	}
	if r.Calls("checkin") != 1 {
		t.Errorf("checkin calls = %d, want 1", r.Calls("checkin"))
	}
}

/* ─── Drafts ─────────────────────────────────────────────────────────── */

// TestDraft_Ephemeral verifies drafts belong to one planner instance and are
// cleared by a confirmed check-in.
func TestDraft_Ephemeral(t *testing.T) {
	r := &fakeRemote{checkin: acceptCheckin()}
	p := newPlanner(r)
	p.SetDraft(today(), true, true)

	if dr := newPlanner(r).Draft(today()); dr != (Draft{}) {
		t.Errorf("fresh planner has draft %+v", dr)
	}
	if _, err := p.SubmitDraft(context.Background(), today()); err != nil {
		t.Fatal(err)
	}
	if dr := p.Draft(today()); dr != (Draft{}) {
		t.Errorf("draft after check-in = %+v", dr)
	}
	p.SetDraft(today(), true, false)
	if dr := p.Draft(today()); dr != (Draft{}) {
		t.Errorf("draft accepted after check-in: %+v", dr)
	}
}

/* ─── Metrics ────────────────────────────────────────────────────────── */

// TestRefreshMetrics_FallbackTarget verifies an incomplete profile keeps the
// last known target.
func TestRefreshMetrics_FallbackTarget(t *testing.T) {
	r := &fakeRemote{}
	p := newPlanner(r)
	if _, err := p.RefreshMetrics(context.Background()); err != nil {
		t.Fatal(err)
	}

	r.profile = func(context.Context) (mealplan.StoredProfile, error) {
		sp := testProfile()
		sp.GoalWeight = 0
		return sp, nil
	}
	m, err := p.RefreshMetrics(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if m.TargetCalories != 2047 {
		t.Errorf("target = %v, want previous 2047", m.TargetCalories)
	}
}

// TestRecordWeight_RefreshesMetrics verifies a weigh-in that moved the
// profile refreshes the target, and a backdated one does not.
func TestRecordWeight_RefreshesMetrics(t *testing.T) {
	stored := testProfile()
	r := &fakeRemote{
		profile: func(context.Context) (mealplan.StoredProfile, error) { return stored, nil },
	}
	r.weight = func(_ context.Context, w float64, d mealplan.Date) (mealplan.WeightRecordResponse, error) {
		if !d.IsZero() {
			return mealplan.WeightRecordResponse{Profile: stored}, nil
		}
		stored.Weight = w
		return mealplan.WeightRecordResponse{Profile: stored, ProfileUpdated: true}, nil
	}
	p := newPlanner(r)

	_, m, err := p.RecordWeight(context.Background(), 75, mealplan.Date{})
	if err != nil {
		t.Fatal(err)
	}
	if m.TargetCalories != 2124 || p.Overview().Metrics != m {
		t.Errorf("metrics = %+v, overview = %+v", m, p.Overview().Metrics)
	}
	if r.Calls("profile") != 1 {
		t.Errorf("expected one profile refresh, got %d", r.Calls("profile"))
	}

	if _, _, err := p.RecordWeight(context.Background(), 90, today().AddDays(-5)); err != nil {
		t.Fatal(err)
	}
	if r.Calls("profile") != 1 || p.Overview().Metrics.TargetCalories != 2124 {
		t.Errorf("backdated weigh-in should not refresh: calls=%d metrics=%+v", r.Calls("profile"), p.Overview().Metrics)
	}
}
