package main

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"lg/mealmind-go-api/internal/mealplan"
	"lg/mealmind-go-api/internal/nutrition"
)

// memStore is an in-memory store for handler tests.
type memStore struct {
	mu       sync.Mutex
	nextID   int
	users    map[int]user
	profiles map[int]profileRow
	recs     map[int]map[string]mealplan.Recommendation
	ledger   map[int]map[string]mealplan.Checkin
	weights  map[int]map[string]mealplan.WeightEntry
	now      func() time.Time
}

func newMemStore(now func() time.Time) *memStore {
	return &memStore{
		users:    make(map[int]user),
		profiles: make(map[int]profileRow),
		recs:     make(map[int]map[string]mealplan.Recommendation),
		ledger:   make(map[int]map[string]mealplan.Checkin),
		weights:  make(map[int]map[string]mealplan.WeightEntry),
		now:      now,
	}
}

func (s *memStore) id() int {
	s.nextID++
	return s.nextID
}

func (s *memStore) createUser(_ context.Context, email, username, passwordHash string) (user, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return user{}, errDuplicate
		}
	}
	now := s.now()
	u := user{ID: s.id(), Email: email, Username: username, Password: passwordHash, CreatedAt: &now}
	s.users[u.ID] = u
	return u, nil
}

func (s *memStore) userByEmail(_ context.Context, email string) (user, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return user{}, mealplan.ErrNotFound
}

func (s *memStore) userByID(_ context.Context, id int) (user, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return user{}, mealplan.ErrNotFound
	}
	return u, nil
}

func (s *memStore) profile(_ context.Context, userID int) (profileRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[userID]
	if !ok {
		return profileRow{}, mealplan.ErrNotFound
	}
	return p, nil
}

func fillProfile(row *profileRow, p nutrition.Profile) {
	row.Age = p.Age
	row.Gender = string(p.Gender)
	row.Weight = p.WeightKG
	row.Height = p.HeightCM
	row.GoalWeight = p.GoalWeightKG
	row.ActivityLevel = string(p.ActivityLevel)
	row.DietaryRestrictions = append([]string{}, p.DietaryRestrictions...)
}

func (s *memStore) saveProfile(_ context.Context, userID int, p nutrition.Profile, dietDuration int) (profileRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	row := profileRow{UserID: userID, DietDurationDays: dietDuration, CreatedAt: now, UpdatedAt: now}
	fillProfile(&row, p)
	s.profiles[userID] = row
	return row, nil
}

func (s *memStore) updateProfile(_ context.Context, userID int, p nutrition.Profile) (profileRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.profiles[userID]
	if !ok {
		return profileRow{}, mealplan.ErrNotFound
	}
	fillProfile(&row, p)
	row.UpdatedAt = s.now()
	s.profiles[userID] = row
	return row, nil
}

func (s *memStore) deleteProfile(_ context.Context, userID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.profiles[userID]; !ok {
		return mealplan.ErrNotFound
	}
	delete(s.profiles, userID)
	return nil
}

func (s *memStore) recommendation(_ context.Context, userID int, d mealplan.Date) (mealplan.Recommendation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.recs[userID][d.String()]
	if !ok {
		return mealplan.Recommendation{}, mealplan.ErrNotFound
	}
	return r.Clone(), nil
}

func (s *memStore) insertRecommendation(_ context.Context, userID int, rec mealplan.Recommendation) (mealplan.Recommendation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.recs[userID] == nil {
		s.recs[userID] = make(map[string]mealplan.Recommendation)
	}
	if _, ok := s.recs[userID][rec.Date.String()]; ok {
		return mealplan.Recommendation{}, errDuplicate
	}
	now := s.now()
	rec = rec.Clone()
	rec.ID = s.id()
	rec.CreatedAt = &now
	s.recs[userID][rec.Date.String()] = rec
	return rec.Clone(), nil
}

func (s *memStore) updateRecommendation(_ context.Context, userID int, rec mealplan.Recommendation) (mealplan.Recommendation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.recs[userID][rec.Date.String()]
	if !ok {
		return mealplan.Recommendation{}, mealplan.ErrNotFound
	}
	if _, checked := s.ledger[userID][rec.Date.String()]; checked {
		return mealplan.Recommendation{}, errCheckedIn
	}
	rec = rec.Clone()
	rec.ID, rec.CreatedAt = old.ID, old.CreatedAt
	s.recs[userID][rec.Date.String()] = rec
	return rec.Clone(), nil
}

func (s *memStore) recommendationsBetween(_ context.Context, userID int, from, to mealplan.Date) ([]mealplan.Recommendation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []mealplan.Recommendation
	for _, r := range s.recs[userID] {
		if !r.Date.Before(from) && !r.Date.After(to) {
			out = append(out, r.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (s *memStore) countRecommendationsFrom(_ context.Context, userID int, from mealplan.Date) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.recs[userID] {
		if !r.Date.Before(from) {
			n++
		}
	}
	return n, nil
}

func (s *memStore) recentRecommendations(_ context.Context, userID int, d mealplan.Date, limit int) ([]mealplan.Recommendation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []mealplan.Recommendation
	for _, r := range s.recs[userID] {
		if !r.Date.After(d) {
			out = append(out, r.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *memStore) deleteUncheckedAfter(_ context.Context, userID int, d mealplan.Date) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for key, r := range s.recs[userID] {
		if _, checked := s.ledger[userID][key]; r.Date.After(d) && !checked {
			delete(s.recs[userID], key)
			n++
		}
	}
	return n, nil
}

func (s *memStore) checkin(_ context.Context, userID int, d mealplan.Date) (mealplan.Checkin, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.ledger[userID][d.String()]
	if !ok {
		return mealplan.Checkin{}, mealplan.ErrNotFound
	}
	return c, nil
}

func (s *memStore) insertCheckin(_ context.Context, userID, _ int, c mealplan.Checkin) (mealplan.Checkin, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ledger[userID] == nil {
		s.ledger[userID] = make(map[string]mealplan.Checkin)
	}
	if _, ok := s.ledger[userID][c.Date.String()]; ok {
		return mealplan.Checkin{}, errDuplicate
	}
	now := s.now()
	c.ID = s.id()
	c.CreatedAt = &now
	s.ledger[userID][c.Date.String()] = c
	return c, nil
}

func (s *memStore) checkins(_ context.Context, userID int) ([]mealplan.Checkin, error) {
	return s.checkinsBetween(context.Background(), userID, mealplan.Date{}, mealplan.NewDate(time.Date(9999, 1, 1, 0, 0, 0, 0, time.UTC)))
}

func (s *memStore) checkinsBetween(_ context.Context, userID int, from, to mealplan.Date) ([]mealplan.Checkin, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []mealplan.Checkin
	for _, c := range s.ledger[userID] {
		if !c.Date.Before(from) && !c.Date.After(to) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

// seedCheckin stores a check-in directly, bypassing the handler.
func (s *memStore) seedCheckin(userID int, d mealplan.Date, food, activity bool) {
	_, _ = s.insertCheckin(context.Background(), userID, 0, mealplan.Checkin{Date: d, FoodCompleted: food, ActivityCompleted: activity})
}

func (s *memStore) recordWeight(_ context.Context, userID int, e mealplan.WeightEntry) (mealplan.WeightEntry, profileRow, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.profiles[userID]
	if !ok {
		return mealplan.WeightEntry{}, profileRow{}, false, mealplan.ErrNotFound
	}
	if s.weights[userID] == nil {
		s.weights[userID] = make(map[string]mealplan.WeightEntry)
	}
	key := e.Date.String()
	if old, ok := s.weights[userID][key]; ok {
		e.ID, e.CreatedAt = old.ID, old.CreatedAt
	} else {
		now := s.now()
		e.ID, e.CreatedAt = s.id(), &now
	}
	s.weights[userID][key] = e

	for _, w := range s.weights[userID] {
		if w.Date.After(e.Date) {
			return e, row, false, nil
		}
	}
	row.Weight = e.Weight
	row.UpdatedAt = s.now()
	s.profiles[userID] = row
	return e, row, true, nil
}

func (s *memStore) weightLogs(_ context.Context, userID int, from, to mealplan.Date) ([]mealplan.WeightEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []mealplan.WeightEntry{}
	for _, w := range s.weights[userID] {
		if !w.Date.Before(from) && !w.Date.After(to) {
			out = append(out, w)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (s *memStore) firstWeight(ctx context.Context, userID int) (mealplan.WeightEntry, error) {
	all, _ := s.weightLogs(ctx, userID, mealplan.Date{}, mealplan.NewDate(time.Date(9999, 1, 1, 0, 0, 0, 0, time.UTC)))
	if len(all) == 0 {
		return mealplan.WeightEntry{}, mealplan.ErrNotFound
	}
	return all[0], nil
}

var _ store = (*memStore)(nil)
