package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"lg/mealmind-go-api/internal/logger"
	"lg/mealmind-go-api/internal/mealplan"
	"lg/mealmind-go-api/internal/nutrition"
)

var (
	// errDuplicate is returned when a unique constraint rejects an insert.
	errDuplicate = errors.New("duplicate")
	// errCheckedIn is returned when a plan cannot change because its day is
	// already checked in.
	errCheckedIn = errors.New("day already checked in")
)

// store is the persistence surface used by the handlers. Missing rows are
// reported as mealplan.ErrNotFound.
type store interface {
	createUser(ctx context.Context, email, username, passwordHash string) (user, error)
	userByEmail(ctx context.Context, email string) (user, error)
	userByID(ctx context.Context, id int) (user, error)

	profile(ctx context.Context, userID int) (profileRow, error)
	// saveProfile inserts or replaces the profile and restarts the program.
	saveProfile(ctx context.Context, userID int, p nutrition.Profile, dietDuration int) (profileRow, error)
	updateProfile(ctx context.Context, userID int, p nutrition.Profile) (profileRow, error)
	deleteProfile(ctx context.Context, userID int) error

	recommendation(ctx context.Context, userID int, d mealplan.Date) (mealplan.Recommendation, error)
	insertRecommendation(ctx context.Context, userID int, rec mealplan.Recommendation) (mealplan.Recommendation, error)
	// updateRecommendation rewrites the plan for rec.Date. A day with a
	// check-in is left untouched and reported as errCheckedIn.
	updateRecommendation(ctx context.Context, userID int, rec mealplan.Recommendation) (mealplan.Recommendation, error)
	// recommendationsBetween returns plans in [from, to], oldest first.
	recommendationsBetween(ctx context.Context, userID int, from, to mealplan.Date) ([]mealplan.Recommendation, error)
	countRecommendationsFrom(ctx context.Context, userID int, from mealplan.Date) (int, error)
	// recentRecommendations returns up to limit plans on or before d, newest first.
	recentRecommendations(ctx context.Context, userID int, d mealplan.Date, limit int) ([]mealplan.Recommendation, error)
	// deleteUncheckedAfter removes plans after d that have no check-in.
	deleteUncheckedAfter(ctx context.Context, userID int, d mealplan.Date) (int, error)

	checkin(ctx context.Context, userID int, d mealplan.Date) (mealplan.Checkin, error)
	insertCheckin(ctx context.Context, userID, recommendationID int, c mealplan.Checkin) (mealplan.Checkin, error)
	checkins(ctx context.Context, userID int) ([]mealplan.Checkin, error)
	checkinsBetween(ctx context.Context, userID int, from, to mealplan.Date) ([]mealplan.Checkin, error)

	// recordWeight upserts the entry for its date and, unless a later entry
	// exists, sets the profile weight to it. The profile is returned either way.
	recordWeight(ctx context.Context, userID int, e mealplan.WeightEntry) (mealplan.WeightEntry, profileRow, bool, error)
	// weightLogs returns entries in [from, to], oldest first.
	weightLogs(ctx context.Context, userID int, from, to mealplan.Date) ([]mealplan.WeightEntry, error)
	firstWeight(ctx context.Context, userID int) (mealplan.WeightEntry, error)
}

/* ─── Database helpers ────────────────────────────────────────────────── */

// querier is satisfied by both the pool and a transaction.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// queryOne runs a query and scans the first row into T using RowToStructByName.
// No rows maps to mealplan.ErrNotFound; other errors are logged.
func queryOne[T any](ctx context.Context, pool querier, log *logger.Logger, sql string, args pgx.NamedArgs) (T, error) {
	rows, err := pool.Query(ctx, sql, args)
	if err != nil {
		log.Error("query failed", "error", err)
		var zero T
		return zero, mapPgError(err)
	}
	result, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[T])
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		log.Error("scan failed", "error", err)
	}
	return result, mapPgError(err)
}

// queryMany runs a query and scans all rows into []T using RowToStructByName.
func queryMany[T any](ctx context.Context, pool querier, log *logger.Logger, sql string, args pgx.NamedArgs) ([]T, error) {
	rows, err := pool.Query(ctx, sql, args)
	if err != nil {
		log.Error("query failed", "error", err)
		return nil, mapPgError(err)
	}
	results, err := pgx.CollectRows(rows, pgx.RowToStructByName[T])
	if err != nil {
		log.Error("scan failed", "error", err)
	}
	return results, mapPgError(err)
}

// mapPgError translates driver errors into the store's error vocabulary.
func mapPgError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return mealplan.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%w: %s", errDuplicate, pgErr.ConstraintName)
	}
	return err
}

/* ─── Postgres store ─────────────────────────────────────────────────── */

// pgStore implements store on a pgx pool.
type pgStore struct {
	db  *pgxpool.Pool
	log *logger.Logger
}

func newPgStore(db *pgxpool.Pool, log *logger.Logger) *pgStore {
	return &pgStore{db: db, log: log.With("component", "store")}
}

const userColumns = "id, email, username, password, created_at"

func (s *pgStore) createUser(ctx context.Context, email, username, passwordHash string) (user, error) {
	return queryOne[user](ctx, s.db, s.log,
		`INSERT INTO users (email, username, password) VALUES (@email, @username, @password)
		 RETURNING `+userColumns,
		pgx.NamedArgs{"email": email, "username": username, "password": passwordHash})
}

func (s *pgStore) userByEmail(ctx context.Context, email string) (user, error) {
	return queryOne[user](ctx, s.db, s.log,
		"SELECT "+userColumns+" FROM users WHERE lower(email) = lower(@email)",
		pgx.NamedArgs{"email": email})
}

func (s *pgStore) userByID(ctx context.Context, id int) (user, error) {
	return queryOne[user](ctx, s.db, s.log,
		"SELECT "+userColumns+" FROM users WHERE id = @id",
		pgx.NamedArgs{"id": id})
}

const profileColumns = `user_id, age, gender, weight, height, goal_weight, activity_level,
	dietary_restrictions, diet_duration_days, created_at, updated_at`

func profileArgs(userID int, p nutrition.Profile) pgx.NamedArgs {
	restrictions := p.DietaryRestrictions
	if restrictions == nil {
		restrictions = []string{}
	}
	return pgx.NamedArgs{
		"userID":        userID,
		"age":           p.Age,
		"gender":        string(p.Gender),
		"weight":        p.WeightKG,
		"height":        p.HeightCM,
		"goalWeight":    p.GoalWeightKG,
		"activityLevel": string(p.ActivityLevel),
		"restrictions":  restrictions,
	}
}

func (s *pgStore) profile(ctx context.Context, userID int) (profileRow, error) {
	return queryOne[profileRow](ctx, s.db, s.log,
		"SELECT "+profileColumns+" FROM profiles WHERE user_id = @userID",
		pgx.NamedArgs{"userID": userID})
}

func (s *pgStore) saveProfile(ctx context.Context, userID int, p nutrition.Profile, dietDuration int) (profileRow, error) {
	args := profileArgs(userID, p)
	args["duration"] = dietDuration
	return queryOne[profileRow](ctx, s.db, s.log,
		`INSERT INTO profiles (user_id, age, gender, weight, height, goal_weight, activity_level,
		                       dietary_restrictions, diet_duration_days)
		 VALUES (@userID, @age, @gender, @weight, @height, @goalWeight, @activityLevel,
		         @restrictions, @duration)
		 ON CONFLICT (user_id) DO UPDATE SET
		   age = EXCLUDED.age, gender = EXCLUDED.gender, weight = EXCLUDED.weight,
		   height = EXCLUDED.height, goal_weight = EXCLUDED.goal_weight,
		   activity_level = EXCLUDED.activity_level,
		   dietary_restrictions = EXCLUDED.dietary_restrictions,
		   diet_duration_days = EXCLUDED.diet_duration_days,
		   created_at = now(), updated_at = now()
		 RETURNING `+profileColumns, args)
}

func (s *pgStore) updateProfile(ctx context.Context, userID int, p nutrition.Profile) (profileRow, error) {
	return queryOne[profileRow](ctx, s.db, s.log,
		`UPDATE profiles SET age = @age, gender = @gender, weight = @weight, height = @height,
		   goal_weight = @goalWeight, activity_level = @activityLevel,
		   dietary_restrictions = @restrictions, updated_at = now()
		 WHERE user_id = @userID
		 RETURNING `+profileColumns, profileArgs(userID, p))
}

func (s *pgStore) deleteProfile(ctx context.Context, userID int) error {
	tag, err := s.db.Exec(ctx, "DELETE FROM profiles WHERE user_id = @userID", pgx.NamedArgs{"userID": userID})
	if err != nil {
		return mapPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return mealplan.ErrNotFound
	}
	return nil
}

const recommendationColumns = `id, user_id, date, breakfast, lunch, dinner, activities,
	total_calories, target_calories, created_at`

// recommendationArgs marshals the jsonb columns up front; the pool runs in
// simple-protocol mode where struct arguments cannot be encoded.
func recommendationArgs(userID int, rec mealplan.Recommendation) (pgx.NamedArgs, error) {
	args := pgx.NamedArgs{
		"userID": userID,
		"date":   rec.Date.String(),
		"total":  rec.TotalCalories,
		"target": rec.TargetCalories,
	}
	for key, v := range map[string]interface{}{
		"breakfast":  rec.Breakfast,
		"lunch":      rec.Lunch,
		"dinner":     rec.Dinner,
		"activities": rec.Activities,
	} {
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("marshal %s: %w", key, err)
		}
		args[key] = string(b)
	}
	return args, nil
}

func (s *pgStore) recommendation(ctx context.Context, userID int, d mealplan.Date) (mealplan.Recommendation, error) {
	row, err := queryOne[recommendationRow](ctx, s.db, s.log,
		"SELECT "+recommendationColumns+" FROM daily_recommendations WHERE user_id = @userID AND date = @date::date",
		pgx.NamedArgs{"userID": userID, "date": d.String()})
	return row.toRecommendation(), err
}

func (s *pgStore) insertRecommendation(ctx context.Context, userID int, rec mealplan.Recommendation) (mealplan.Recommendation, error) {
	args, err := recommendationArgs(userID, rec)
	if err != nil {
		return mealplan.Recommendation{}, err
	}
	row, err := queryOne[recommendationRow](ctx, s.db, s.log,
		`INSERT INTO daily_recommendations (user_id, date, breakfast, lunch, dinner, activities,
		                                    total_calories, target_calories)
		 VALUES (@userID, @date::date, @breakfast::jsonb, @lunch::jsonb, @dinner::jsonb,
		         @activities::jsonb, @total, @target)
		 RETURNING `+recommendationColumns, args)
	return row.toRecommendation(), err
}

func (s *pgStore) updateRecommendation(ctx context.Context, userID int, rec mealplan.Recommendation) (mealplan.Recommendation, error) {
	args, err := recommendationArgs(userID, rec)
	if err != nil {
		return mealplan.Recommendation{}, err
	}
	row, err := queryOne[recommendationRow](ctx, s.db, s.log,
		`UPDATE daily_recommendations SET breakfast = @breakfast::jsonb, lunch = @lunch::jsonb,
		   dinner = @dinner::jsonb, activities = @activities::jsonb,
		   total_calories = @total, target_calories = @target
		 WHERE user_id = @userID AND date = @date::date
		   AND NOT EXISTS (SELECT 1 FROM daily_checkins c
		                   WHERE c.user_id = @userID AND c.date = @date::date)
		 RETURNING `+recommendationColumns, args)
	if errors.Is(err, mealplan.ErrNotFound) {
		if _, cerr := s.checkin(ctx, userID, rec.Date); cerr == nil {
			return mealplan.Recommendation{}, errCheckedIn
		}
	}
	return row.toRecommendation(), err
}

func (s *pgStore) recommendationsBetween(ctx context.Context, userID int, from, to mealplan.Date) ([]mealplan.Recommendation, error) {
	rows, err := queryMany[recommendationRow](ctx, s.db, s.log,
		"SELECT "+recommendationColumns+` FROM daily_recommendations
		 WHERE user_id = @userID AND date BETWEEN @from::date AND @to::date ORDER BY date`,
		pgx.NamedArgs{"userID": userID, "from": from.String(), "to": to.String()})
	return toRecommendations(rows), err
}

func (s *pgStore) countRecommendationsFrom(ctx context.Context, userID int, from mealplan.Date) (int, error) {
	var n int
	err := s.db.QueryRow(ctx,
		"SELECT count(*) FROM daily_recommendations WHERE user_id = @userID AND date >= @from::date",
		pgx.NamedArgs{"userID": userID, "from": from.String()}).Scan(&n)
	return n, mapPgError(err)
}

func (s *pgStore) recentRecommendations(ctx context.Context, userID int, d mealplan.Date, limit int) ([]mealplan.Recommendation, error) {
	rows, err := queryMany[recommendationRow](ctx, s.db, s.log,
		"SELECT "+recommendationColumns+` FROM daily_recommendations
		 WHERE user_id = @userID AND date <= @date::date ORDER BY date DESC LIMIT @limit`,
		pgx.NamedArgs{"userID": userID, "date": d.String(), "limit": limit})
	return toRecommendations(rows), err
}

func (s *pgStore) deleteUncheckedAfter(ctx context.Context, userID int, d mealplan.Date) (int, error) {
	tag, err := s.db.Exec(ctx,
		`DELETE FROM daily_recommendations r
		 WHERE r.user_id = @userID AND r.date > @date::date
		   AND NOT EXISTS (SELECT 1 FROM daily_checkins c WHERE c.user_id = r.user_id AND c.date = r.date)`,
		pgx.NamedArgs{"userID": userID, "date": d.String()})
	if err != nil {
		return 0, mapPgError(err)
	}
	return int(tag.RowsAffected()), nil
}

func toRecommendations(rows []recommendationRow) []mealplan.Recommendation {
	out := make([]mealplan.Recommendation, len(rows))
	for i, r := range rows {
		out[i] = r.toRecommendation()
	}
	return out
}

const checkinColumns = "id, user_id, recommendation_id, date, food_completed, activity_completed, notes, created_at"

func (s *pgStore) checkin(ctx context.Context, userID int, d mealplan.Date) (mealplan.Checkin, error) {
	row, err := queryOne[checkinRow](ctx, s.db, s.log,
		"SELECT "+checkinColumns+" FROM daily_checkins WHERE user_id = @userID AND date = @date::date",
		pgx.NamedArgs{"userID": userID, "date": d.String()})
	return row.toCheckin(), err
}

func (s *pgStore) insertCheckin(ctx context.Context, userID, recommendationID int, c mealplan.Checkin) (mealplan.Checkin, error) {
	var notes *string
	if c.Notes != "" {
		notes = &c.Notes
	}
	row, err := queryOne[checkinRow](ctx, s.db, s.log,
		`INSERT INTO daily_checkins (user_id, recommendation_id, date, food_completed, activity_completed, notes)
		 VALUES (@userID, @recID, @date::date, @food, @activity, @notes)
		 RETURNING `+checkinColumns,
		pgx.NamedArgs{
			"userID":   userID,
			"recID":    recommendationID,
			"date":     c.Date.String(),
			"food":     c.FoodCompleted,
			"activity": c.ActivityCompleted,
			"notes":    notes,
		})
	return row.toCheckin(), err
}

func (s *pgStore) checkins(ctx context.Context, userID int) ([]mealplan.Checkin, error) {
	rows, err := queryMany[checkinRow](ctx, s.db, s.log,
		"SELECT "+checkinColumns+" FROM daily_checkins WHERE user_id = @userID ORDER BY date",
		pgx.NamedArgs{"userID": userID})
	return toCheckins(rows), err
}

func (s *pgStore) checkinsBetween(ctx context.Context, userID int, from, to mealplan.Date) ([]mealplan.Checkin, error) {
	rows, err := queryMany[checkinRow](ctx, s.db, s.log,
		"SELECT "+checkinColumns+` FROM daily_checkins
		 WHERE user_id = @userID AND date BETWEEN @from::date AND @to::date ORDER BY date`,
		pgx.NamedArgs{"userID": userID, "from": from.String(), "to": to.String()})
	return toCheckins(rows), err
}

func toCheckins(rows []checkinRow) []mealplan.Checkin {
	out := make([]mealplan.Checkin, len(rows))
	for i, r := range rows {
		out[i] = r.toCheckin()
	}
	return out
}

const weightLogColumns = "id, user_id, date, weight, created_at"

func (s *pgStore) recordWeight(ctx context.Context, userID int, e mealplan.WeightEntry) (mealplan.WeightEntry, profileRow, bool, error) {
	var (
		entry   weightLogRow
		prof    profileRow
		updated bool
	)
	args := pgx.NamedArgs{"userID": userID, "date": e.Date.String(), "weight": e.Weight}
	err := pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		var err error
		entry, err = queryOne[weightLogRow](ctx, tx, s.log,
			`INSERT INTO weight_logs (user_id, date, weight) VALUES (@userID, @date::date, @weight)
			 ON CONFLICT (user_id, date) DO UPDATE SET weight = EXCLUDED.weight
			 RETURNING `+weightLogColumns, args)
		if err != nil {
			return err
		}
		prof, err = queryOne[profileRow](ctx, tx, s.log,
			`UPDATE profiles SET weight = @weight, updated_at = now()
			 WHERE user_id = @userID
			   AND NOT EXISTS (SELECT 1 FROM weight_logs w
			                   WHERE w.user_id = @userID AND w.date > @date::date)
			 RETURNING `+profileColumns, args)
		if err == nil {
			updated = true
			return nil
		}
		if !errors.Is(err, mealplan.ErrNotFound) {
			return err
		}
		prof, err = queryOne[profileRow](ctx, tx, s.log,
			"SELECT "+profileColumns+" FROM profiles WHERE user_id = @userID", args)
		return err
	})
	return entry.toEntry(), prof, updated, mapPgError(err)
}

func (s *pgStore) weightLogs(ctx context.Context, userID int, from, to mealplan.Date) ([]mealplan.WeightEntry, error) {
	rows, err := queryMany[weightLogRow](ctx, s.db, s.log,
		"SELECT "+weightLogColumns+` FROM weight_logs
		 WHERE user_id = @userID AND date BETWEEN @from::date AND @to::date ORDER BY date`,
		pgx.NamedArgs{"userID": userID, "from": from.String(), "to": to.String()})
	out := make([]mealplan.WeightEntry, len(rows))
	for i, r := range rows {
		out[i] = r.toEntry()
	}
	return out, err
}

func (s *pgStore) firstWeight(ctx context.Context, userID int) (mealplan.WeightEntry, error) {
	row, err := queryOne[weightLogRow](ctx, s.db, s.log,
		"SELECT "+weightLogColumns+" FROM weight_logs WHERE user_id = @userID ORDER BY date LIMIT 1",
		pgx.NamedArgs{"userID": userID})
	return row.toEntry(), err
}

var _ store = (*pgStore)(nil)
