package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/coocood/freecache"
	log "github.com/sirupsen/logrus"

	"github.com/ayusman/reptrack/internal/session"
)

const (
	totalsCacheKey    = "workouts::totals"
	totalsCacheExpire = 60 // seconds
)

// Workout is the stored record of one finished tracking session.
type Workout struct {
	ID         string    `json:"id"`
	Exercise   string    `json:"exercise"`
	Reps       int       `json:"reps"`
	TargetReps int       `json:"target_reps"`
	Frames     int       `json:"frames"`
	Skipped    int       `json:"skipped"`
	StartedAt  time.Time `json:"started_at"`
	EndedAt    time.Time `json:"ended_at"`
	DurationMs int64     `json:"duration_ms"`
}

// ExerciseTotal aggregates workouts for one exercise.
type ExerciseTotal struct {
	Exercise string `json:"exercise"`
	Workouts int    `json:"workouts"`
	Reps     int    `json:"reps"`
}

// WorkoutFilter narrows List results. Zero values mean no filter.
type WorkoutFilter struct {
	Exercise string
	Since    time.Time
	Limit    int
}

// WorkoutRepository provides access to workout history. Totals are cached
// until the next write through the repository.
type WorkoutRepository struct {
	db    *sql.DB
	cache *freecache.Cache
}

// Workouts returns the workout repository for this store.
func (s *Store) Workouts() *WorkoutRepository {
	return &WorkoutRepository{db: s.db, cache: s.cache}
}

// Create inserts a workout.
func (r *WorkoutRepository) Create(w *Workout) error {
	_, err := r.db.Exec(
		`INSERT INTO workouts (id, exercise, reps, target_reps, frames, skipped, started_at, ended_at, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		w.ID, w.Exercise, w.Reps, w.TargetReps, w.Frames, w.Skipped, w.StartedAt.UTC(), w.EndedAt.UTC(), w.DurationMs,
	)
	if err != nil {
		return err
	}
	r.cache.Del([]byte(totalsCacheKey))
	return nil
}

// Record stores the summary of a stopped session as a workout.
func (r *WorkoutRepository) Record(sum session.Summary) error {
	return r.Create(&Workout{
		ID:         sum.SessionID,
		Exercise:   sum.Exercise,
		Reps:       sum.Reps,
		TargetReps: sum.TargetReps,
		Frames:     sum.Frames,
		Skipped:    sum.Skipped,
		StartedAt:  sum.StartedAt,
		EndedAt:    sum.EndedAt,
		DurationMs: sum.Duration.Milliseconds(),
	})
}

// GetByID retrieves a workout by its ID.
func (r *WorkoutRepository) GetByID(id string) (*Workout, error) {
	w := &Workout{}
	err := r.db.QueryRow(
		`SELECT id, exercise, reps, target_reps, frames, skipped, started_at, ended_at, duration_ms
		 FROM workouts WHERE id = ?`,
		id,
	).Scan(&w.ID, &w.Exercise, &w.Reps, &w.TargetReps, &w.Frames, &w.Skipped, &w.StartedAt, &w.EndedAt, &w.DurationMs)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return w, nil
}

// List retrieves workouts, newest first.
func (r *WorkoutRepository) List(filter WorkoutFilter) ([]*Workout, error) {
	query := `SELECT id, exercise, reps, target_reps, frames, skipped, started_at, ended_at, duration_ms
		 FROM workouts WHERE 1 = 1`
	var args []any

	if filter.Exercise != "" {
		query += ` AND exercise = ?`
		args = append(args, filter.Exercise)
	}
	if !filter.Since.IsZero() {
		query += ` AND started_at >= ?`
		args = append(args, filter.Since.UTC())
	}
	query += ` ORDER BY started_at DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var workouts []*Workout
	for rows.Next() {
		w := &Workout{}
		err := rows.Scan(&w.ID, &w.Exercise, &w.Reps, &w.TargetReps, &w.Frames, &w.Skipped, &w.StartedAt, &w.EndedAt, &w.DurationMs)
		if err != nil {
			return nil, err
		}
		workouts = append(workouts, w)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return workouts, nil
}

// Totals returns workout and rep totals per exercise, ordered by exercise.
func (r *WorkoutRepository) Totals() ([]ExerciseTotal, error) {
	if cached, err := r.cache.Get([]byte(totalsCacheKey)); err == nil {
		var totals []ExerciseTotal
		if err := json.Unmarshal(cached, &totals); err == nil {
			return totals, nil
		}
	}

	totals, err := r.queryTotals()
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(totals); err == nil {
		if err := r.cache.Set([]byte(totalsCacheKey), data, totalsCacheExpire); err != nil {
			log.Debugf("cache workout totals: %v", err)
		}
	}
	return totals, nil
}

func (r *WorkoutRepository) queryTotals() ([]ExerciseTotal, error) {
	rows, err := r.db.Query(
		`SELECT exercise, COUNT(*), COALESCE(SUM(reps), 0)
		 FROM workouts GROUP BY exercise ORDER BY exercise`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var totals []ExerciseTotal
	for rows.Next() {
		var t ExerciseTotal
		if err := rows.Scan(&t.Exercise, &t.Workouts, &t.Reps); err != nil {
			return nil, err
		}
		totals = append(totals, t)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return totals, nil
}

// Delete removes a workout by its ID.
func (r *WorkoutRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM workouts WHERE id = ?`, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	r.cache.Del([]byte(totalsCacheKey))
	return nil
}
