package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ayusman/reptrack/internal/repcount"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// ExerciseRepository stores custom angle-based exercises.
type ExerciseRepository struct {
	db *sql.DB
}

// Exercises returns the exercise repository for this store.
func (s *Store) Exercises() *ExerciseRepository {
	return &ExerciseRepository{db: s.db}
}

// Create inserts a new exercise definition.
func (r *ExerciseRepository) Create(def repcount.Definition) error {
	data, err := json.Marshal(def)
	if err != nil {
		return fmt.Errorf("encode exercise %s: %w", def.ID, err)
	}

	now := time.Now()
	_, err = r.db.Exec(
		`INSERT INTO exercises (id, name, definition, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)`,
		def.ID, def.Name, string(data), now, now,
	)
	return err
}

// GetByID retrieves an exercise definition by its ID.
func (r *ExerciseRepository) GetByID(id string) (*repcount.Definition, error) {
	var data string
	err := r.db.QueryRow(`SELECT definition FROM exercises WHERE id = ?`, id).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	var def repcount.Definition
	if err := json.Unmarshal([]byte(data), &def); err != nil {
		return nil, fmt.Errorf("decode exercise %s: %w", id, err)
	}
	return &def, nil
}

// List retrieves all exercise definitions ordered by ID.
func (r *ExerciseRepository) List() ([]repcount.Definition, error) {
	rows, err := r.db.Query(`SELECT id, definition FROM exercises ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var defs []repcount.Definition
	for rows.Next() {
		var id, data string
		if err := rows.Scan(&id, &data); err != nil {
			return nil, err
		}

		var def repcount.Definition
		if err := json.Unmarshal([]byte(data), &def); err != nil {
			return nil, fmt.Errorf("decode exercise %s: %w", id, err)
		}
		defs = append(defs, def)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return defs, nil
}

// Update replaces a stored definition.
func (r *ExerciseRepository) Update(def repcount.Definition) error {
	data, err := json.Marshal(def)
	if err != nil {
		return fmt.Errorf("encode exercise %s: %w", def.ID, err)
	}

	result, err := r.db.Exec(
		`UPDATE exercises SET name = ?, definition = ?, updated_at = ? WHERE id = ?`,
		def.Name, string(data), time.Now(), def.ID,
	)
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

	return nil
}

// Delete removes an exercise by its ID.
func (r *ExerciseRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM exercises WHERE id = ?`, id)
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

	return nil
}

// LoadInto registers every stored exercise in catalog. Definitions that no
// longer validate, or that clash with an existing ID, are returned as
// errors without stopping the rest from loading.
func (r *ExerciseRepository) LoadInto(catalog *repcount.Catalog) (loaded int, errs []error) {
	defs, err := r.List()
	if err != nil {
		return 0, []error{err}
	}

	for _, def := range defs {
		ex, err := def.Exercise()
		if err == nil {
			err = catalog.Register(ex)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("exercise %s: %w", def.ID, err))
			continue
		}
		loaded++
	}
	return loaded, errs
}
