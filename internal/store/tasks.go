package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/glebarez/go-sqlite"
	"github.com/google/uuid"
	"github.com/rahul/tasksmith/internal/plan"
)

// ErrNotFound is returned when a task id does not exist for the chat.
var ErrNotFound = errors.New("task not found")

const blankDeadline = "N/A"

type TaskStore struct {
	DB    *sql.DB
	NewID func() string
}

func NewTaskStore(dbPath string) (*TaskStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	queries := []string{
		`PRAGMA foreign_keys = ON;`,
		`CREATE TABLE IF NOT EXISTS tasks (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			chat_id TEXT NOT NULL,
			title TEXT NOT NULL,
			description TEXT,
			category TEXT,
			goal TEXT,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS steps (
			task_id INTEGER NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			title TEXT NOT NULL,
			deadline TEXT,
			mandatory INTEGER,
			completion_criteria TEXT,
			dependencies TEXT,
			links TEXT,
			PRIMARY KEY (task_id, position)
		);`,
	}
	for _, q := range queries {
		if _, err := db.Exec(q); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to initialise task store: %w", err)
		}
	}

	return &TaskStore{DB: db, NewID: uuid.NewString}, nil
}

func (s *TaskStore) Close() error {
	return s.DB.Close()
}

// SaveTask inserts t when t.ID is zero, otherwise replaces the stored task
// and its steps. It returns the task id.
func (s *TaskStore) SaveTask(chatID string, t Task) (int64, error) {
	tx, err := s.DB.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	id := t.ID
	if id == 0 {
		res, err := tx.Exec(`INSERT INTO tasks (chat_id, title, description, category, goal, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
			chatID, t.Title, t.Description, string(t.Category), t.Goal, time.Now().UTC())
		if err != nil {
			return 0, fmt.Errorf("failed to insert task: %w", err)
		}
		if id, err = res.LastInsertId(); err != nil {
			return 0, err
		}
	} else {
		res, err := tx.Exec(`UPDATE tasks SET title = ?, description = ?, category = ?, goal = ?, updated_at = ? WHERE id = ? AND chat_id = ?`,
			t.Title, t.Description, string(t.Category), t.Goal, time.Now().UTC(), id, chatID)
		if err != nil {
			return 0, fmt.Errorf("failed to update task: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return 0, ErrNotFound
		}
		if _, err := tx.Exec(`DELETE FROM steps WHERE task_id = ?`, id); err != nil {
			return 0, err
		}
	}

	for _, row := range toRows(t.Steps) {
		deps, _ := json.Marshal(row.Dependencies)
		links, _ := json.Marshal(row.Links)
		_, err := tx.Exec(`INSERT INTO steps (task_id, position, title, deadline, mandatory, completion_criteria, dependencies, links) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			id, row.Position, row.Title, row.Deadline, row.Mandatory, row.CompletionCriteria, string(deps), string(links))
		if err != nil {
			return 0, fmt.Errorf("failed to insert step %d: %w", row.Position, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return id, nil
}

func (s *TaskStore) GetTask(chatID string, id int64) (*Task, error) {
	t := &Task{ID: id, ChatID: chatID}
	var desc, category, goal sql.NullString
	err := s.DB.QueryRow(`SELECT title, description, category, goal, updated_at FROM tasks WHERE id = ? AND chat_id = ?`, id, chatID).
		Scan(&t.Title, &desc, &category, &goal, &t.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	t.Description = desc.String
	t.Category = plan.Category(category.String)
	t.Goal = goal.String

	rows, err := s.DB.Query(`SELECT position, title, deadline, mandatory, completion_criteria, dependencies, links FROM steps WHERE task_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stepRows []stepRow
	for rows.Next() {
		var r stepRow
		var deadline, criteria, deps, links sql.NullString
		if err := rows.Scan(&r.Position, &r.Title, &deadline, &r.Mandatory, &criteria, &deps, &links); err != nil {
			return nil, err
		}
		r.Deadline = deadline.String
		r.CompletionCriteria = criteria.String
		if deps.Valid && deps.String != "" {
			if err := json.Unmarshal([]byte(deps.String), &r.Dependencies); err != nil {
				return nil, fmt.Errorf("failed to decode dependencies of step %d: %w", r.Position, err)
			}
		}
		if links.Valid && links.String != "" {
			if err := json.Unmarshal([]byte(links.String), &r.Links); err != nil {
				return nil, fmt.Errorf("failed to decode links of step %d: %w", r.Position, err)
			}
		}
		stepRows = append(stepRows, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	t.Steps = s.fromRows(stepRows)
	return t, nil
}

func (s *TaskStore) ListTasks(chatID string) ([]TaskSummary, error) {
	query := `
		SELECT t.id, t.title, t.category, t.updated_at, COUNT(s.position)
		FROM tasks t LEFT JOIN steps s ON s.task_id = t.id
		WHERE t.chat_id = ?
		GROUP BY t.id
		ORDER BY t.updated_at DESC, t.id DESC`
	rows, err := s.DB.Query(query, chatID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []TaskSummary
	for rows.Next() {
		var ts TaskSummary
		var category sql.NullString
		if err := rows.Scan(&ts.ID, &ts.Title, &category, &ts.UpdatedAt, &ts.StepCount); err != nil {
			return nil, err
		}
		ts.Category = plan.Category(category.String)
		tasks = append(tasks, ts)
	}
	return tasks, rows.Err()
}

func (s *TaskStore) DeleteTask(chatID string, id int64) error {
	tx, err := s.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.Exec(`DELETE FROM tasks WHERE id = ? AND chat_id = ?`, id, chatID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	if _, err := tx.Exec(`DELETE FROM steps WHERE task_id = ?`, id); err != nil {
		return err
	}
	return tx.Commit()
}

// toRows drops step ids; dependencies become positions. A step may depend on
// a later one after it has been moved, so positions are assigned first.
func toRows(steps []plan.Step) []stepRow {
	pos := make(map[string]int, len(steps))
	for i, st := range steps {
		pos[st.ID] = i + 1
	}

	rows := make([]stepRow, 0, len(steps))
	for i, st := range steps {
		r := stepRow{
			Position:           i + 1,
			Title:              st.Title,
			Deadline:           strings.TrimSpace(st.Deadline),
			Mandatory:          st.Mandatory,
			CompletionCriteria: st.CompletionCriteria,
			Links:              st.Links,
		}
		if r.Deadline == "" {
			r.Deadline = blankDeadline
		}
		for _, dep := range st.Dependencies {
			if p, ok := pos[dep]; ok && p != i+1 {
				r.Dependencies = append(r.Dependencies, p)
			}
		}
		rows = append(rows, r)
	}
	return rows
}

// fromRows assigns fresh ids and maps position dependencies back onto them.
func (s *TaskStore) fromRows(rows []stepRow) []plan.Step {
	steps := make([]plan.Step, len(rows))
	for i, r := range rows {
		steps[i] = plan.Step{
			ID:                 s.NewID(),
			Title:              r.Title,
			Deadline:           r.Deadline,
			Mandatory:          r.Mandatory,
			CompletionCriteria: r.CompletionCriteria,
			Links:              r.Links,
		}
	}
	for i, r := range rows {
		for _, p := range r.Dependencies {
			if p >= 1 && p <= len(steps) && p != i+1 {
				steps[i].Dependencies = append(steps[i].Dependencies, steps[p-1].ID)
			}
		}
	}
	return steps
}
