// Package history persists agent run records.
package history

import (
	"database/sql"
	"encoding/json"
	"sort"
	"sync"

	"github.com/agentops/agentops-go/internal/shared"
	_ "modernc.org/sqlite"
)

// RunQuery filters run records.
type RunQuery struct {
	Agent  shared.AgentKind  `json:"agent,omitempty"`
	Status shared.TaskStatus `json:"status,omitempty"`
	Since  int64             `json:"since,omitempty"`
	Until  int64             `json:"until,omitempty"`
	Limit  int               `json:"limit,omitempty"`
	Offset int               `json:"offset,omitempty"`
}

// Stats aggregates run history.
type Stats struct {
	Total        int                       `json:"total"`
	ByStatus     map[shared.TaskStatus]int `json:"byStatus"`
	SuccessRate  float64                   `json:"successRate"`
	MeanDuration float64                   `json:"meanDurationMs"`
}

// RunStore stores run records in SQLite with an in-memory fallback for
// ":memory:" paths or unopenable databases.
type RunStore struct {
	mu          sync.RWMutex
	dbPath      string
	db          *sql.DB
	records     map[string]shared.RunRecord
	initialized bool
	useInMemory bool
}

// NewRunStore creates a run store backed by the database at dbPath.
func NewRunStore(dbPath string) *RunStore {
	return &RunStore{
		dbPath:  dbPath,
		records: make(map[string]shared.RunRecord),
	}
}

// Initialize opens the database and creates the schema.
func (s *RunStore) Initialize() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initialized {
		return nil
	}

	if s.dbPath == "" || s.dbPath == ":memory:" {
		s.useInMemory = true
		s.initialized = true
		return nil
	}

	db, err := sql.Open("sqlite", s.dbPath)
	if err != nil {
		s.useInMemory = true
		s.initialized = true
		return nil
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			agent TEXT NOT NULL,
			task_id TEXT,
			status TEXT NOT NULL,
			output TEXT,
			error TEXT,
			started_at INTEGER NOT NULL,
			duration_ms INTEGER NOT NULL,
			metadata TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_runs_agent ON runs(agent);
		CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
		CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
	`)
	if err != nil {
		db.Close()
		s.useInMemory = true
		s.initialized = true
		return nil
	}

	s.db = db
	s.useInMemory = false
	s.initialized = true
	return nil
}

// Close closes the database connection.
func (s *RunStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// A closed store degrades to the empty in-memory fallback until
	// Initialize is called again; SQLite access after Close would hit a
	// nil handle.
	s.initialized = false
	s.useInMemory = true
	s.records = make(map[string]shared.RunRecord)

	if s.db != nil {
		err := s.db.Close()
		s.db = nil
		return err
	}
	return nil
}

// Record stores a run record.
func (s *RunStore) Record(record shared.RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.useInMemory {
		s.records[record.RunID] = record
		return nil
	}

	metadataJSON, err := json.Marshal(record.Metadata)
	if err != nil {
		metadataJSON = []byte("{}")
	}

	_, err = s.db.Exec(`
		INSERT OR REPLACE INTO runs (run_id, agent, task_id, status, output, error, started_at, duration_ms, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, record.RunID, string(record.Agent), record.TaskID, string(record.Status),
		record.Output, record.Error, record.StartedAt, record.Duration, metadataJSON)

	if err != nil {
		return shared.NewStorageError("failed to record run", map[string]interface{}{"error": err.Error()})
	}
	return nil
}

// Get retrieves a run record by ID; a missing record returns (nil, nil).
func (s *RunStore) Get(runID string) (*shared.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.useInMemory {
		record, exists := s.records[runID]
		if !exists {
			return nil, nil
		}
		return &record, nil
	}

	row := s.db.QueryRow(`
		SELECT run_id, agent, task_id, status, output, error, started_at, duration_ms, metadata
		FROM runs WHERE run_id = ?
	`, runID)

	record, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, shared.NewStorageError("failed to get run", map[string]interface{}{"error": err.Error()})
	}
	return record, nil
}

// Query returns run records matching the query, newest first.
func (s *RunStore) Query(query RunQuery) ([]shared.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.useInMemory {
		return s.queryInMemory(query), nil
	}
	return s.querySQL(query)
}

func (s *RunStore) queryInMemory(query RunQuery) []shared.RunRecord {
	results := make([]shared.RunRecord, 0)

	for _, record := range s.records {
		if query.Agent != "" && record.Agent != query.Agent {
			continue
		}
		if query.Status != "" && record.Status != query.Status {
			continue
		}
		if query.Since > 0 && record.StartedAt < query.Since {
			continue
		}
		if query.Until > 0 && record.StartedAt > query.Until {
			continue
		}
		results = append(results, record)
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].StartedAt > results[j].StartedAt
	})

	if query.Offset > 0 {
		if query.Offset >= len(results) {
			return []shared.RunRecord{}
		}
		results = results[query.Offset:]
	}
	if query.Limit > 0 && query.Limit < len(results) {
		results = results[:query.Limit]
	}

	return results
}

func (s *RunStore) querySQL(query RunQuery) ([]shared.RunRecord, error) {
	sqlQuery := "SELECT run_id, agent, task_id, status, output, error, started_at, duration_ms, metadata FROM runs WHERE 1=1"
	args := make([]interface{}, 0)

	if query.Agent != "" {
		sqlQuery += " AND agent = ?"
		args = append(args, string(query.Agent))
	}
	if query.Status != "" {
		sqlQuery += " AND status = ?"
		args = append(args, string(query.Status))
	}
	if query.Since > 0 {
		sqlQuery += " AND started_at >= ?"
		args = append(args, query.Since)
	}
	if query.Until > 0 {
		sqlQuery += " AND started_at <= ?"
		args = append(args, query.Until)
	}

	sqlQuery += " ORDER BY started_at DESC"

	if query.Limit > 0 {
		sqlQuery += " LIMIT ?"
		args = append(args, query.Limit)
	} else if query.Offset > 0 {
		// SQLite only accepts OFFSET after a LIMIT clause; -1 means no limit.
		sqlQuery += " LIMIT -1"
	}
	if query.Offset > 0 {
		sqlQuery += " OFFSET ?"
		args = append(args, query.Offset)
	}

	rows, err := s.db.Query(sqlQuery, args...)
	if err != nil {
		return nil, shared.NewStorageError("failed to query runs", map[string]interface{}{"error": err.Error()})
	}
	defer rows.Close()

	results := make([]shared.RunRecord, 0)
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			continue
		}
		results = append(results, *record)
	}
	return results, rows.Err()
}

// Stats aggregates totals, per-status counts, success rate and mean duration.
func (s *RunStore) Stats() (Stats, error) {
	records, err := s.Query(RunQuery{})
	if err != nil {
		return Stats{}, err
	}

	stats := Stats{
		ByStatus: make(map[shared.TaskStatus]int),
	}

	var totalDuration int64
	for _, record := range records {
		stats.Total++
		stats.ByStatus[record.Status]++
		totalDuration += record.Duration
	}

	if stats.Total > 0 {
		stats.SuccessRate = float64(stats.ByStatus[shared.TaskStatusCompleted]) / float64(stats.Total)
		stats.MeanDuration = float64(totalDuration) / float64(stats.Total)
	}
	return stats, nil
}

// Prune deletes records started before the given time.
func (s *RunStore) Prune(before int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.useInMemory {
		removed := 0
		for id, record := range s.records {
			if record.StartedAt < before {
				delete(s.records, id)
				removed++
			}
		}
		return removed, nil
	}

	res, err := s.db.Exec("DELETE FROM runs WHERE started_at < ?", before)
	if err != nil {
		return 0, shared.NewStorageError("failed to prune runs", map[string]interface{}{"error": err.Error()})
	}
	affected, _ := res.RowsAffected()
	return int(affected), nil
}

// Count returns the number of stored records.
func (s *RunStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.useInMemory {
		return len(s.records)
	}

	var count int
	s.db.QueryRow("SELECT COUNT(*) FROM runs").Scan(&count)
	return count
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row rowScanner) (*shared.RunRecord, error) {
	var record shared.RunRecord
	var agent, status string
	var metadataJSON []byte

	err := row.Scan(&record.RunID, &agent, &record.TaskID, &status,
		&record.Output, &record.Error, &record.StartedAt, &record.Duration, &metadataJSON)
	if err != nil {
		return nil, err
	}

	record.Agent = shared.AgentKind(agent)
	record.Status = shared.TaskStatus(status)
	if len(metadataJSON) > 0 {
		json.Unmarshal(metadataJSON, &record.Metadata)
	}
	return &record, nil
}
