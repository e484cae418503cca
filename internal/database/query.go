package database

import (
	"database/sql"
	"time"
)

const deletionColumns = `
	SELECT id, run_id, timestamp, action, target, path, file_name,
	       object_type, size, failure_kind, error_message
	FROM deletions
`

// GetRecentDeletions returns the N most recent events
func (d *DeletionDB) GetRecentDeletions(limit int) ([]DeletionRecord, error) {
	return d.queryDeletions(deletionColumns+`
	ORDER BY timestamp DESC, id DESC
	LIMIT ?
	`, limit)
}

// GetDeletionsByRun returns the events of one run in the order they happened
func (d *DeletionDB) GetDeletionsByRun(runID string) ([]DeletionRecord, error) {
	return d.queryDeletions(deletionColumns+`
	WHERE run_id = ?
	ORDER BY id ASC
	`, runID)
}

// GetDeletionsByDateRange returns events within a time range
func (d *DeletionDB) GetDeletionsByDateRange(start, end time.Time) ([]DeletionRecord, error) {
	return d.queryDeletions(deletionColumns+`
	WHERE timestamp BETWEEN ? AND ?
	ORDER BY timestamp DESC, id DESC
	`, start, end)
}

// GetDeletionsByPath returns events matching a LIKE path pattern
func (d *DeletionDB) GetDeletionsByPath(pathPattern string) ([]DeletionRecord, error) {
	return d.queryDeletions(deletionColumns+`
	WHERE path LIKE ?
	ORDER BY timestamp DESC, id DESC
	`, pathPattern)
}

// GetDeletionsByAction returns events filtered by action type
func (d *DeletionDB) GetDeletionsByAction(action string) ([]DeletionRecord, error) {
	return d.queryDeletions(deletionColumns+`
	WHERE action = ?
	ORDER BY timestamp DESC, id DESC
	`, action)
}

// GetFailures returns warnings and fatal failures, newest first
func (d *DeletionDB) GetFailures(limit int) ([]DeletionRecord, error) {
	return d.queryDeletions(deletionColumns+`
	WHERE action IN ('WARN', 'FAIL')
	ORDER BY timestamp DESC, id DESC
	LIMIT ?
	`, limit)
}

// GetLargestDeletions returns the N largest removed files
func (d *DeletionDB) GetLargestDeletions(limit int) ([]DeletionRecord, error) {
	return d.queryDeletions(deletionColumns+`
	WHERE action = 'DELETE'
	ORDER BY size DESC
	LIMIT ?
	`, limit)
}

// GetTotalSpaceFreed returns total bytes freed in a time range
func (d *DeletionDB) GetTotalSpaceFreed(start, end time.Time) (int64, error) {
	query := `
	SELECT COALESCE(SUM(size), 0)
	FROM deletions
	WHERE action = 'DELETE' AND timestamp BETWEEN ? AND ?
	`

	var total int64
	err := d.db.QueryRow(query, start, end).Scan(&total)
	return total, err
}

// GetDeletionCountByAction returns count of events grouped by action
func (d *DeletionDB) GetDeletionCountByAction() (map[string]int, error) {
	return d.countBy(`
	SELECT action, COUNT(*)
	FROM deletions
	GROUP BY action
	`)
}

// GetFailureCountByKind returns count of failures grouped by failure kind
func (d *DeletionDB) GetFailureCountByKind() (map[string]int, error) {
	return d.countBy(`
	SELECT failure_kind, COUNT(*)
	FROM deletions
	WHERE action IN ('WARN', 'FAIL')
	GROUP BY failure_kind
	`)
}

// GetTopTargetsByRemovals returns targets with the most removed entries
func (d *DeletionDB) GetTopTargetsByRemovals(limit int) (map[string]int, error) {
	return d.countBy(`
	SELECT target, COUNT(*) as count
	FROM deletions
	WHERE action = 'DELETE'
	GROUP BY target
	ORDER BY count DESC
	LIMIT ?
	`, limit)
}

func (d *DeletionDB) countBy(query string, args ...interface{}) (map[string]int, error) {
	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var key sql.NullString
		var count int
		if err := rows.Scan(&key, &count); err != nil {
			return nil, err
		}
		counts[key.String] = count
	}

	return counts, rows.Err()
}

// DeletionStats holds aggregated statistics
type DeletionStats struct {
	TotalDeletions  int
	TotalWarnings   int
	TotalFailures   int
	TotalRuns       int
	TotalSpaceFreed int64
	ByAction        map[string]int
	ByFailureKind   map[string]int
	StartDate       time.Time
	EndDate         time.Time
}

// GetDeletionStats returns comprehensive statistics for a time period
func (d *DeletionDB) GetDeletionStats(days int) (*DeletionStats, error) {
	now := time.Now()
	since := now.AddDate(0, 0, -days)

	stats := &DeletionStats{
		StartDate: since,
		EndDate:   now,
	}

	// Total by action
	err := d.db.QueryRow(`
		SELECT
			COUNT(CASE WHEN action = 'DELETE' THEN 1 END),
			COUNT(CASE WHEN action = 'WARN' THEN 1 END),
			COUNT(CASE WHEN action = 'FAIL' THEN 1 END)
		FROM deletions
		WHERE timestamp >= ?
	`, since).Scan(&stats.TotalDeletions, &stats.TotalWarnings, &stats.TotalFailures)
	if err != nil {
		return nil, err
	}

	if err := d.db.QueryRow("SELECT COUNT(*) FROM runs WHERE started_at >= ?", since).Scan(&stats.TotalRuns); err != nil {
		return nil, err
	}

	stats.TotalSpaceFreed, err = d.GetTotalSpaceFreed(since, now)
	if err != nil {
		return nil, err
	}

	stats.ByAction, err = d.GetDeletionCountByAction()
	if err != nil {
		return nil, err
	}

	stats.ByFailureKind, err = d.GetFailureCountByKind()
	if err != nil {
		return nil, err
	}

	return stats, nil
}

// GetRecentRuns returns the N most recent run summaries
func (d *DeletionDB) GetRecentRuns(limit int) ([]RunRecord, error) {
	rows, err := d.db.Query(`
	SELECT run_id, started_at, finished_at, base_dir, targets,
	       removed, bytes_freed, warnings, result
	FROM runs
	ORDER BY started_at DESC
	LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		var r RunRecord
		if err := rows.Scan(
			&r.RunID, &r.StartedAt, &r.FinishedAt, &r.BaseDir, &r.Targets,
			&r.Removed, &r.BytesFreed, &r.Warnings, &r.Result,
		); err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}

	return runs, rows.Err()
}

// DeleteOldRecords removes events and runs older than specified days
func (d *DeletionDB) DeleteOldRecords(olderThanDays int) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -olderThanDays)

	result, err := d.db.Exec(`DELETE FROM deletions WHERE timestamp < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	if _, err := d.db.Exec(`DELETE FROM runs WHERE started_at < ?`, cutoff); err != nil {
		return 0, err
	}

	return result.RowsAffected()
}

// queryDeletions is a helper function to execute queries and scan results
func (d *DeletionDB) queryDeletions(query string, args ...interface{}) ([]DeletionRecord, error) {
	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []DeletionRecord
	for rows.Next() {
		var r DeletionRecord
		var fileName, failureKind, errMsg sql.NullString

		err := rows.Scan(
			&r.ID, &r.RunID, &r.Timestamp, &r.Action, &r.Target, &r.Path,
			&fileName, &r.ObjectType, &r.Size, &failureKind, &errMsg,
		)
		if err != nil {
			return nil, err
		}

		r.FileName = fileName.String
		r.FailureKind = failureKind.String
		r.ErrorMessage = errMsg.String

		records = append(records, r)
	}

	return records, rows.Err()
}

// GetRecentDeletionsPaginated returns paginated recent events with total count
func (d *DeletionDB) GetRecentDeletionsPaginated(limit, offset int) ([]DeletionRecord, int, error) {
	var totalCount int
	if err := d.db.QueryRow("SELECT COUNT(*) FROM deletions").Scan(&totalCount); err != nil {
		return nil, 0, err
	}

	records, err := d.queryDeletions(deletionColumns+`
	ORDER BY timestamp DESC, id DESC
	LIMIT ? OFFSET ?
	`, limit, offset)
	return records, totalCount, err
}
