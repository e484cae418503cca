package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"gopkg.in/alecthomas/kingpin.v2"

	"target-sweep/internal/database"
)

var (
	app = kingpin.New("target-sweep-query", "Query the target-sweep deletion history.")

	dbPath     = app.Flag("db", "Path to deletion database").Default("target-sweep.db").String()
	jsonOutput = app.Flag("json", "Output in JSON format").Bool()

	recentCmd   = app.Command("recent", "Show the most recent events")
	recentLimit = recentCmd.Arg("n", "Number of events").Default("20").Int()

	runsCmd   = app.Command("runs", "Show the most recent runs")
	runsLimit = runsCmd.Arg("n", "Number of runs").Default("10").Int()

	runCmd = app.Command("run", "Show every event of one run")
	runID  = runCmd.Arg("id", "Run ID").Required().String()

	failuresCmd   = app.Command("failures", "Show recent failed deletions")
	failuresLimit = failuresCmd.Arg("n", "Number of failures").Default("20").Int()

	actionCmd  = app.Command("action", "Show events with the given action")
	actionName = actionCmd.Arg("action", "DELETE, WARN or FAIL").Required().Enum("DELETE", "WARN", "FAIL")

	pathCmd     = app.Command("path", "Show events whose path matches a SQL LIKE pattern")
	pathPattern = pathCmd.Arg("pattern", "Path pattern, e.g. '/src/app/target/%'").Required().String()

	largestCmd   = app.Command("largest", "Show the largest removed entries")
	largestLimit = largestCmd.Arg("n", "Number of entries").Default("10").Int()

	statsCmd  = app.Command("stats", "Show deletion statistics")
	statsDays = statsCmd.Flag("days", "Number of days to cover").Default("30").Int()

	pruneCmd  = app.Command("prune", "Delete history older than a number of days")
	pruneDays = pruneCmd.Arg("days", "Age in days").Required().Int()
)

func main() {
	cmd := kingpin.MustParse(app.Parse(os.Args[1:]))

	db, err := database.NewDeletionDB(*dbPath)
	if err != nil {
		log.Fatalf("ERROR: Failed to open database %s: %v", *dbPath, err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("ERROR: Failed to close database: %v", err)
		}
	}()

	switch cmd {
	case recentCmd.FullCommand():
		records, err := db.GetRecentDeletions(*recentLimit)
		app.FatalIfError(err, "recent")
		printRecords(records)
	case runsCmd.FullCommand():
		runs, err := db.GetRecentRuns(*runsLimit)
		app.FatalIfError(err, "runs")
		printRuns(runs)
	case runCmd.FullCommand():
		records, err := db.GetDeletionsByRun(*runID)
		app.FatalIfError(err, "run")
		printRecords(records)
	case failuresCmd.FullCommand():
		records, err := db.GetFailures(*failuresLimit)
		app.FatalIfError(err, "failures")
		printRecords(records)
	case actionCmd.FullCommand():
		records, err := db.GetDeletionsByAction(*actionName)
		app.FatalIfError(err, "action")
		printRecords(records)
	case pathCmd.FullCommand():
		records, err := db.GetDeletionsByPath(*pathPattern)
		app.FatalIfError(err, "path")
		printRecords(records)
	case largestCmd.FullCommand():
		records, err := db.GetLargestDeletions(*largestLimit)
		app.FatalIfError(err, "largest")
		printRecords(records)
	case statsCmd.FullCommand():
		stats, err := db.GetDeletionStats(*statsDays)
		app.FatalIfError(err, "stats")
		dbStats, err := db.GetDatabaseStats()
		app.FatalIfError(err, "database stats")
		writeStats(os.Stdout, stats, dbStats, *statsDays, *jsonOutput)
	case pruneCmd.FullCommand():
		n, err := db.DeleteOldRecords(*pruneDays)
		app.FatalIfError(err, "prune")
		app.FatalIfError(db.Vacuum(), "vacuum")
		fmt.Printf("Deleted %d events older than %d days\n", n, *pruneDays)
	}
}

func printJSON(v interface{}) bool {
	if !*jsonOutput {
		return false
	}
	writeJSON(os.Stdout, v)
	return true
}

func writeJSON(w io.Writer, v interface{}) {
	data, _ := json.MarshalIndent(v, "", "  ")
	_, _ = fmt.Fprintln(w, string(data))
}

// writeStats prints the period statistics followed by the state of the
// database file itself
func writeStats(w io.Writer, stats *database.DeletionStats, dbStats map[string]interface{}, days int, asJSON bool) {
	if asJSON {
		writeJSON(w, map[string]interface{}{
			"period":   stats,
			"database": dbStats,
		})
		return
	}

	fmt.Fprintf(w, "Deletion Statistics (Last %d days)\n", days)
	fmt.Fprintf(w, "Period: %s to %s\n\n", stats.StartDate.Format("2006-01-02"), stats.EndDate.Format("2006-01-02"))
	fmt.Fprintf(w, "Runs:             %d\n", stats.TotalRuns)
	fmt.Fprintf(w, "Total Deletions:  %d\n", stats.TotalDeletions)
	fmt.Fprintf(w, "Total Warnings:   %d\n", stats.TotalWarnings)
	fmt.Fprintf(w, "Total Failures:   %d\n", stats.TotalFailures)
	fmt.Fprintf(w, "Space Freed:      %s\n\n", humanize.Bytes(uint64(stats.TotalSpaceFreed)))

	writeCounts(w, "By Action:", stats.ByAction)
	writeCounts(w, "By Failure Kind:", stats.ByFailureKind)

	fmt.Fprintln(w, "Database:")
	fmt.Fprintf(w, "  %-18s %v\n", "records", dbStats["total_records"])
	fmt.Fprintf(w, "  %-18s %v\n", "runs", dbStats["total_runs"])
	if size, ok := dbStats["database_size_bytes"].(int64); ok {
		fmt.Fprintf(w, "  %-18s %s\n", "size", humanize.Bytes(uint64(size)))
	}
	for _, key := range []string{"oldest_record", "newest_record"} {
		if ts, ok := dbStats[key].(time.Time); ok {
			fmt.Fprintf(w, "  %-18s %s (%s)\n", strings.TrimSuffix(key, "_record"), ts.Format("2006-01-02 15:04:05"), humanize.Time(ts))
		}
	}
}

func writeCounts(w io.Writer, title string, counts map[string]int) {
	if len(counts) == 0 {
		return
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fmt.Fprintln(w, title)
	for _, k := range keys {
		fmt.Fprintf(w, "  %-18s %s\n", k, humanize.Comma(int64(counts[k])))
	}
	fmt.Fprintln(w)
}

func printRecords(records []database.DeletionRecord) {
	if printJSON(records) {
		return
	}
	if len(records) == 0 {
		fmt.Println("No records found")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tTimestamp\tAction\tType\tSize\tFailure\tPath")
	_, _ = fmt.Fprintln(w, "--\t---------\t------\t----\t----\t-------\t----")

	for _, r := range records {
		failure := r.FailureKind
		if failure == "" {
			failure = "-"
		}
		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.ID, r.Timestamp.Format("2006-01-02 15:04:05"), r.Action, r.ObjectType,
			humanize.Bytes(uint64(r.Size)), failure, r.Path)
	}
	_ = w.Flush()
}

func printRuns(runs []database.RunRecord) {
	if printJSON(runs) {
		return
	}
	if len(runs) == 0 {
		fmt.Println("No runs found")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "Run\tStarted\tDuration\tTargets\tRemoved\tFreed\tWarnings\tResult")
	_, _ = fmt.Fprintln(w, "---\t-------\t--------\t-------\t-------\t-----\t--------\t------")

	for _, r := range runs {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\t%d\t%s\n",
			r.RunID, humanize.Time(r.StartedAt), r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond),
			r.Targets, r.Removed, humanize.Bytes(uint64(r.BytesFreed)), r.Warnings, r.Result)
	}
	_ = w.Flush()
}
