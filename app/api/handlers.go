package api

import (
	"bytes"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lysyi3m/mirassol-cal/app/config"
	"github.com/lysyi3m/mirassol-cal/app/database"
)

func NewHandler(clubConfig *config.ClubConfig, snapshot SnapshotReader,
	runs database.RunRepository) *Handler {
	return &Handler{
		clubConfig: clubConfig,
		snapshot:   snapshot,
		runs:       runs,
	}
}

// GetCalendar serves the ICS snapshot as produced by the last run
func (h *Handler) GetCalendar(c *gin.Context) {
	data, err := h.snapshot.Read()
	if err != nil {
		slog.Error("Failed to read snapshot", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}
	if data == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No snapshot available yet"})
		return
	}

	c.Header("Content-Type", "text/calendar; charset=utf-8")
	c.Header("Content-Disposition", `attachment; filename="`+h.clubConfig.Calendar.Name+`.ics"`)
	c.Header("X-Calendar-Events", strconv.Itoa(countEvents(data)))

	c.Data(http.StatusOK, "text/calendar; charset=utf-8", data)
}

func (h *Handler) HealthCheck(c *gin.Context) {
	health := gin.H{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
	}

	if run, err := h.runs.GetLatestRun(); err == nil && run != nil {
		health["last_run_at"] = run.FinishedAt.Format(time.RFC3339)
		health["last_run_failed"] = run.Failed
	}

	c.JSON(http.StatusOK, health)
}

// GetStats reports the latest run and lifetime operation totals
func (h *Handler) GetStats(c *gin.Context) {
	stats := gin.H{
		"club": h.clubConfig.Club.Name,
	}

	run, err := h.runs.GetLatestRun()
	if err != nil {
		slog.Error("Database error", "operation", "get_latest_run", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if run != nil {
		stats["last_run"] = gin.H{
			"started_at":        run.StartedAt.Format(time.RFC3339),
			"finished_at":       run.FinishedAt.Format(time.RFC3339),
			"total_events":      run.TotalEvents,
			"created":           run.Created,
			"updated":           run.Updated,
			"deleted":           run.Deleted,
			"failed":            run.Failed,
			"skipped_rows":      run.SkippedRows,
			"skipped_unmanaged": run.SkippedUnmanaged,
		}
	}

	totals, err := h.runs.GetTotals()
	if err != nil {
		slog.Error("Database error", "operation", "get_totals", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	stats["totals"] = gin.H{
		"runs":    totals.Runs,
		"created": totals.Created,
		"updated": totals.Updated,
		"deleted": totals.Deleted,
		"failed":  totals.Failed,
	}

	c.JSON(http.StatusOK, stats)
}

// countEvents counts VEVENT blocks without a full parse
func countEvents(data []byte) int {
	return bytes.Count(data, []byte("BEGIN:VEVENT"))
}
