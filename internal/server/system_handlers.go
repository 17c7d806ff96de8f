package server

import (
	"context"
	"errors"
	"net/http"
	"runtime"
	"sort"
	"time"

	"github.com/aristath/sharesathi/internal/database"
	"github.com/aristath/sharesathi/internal/reliability"
	"github.com/aristath/sharesathi/internal/scheduler"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// JobRunner lists and triggers scheduled jobs, satisfied by *scheduler.Scheduler
type JobRunner interface {
	Jobs() []scheduler.JobInfo
	RunNow(name string) error
}

// StatsProvider reports database statistics, satisfied by *database.DB
type StatsProvider interface {
	GetStats() (*database.Stats, error)
}

// MarketClock reports whether the exchange is trading, satisfied by *scheduler.MarketHours
type MarketClock interface {
	IsOpen(t time.Time) bool
}

// BackupManager takes and lists snapshot backups, satisfied by *reliability.SnapshotBackupService
type BackupManager interface {
	Backup(ctx context.Context) (string, error)
	ListBackups(ctx context.Context) ([]reliability.BackupInfo, error)
}

// SystemStatusResponse is the payload of GET /api/system/status
type SystemStatusResponse struct {
	Status        string            `json:"status"`
	StartedAt     time.Time         `json:"startedAt"`
	UptimeSeconds int64             `json:"uptimeSeconds"`
	CPUPercent    float64           `json:"cpuPercent"`
	MemoryPercent float64           `json:"memoryPercent"`
	Goroutines    int               `json:"goroutines"`
	MarketOpen    bool              `json:"marketOpen"`
	StreamClients int64             `json:"streamClients"`
	Databases     []*database.Stats `json:"databases"`
}

// SystemHandlers serves status, job and backup endpoints
type SystemHandlers struct {
	log       zerolog.Logger
	startedAt time.Time
	databases map[string]StatsProvider
	jobs      JobRunner
	clock     MarketClock
	backups   BackupManager
	stream    *StreamHandler
	now       func() time.Time
	sysStats  func() (cpuPercent, memPercent float64)
}

// NewSystemHandlers creates a new system handlers instance. jobs, backups
// and stream may be nil.
func NewSystemHandlers(
	log zerolog.Logger,
	startedAt time.Time,
	databases map[string]StatsProvider,
	jobs JobRunner,
	clock MarketClock,
	backups BackupManager,
	stream *StreamHandler,
) *SystemHandlers {
	h := &SystemHandlers{
		log:       log.With().Str("handler", "system").Logger(),
		startedAt: startedAt,
		databases: databases,
		jobs:      jobs,
		clock:     clock,
		backups:   backups,
		stream:    stream,
		now:       time.Now,
	}
	h.sysStats = h.getSystemStats
	return h
}

// RegisterRoutes registers all system routes
func (h *SystemHandlers) RegisterRoutes(r chi.Router) {
	r.Route("/system", func(r chi.Router) {
		r.Get("/status", h.HandleSystemStatus)
		r.Get("/jobs", h.HandleJobs)
		r.Post("/jobs/{name}/run", h.HandleRunJob)
		r.Get("/backups", h.HandleListBackups)
		r.Post("/backups", h.HandleCreateBackup)
	})
}

// HandleSystemStatus handles GET /api/system/status
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	now := h.now()
	cpuPercent, memPercent := h.sysStats()

	resp := SystemStatusResponse{
		Status:        "healthy",
		StartedAt:     h.startedAt,
		UptimeSeconds: int64(now.Sub(h.startedAt).Seconds()),
		CPUPercent:    cpuPercent,
		MemoryPercent: memPercent,
		Goroutines:    runtime.NumGoroutine(),
		Databases:     []*database.Stats{},
	}
	if h.clock != nil {
		resp.MarketOpen = h.clock.IsOpen(now)
	}
	if h.stream != nil {
		resp.StreamClients = h.stream.Clients()
	}

	names := make([]string, 0, len(h.databases))
	for name := range h.databases {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		stats, err := h.databases[name].GetStats()
		if err != nil {
			h.log.Warn().Err(err).Str("database", name).Msg("Failed to get database stats")
			resp.Status = "degraded"
			continue
		}
		resp.Databases = append(resp.Databases, stats)
	}

	writeJSON(w, h.log, http.StatusOK, envelope(resp))
}

// HandleJobs handles GET /api/system/jobs
func (h *SystemHandlers) HandleJobs(w http.ResponseWriter, r *http.Request) {
	jobs := []scheduler.JobInfo{}
	if h.jobs != nil {
		jobs = h.jobs.Jobs()
	}
	writeJSON(w, h.log, http.StatusOK, envelope(jobs))
}

// HandleRunJob handles POST /api/system/jobs/{name}/run
func (h *SystemHandlers) HandleRunJob(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if h.jobs == nil {
		writeError(w, h.log, http.StatusServiceUnavailable, "scheduler not running")
		return
	}

	if err := h.jobs.RunNow(name); err != nil {
		if errors.Is(err, scheduler.ErrUnknownJob) {
			writeError(w, h.log, http.StatusNotFound, err.Error())
			return
		}
		h.log.Error().Err(err).Str("job", name).Msg("Manual job run failed")
		writeError(w, h.log, http.StatusInternalServerError, "job failed")
		return
	}

	writeJSON(w, h.log, http.StatusOK, envelope(map[string]interface{}{
		"job":    name,
		"status": "completed",
	}))
}

// HandleListBackups handles GET /api/system/backups
func (h *SystemHandlers) HandleListBackups(w http.ResponseWriter, r *http.Request) {
	if h.backups == nil {
		writeJSON(w, h.log, http.StatusOK, envelope(map[string]interface{}{"available": false}))
		return
	}

	backups, err := h.backups.ListBackups(r.Context())
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to list backups")
		writeJSON(w, h.log, http.StatusOK, envelope(map[string]interface{}{"available": false}))
		return
	}

	writeJSON(w, h.log, http.StatusOK, envelope(map[string]interface{}{
		"available": true,
		"backups":   backups,
	}))
}

// HandleCreateBackup handles POST /api/system/backups
func (h *SystemHandlers) HandleCreateBackup(w http.ResponseWriter, r *http.Request) {
	if h.backups == nil {
		writeError(w, h.log, http.StatusServiceUnavailable, "backups not configured")
		return
	}

	key, err := h.backups.Backup(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Manual backup failed")
		writeError(w, h.log, http.StatusBadGateway, "backup failed")
		return
	}

	writeJSON(w, h.log, http.StatusCreated, envelope(map[string]interface{}{"key": key}))
}

// getSystemStats returns CPU and RAM usage percentages. CPU is sampled over
// 100ms to keep the request fast.
func (h *SystemHandlers) getSystemStats() (float64, float64) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil || len(cpuPercent) == 0 {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return cpuPercent[0], 0
	}

	return cpuPercent[0], memStat.UsedPercent
}
