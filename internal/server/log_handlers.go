package server

import (
	"errors"
	"io/fs"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
)

const (
	defaultLogLines = 100
	maxLogLines     = 10000
)

// LogHandlers serves the tail of the rotating log file
type LogHandlers struct {
	fs   afero.Fs
	path string
	log  zerolog.Logger
}

// NewLogHandlers creates a new log handlers instance. An empty path means
// logging goes to stderr only and the endpoints report no file.
func NewLogHandlers(fsys afero.Fs, path string, log zerolog.Logger) *LogHandlers {
	return &LogHandlers{
		fs:   fsys,
		path: path,
		log:  log.With().Str("handler", "logs").Logger(),
	}
}

// LogContentResponse represents log content
type LogContentResponse struct {
	Lines     []string `json:"lines"`
	Total     int      `json:"total"`
	Available bool     `json:"available"`
}

// RegisterRoutes registers the log routes
func (h *LogHandlers) RegisterRoutes(r chi.Router) {
	r.Route("/system/logs", func(r chi.Router) {
		r.Get("/", h.HandleGetLogs)
		r.Get("/errors", h.HandleGetErrors)
	})
}

// HandleGetLogs handles GET /api/system/logs?lines=&level=&search=
func (h *LogHandlers) HandleGetLogs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	h.respond(w, parseLines(q.Get("lines"), defaultLogLines), strings.ToLower(q.Get("level")), q.Get("search"))
}

// HandleGetErrors handles GET /api/system/logs/errors
func (h *LogHandlers) HandleGetErrors(w http.ResponseWriter, r *http.Request) {
	h.respond(w, parseLines(r.URL.Query().Get("lines"), 500), "error", "")
}

func (h *LogHandlers) respond(w http.ResponseWriter, lines int, level, search string) {
	if h.path == "" {
		writeJSON(w, h.log, http.StatusOK, envelope(LogContentResponse{Lines: []string{}}))
		return
	}

	data, err := afero.ReadFile(h.fs, h.path)
	if errors.Is(err, fs.ErrNotExist) {
		writeJSON(w, h.log, http.StatusOK, envelope(LogContentResponse{Lines: []string{}, Available: true}))
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("path", h.path).Msg("Failed to read log file")
		writeError(w, h.log, http.StatusInternalServerError, "failed to read logs")
		return
	}

	all := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(all) == 1 && all[0] == "" {
		all = nil
	}
	if len(all) > lines {
		all = all[len(all)-lines:]
	}

	writeJSON(w, h.log, http.StatusOK, envelope(LogContentResponse{
		Lines:     filterLogs(all, level, search),
		Total:     len(all),
		Available: true,
	}))
}

func parseLines(raw string, def int) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	if n > maxLogLines {
		return maxLogLines
	}
	return n
}

// filterLogs filters log lines by level and search term
func filterLogs(lines []string, level, search string) []string {
	filtered := make([]string, 0, len(lines))
	search = strings.ToLower(search)

	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if level != "" && !lineMatchesLevel(line, level) {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(line), search) {
			continue
		}
		filtered = append(filtered, line)
	}
	return filtered
}

// consoleLevels are the zerolog ConsoleWriter level abbreviations
var consoleLevels = map[string]string{
	"trace": "TRC",
	"debug": "DBG",
	"info":  "INF",
	"warn":  "WRN",
	"error": "ERR",
	"fatal": "FTL",
	"panic": "PNC",
}

// lineMatchesLevel checks zerolog JSON lines first, then console output
func lineMatchesLevel(line, level string) bool {
	if strings.Contains(line, `"level"`) {
		return strings.Contains(strings.ToLower(line), `"level":"`+level+`"`)
	}

	upper := strings.ToUpper(line)
	if abbrev, ok := consoleLevels[level]; ok && strings.Contains(upper, " "+abbrev+" ") {
		return true
	}
	return strings.Contains(upper, "["+strings.ToUpper(level)+"]")
}
