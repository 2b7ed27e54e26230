package server

import (
	"net/http"
	"os"
	"runtime"
	"time"

	"geo-tools/pkg/logger"

	"github.com/labstack/echo/v4"
	"github.com/shirou/gopsutil/v4/process"
)

var startedAt = time.Now()

type ProcessHealth struct {
	PID        int32   `json:"pid"`
	RSSBytes   uint64  `json:"rss_bytes"`
	CPUPercent float64 `json:"cpu_percent"`
	Goroutines int     `json:"goroutines"`
}

type HealthResponse struct {
	Status     string         `json:"status"`
	Uptime     string         `json:"uptime"`
	Database   string         `json:"database"`
	Generation string         `json:"generation"`
	Process    *ProcessHealth `json:"process,omitempty"`
}

func (s *Server) health(c echo.Context) error {
	resp := HealthResponse{
		Status:     "ok",
		Uptime:     time.Since(startedAt).Round(time.Second).String(),
		Database:   "disabled",
		Generation: "disabled",
		Process:    processHealth(),
	}
	if s.deps.Generator != nil {
		resp.Generation = "enabled"
	}
	if s.deps.Repo != nil {
		resp.Database = "ok"
		if err := s.deps.Repo.Ping(c.Request().Context()); err != nil {
			logger.Warn("database ping failed", "err", err)
			resp.Status, resp.Database = "degraded", "unreachable"
		}
	}
	return c.JSON(http.StatusOK, resp)
}

// processHealth returns nil when process stats are unavailable.
func processHealth() *ProcessHealth {
	pid := int32(os.Getpid())
	p, err := process.NewProcess(pid)
	if err != nil {
		logger.Debug("process stats unavailable", "err", err)
		return nil
	}
	h := &ProcessHealth{PID: pid, Goroutines: runtime.NumGoroutine()}
	if mem, err := p.MemoryInfo(); err == nil {
		h.RSSBytes = mem.RSS
	}
	if cpu, err := p.CPUPercent(); err == nil {
		h.CPUPercent = cpu
	}
	return h
}
