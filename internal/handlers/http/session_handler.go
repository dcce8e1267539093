package http

import (
	"errors"
	"net/http"
	"time"

	"voicelink/internal/core/domain"
	"voicelink/internal/core/ports"
	"voicelink/internal/core/services"

	"github.com/gin-gonic/gin"
)

// SessionHandler exposes the connectivity core's intents and read-only
// snapshots over a local control API. It is the seam the UI renders
// from; all mutation goes through the service operations.
type SessionHandler struct {
	client  *services.SessionClient
	roster  *services.RosterService
	capture *services.CaptureService
	monitor *services.QualityMonitor
	catalog *services.MessageCatalog
	store   ports.RecordingStore
}

func NewSessionHandler(
	client *services.SessionClient,
	roster *services.RosterService,
	capture *services.CaptureService,
	monitor *services.QualityMonitor,
	catalog *services.MessageCatalog,
	store ports.RecordingStore,
) *SessionHandler {
	return &SessionHandler{
		client:  client,
		roster:  roster,
		capture: capture,
		monitor: monitor,
		catalog: catalog,
		store:   store,
	}
}

func (h *SessionHandler) SetupRoutes(router *gin.Engine) {
	api := router.Group("/api/v1")
	{
		api.GET("/status", h.GetStatus)
		api.POST("/connect", h.Connect)
		api.POST("/disconnect", h.Disconnect)
		api.POST("/reconnect", h.Reconnect)
		api.POST("/reauthenticate", h.Reauthenticate)

		api.GET("/roster", h.GetRoster)
		api.POST("/sessions/:id/join", h.JoinSession)
		api.POST("/sessions/:id/leave", h.LeaveSession)
		api.GET("/sessions/:id/recordings", h.ListRecordings)

		api.GET("/recording", h.GetRecording)
		api.POST("/recording/start", h.StartRecording)
		api.POST("/recording/pause", h.PauseRecording)
		api.POST("/recording/resume", h.ResumeRecording)
		api.POST("/recording/stop", h.StopRecording)
		api.GET("/recording/blob", h.DownloadBlob)

		api.GET("/quality", h.GetQuality)
		api.POST("/quality/reset", h.ResetQuality)
	}
}

func (h *SessionHandler) GetStatus(c *gin.Context) {
	state, detail := h.client.State()
	status := h.catalog.Status(state)

	resp := gin.H{
		"state":     state.String(),
		"message":   status.Text,
		"severity":  status.Severity,
		"can_retry": status.CanRetry,
		"session":   h.client.Session(),
	}
	if detail != nil {
		errInfo := gin.H{
			"category": detail.Category,
			"detail":   detail.Detail,
			"at":       detail.At,
		}
		if detail.CloseCode != 0 {
			errInfo["close_code"] = detail.CloseCode
			errInfo["close_detail"] = h.catalog.CloseDetail(detail.CloseCode)
		}
		resp["error"] = errInfo
	}
	c.JSON(http.StatusOK, resp)
}

func (h *SessionHandler) Connect(c *gin.Context) {
	if err := h.client.Connect(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"state": "connecting"})
}

func (h *SessionHandler) Disconnect(c *gin.Context) {
	if err := h.client.Disconnect(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": "disconnected"})
}

func (h *SessionHandler) Reconnect(c *gin.Context) {
	if err := h.client.Reconnect(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"state": "connecting"})
}

func (h *SessionHandler) Reauthenticate(c *gin.Context) {
	var req struct {
		Token string `json:"token" binding:"required"`
	}
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.client.Reauthenticate(req.Token); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"state": "connecting"})
}

func (h *SessionHandler) GetRoster(c *gin.Context) {
	participants := h.roster.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"participants": participants,
		"total":        len(participants),
	})
}

func (h *SessionHandler) JoinSession(c *gin.Context) {
	sessionID := c.Param("id")
	if err := h.client.SendJoin(c.Request.Context(), sessionID); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, domain.ErrNotConnected) {
			status = http.StatusConflict
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"session_id": sessionID})
}

func (h *SessionHandler) LeaveSession(c *gin.Context) {
	sessionID := c.Param("id")
	if err := h.client.SendLeave(c.Request.Context(), sessionID); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, domain.ErrNotConnected) {
			status = http.StatusConflict
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"session_id": sessionID})
}

func (h *SessionHandler) ListRecordings(c *gin.Context) {
	if h.store == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "recording archive not configured"})
		return
	}
	recs, err := h.store.ListBySession(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"recordings": recs, "total": len(recs)})
}

func (h *SessionHandler) GetRecording(c *gin.Context) {
	s := h.capture.Snapshot()
	resp := gin.H{
		"id":          s.ID,
		"state":       s.State,
		"started_at":  s.StartedAt,
		"elapsed_ms":  s.Elapsed.Milliseconds(),
		"chunk_count": s.ChunkCount,
		"byte_count":  s.ByteCount,
	}
	if s.CaptureErr != nil {
		resp["capture_error"] = s.CaptureErr.Error()
	}
	c.JSON(http.StatusOK, resp)
}

func (h *SessionHandler) StartRecording(c *gin.Context) {
	sessionID := h.client.Session().SessionID
	if err := h.capture.Start(c.Request.Context(), sessionID); err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, domain.ErrDeviceBusy):
			status = http.StatusConflict
		case errors.Is(err, domain.ErrDeviceDenied):
			status = http.StatusForbidden
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"state": domain.RecordingActive})
}

func (h *SessionHandler) PauseRecording(c *gin.Context) {
	if err := h.capture.Pause(); err != nil {
		c.JSON(recordingErrStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": domain.RecordingPaused})
}

func (h *SessionHandler) ResumeRecording(c *gin.Context) {
	if err := h.capture.Resume(); err != nil {
		c.JSON(recordingErrStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": domain.RecordingActive})
}

func (h *SessionHandler) StopRecording(c *gin.Context) {
	if err := h.capture.Stop(c.Request.Context()); err != nil {
		if errors.Is(err, domain.ErrNoAudioCaptured) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		c.JSON(recordingErrStatus(err), gin.H{"error": err.Error()})
		return
	}
	s := h.capture.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"state":       domain.RecordingStopped,
		"id":          s.ID,
		"elapsed_ms":  s.Elapsed.Milliseconds(),
		"byte_count":  s.ByteCount,
		"chunk_count": s.ChunkCount,
	})
}

func (h *SessionHandler) DownloadBlob(c *gin.Context) {
	blob, err := h.capture.FinalBlob()
	if err != nil {
		status := http.StatusConflict
		if errors.Is(err, domain.ErrNoAudioCaptured) {
			status = http.StatusUnprocessableEntity
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "application/octet-stream", blob)
}

func (h *SessionHandler) GetQuality(c *gin.Context) {
	metrics, alerts := h.monitor.Metrics()
	c.JSON(http.StatusOK, gin.H{
		"metrics":   metrics,
		"alerts":    alerts,
		"timestamp": time.Now().Unix(),
	})
}

func (h *SessionHandler) ResetQuality(c *gin.Context) {
	h.monitor.ResetStats()
	c.JSON(http.StatusOK, gin.H{"quality": domain.QualityUnknown})
}

func recordingErrStatus(err error) int {
	if errors.Is(err, domain.ErrRecordingNotActive) {
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}
