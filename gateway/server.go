// Package gateway is the HTTP front-end of the courier: submissions,
// status delivery, operator controls, admin management and destination
// maintenance. It renders outbound status text; the pipeline core never
// talks HTTP.
package gateway

import (
	goerrors "errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"courier-lab/domain"
	"courier-lab/errors"
	"courier-lab/runtime"
	"courier-lab/services"
)

type Server struct {
	log            *slog.Logger
	engine         *gin.Engine
	transfers      *services.TransferService
	admins         services.IAdminService
	maintenance    *services.MaintenanceService
	board          *StatusBoard
	spoolDir       string
	maxUploadBytes int64

	mu      sync.RWMutex
	handles map[domain.JobID]trackedHandle
}

// trackedHandle remembers when a job's status handle was issued so the
// retention worker can evict it once it outlives the window.
type trackedHandle struct {
	handle  domain.StatusHandle
	addedAt time.Time
}

func NewServer(
	log *slog.Logger,
	transfers *services.TransferService,
	admins services.IAdminService,
	maintenance *services.MaintenanceService,
	board *StatusBoard,
	spoolDir string,
	maxUploadBytes int64,
) *Server {
	s := &Server{
		log:            log,
		transfers:      transfers,
		admins:         admins,
		maintenance:    maintenance,
		board:          board,
		spoolDir:       spoolDir,
		maxUploadBytes: maxUploadBytes,
		handles:        make(map[domain.JobID]trackedHandle),
	}
	s.engine = s.buildRouter()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) buildRouter() *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery())

	engine.GET("/stats", s.getStats)

	authorized := engine.Group("/", s.requireAdmin)
	{
		authorized.POST("/transfers", s.postTransfer)
		authorized.GET("/transfers", s.getHistory)
		authorized.GET("/transfers/:id/status", s.getStatus)
		authorized.GET("/transfers/:id/events", s.streamEvents)
		authorized.GET("/transfers/:id/position", s.getPosition)

		authorized.POST("/controls/pause", s.postPause)
		authorized.POST("/controls/resume", s.postResume)

		authorized.GET("/admins", s.getAdmins)
		authorized.POST("/admins", s.postAdmin)
		authorized.DELETE("/admins/:handle", s.deleteAdmin)

		authorized.GET("/maintenance/duplicates", s.getDuplicates)
		authorized.POST("/maintenance/duplicates/purge", s.purgeDuplicates)
	}
	return engine
}

// requireAdmin gates every mutating route on the allow-list. The
// requester handle travels in the X-Requester header; authorization is
// settled here, before admission.
func (s *Server) requireAdmin(c *gin.Context) {
	requester := c.GetHeader("X-Requester")
	if !s.admins.IsAdmin(requester) {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "this action is restricted to admins"})
		return
	}
	c.Set("requester", services.NormalizeHandle(requester))
	c.Next()
}

func (s *Server) postTransfer(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.maxUploadBytes)

	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("missing file: %v", err)})
		return
	}

	source, contentType, err := spoolPayload(s.spoolDir, header)
	if err != nil {
		s.log.Error("Failed to spool upload", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not accept the upload"})
		return
	}

	handle := domain.StatusHandle(uuid.NewString())
	jobID, err := s.transfers.Submit(c.Request.Context(), runtime.SubmitRequest{
		Name:        header.Filename,
		ContentType: contentType,
		Size:        header.Size,
		Requester:   c.GetString("requester"),
		Handle:      handle,
		Source:      source,
	})
	if err != nil {
		_ = source.Dispose()
		if goerrors.Is(err, errors.ErrPaused) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s.mu.Lock()
	s.handles[jobID] = trackedHandle{handle: handle, addedAt: time.Now().UTC()}
	s.mu.Unlock()

	c.JSON(http.StatusAccepted, gin.H{
		"job_id": jobID,
		"name":   header.Filename,
		"size":   header.Size,
	})
}

func (s *Server) handleFor(id string) (domain.StatusHandle, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.handles[domain.JobID(id)]
	return entry.handle, ok
}

// EvictStale forgets job handles issued more than ttl ago, along with
// their retained status lines. Archived history is unaffected; only the
// live status lookup goes away.
func (s *Server) EvictStale(ttl time.Duration) int {
	cutoff := time.Now().UTC().Add(-ttl)

	s.mu.Lock()
	defer s.mu.Unlock()
	evicted := 0
	for id, entry := range s.handles {
		if entry.addedAt.Before(cutoff) {
			s.board.Forget(entry.handle)
			delete(s.handles, id)
			evicted++
		}
	}
	return evicted
}

func (s *Server) getStatus(c *gin.Context) {
	handle, ok := s.handleFor(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": errors.ErrUnknownJob.Error()})
		return
	}
	text, ok := s.board.Latest(handle)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no status yet"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"job_id": c.Param("id"), "status": text})
}

// streamEvents delivers status lines for one job over Server-Sent Events,
// starting with the latest known line.
func (s *Server) streamEvents(c *gin.Context) {
	handle, ok := s.handleFor(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": errors.ErrUnknownJob.Error()})
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	lines, cancel := s.board.Subscribe(handle)
	defer cancel()

	if latest, ok := s.board.Latest(handle); ok {
		fmt.Fprintf(c.Writer, "event: status\ndata: %s\n\n", latest)
		c.Writer.Flush()
	}

	clientGone := c.Request.Context().Done()
	for {
		select {
		case <-clientGone:
			return
		case line := <-lines:
			fmt.Fprintf(c.Writer, "event: status\ndata: %s\n\n", line)
			c.Writer.Flush()
		}
	}
}

func (s *Server) getPosition(c *gin.Context) {
	position, ok := s.transfers.PositionOf(domain.JobID(c.Param("id")))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "job is not queued"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"job_id": c.Param("id"), "position": position})
}

func (s *Server) getHistory(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	records, err := s.transfers.History(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"transfers": records})
}

func (s *Server) getStats(c *gin.Context) {
	c.JSON(http.StatusOK, s.transfers.Stats())
}

func (s *Server) postPause(c *gin.Context) {
	drained := s.transfers.Pause(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{
		"paused":  true,
		"drained": drained,
	})
}

func (s *Server) postResume(c *gin.Context) {
	s.transfers.Resume()
	c.JSON(http.StatusOK, gin.H{"paused": false})
}

func (s *Server) getAdmins(c *gin.Context) {
	admins, err := s.admins.List()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"admins": admins})
}

type adminRequest struct {
	Handle string `json:"handle" binding:"required"`
}

func (s *Server) postAdmin(c *gin.Context) {
	var req adminRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.admins.Add(req.Handle); err != nil {
		if goerrors.Is(err, errors.ErrAdminExists) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"handle": services.NormalizeHandle(req.Handle)})
}

func (s *Server) deleteAdmin(c *gin.Context) {
	err := s.admins.Remove(c.Param("handle"))
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"removed": services.NormalizeHandle(c.Param("handle"))})
	case goerrors.Is(err, errors.ErrPermanentAdmin):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case goerrors.Is(err, errors.ErrNotAdmin):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func (s *Server) getDuplicates(c *gin.Context) {
	duplicates, err := s.maintenance.FindDuplicates(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"duplicates": duplicates, "sets": len(duplicates)})
}

func (s *Server) purgeDuplicates(c *gin.Context) {
	deleted, err := s.maintenance.PurgeDuplicates(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}
