package manager

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	echo "github.com/labstack/echo/v5"

	"github.com/codeready-toolchain/subtitlebus/pkg/jobstore"
	"github.com/codeready-toolchain/subtitlebus/pkg/version"
)

// queueDepthReporter is the slice of bus.Bus the /queue/status endpoint
// depends on.
type queueDepthReporter interface {
	QueueDepth(queue string) (int, error)
}

// Server wires the manager's HTTP surface on top of a Service.
type Server struct {
	svc            *Service
	store          *jobstore.Client
	consumer       consumerHealth
	queues         queueDepthReporter
	scannerScanURL string
	httpClient     *http.Client
}

// ServerConfig carries the Server's optional collaborators. ScannerURL
// is the base URL of the scanner process's own HTTP surface; if empty,
// POST /scan reports 503 rather than failing to compile a request.
type ServerConfig struct {
	Consumer   consumerHealth
	Queues     queueDepthReporter
	ScannerURL string
}

// NewServer builds the echo instance backing the manager's HTTP surface.
func NewServer(svc *Service, store *jobstore.Client, cfg ServerConfig) *echo.Echo {
	scanURL := ""
	if cfg.ScannerURL != "" {
		scanURL = strings.TrimSuffix(cfg.ScannerURL, "/") + "/scan"
	}
	s := &Server{
		svc:            svc,
		store:          store,
		consumer:       cfg.Consumer,
		queues:         cfg.Queues,
		scannerScanURL: scanURL,
		httpClient:     &http.Client{Timeout: 10 * time.Second},
	}

	e := echo.New()
	e.HideBanner = true

	e.GET("/health", s.health)
	e.GET("/health/consumer", s.healthConsumer)
	e.GET("/subtitles", s.listSubtitles)
	e.GET("/subtitles/:id", s.getSubtitle)
	e.GET("/subtitles/status/:id", s.getSubtitleStatus)
	e.GET("/subtitles/:id/events", s.getSubtitleEvents)
	e.POST("/subtitles/download", s.createDownload)
	e.POST("/subtitles/translate", s.createTranslation)
	e.POST("/webhooks/jellyfin", s.jellyfinWebhook)
	e.POST("/scan", s.forwardScan)
	e.GET("/queue/status", s.queueStatus)

	return e
}

func (s *Server) health(c *echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok", "version": version.Full()})
}

func (s *Server) healthConsumer(c *echo.Context) error {
	if s.consumer == nil {
		return c.JSON(http.StatusOK, map[string]any{"status": "unknown", "connected": false})
	}
	connected, lastMessageAt := s.consumer.Healthy()
	status := "ok"
	if !connected {
		status = "degraded"
	}
	return c.JSON(http.StatusOK, map[string]any{
		"status":          status,
		"connected":       connected,
		"queue_name":      "subtitle.manager",
		"routing_key":     "subtitle.requested",
		"last_message_at": lastMessageAt,
	})
}

func (s *Server) listSubtitles(c *echo.Context) error {
	jobs, err := s.store.ListJobs(c.Request().Context(), "")
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, jobs)
}

func (s *Server) getSubtitle(c *echo.Context) error {
	job, err := s.store.GetJob(c.Request().Context(), c.Param("id"))
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, job)
}

func (s *Server) getSubtitleStatus(c *echo.Context) error {
	job, err := s.store.GetJob(c.Request().Context(), c.Param("id"))
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"id":       job.ID,
		"status":   job.Status,
		"progress": job.Status.Progress(),
		"message":  job.ErrorMessage,
	})
}

func (s *Server) getSubtitleEvents(c *echo.Context) error {
	jobID := c.Param("id")
	if _, err := s.store.GetJob(c.Request().Context(), jobID); err != nil {
		return mapServiceError(err)
	}
	events, err := s.store.GetEvents(c.Request().Context(), jobID)
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"job_id":      jobID,
		"event_count": len(events),
		"events":      events,
	})
}

func (s *Server) createDownload(c *echo.Context) error {
	var req DownloadRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	job, err := s.svc.CreateDownloadJob(c.Request().Context(), req)
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusCreated, job)
}

func (s *Server) createTranslation(c *echo.Context) error {
	var req TranslateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	job, err := s.svc.CreateTranslationJob(c.Request().Context(), req)
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, job)
}

func (s *Server) jellyfinWebhook(c *echo.Context) error {
	var webhook JellyfinWebhook
	if err := c.Bind(&webhook); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	status, jobID, err := s.svc.HandleJellyfinWebhook(c.Request().Context(), webhook)
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": status, "job_id": jobID})
}

func (s *Server) forwardScan(c *echo.Context) error {
	if s.scannerScanURL == "" {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "scanner is not configured")
	}
	req, err := http.NewRequestWithContext(c.Request().Context(), http.MethodPost, s.scannerScanURL, nil)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to build scanner request")
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, "scanner is unreachable")
	}
	defer resp.Body.Close()
	return c.JSON(resp.StatusCode, map[string]string{"status": "accepted"})
}

func (s *Server) queueStatus(c *echo.Context) error {
	if s.queues == nil {
		return c.JSON(http.StatusOK, map[string]any{
			"download_queue_size":    0,
			"translation_queue_size": 0,
			"active_workers":         map[string]int{},
		})
	}

	downloadDepth, err := s.queues.QueueDepth(downloadQueueName)
	if err != nil {
		slog.Warn("manager: failed to inspect download queue depth", "error", err)
		downloadDepth = 0
	}
	translationDepth, err := s.queues.QueueDepth(translationQueueName)
	if err != nil {
		slog.Warn("manager: failed to inspect translation queue depth", "error", err)
		translationDepth = 0
	}

	return c.JSON(http.StatusOK, map[string]any{
		"download_queue_size":    downloadDepth,
		"translation_queue_size": translationDepth,
		"active_workers":         map[string]int{},
	})
}

// Queue names match bus.DownloadQueue / bus.TranslationQueue; kept as
// local string constants so http.go doesn't need to import bus just
// for these two values.
const (
	downloadQueueName    = "subtitle.download"
	translationQueueName = "subtitle.translation"
)
