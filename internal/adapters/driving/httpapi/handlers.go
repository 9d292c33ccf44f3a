package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
	"github.com/custodia-labs/ragdesk/internal/logger"
)

type sessionResponse struct {
	SessionID string               `json:"session_id"`
	Status    domain.SessionStatus `json:"status"`
}

type uploadResponse struct {
	Success        bool                  `json:"success"`
	SessionID      string                `json:"session_id"`
	Uploaded       []domain.UploadedFile `json:"uploaded"`
	TotalDocuments int                   `json:"total_documents"`
	TotalSize      int64                 `json:"total_size"`
}

type chatRequest struct {
	Message string `json:"message"`
}

type chatResponse struct {
	Success      bool      `json:"success"`
	Response     string    `json:"response"`
	Sources      []string  `json:"sources"`
	Confidence   float64   `json:"confidence"`
	QueryID      string    `json:"query_id"`
	SecurityFlag bool      `json:"security_flag"`
	Timestamp    time.Time `json:"timestamp"`
}

type resetResponse struct {
	Success   bool   `json:"success"`
	SessionID string `json:"session_id"`
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
}

func (s *Server) createSession(c echo.Context) error {
	sess, err := s.ports.Assistant.CreateSession(c.Request().Context())
	if err != nil {
		return s.fail(c, err)
	}
	c.Response().Header().Set(HeaderSessionID, sess.ID)
	return c.JSON(http.StatusCreated, sessionResponse{SessionID: sess.ID, Status: sess.Status})
}

func (s *Server) upload(c echo.Context) error {
	ctx := c.Request().Context()

	form, err := c.MultipartForm()
	if err != nil || len(form.File["documents"]) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "No documents provided"})
	}

	headers := form.File["documents"]
	files := make([]domain.IncomingFile, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "Could not read " + fh.Filename})
		}
		defer f.Close()
		files = append(files, domain.IncomingFile{Name: fh.Filename, Size: fh.Size, Content: f})
	}

	sessionID := c.Request().Header.Get(HeaderSessionID)
	if sessionID == "" {
		sess, err := s.ports.Assistant.CreateSession(ctx)
		if err != nil {
			return s.fail(c, err)
		}
		sessionID = sess.ID
	}

	saved, err := s.ports.Uploads.Save(sessionID, files)
	if err != nil {
		s.ports.Metrics.Upload("rejected")
		return s.fail(c, err)
	}

	result, err := s.ports.Assistant.Upload(ctx, sessionID, domain.UploadedPaths(saved))
	if err != nil {
		s.ports.Uploads.Discard(saved)
		return s.fail(c, err)
	}

	c.Response().Header().Set(HeaderSessionID, result.SessionID)
	return c.JSON(http.StatusOK, uploadResponse{
		Success:        true,
		SessionID:      result.SessionID,
		Uploaded:       saved,
		TotalDocuments: result.DocumentCount,
		TotalSize:      domain.UploadedSize(saved),
	})
}

func (s *Server) status(c echo.Context) error {
	sessionID := c.Request().Header.Get(HeaderSessionID)
	report := s.ports.Assistant.Status(c.Request().Context(), sessionID)
	return c.JSON(http.StatusOK, report)
}

func (s *Server) chat(c echo.Context) error {
	ctx := c.Request().Context()

	var req chatRequest
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Message) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "No message provided"})
	}

	sessionID := c.Request().Header.Get(HeaderSessionID)
	resp, err := s.ports.Assistant.Chat(ctx, sessionID, req.Message)
	if errors.Is(err, domain.ErrSessionNotReady) {
		report := s.ports.Assistant.Status(ctx, sessionID)
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error":  "Chatbot not ready. Please upload documents first.",
			"status": report.Status,
		})
	}
	if err != nil {
		return s.fail(c, err)
	}

	return c.JSON(http.StatusOK, chatResponse{
		Success:      true,
		Response:     resp.Response,
		Sources:      resp.Sources,
		Confidence:   resp.Confidence,
		QueryID:      resp.QueryID,
		SecurityFlag: resp.SecurityFlag,
		Timestamp:    resp.Timestamp,
	})
}

func (s *Server) reset(c echo.Context) error {
	sessionID := c.Request().Header.Get(HeaderSessionID)
	fresh, err := s.ports.Assistant.Reset(c.Request().Context(), sessionID)
	if err != nil {
		return s.fail(c, err)
	}
	c.Response().Header().Set(HeaderSessionID, fresh)
	return c.JSON(http.StatusOK, resetResponse{Success: true, SessionID: fresh})
}

// fail writes err as {"error": ...} with the status its kind maps to.
func (s *Server) fail(c echo.Context, err error) error {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		logger.Error("%s %s: %v", c.Request().Method, c.Path(), err)
	}
	return c.JSON(code, echo.Map{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrTooManyFiles),
		errors.Is(err, domain.ErrUnsupportedType),
		errors.Is(err, domain.ErrEmptyFile),
		errors.Is(err, domain.ErrFileTooLarge),
		errors.Is(err, domain.ErrUploadTooLarge),
		errors.Is(err, domain.ErrEmptyMessage),
		errors.Is(err, domain.ErrSessionNotReady):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrSessionBusy):
		return http.StatusConflict
	case errors.Is(err, domain.ErrQueueFull):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
