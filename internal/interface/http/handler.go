package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/meeting-summarizer/internal/domain/share"
	"github.com/yanqian/meeting-summarizer/internal/domain/summarizer"
)

const malformedBodyMessage = "Request body must be valid JSON."

// SummaryHandler serves the summary generation and history endpoints.
type SummaryHandler struct {
	svc    summarizer.Service
	logger *slog.Logger
}

// NewSummaryHandler constructs the summary handler.
func NewSummaryHandler(svc summarizer.Service, logger *slog.Logger) *SummaryHandler {
	return &SummaryHandler{svc: svc, logger: logger.With("component", "http.summary")}
}

// Generate handles the sync summarization endpoint.
func (h *SummaryHandler) Generate(c *gin.Context) {
	var req summarizer.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", malformedBodyMessage, err))
		return
	}

	resp, err := h.svc.Summarize(c.Request.Context(), req)
	if err != nil {
		abortWithError(c, fromServiceError(err, "Failed to generate summary."))
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GenerateStream streams the summary as server-sent events. Once the stream
// is open every outcome is reported in-band.
func (h *SummaryHandler) GenerateStream(c *gin.Context) {
	var req summarizer.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", malformedBodyMessage, err))
		return
	}

	if err := h.svc.StreamSummary(c.Request.Context(), req, newSSESink(c.Writer)); err != nil {
		abortWithError(c, fromServiceError(err, "Failed to generate summary."))
	}
}

// History returns the most recent summaries, newest first.
func (h *SummaryHandler) History(c *gin.Context) {
	records, err := h.svc.History(c.Request.Context())
	if err != nil {
		abortWithError(c, fromServiceError(err, "Failed to load summary history."))
		return
	}
	c.JSON(http.StatusOK, records)
}

// ShareHandler serves the email sharing endpoint.
type ShareHandler struct {
	svc    share.Service
	logger *slog.Logger
}

// NewShareHandler constructs the share handler.
func NewShareHandler(svc share.Service, logger *slog.Logger) *ShareHandler {
	return &ShareHandler{svc: svc, logger: logger.With("component", "http.share")}
}

// Share emails a summary to the requested recipient.
func (h *ShareHandler) Share(c *gin.Context) {
	var req share.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", malformedBodyMessage, err))
		return
	}

	resp, err := h.svc.Share(c.Request.Context(), req)
	if err != nil {
		abortWithError(c, fromServiceError(err, "Failed to send email."))
		return
	}
	c.JSON(http.StatusOK, resp)
}
