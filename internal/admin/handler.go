package admin

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"fundline/internal/constants"
	"fundline/internal/deadletter"
	"fundline/internal/ledger"
	"fundline/internal/logger"
	"fundline/internal/replay"
	"fundline/pkg/errors"
)

type Handler struct {
	Service Service
	Logger  logger.Logger
}

func NewHandler(service Service, log logger.Logger) *Handler {
	return &Handler{
		Service: service,
		Logger:  log,
	}
}

func (h *Handler) HandleError(c *gin.Context, err error) {
	h.Logger.ErrorwCtx(c.Request.Context(), "Request error", "error", err, "path", c.Request.URL.Path)

	status := errors.ToHTTPStatus(err)
	response := errors.ToErrorResponse(err)

	c.JSON(status, response)
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	v1 := router.Group("/api/v1")
	{
		v1.POST("/events", h.PublishEvent)
		v1.POST("/replay", h.Replay)

		deadletters := v1.Group("/deadletters")
		{
			deadletters.GET("", h.ListDeadLetters)
			deadletters.GET("/:id", h.GetDeadLetter)
		}

		v1.GET("/ledger", h.ListLedgerRecords)
	}
}

// PublishEvent godoc
// @Summary      Publish a domain event
// @Description  Validate the event, append it to the event store and dispatch it to all matching processors
// @Tags         events
// @Accept       json
// @Produce      json
// @Param        event  body       PublishEventRequest  true  "Domain event"
// @Success      202    {object}   PublishEventResponse
// @Failure      400    {object}  ErrorResponse
// @Failure      500    {object}  ErrorResponse
// @Router       /events [post]
func (h *Handler) PublishEvent(c *gin.Context) {
	var req PublishEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errors.ToErrorResponse(errors.ErrValidation.WithCause(err)))
		return
	}

	resp, err := h.Service.PublishEvent(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, resp)
}

// Replay godoc
// @Summary      Replay stored events
// @Description  Re-drive a slice of the event log through the dispatcher. Dry run reports what would be dispatched without writing anything.
// @Tags         replay
// @Accept       json
// @Produce      json
// @Param        request  body       replay.Request  true  "Replay selection"
// @Success      200      {object}   replay.Summary
// @Failure      400      {object}  ErrorResponse
// @Failure      500      {object}  ErrorResponse
// @Router       /replay [post]
func (h *Handler) Replay(c *gin.Context) {
	var req replay.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errors.ToErrorResponse(errors.ErrValidation.WithCause(err)))
		return
	}

	summary, err := h.Service.Replay(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

// ListDeadLetters godoc
// @Summary      List dead letters
// @Description  List dead-letter entries with optional filtering by event id and processor
// @Tags         deadletters
// @Accept       json
// @Produce      json
// @Param        event_id   query     string  false  "Filter by original event ID"
// @Param        processor  query     string  false  "Filter by processor name"
// @Param        limit      query     int     false  "Maximum number of entries to return (1-1000)" default(100)
// @Param        offset     query     int     false  "Number of entries to skip"
// @Success      200        {object}   DeadLetterListResponse
// @Failure      500        {object}  ErrorResponse
// @Router       /deadletters [get]
func (h *Handler) ListDeadLetters(c *gin.Context) {
	filter := deadletter.Filter{
		OriginalEventID: c.Query("event_id"),
		ProcessorName:   c.Query("processor"),
		Limit:           parseLimit(c.Query("limit")),
		Offset:          parseOffset(c.Query("offset")),
	}

	resp, err := h.Service.ListDeadLetters(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetDeadLetter godoc
// @Summary      Get a dead letter by ID
// @Description  Get a single dead-letter entry including the full original event
// @Tags         deadletters
// @Accept       json
// @Produce      json
// @Param        id   path      string  true  "Dead letter ID"
// @Success      200  {object}   deadletter.Entry
// @Failure      404  {object}  ErrorResponse
// @Failure      500  {object}  ErrorResponse
// @Router       /deadletters/{id} [get]
func (h *Handler) GetDeadLetter(c *gin.Context) {
	id := c.Param("id")

	entry, err := h.Service.GetDeadLetter(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, entry)
}

// ListLedgerRecords godoc
// @Summary      List idempotency ledger records
// @Description  Inspect ledger records with optional filtering by event id, processor and status
// @Tags         ledger
// @Accept       json
// @Produce      json
// @Param        event_id   query     string  false  "Filter by event ID"
// @Param        processor  query     string  false  "Filter by processor name"
// @Param        status     query     string  false  "Filter by status (pending, complete, failed)"
// @Param        limit      query     int     false  "Maximum number of records to return (1-1000)" default(100)
// @Param        offset     query     int     false  "Number of records to skip"
// @Success      200        {object}   LedgerListResponse
// @Failure      500        {object}  ErrorResponse
// @Router       /ledger [get]
func (h *Handler) ListLedgerRecords(c *gin.Context) {
	filter := ledger.Filter{
		EventID:       c.Query("event_id"),
		ProcessorName: c.Query("processor"),
		Status:        c.Query("status"),
		Limit:         parseLimit(c.Query("limit")),
		Offset:        parseOffset(c.Query("offset")),
	}

	resp, err := h.Service.ListLedgerRecords(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func parseLimit(limitStr string) int {
	if limitStr == "" {
		return constants.DefaultLimit
	}
	parsed, err := strconv.Atoi(limitStr)
	if err != nil || parsed <= 0 || parsed > constants.MaxLimit {
		return constants.DefaultLimit
	}
	return parsed
}

func parseOffset(offsetStr string) int {
	if offsetStr == "" {
		return 0
	}
	parsed, err := strconv.Atoi(offsetStr)
	if err != nil || parsed < 0 {
		return 0
	}
	return parsed
}
