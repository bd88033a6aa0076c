package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jengzang/rond-timeline/internal/config"
	"github.com/jengzang/rond-timeline/internal/database"
	"github.com/jengzang/rond-timeline/internal/formatter"
	"github.com/jengzang/rond-timeline/internal/models"
	"github.com/jengzang/rond-timeline/internal/service"
	"github.com/jengzang/rond-timeline/pkg/response"
)

// TimelineBuilder builds the timeline of one calendar day
type TimelineBuilder interface {
	BuildTimeline(ctx context.Context, queryDate time.Time, loc *time.Location, timezoneName string) (*models.TimelineResult, error)
}

// TimelineHandler handles HTTP requests for day timelines
type TimelineHandler struct {
	builder      TimelineBuilder
	location     *time.Location
	timezoneName string
	now          func() time.Time
}

// NewTimelineHandler creates a new timeline handler. loc and timezoneName
// apply when a request has no tz parameter.
func NewTimelineHandler(builder TimelineBuilder, loc *time.Location, timezoneName string) *TimelineHandler {
	return &TimelineHandler{
		builder:      builder,
		location:     loc,
		timezoneName: timezoneName,
		now:          time.Now,
	}
}

// GetTimeline returns the timeline of a day
// GET /api/v1/timeline?date=today&tz=UTC
func (h *TimelineHandler) GetTimeline(c *gin.Context) {
	loc, tzName := h.location, h.timezoneName
	if tz := strings.TrimSpace(c.Query("tz")); tz != "" {
		var err error
		loc, tzName, err = config.ResolveTimezone(tz)
		if err != nil {
			response.BadRequest(c, "Unknown timezone: "+tz)
			return
		}
	}

	date, err := service.ParseQueryDate(c.DefaultQuery("date", "today"), loc, h.now())
	if err != nil {
		h.fail(c, err)
		return
	}

	result, err := h.builder.BuildTimeline(c.Request.Context(), date, loc, tzName)
	if err != nil {
		h.fail(c, err)
		return
	}

	response.Success(c, formatter.ToPayload(result))
}

func (h *TimelineHandler) fail(c *gin.Context, err error) {
	_ = c.Error(err)

	var validationErr *models.ValidationError
	var readErr *database.DatabaseReadError
	var configErr *models.ConfigError
	switch {
	case errors.As(err, &validationErr):
		response.BadRequest(c, validationErr.Error())
	case errors.As(err, &readErr):
		response.ServiceUnavailable(c, "Timeline store is busy, retry later")
	case errors.As(err, &configErr):
		response.InternalError(c, configErr.Error())
	default:
		response.InternalError(c, "Failed to build timeline")
	}
}

// Health reports liveness
// GET /health
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"message": "Rond timeline API is running",
	})
}
