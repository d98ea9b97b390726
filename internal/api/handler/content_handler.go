package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/kodecamp/lms/internal/api/metrics"
	"github.com/kodecamp/lms/internal/core/domain"
	"github.com/kodecamp/lms/internal/core/ports"
)

// ContentHandler serves the four dashboard content collections. The
// collection is fixed when a route is mounted, so every method returns a
// handler bound to one kind.
type ContentHandler struct {
	service ports.ContentService
}

func NewContentHandler(service ports.ContentService) *ContentHandler {
	return &ContentHandler{service: service}
}

type createContentRequest struct {
	Title        string `json:"title"         validate:"required"`
	Content      string `json:"content"`
	Stack        string `json:"stack"         validate:"omitempty,stack"`
	Track        string `json:"track"`
	Proficiency  string `json:"proficiency"   validate:"omitempty,proficiency"`
	Stage        *int   `json:"stage"         validate:"omitempty,min=0"`
	General      bool   `json:"general"`
	MediaURL     string `json:"media_url"     validate:"omitempty,url"`
	Filesize     string `json:"filesize"`
	DeadlineDays int    `json:"deadline_days" validate:"omitempty,min=1"`
}

type listContentQuery struct {
	Page  int `query:"page"`
	Limit int `query:"limit"`
}

type listContentResponse struct {
	Items      []*domain.Content `json:"items"`
	Total      int64             `json:"total"`
	Page       int               `json:"page"`
	Limit      int               `json:"limit"`
	TotalPages int               `json:"total_pages"`
}

type submitTaskRequest struct {
	URL string `json:"url" validate:"required,url"`
}

// Create handles POST /dashboard/{collection}. Admin only.
//
// @Summary      Create dashboard content
// @Tags         content
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        collection  path      string                true  "announcements, lessons, promotion-tasks or resources"
// @Param        body        body      createContentRequest  true  "Content"
// @Success      201         {object}  domain.Content
// @Failure      400         {object}  map[string]string
// @Failure      401         {object}  map[string]string
// @Failure      403         {object}  map[string]string
// @Router       /dashboard/{collection} [post]
func (h *ContentHandler) Create(kind domain.ContentKind) echo.HandlerFunc {
	return func(c echo.Context) error {
		actor, err := currentUser(c)
		if err != nil {
			return err
		}

		var req createContentRequest
		if err := c.Bind(&req); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
		}
		if err := c.Validate(&req); err != nil {
			return err
		}

		item, err := h.service.Create(c.Request().Context(), actor, ports.CreateContentInput{
			Kind:         kind,
			Title:        req.Title,
			Body:         req.Content,
			Stack:        req.Stack,
			Track:        req.Track,
			Proficiency:  req.Proficiency,
			Stage:        req.Stage,
			General:      req.General,
			MediaURL:     req.MediaURL,
			Filesize:     req.Filesize,
			DeadlineDays: req.DeadlineDays,
		})
		if err != nil {
			return err
		}

		metrics.ContentCreatedTotal.WithLabelValues(string(kind)).Inc()
		return c.JSON(http.StatusCreated, item)
	}
}

// List handles GET /dashboard/{collection}.
//
// @Summary      List dashboard content visible to the caller
// @Tags         content
// @Produce      json
// @Security     BearerAuth
// @Param        collection  path      string  true   "announcements, lessons, promotion-tasks or resources"
// @Param        page        query     int     false  "Page number, from 1"
// @Param        limit       query     int     false  "Page size, at most 100"
// @Success      200         {object}  listContentResponse
// @Failure      401         {object}  map[string]string
// @Router       /dashboard/{collection} [get]
func (h *ContentHandler) List(kind domain.ContentKind) echo.HandlerFunc {
	return func(c echo.Context) error {
		viewer, err := currentUser(c)
		if err != nil {
			return err
		}

		var q listContentQuery
		if err := (&echo.DefaultBinder{}).BindQueryParams(c, &q); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid pagination parameters")
		}

		res, err := h.service.List(c.Request().Context(), viewer, ports.ListContentInput{
			Kind:  kind,
			Page:  q.Page,
			Limit: q.Limit,
		})
		if err != nil {
			return err
		}

		items := res.Items
		if items == nil {
			items = []*domain.Content{}
		}
		return c.JSON(http.StatusOK, listContentResponse{
			Items:      items,
			Total:      res.Total,
			Page:       res.Page,
			Limit:      res.Limit,
			TotalPages: res.TotalPages,
		})
	}
}

// Get handles GET /dashboard/{collection}/:id.
//
// @Summary      Get one content item
// @Tags         content
// @Produce      json
// @Security     BearerAuth
// @Param        collection  path      string  true  "announcements, lessons, promotion-tasks or resources"
// @Param        id          path      string  true  "Content ID"
// @Success      200         {object}  domain.Content
// @Failure      401         {object}  map[string]string
// @Failure      404         {object}  map[string]string
// @Router       /dashboard/{collection}/{id} [get]
func (h *ContentHandler) Get(kind domain.ContentKind) echo.HandlerFunc {
	return func(c echo.Context) error {
		viewer, err := currentUser(c)
		if err != nil {
			return err
		}

		item, err := h.service.Get(c.Request().Context(), viewer, kind, c.Param("id"))
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, item)
	}
}

// SubmitTask handles POST /dashboard/promotion-tasks/:id/submissions.
//
// @Summary      Submit a promotion task
// @Tags         content
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string             true  "Promotion task ID"
// @Param        body  body      submitTaskRequest  true  "Submission"
// @Success      201   {object}  domain.Submission
// @Failure      400   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Router       /dashboard/promotion-tasks/{id}/submissions [post]
func (h *ContentHandler) SubmitTask(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}

	var req submitTaskRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	sub, err := h.service.SubmitTask(c.Request().Context(), user, c.Param("id"), req.URL)
	if err != nil {
		metrics.TaskSubmissionsTotal.WithLabelValues(submissionResult(err)).Inc()
		return err
	}

	metrics.TaskSubmissionsTotal.WithLabelValues("accepted").Inc()
	return c.JSON(http.StatusCreated, sub)
}

func submissionResult(err error) string {
	var de *domain.Error
	if errors.As(err, &de) {
		return "rejected"
	}
	return "error"
}
