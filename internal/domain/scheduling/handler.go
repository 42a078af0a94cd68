package scheduling

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/cliniq/cliniq/internal/platform/auth"
	"github.com/cliniq/cliniq/internal/platform/cache"
	"github.com/cliniq/cliniq/pkg/pagination"
)

// Handler exposes the scheduling engine over HTTP.
type Handler struct {
	svc   *Service
	cache *cache.Cache
}

// NewHandler creates a scheduling handler. cache may be nil; schedule reads
// then always hit storage.
func NewHandler(svc *Service, c *cache.Cache) *Handler {
	return &Handler{svc: svc, cache: c}
}

// RegisterRoutes mounts the scheduling endpoints on the API group.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	staff := auth.RequireRole("admin", "physician", "nurse", "registrar")

	schedules := api.Group("/schedules")
	schedules.POST("", h.CreateSchedule, staff)
	schedules.GET("", h.ListSchedules)
	schedules.GET("/:id", h.GetSchedule)
	schedules.PUT("/:id", h.UpdateSchedule, staff)
	schedules.DELETE("/:id", h.DeleteSchedule, staff)
	schedules.GET("/:id/appointments", h.ListScheduleAppointments)

	appointments := api.Group("/appointments")
	appointments.POST("", h.CreateAppointment)
	appointments.GET("", h.ListAppointments)
	appointments.GET("/:id", h.GetAppointment)
	appointments.PATCH("/:id", h.UpdateAppointment)
	appointments.DELETE("/:id", h.CancelAppointment)
	appointments.GET("/:id/history", h.ListAppointmentHistory)
}

// httpError translates domain errors to HTTP status codes: missing resources
// are 404, rule and transition violations 422, booking conflicts 409.
func httpError(err error) error {
	var (
		notFound   *NotFoundError
		rule       *BusinessRuleError
		transition *IllegalTransitionError
		conflict   *ConflictError
	)
	switch {
	case errors.As(err, &notFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.As(err, &rule), errors.As(err, &transition):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	case errors.As(err, &conflict):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	}
	return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
}

func parseIDParam(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

func scheduleKey(id uuid.UUID) string {
	return "schedule:" + id.String()
}

// CreateSchedule handles POST /schedules.
func (h *Handler) CreateSchedule(c echo.Context) error {
	var sched Schedule
	if err := c.Bind(&sched); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := h.svc.CreateSchedule(c.Request().Context(), &sched); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, sched)
}

// GetSchedule handles GET /schedules/:id, serving from cache when possible.
func (h *Handler) GetSchedule(c echo.Context) error {
	id, err := parseIDParam(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()

	if h.cache != nil {
		if blob := h.cache.Get(ctx, scheduleKey(id)); blob != nil {
			return c.JSONBlob(http.StatusOK, blob)
		}
	}

	sched, err := h.svc.GetSchedule(ctx, id)
	if err != nil {
		return httpError(err)
	}
	if h.cache != nil {
		if blob, err := json.Marshal(sched); err == nil {
			h.cache.Set(ctx, scheduleKey(id), blob)
		}
	}
	return c.JSON(http.StatusOK, sched)
}

// ListSchedules handles GET /schedules with an optional professional_id filter.
func (h *Handler) ListSchedules(c echo.Context) error {
	p := pagination.FromContext(c)
	ctx := c.Request().Context()

	var (
		schedules []*Schedule
		total     int
		err       error
	)
	if raw := c.QueryParam("professional_id"); raw != "" {
		professionalID, parseErr := uuid.Parse(raw)
		if parseErr != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid professional_id")
		}
		schedules, total, err = h.svc.ListSchedulesByProfessional(ctx, professionalID, p.Limit, p.Offset)
	} else {
		schedules, total, err = h.svc.ListSchedules(ctx, p.Limit, p.Offset)
	}
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(schedules, total, p))
}

// UpdateSchedule handles PUT /schedules/:id.
func (h *Handler) UpdateSchedule(c echo.Context) error {
	id, err := parseIDParam(c)
	if err != nil {
		return err
	}
	var sched Schedule
	if err := c.Bind(&sched); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	sched.ID = id

	ctx := c.Request().Context()
	if err := h.svc.UpdateSchedule(ctx, &sched); err != nil {
		return httpError(err)
	}
	if h.cache != nil {
		h.cache.Delete(ctx, scheduleKey(id))
	}
	return c.JSON(http.StatusOK, sched)
}

// DeleteSchedule handles DELETE /schedules/:id.
func (h *Handler) DeleteSchedule(c echo.Context) error {
	id, err := parseIDParam(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	if err := h.svc.DeleteSchedule(ctx, id); err != nil {
		return httpError(err)
	}
	if h.cache != nil {
		h.cache.Delete(ctx, scheduleKey(id))
	}
	return c.NoContent(http.StatusNoContent)
}

// ListScheduleAppointments handles GET /schedules/:id/appointments.
func (h *Handler) ListScheduleAppointments(c echo.Context) error {
	id, err := parseIDParam(c)
	if err != nil {
		return err
	}
	p := pagination.FromContext(c)
	appointments, total, err := h.svc.ListAppointmentsBySchedule(c.Request().Context(), id, p.Limit, p.Offset)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(appointments, total, p))
}

// CreateAppointment handles POST /appointments.
func (h *Handler) CreateAppointment(c echo.Context) error {
	var appt Appointment
	if err := c.Bind(&appt); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := h.svc.CreateAppointment(c.Request().Context(), &appt); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, appt)
}

// GetAppointment handles GET /appointments/:id.
func (h *Handler) GetAppointment(c echo.Context) error {
	id, err := parseIDParam(c)
	if err != nil {
		return err
	}
	appt, err := h.svc.GetAppointment(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, appt)
}

// ListAppointments handles GET /appointments filtered by patient_id or
// professional_id. One of the two filters is required.
func (h *Handler) ListAppointments(c echo.Context) error {
	p := pagination.FromContext(c)
	ctx := c.Request().Context()

	if raw := c.QueryParam("patient_id"); raw != "" {
		patientID, err := uuid.Parse(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid patient_id")
		}
		appointments, total, err := h.svc.ListAppointmentsByPatient(ctx, patientID, p.Limit, p.Offset)
		if err != nil {
			return httpError(err)
		}
		return c.JSON(http.StatusOK, pagination.NewResponse(appointments, total, p))
	}
	if raw := c.QueryParam("professional_id"); raw != "" {
		professionalID, err := uuid.Parse(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid professional_id")
		}
		appointments, total, err := h.svc.ListAppointmentsByProfessional(ctx, professionalID, p.Limit, p.Offset)
		if err != nil {
			return httpError(err)
		}
		return c.JSON(http.StatusOK, pagination.NewResponse(appointments, total, p))
	}
	return echo.NewHTTPError(http.StatusBadRequest, "patient_id or professional_id filter is required")
}

type updateAppointmentRequest struct {
	AppointmentUpdate
	Reason string `json:"reason"`
}

// UpdateAppointment handles PATCH /appointments/:id.
func (h *Handler) UpdateAppointment(c echo.Context) error {
	id, err := parseIDParam(c)
	if err != nil {
		return err
	}
	var req updateAppointmentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	appt, err := h.svc.UpdateAppointment(c.Request().Context(), id, req.AppointmentUpdate, req.Reason)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, appt)
}

// CancelAppointment handles DELETE /appointments/:id as a soft cancel.
func (h *Handler) CancelAppointment(c echo.Context) error {
	id, err := parseIDParam(c)
	if err != nil {
		return err
	}
	appt, err := h.svc.CancelAppointment(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, appt)
}

// ListAppointmentHistory handles GET /appointments/:id/history.
func (h *Handler) ListAppointmentHistory(c echo.Context) error {
	id, err := parseIDParam(c)
	if err != nil {
		return err
	}
	p := pagination.FromContext(c)
	entries, total, err := h.svc.ListAppointmentHistory(c.Request().Context(), id, p.Limit, p.Offset)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(entries, total, p))
}
