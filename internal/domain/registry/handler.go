package registry

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/cliniq/cliniq/internal/platform/auth"
	"github.com/cliniq/cliniq/pkg/pagination"
)

// Handler exposes registry CRUD over HTTP.
type Handler struct {
	svc *Service
}

// NewHandler creates a registry handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the registry endpoints on the API group.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	staff := auth.RequireRole("admin", "physician", "nurse", "registrar")

	patients := api.Group("/patients")
	patients.POST("", h.CreatePatient, staff)
	patients.GET("", h.ListPatients)
	patients.GET("/:id", h.GetPatient)
	patients.PUT("/:id", h.UpdatePatient, staff)
	patients.DELETE("/:id", h.DeletePatient, staff)

	professionals := api.Group("/professionals")
	professionals.POST("", h.CreateProfessional, staff)
	professionals.GET("", h.ListProfessionals)
	professionals.GET("/:id", h.GetProfessional)
	professionals.PUT("/:id", h.UpdateProfessional, staff)
	professionals.DELETE("/:id", h.DeleteProfessional, staff)

	careUnits := api.Group("/care-units")
	careUnits.POST("", h.CreateCareUnit, staff)
	careUnits.GET("", h.ListCareUnits)
	careUnits.GET("/:id", h.GetCareUnit)
	careUnits.PUT("/:id", h.UpdateCareUnit, staff)
	careUnits.DELETE("/:id", h.DeleteCareUnit, staff)
}

func httpError(err error) error {
	var (
		notFound   *NotFoundError
		validation *ValidationError
	)
	switch {
	case errors.As(err, &notFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.As(err, &validation):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
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

func (h *Handler) CreatePatient(c echo.Context) error {
	var p Patient
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := h.svc.CreatePatient(c.Request().Context(), &p); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) GetPatient(c echo.Context) error {
	id, err := parseIDParam(c)
	if err != nil {
		return err
	}
	p, err := h.svc.GetPatient(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) UpdatePatient(c echo.Context) error {
	id, err := parseIDParam(c)
	if err != nil {
		return err
	}
	var p Patient
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	p.ID = id
	if err := h.svc.UpdatePatient(c.Request().Context(), &p); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) DeletePatient(c echo.Context) error {
	id, err := parseIDParam(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeletePatient(c.Request().Context(), id); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ListPatients(c echo.Context) error {
	p := pagination.FromContext(c)
	patients, total, err := h.svc.ListPatients(c.Request().Context(), p.Limit, p.Offset)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(patients, total, p))
}

func (h *Handler) CreateProfessional(c echo.Context) error {
	var p Professional
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := h.svc.CreateProfessional(c.Request().Context(), &p); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) GetProfessional(c echo.Context) error {
	id, err := parseIDParam(c)
	if err != nil {
		return err
	}
	p, err := h.svc.GetProfessional(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) UpdateProfessional(c echo.Context) error {
	id, err := parseIDParam(c)
	if err != nil {
		return err
	}
	var p Professional
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	p.ID = id
	if err := h.svc.UpdateProfessional(c.Request().Context(), &p); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) DeleteProfessional(c echo.Context) error {
	id, err := parseIDParam(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeleteProfessional(c.Request().Context(), id); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ListProfessionals(c echo.Context) error {
	p := pagination.FromContext(c)
	professionals, total, err := h.svc.ListProfessionals(c.Request().Context(), p.Limit, p.Offset)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(professionals, total, p))
}

func (h *Handler) CreateCareUnit(c echo.Context) error {
	var u CareUnit
	if err := c.Bind(&u); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := h.svc.CreateCareUnit(c.Request().Context(), &u); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, u)
}

func (h *Handler) GetCareUnit(c echo.Context) error {
	id, err := parseIDParam(c)
	if err != nil {
		return err
	}
	u, err := h.svc.GetCareUnit(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, u)
}

func (h *Handler) UpdateCareUnit(c echo.Context) error {
	id, err := parseIDParam(c)
	if err != nil {
		return err
	}
	var u CareUnit
	if err := c.Bind(&u); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	u.ID = id
	if err := h.svc.UpdateCareUnit(c.Request().Context(), &u); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, u)
}

func (h *Handler) DeleteCareUnit(c echo.Context) error {
	id, err := parseIDParam(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeleteCareUnit(c.Request().Context(), id); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ListCareUnits(c echo.Context) error {
	p := pagination.FromContext(c)
	units, total, err := h.svc.ListCareUnits(c.Request().Context(), p.Limit, p.Offset)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(units, total, p))
}
