package scheduling

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/docslot/docslot/internal/domain/identity"
	"github.com/docslot/docslot/internal/platform/apperr"
	"github.com/docslot/docslot/internal/platform/auth"
	"github.com/docslot/docslot/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group, authz auth.Authorizer) {
	// Public reads
	api.GET("/doctors/:id/availability", h.GetAvailability)
	api.GET("/doctors/:id/slots", h.FreeSlots)

	// Doctor endpoints
	doctor := auth.RequireRole(authz, auth.RoleDoctor)
	api.POST("/doctors/availability", h.SetAvailability, doctor)
	api.GET("/doctors/appointments", h.ListDoctorAppointments, doctor)

	// Patient endpoints
	patient := auth.RequireRole(authz, auth.RolePatient)
	api.POST("/appointments/book", h.BookSlot, patient)
	api.DELETE("/appointments/:id", h.CancelSlot, patient)
	api.GET("/appointments/doctor/:id", h.DoctorLedger, patient)
	api.GET("/patients/appointments", h.ListPatientAppointments, patient)
}

func pathID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

func caller(c echo.Context) (auth.Identity, error) {
	ident, ok := auth.IdentityFromContext(c.Request().Context())
	if !ok {
		return auth.Identity{}, echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	return ident, nil
}

// -- Availability --

func (h *Handler) SetAvailability(c echo.Context) error {
	ident, err := caller(c)
	if err != nil {
		return err
	}
	var in identity.Availability
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	out, err := h.svc.SetAvailability(c.Request().Context(), ident.ID, in)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handler) GetAvailability(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	a, err := h.svc.GetAvailability(c.Request().Context(), id)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) FreeSlots(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	free, err := h.svc.FreeSlots(c.Request().Context(), id)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, free)
}

// -- Booking --

func (h *Handler) BookSlot(c echo.Context) error {
	ident, err := caller(c)
	if err != nil {
		return err
	}
	var req BookingRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.DoctorID == uuid.Nil || req.Date == "" || req.Time == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "doctorId, date and time are required")
	}
	appt, err := h.svc.BookSlot(c.Request().Context(), req.DoctorID, ident.ID, req.Date, req.Time)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusCreated, appt)
}

func (h *Handler) CancelSlot(c echo.Context) error {
	ident, err := caller(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := h.svc.CancelSlot(c.Request().Context(), id, ident.ID); err != nil {
		return apperr.ToHTTP(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// -- Listings --

func (h *Handler) DoctorLedger(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	items, err := h.svc.DoctorAppointments(c.Request().Context(), id)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) ListDoctorAppointments(c echo.Context) error {
	ident, err := caller(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListForDoctor(c.Request().Context(), ident.ID, pg.Limit, pg.Offset)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg, c.Request().URL.Path))
}

func (h *Handler) ListPatientAppointments(c echo.Context) error {
	ident, err := caller(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListForPatient(c.Request().Context(), ident.ID, pg.Limit, pg.Offset)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg, c.Request().URL.Path))
}
