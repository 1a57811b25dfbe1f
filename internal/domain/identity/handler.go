package identity

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/docslot/docslot/internal/platform/apperr"
	"github.com/docslot/docslot/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts account and directory endpoints on api. authLimit is
// applied to registration and login only.
func (h *Handler) RegisterRoutes(api *echo.Group, authz auth.Authorizer, authLimit echo.MiddlewareFunc) {
	// Public account endpoints
	api.POST("/doctors/register", h.RegisterDoctor, authLimit)
	api.POST("/doctors/login", h.LoginDoctor, authLimit)
	api.POST("/patients/register", h.RegisterPatient, authLimit)
	api.POST("/patients/login", h.LoginPatient, authLimit)

	// Directory
	api.GET("/doctors/search", h.SearchDoctors)

	// Own profile
	api.GET("/doctors/profile", h.DoctorProfile, auth.RequireRole(authz, auth.RoleDoctor))
	api.GET("/patients/profile", h.PatientProfile, auth.RequireRole(authz, auth.RolePatient))
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) RegisterDoctor(c echo.Context) error {
	var in DoctorRegistration
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	d, err := h.svc.RegisterDoctor(c.Request().Context(), in)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusCreated, d)
}

func (h *Handler) RegisterPatient(c echo.Context) error {
	var in PatientRegistration
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	p, err := h.svc.RegisterPatient(c.Request().Context(), in)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) LoginDoctor(c echo.Context) error {
	return h.login(c, auth.RoleDoctor)
}

func (h *Handler) LoginPatient(c echo.Context) error {
	return h.login(c, auth.RolePatient)
}

func (h *Handler) login(c echo.Context, role auth.Role) error {
	var in credentials
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if in.Email == "" || in.Password == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "email and password are required")
	}
	sess, err := h.svc.Login(c.Request().Context(), role, in.Email, in.Password)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, sess)
}

func (h *Handler) SearchDoctors(c echo.Context) error {
	var f SearchFilter
	if err := (&echo.DefaultBinder{}).BindQueryParams(c, &f); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid search parameters")
	}
	items, err := h.svc.SearchDoctors(c.Request().Context(), f)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	out := make([]Listing, len(items))
	for i, d := range items {
		out[i] = d.Listing()
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handler) DoctorProfile(c echo.Context) error {
	ident, ok := auth.IdentityFromContext(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	d, err := h.svc.GetDoctor(c.Request().Context(), ident.ID)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) PatientProfile(c echo.Context) error {
	ident, ok := auth.IdentityFromContext(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	p, err := h.svc.GetPatient(c.Request().Context(), ident.ID)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, p)
}
