package records

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/anthrogizi/anthrogizi/internal/platform/auth"
	"github.com/anthrogizi/anthrogizi/pkg/pagination"
)

type Handler struct {
	svc      *Service
	maxLimit int
}

// NewHandler caps list pages at maxLimit records.
func NewHandler(svc *Service, maxLimit int) *Handler {
	return &Handler{svc: svc, maxLimit: maxLimit}
}

// RegisterRoutes mounts the records routes on api. authn runs ahead of the
// role checks on each route; it is attached per route rather than through
// a sub-group so that unknown paths under api still get 404 and 405.
func (h *Handler) RegisterRoutes(api *echo.Group, authn ...echo.MiddlewareFunc) {
	write := append(authn[:len(authn):len(authn)], auth.RequireRole(auth.RoleClinician))
	api.POST("/save-calculation", h.Save, write...)

	read := append(authn[:len(authn):len(authn)], auth.RequireRole(auth.RoleClinician, auth.RoleParent))
	api.GET("/calculations", h.List, read...)
	api.GET("/calculations/:id", h.Get, read...)
}

// saveRequest accepts either {"kind": ..., "data": {...}} or a bare
// calculation object, which is saved as an anthropometry result.
type saveRequest struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

func (h *Handler) Save(c echo.Context) error {
	var body json.RawMessage
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	var req saveRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "body must be a JSON object")
	}
	calc := &Calculation{
		Kind:      req.Kind,
		Payload:   req.Data,
		CreatedBy: auth.UserIDFromContext(c.Request().Context()),
	}
	if len(req.Data) == 0 {
		calc.Payload = body
	}
	if err := h.svc.Save(c.Request().Context(), calc); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, map[string]interface{}{
		"success": true,
		"message": "Data berhasil disimpan",
		"id":      calc.ID,
	})
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	calc, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "calculation not found")
		}
		return err
	}
	return c.JSON(http.StatusOK, calc)
}

func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromContextMax(c, h.maxLimit)
	items, total, err := h.svc.List(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	if items == nil {
		items = []*Calculation{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset).WithLinks(c.Request().URL.Path))
}
