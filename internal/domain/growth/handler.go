package growth

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/anthrogizi/anthrogizi/internal/anthro"
)

type Handler struct {
	svc    *Service
	logger zerolog.Logger
}

func NewHandler(svc *Service, logger zerolog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// RegisterRoutes mounts the calculator endpoints. They need no role.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/calculate-all", h.CalculateAll)
	api.POST("/easy-mode", h.EasyMode)
	api.POST("/growth-velocity", h.GrowthVelocity)
	api.POST("/growth-chart", h.GrowthChart)
}

func (h *Handler) CalculateAll(c echo.Context) error {
	var req MeasurementRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	res, err := h.svc.CalculateAll(req)
	if err != nil {
		return h.engineError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"results": res,
		"message": "Perhitungan berhasil dilakukan",
	})
}

func (h *Handler) EasyMode(c echo.Context) error {
	var req EasyModeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	res, err := h.svc.EasyMode(req)
	if err != nil {
		return h.engineError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success":    true,
		"ranges":     res.Ranges,
		"age_days":   res.AgeDays,
		"age_months": res.AgeMonths,
		"gender":     res.Gender,
	})
}

func (h *Handler) GrowthVelocity(c echo.Context) error {
	var req VelocityRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	res, err := h.svc.Velocity(req)
	if err != nil {
		return h.engineError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success":    true,
		"velocities": res.Velocities,
		"skipped":    res.Skipped,
		"message":    "Perhitungan kecepatan pertumbuhan berhasil",
	})
}

// GrowthChart responds with a standalone HTML page. The page loads the
// echarts script, so the default CSP is relaxed for this response.
func (h *Handler) GrowthChart(c echo.Context) error {
	var req ChartRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	html, err := h.svc.Chart(req)
	if err != nil {
		return h.engineError(c, err)
	}
	c.Response().Header().Set("Content-Security-Policy",
		"default-src 'self'; script-src 'self' 'unsafe-inline' https://go-echarts.github.io; style-src 'self' 'unsafe-inline'")
	return c.HTML(http.StatusOK, html)
}

// engineError translates engine failures into HTTP errors. Computation
// errors mean the reference data or the engine is broken and are logged.
func (h *Handler) engineError(c echo.Context, err error) error {
	var (
		ve  *anthro.ValidationError
		mve *anthro.MissingValueError
		ide *anthro.InsufficientDataError
		oor *anthro.OutOfRangeError
		mte *anthro.MissingTableError
		ce  *anthro.ComputationError
	)
	switch {
	case errors.As(err, &ve), errors.As(err, &mve), errors.As(err, &ide):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.As(err, &oor):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	case errors.As(err, &mte):
		h.logger.Warn().Err(err).Msg("reference table unavailable")
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	case errors.As(err, &ce):
		rid, _ := c.Get("request_id").(string)
		h.logger.Error().Err(err).Str("request_id", rid).Msg("z-score computation failed")
		return echo.NewHTTPError(http.StatusInternalServerError, "computation failed")
	}
	return err
}
