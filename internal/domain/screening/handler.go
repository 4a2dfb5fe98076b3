// Package screening exposes the KPSP developmental screening scorer over
// HTTP.
package screening

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/anthrogizi/anthrogizi/internal/kpsp"
)

// Request is the body of kpsp-calculate. Answers are "ya" or "tidak";
// "yes"/"no" and JSON booleans are accepted as well.
type Request struct {
	Age     int                    `json:"age"`
	Answers map[string]interface{} `json:"answers"`
}

// Response extends the score with the questionnaire age that applies to
// the child.
type Response struct {
	Success bool `json:"success"`
	kpsp.Result
	Age           int  `json:"age"`
	ScheduledForm *int `json:"scheduled_form,omitempty"`
}

type Handler struct{}

func NewHandler() *Handler { return &Handler{} }

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/kpsp-calculate", h.Calculate)
}

func (h *Handler) Calculate(c echo.Context) error {
	var req Request
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Age < 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "age must not be negative")
	}
	answers, err := parseAnswers(req.Answers)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	res, err := kpsp.Score(answers)
	if err != nil {
		var empty *kpsp.EmptyResponseSetError
		if errors.As(err, &empty) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return err
	}

	out := Response{Success: true, Result: res, Age: req.Age}
	// An age outside the schedule still gets a score; only the form hint
	// is omitted.
	if form, err := kpsp.ScheduleAge(req.Age); err == nil {
		out.ScheduledForm = &form
	}
	return c.JSON(http.StatusOK, out)
}

func parseAnswers(raw map[string]interface{}) (kpsp.Response, error) {
	out := make(kpsp.Response, len(raw))
	for id, v := range raw {
		switch a := v.(type) {
		case bool:
			out[id] = a
		case string:
			switch strings.ToLower(strings.TrimSpace(a)) {
			case "ya", "yes", "y":
				out[id] = true
			case "tidak", "no", "n":
				out[id] = false
			default:
				return nil, fmt.Errorf("answer %s: %q is not ya or tidak", id, a)
			}
		default:
			return nil, fmt.Errorf("answer %s: must be ya or tidak", id)
		}
	}
	return out, nil
}
