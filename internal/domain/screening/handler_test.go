package screening

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/anthrogizi/anthrogizi/internal/kpsp"
)

func call(t *testing.T, body string) (*httptest.ResponseRecorder, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return rec, NewHandler().Calculate(e.NewContext(req, rec))
}

func TestHandler_Calculate(t *testing.T) {
	rec, err := call(t, `{"age":26,"answers":{"q1":"ya","q2":"ya","q3":"ya","q4":"ya","q5":"tidak"}}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body Response
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Score != 4 || body.TotalQuestions != 5 || body.Percentage != 80 {
		t.Errorf("expected 4/5 = 80%%, got %d/%d = %g", body.Score, body.TotalQuestions, body.Percentage)
	}
	if body.Tier != kpsp.TierNormal {
		t.Errorf("expected normal, got %s", body.Tier)
	}
	if body.ScheduledForm == nil || *body.ScheduledForm != 24 {
		t.Errorf("expected the 24-month form, got %v", body.ScheduledForm)
	}
}

func TestHandler_Calculate_Delayed(t *testing.T) {
	rec, err := call(t, `{"age":12,"answers":{"a":"tidak","b":"tidak","c":true,"d":"no"}}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), `"status":"terlambat"`) {
		t.Errorf("expected terlambat, got %s", rec.Body.String())
	}
}

func TestHandler_Calculate_OutsideSchedule(t *testing.T) {
	rec, err := call(t, `{"age":1,"answers":{"q1":"ya"}}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(rec.Body.String(), "scheduled_form") {
		t.Errorf("expected no scheduled form for a 1-month-old, got %s", rec.Body.String())
	}
}

func TestHandler_Calculate_BadRequest(t *testing.T) {
	tests := map[string]string{
		"empty answers":  `{"age":12,"answers":{}}`,
		"unknown answer": `{"age":12,"answers":{"q1":"mungkin"}}`,
		"numeric answer": `{"age":12,"answers":{"q1":1}}`,
		"negative age":   `{"age":-3,"answers":{"q1":"ya"}}`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := call(t, body)
			he, ok := err.(*echo.HTTPError)
			if !ok || he.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %v", err)
			}
		})
	}
}
