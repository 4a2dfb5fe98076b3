package pagination

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func ctxWithQuery(q string) echo.Context {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/calculations"+q, nil)
	return e.NewContext(req, httptest.NewRecorder())
}

func TestFromContext_Defaults(t *testing.T) {
	p := FromContext(ctxWithQuery(""))
	if p.Limit != DefaultLimit || p.Offset != 0 {
		t.Errorf("expected defaults %d/0, got %d/%d", DefaultLimit, p.Limit, p.Offset)
	}
}

func TestFromContext_CustomValues(t *testing.T) {
	p := FromContext(ctxWithQuery("?limit=5&offset=10"))
	if p.Limit != 5 || p.Offset != 10 {
		t.Errorf("expected 5/10, got %d/%d", p.Limit, p.Offset)
	}
}

func TestFromContext_Clamps(t *testing.T) {
	p := FromContext(ctxWithQuery("?limit=1000&offset=-4"))
	if p.Limit != MaxLimit {
		t.Errorf("expected limit clamped to %d, got %d", MaxLimit, p.Limit)
	}
	if p.Offset != 0 {
		t.Errorf("expected negative offset to become 0, got %d", p.Offset)
	}
}

func TestFromContextMax(t *testing.T) {
	p := FromContextMax(ctxWithQuery("?limit=2000"), 1000)
	if p.Limit != 1000 {
		t.Errorf("expected limit 1000, got %d", p.Limit)
	}
	if p := FromContextMax(ctxWithQuery("?limit=2000"), 0); p.Limit != MaxLimit {
		t.Errorf("expected fallback ceiling %d, got %d", MaxLimit, p.Limit)
	}
}

func TestNewResponse(t *testing.T) {
	r := NewResponse([]int{1, 2}, 5, 2, 0)
	if !r.Success || r.Total != 5 || !r.HasMore {
		t.Errorf("unexpected response %+v", r)
	}
	if last := NewResponse(nil, 5, 2, 4); last.HasMore {
		t.Error("expected last page to have no more")
	}
}

func TestResponse_WithLinks(t *testing.T) {
	tests := []struct {
		name                 string
		total, limit, offset int
		wantNext, wantPrev   string
		wantNil              bool
	}{
		{"first page", 50, 20, 0, "/api/calculations?limit=20&offset=20", "", false},
		{"middle page", 50, 20, 20, "/api/calculations?limit=20&offset=40", "/api/calculations?limit=20&offset=0", false},
		{"last page", 50, 20, 40, "", "/api/calculations?limit=20&offset=20", false},
		{"single page", 3, 20, 0, "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResponse(nil, tt.total, tt.limit, tt.offset).WithLinks("/api/calculations")
			if tt.wantNil {
				if r.Links != nil {
					t.Errorf("expected no links, got %+v", r.Links)
				}
				return
			}
			if r.Links == nil {
				t.Fatal("expected links")
			}
			if r.Links.Next != tt.wantNext || r.Links.Previous != tt.wantPrev {
				t.Errorf("expected %q/%q, got %q/%q", tt.wantNext, tt.wantPrev, r.Links.Next, r.Links.Previous)
			}
		})
	}
}

func TestParams_PreviousOffset(t *testing.T) {
	if got := (Params{Limit: 20, Offset: 10}).PreviousOffset(); got != 0 {
		t.Errorf("expected 0, got %d", got)
	}
	if got := (Params{Limit: 20, Offset: 50}).PreviousOffset(); got != 30 {
		t.Errorf("expected 30, got %d", got)
	}
}
