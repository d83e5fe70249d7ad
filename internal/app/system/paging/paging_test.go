package paging

import (
	"net/http/httptest"
	"testing"
)

func TestParsePage(t *testing.T) {
	tests := []struct {
		target string
		want   int
	}{
		{"/audit", 1},
		{"/audit?page=3", 3},
		{"/audit?page=0", 1},
		{"/audit?page=-2", 1},
		{"/audit?page=abc", 1},
	}
	for _, tt := range tests {
		if got := ParsePage(httptest.NewRequest("GET", tt.target, nil)); got != tt.want {
			t.Errorf("ParsePage(%q) = %d, want %d", tt.target, got, tt.want)
		}
	}
}

func TestOffset(t *testing.T) {
	if got := Offset(1); got != 0 {
		t.Errorf("Offset(1) = %d", got)
	}
	if got := Offset(3); got != 2*PageSize {
		t.Errorf("Offset(3) = %d", got)
	}
	if got := Offset(0); got != 0 {
		t.Errorf("Offset(0) = %d", got)
	}
}

func TestCompute(t *testing.T) {
	tests := []struct {
		name  string
		page  int
		total int64
		want  Result
	}{
		{"empty", 1, 0, Result{Page: 1, TotalPages: 1}},
		{"exactly one page", 1, PageSize, Result{Page: 1, TotalPages: 1, Total: PageSize}},
		{"first of two", 1, PageSize + 1, Result{Page: 1, TotalPages: 2, Total: PageSize + 1, HasNext: true}},
		{"last of two", 2, PageSize + 1, Result{Page: 2, TotalPages: 2, Total: PageSize + 1, HasPrev: true}},
		{"past the end", 5, 10, Result{Page: 5, TotalPages: 1, Total: 10, HasPrev: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Compute(tt.page, tt.total); got != tt.want {
				t.Errorf("Compute(%d, %d) = %+v, want %+v", tt.page, tt.total, got, tt.want)
			}
		})
	}
}
