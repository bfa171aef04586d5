package common_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/digicoders-git/ksmedical-backend/internal/common"
)

func TestParsePagination(t *testing.T) {
	cases := []struct {
		name  string
		query string
		page  int
		limit int
	}{
		{"defaults", "", 1, 20},
		{"explicit", "?page=3&limit=50", 3, 50},
		{"limit clamped", "?limit=500", 1, 100},
		{"garbage ignored", "?page=abc&limit=-5", 1, 20},
		{"zero page ignored", "?page=0", 1, 20},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/orders"+tc.query, nil)
			p := common.ParsePagination(req)
			require.Equal(t, tc.page, p.Page)
			require.Equal(t, tc.limit, p.Limit)
		})
	}
}

func TestPaginationOffset(t *testing.T) {
	require.Equal(t, 0, common.Pagination{Page: 1, Limit: 20}.Offset())
	require.Equal(t, 40, common.Pagination{Page: 3, Limit: 20}.Offset())
}
