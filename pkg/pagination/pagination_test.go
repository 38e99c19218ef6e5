// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package pagination_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/taibuivan/saas-starter/pkg/pagination"
)

func TestFromRequest(t *testing.T) {
	tests := []struct {
		query string
		want  pagination.Params
	}{
		{"", pagination.Params{Page: 1, Limit: 20}},
		{"?page=3&limit=10", pagination.Params{Page: 3, Limit: 10}},
		{"?page=-1&limit=0", pagination.Params{Page: 1, Limit: 20}},
		{"?page=x&limit=500", pagination.Params{Page: 1, Limit: 100}},
		{"?page=92233720368547758&limit=100", pagination.Params{Page: pagination.MaxPage, Limit: 100}},
	}

	for _, tt := range tests {
		request := httptest.NewRequest(http.MethodGet, "/users"+tt.query, nil)
		assert.Equal(t, tt.want, pagination.FromRequest(request), tt.query)
	}
}

func TestParamsOffsetAndMeta(t *testing.T) {
	assert.Equal(t, 0, pagination.New(1, 20).Offset())
	assert.Equal(t, 40, pagination.New(3, 20).Offset())

	huge := pagination.New(int(^uint(0)>>1), pagination.MaxLimit)
	assert.Equal(t, pagination.MaxPage, huge.Page)
	assert.Positive(t, huge.Offset())

	meta := pagination.NewMeta(2, 20, 41)
	assert.Equal(t, 3, meta.TotalPages)
}
