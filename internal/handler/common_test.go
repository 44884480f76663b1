package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ctxWithQuery(query string) echo.Context {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/books"+query, nil)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec)
}

func TestPageParams(t *testing.T) {
	tests := []struct {
		query        string
		wantPage     int
		wantPageSize int
	}{
		{"", 1, 20},
		{"?page=3&page_size=50", 3, 50},
		{"?page=0&page_size=0", 1, 20},
		{"?page=-2&page_size=-5", 1, 20},
		{"?page=abc&page_size=xyz", 1, 20},
		{"?page_size=500", 1, 100}, // clamped
	}
	for _, tc := range tests {
		page, pageSize := pageParams(ctxWithQuery(tc.query))
		assert.Equal(t, tc.wantPage, page, tc.query)
		assert.Equal(t, tc.wantPageSize, pageSize, tc.query)
	}
}

func TestGetUserID(t *testing.T) {
	c := ctxWithQuery("")

	_, err := getUserID(c)
	assert.Error(t, err, "no user_id set")

	for _, v := range []interface{}{uint64(9), int(9), int64(9), float64(9), "9"} {
		c.Set("user_id", v)
		got, err := getUserID(c)
		require.NoError(t, err)
		assert.Equal(t, uint64(9), got)
	}

	c.Set("user_id", "not-a-number")
	_, err = getUserID(c)
	assert.Error(t, err)
}

func TestBookReqValidate(t *testing.T) {
	valid := bookReq{
		Title:       " The Pragmatic Programmer ",
		Authors:     []string{" Andy Hunt ", "", "Dave Thomas"},
		Description: "Journeyman to master",
		PriceCents:  359900,
		Stock:       12,
	}
	msg := valid.validate()
	require.Empty(t, msg)
	assert.Equal(t, "The Pragmatic Programmer", valid.Title)
	assert.Equal(t, []string{"Andy Hunt", "Dave Thomas"}, valid.Authors)
	assert.Equal(t, "INR", valid.Currency, "currency defaults")
	assert.Equal(t, "IN_STOCK", valid.Availability, "availability defaults")

	tests := []struct {
		name string
		req  bookReq
	}{
		{"missing title", bookReq{Authors: []string{"A"}, Description: "d"}},
		{"missing authors", bookReq{Title: "T", Description: "d"}},
		{"blank authors", bookReq{Title: "T", Authors: []string{"  "}, Description: "d"}},
		{"missing description", bookReq{Title: "T", Authors: []string{"A"}}},
		{"negative price", bookReq{Title: "T", Authors: []string{"A"}, Description: "d", PriceCents: -1}},
		{"negative stock", bookReq{Title: "T", Authors: []string{"A"}, Description: "d", Stock: -1}},
		{"bad availability", bookReq{Title: "T", Authors: []string{"A"}, Description: "d", Availability: "SOLD_OUT"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.NotEmpty(t, tc.req.validate())
		})
	}
}

func TestReviewReqValidate(t *testing.T) {
	ok := reviewReq{Rating: 5, Title: "Great", Body: "Loved it"}
	assert.Empty(t, ok.validate())

	assert.NotEmpty(t, (&reviewReq{Rating: 0}).validate())
	assert.NotEmpty(t, (&reviewReq{Rating: 6}).validate())

	long := reviewReq{Rating: 3, Title: string(make([]byte, 101))}
	assert.NotEmpty(t, long.validate())

	longBody := reviewReq{Rating: 3, Body: string(make([]byte, 1001))}
	assert.NotEmpty(t, longBody.validate())

	// Limits are per character: 100 three-byte runes exceed 100 bytes but
	// still fit, 101 do not.
	wide := reviewReq{Rating: 4, Title: strings.Repeat("書", 100)}
	assert.Empty(t, wide.validate())

	tooWide := reviewReq{Rating: 4, Title: strings.Repeat("書", 101)}
	assert.NotEmpty(t, tooWide.validate())
}
