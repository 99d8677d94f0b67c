package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestSanitizeSite(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{"standard http", "http://photobooth.net/map", "photobooth.net"},
		{"standard https", "https://Photobooth.net/map", "photobooth.net"},
		{"no scheme", "photobooth.net/map", "photobooth.net"},
		{"just host", "photobooth.net", "photobooth.net"},
		{"host with port", "photobooth.net:8080", "photobooth.net"},
		{"ip address", "192.168.1.1", "192.168.1.1"},
		{"invalid url", "http://%", "unknown"},
		{"empty string", "", "unknown"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, SanitizeSite(tc.input))
		})
	}
}

func TestInitIdempotent(t *testing.T) {
	Init()
	Init()

	assert.NotNil(t, fetchRequestsTotal)
	assert.NotNil(t, httpRequestsTotal)
	assert.NotNil(t, boothUpsertsTotal)

	before := testutil.ToFloat64(boothUpsertsTotal.WithLabelValues("insert"))
	ObserveUpsert("insert")
	after := testutil.ToFloat64(boothUpsertsTotal.WithLabelValues("insert"))
	assert.Equal(t, before+1, after)
}
