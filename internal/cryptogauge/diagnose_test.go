package cryptogauge

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHttpRequestDiagnostic(t *testing.T) {
	server := newTestGaugeServer(t, http.StatusOK, strings.Repeat("a", 1500))

	info, err := testHttpRequest(server.Client(), http.MethodGet, server.URL, nil, http.StatusOK)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(info, "200, 1,500 bytes, "), info)
	assert.True(t, strings.HasSuffix(info, "..."), info)

	_, err = testHttpRequest(server.Client(), http.MethodGet, server.URL, nil, http.StatusNoContent)
	assert.EqualError(t, err, "expected status code 204, got 200")

	_, err = testHttpRequest(server.Client(), http.MethodGet, server.URL, nil, 0)
	assert.NoError(t, err)
}
