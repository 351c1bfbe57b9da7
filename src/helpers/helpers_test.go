package helpers_test

import (
	"errors"
	"fmt"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flashbook-monitor/src/helpers"
	"flashbook-monitor/src/logger"
)

func TestErrorCategoriesSurviveWrapping(t *testing.T) {
	base := helpers.NewConnectivityError("set_pause", helpers.ErrNotConnected)
	wrapped := fmt.Errorf("operator: %w", base)

	var connErr *helpers.ConnectivityError
	require.True(t, errors.As(wrapped, &connErr))
	assert.True(t, errors.Is(wrapped, helpers.ErrNotConnected))
	assert.Equal(t, "cannot send set_pause: connection is not open", base.Error())

	vErr := helpers.NewValidationError("set_risk", "out of range", 1.3)
	var target *helpers.ValidationError
	require.True(t, errors.As(fmt.Errorf("x: %w", vErr), &target))
	assert.Equal(t, "set_risk", target.Parameter)
	assert.Equal(t, 1.3, target.RevertTo)
}

func TestErrorHandlerCounts(t *testing.T) {
	h := helpers.NewErrorHandler(logger.NewNopLogger("Errors"))
	h.Handle(nil, "noop")
	h.Handle(helpers.NewProtocolError("bad frame", nil), "router")
	h.Handle(errors.New("boom"), "journal")
	assert.Equal(t, 2, h.ErrorCount)

	h.ResetErrorCount()
	assert.Zero(t, h.ErrorCount)
}

func TestProxyRotation(t *testing.T) {
	pm := helpers.NewProxyManager([]string{"10.0.0.1:3128", "", "socks5://10.0.0.2:1080"}, "", logger.NewNopLogger("Proxy"))
	require.True(t, pm.HasProxies())
	assert.Equal(t, "flashbook-monitor/1.0", pm.GetUserAgent())

	current, err := pm.GetCurrentProxy()
	require.NoError(t, err)
	assert.Equal(t, "http://10.0.0.1:3128", current)

	pm.RotateProxy()
	u, err := pm.ProxyFunc()(httptest.NewRequest("GET", "http://example/ws", nil))
	require.NoError(t, err)
	assert.Equal(t, "socks5://10.0.0.2:1080", u.String())
}

func TestValidateProxy(t *testing.T) {
	assert.True(t, helpers.ValidateProxy("proxy:8080"))
	assert.False(t, helpers.ValidateProxy("   "))
	assert.False(t, helpers.ValidateProxy("ftp://proxy:21"))
}
