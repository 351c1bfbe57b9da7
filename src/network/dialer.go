package network

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"flashbook-monitor/src/helpers"
	"flashbook-monitor/src/interfaces"
	"flashbook-monitor/src/logger"
	"flashbook-monitor/src/models"
	"flashbook-monitor/src/utils"
)

// -----------------------------------------------------------------------------
// GorillaDialer opens exchange websockets through the optional proxy rotation.
// -----------------------------------------------------------------------------

type GorillaDialer struct {
	ProxyManager interfaces.IProxyManager
	Logger       *logger.Logger
	dialer       *websocket.Dialer
}

// -----------------------------------------------------------------------------

func NewGorillaDialer(cfg *models.MConfig, log *logger.Logger) *GorillaDialer {
	timeout := utils.DefaultHandshakeTimeout
	if cfg.Exchange.HandshakeTimeoutSeconds > 0 {
		timeout = time.Duration(cfg.Exchange.HandshakeTimeoutSeconds) * time.Second
	}

	pm := helpers.NewProxyManager(cfg.Network.Proxies, cfg.Network.UserAgent, log)
	return &GorillaDialer{
		ProxyManager: pm,
		Logger:       log,
		dialer: &websocket.Dialer{
			Proxy:            pm.ProxyFunc(),
			HandshakeTimeout: timeout,
			ReadBufferSize:   4096,
			WriteBufferSize:  4096,
		},
	}
}

// -----------------------------------------------------------------------------

// Dial performs the websocket handshake. On failure the next proxy is selected
// for the following attempt.
func (d *GorillaDialer) Dial(ctx context.Context, url string) (interfaces.IConn, error) {
	header := http.Header{}
	header.Set("User-Agent", d.ProxyManager.GetUserAgent())

	conn, resp, err := d.dialer.DialContext(ctx, url, header)
	if err != nil {
		if resp != nil {
			err = fmt.Errorf("%w (status %d)", err, resp.StatusCode)
		}
		if d.ProxyManager.HasProxies() {
			d.ProxyManager.RotateProxy()
			d.Logger.Info("Handshake failed, rotated proxy")
		}
		return nil, err
	}
	return conn, nil
}
