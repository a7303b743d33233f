package imap

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"strconv"
	"time"

	"github.com/vdavid/mailsky/internal/models"
)

// DefaultProbeTimeout bounds a reachability probe when no timeout is configured.
const DefaultProbeTimeout = 5 * time.Second

// ProbeTimeoutMessage is the error reported when the probe does not complete in time.
const ProbeTimeoutMessage = "Timeout"

// TLSProber checks whether a TLS handshake with an IMAP host succeeds. It does not log in.
type TLSProber struct {
	Timeout   time.Duration
	TLSConfig *tls.Config
}

// NewProber creates a TLSProber with the given timeout.
func NewProber(timeout time.Duration) *TLSProber {
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	return &TLSProber{Timeout: timeout}
}

// Probe opens a TLS connection to host:port and closes it right after the handshake.
// It never returns an error; failures are described in the result.
func (p *TLSProber) Probe(ctx context.Context, host string, port int) models.ProbeResult {
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	tlsConfig := &tls.Config{MinVersion: tls.VersionTLS12}
	if p.TLSConfig != nil {
		tlsConfig = p.TLSConfig.Clone()
	}
	if tlsConfig.ServerName == "" {
		tlsConfig.ServerName = host
	}

	dialer := &tls.Dialer{Config: tlsConfig}
	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		if isTimeout(ctx, err) {
			return models.ProbeResult{OK: false, Error: ProbeTimeoutMessage}
		}
		return models.ProbeResult{OK: false, Error: err.Error()}
	}

	_ = conn.Close()
	return models.ProbeResult{OK: true}
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
