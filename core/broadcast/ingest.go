package broadcast

import (
	"context"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Ingest is an Icecast source mount.
type Ingest struct {
	Host     string
	Port     int
	Mount    string
	User     string
	Password string
}

// Addr is the host:port the encoder connects to.
func (i Ingest) Addr() string {
	return net.JoinHostPort(i.Host, strconv.Itoa(i.Port))
}

// URL renders the icecast:// destination including credentials.
func (i Ingest) URL() string {
	user := i.User
	if user == "" {
		user = "source"
	}
	mount := i.Mount
	if !strings.HasPrefix(mount, "/") {
		mount = "/" + mount
	}
	u := url.URL{
		Scheme: "icecast",
		User:   url.UserPassword(user, i.Password),
		Host:   i.Addr(),
		Path:   mount,
	}
	return u.String()
}

// Redacted renders the URL with the password masked, for logs.
func (i Ingest) Redacted() string {
	u, err := url.Parse(i.URL())
	if err != nil {
		return i.Addr()
	}
	return u.Redacted()
}

// DialFunc matches net.Dialer.DialContext.
type DialFunc func(ctx context.Context, network, addr string) (net.Conn, error)

// Preflight checks that the ingest endpoint accepts TCP connections.
func Preflight(ctx context.Context, dial DialFunc, ingest Ingest, timeout time.Duration) error {
	if dial == nil {
		dial = (&net.Dialer{}).DialContext
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	conn, err := dial(ctx, "tcp", ingest.Addr())
	if err != nil {
		return &ConnectionError{Addr: ingest.Addr(), Err: err}
	}
	conn.Close()
	return nil
}

// ListenURL is the public HTTP address listeners tune into.
func (i Ingest) ListenURL() string {
	mount := i.Mount
	if !strings.HasPrefix(mount, "/") {
		mount = "/" + mount
	}
	u := url.URL{Scheme: "http", Host: i.Addr(), Path: mount}
	return u.String()
}
