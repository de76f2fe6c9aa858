package natsx

import (
	"time"

	"AProject/logger"
	"AProject/tools/errs"

	"github.com/nats-io/nats.go"
)

// Config for the NATS connection.
type Config struct {
	URL           string
	Name          string        // connection name shown on the server
	ReconnectWait time.Duration // default 2s
	MaxReconnects int           // default -1 (unbounded)
}

// NatsxClient wraps one core NATS connection.
type NatsxClient struct {
	conn *nats.Conn
}

func NewNatsxClient(cfg Config) (*NatsxClient, error) {
	if cfg.URL == "" {
		return nil, errs.New("nats url is required")
	}
	if cfg.ReconnectWait <= 0 {
		cfg.ReconnectWait = 2 * time.Second
	}
	if cfg.MaxReconnects == 0 {
		cfg.MaxReconnects = -1
	}
	opts := []nats.Option{
		nats.Name(cfg.Name),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warnf("[natsx] disconnected: %v", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Infof("[natsx] reconnected to %s", nc.ConnectedUrl())
		}),
	}
	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, errs.Wrap(err, "connect nats")
	}
	return &NatsxClient{conn: nc}, nil
}

func (c *NatsxClient) Conn() *nats.Conn { return c.conn }

func (c *NatsxClient) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}
	c.conn.Drain()
	c.conn.Close()
	return nil
}
