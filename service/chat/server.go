package chat

import (
	"time"

	"AProject/tools/safe"
)

// ServerConf tunes the per-connection transport behavior.
type ServerConf struct {
	SendQueueSize int           // per-connection outbound queue
	ReadLimit     int64         // max inbound frame size in bytes
	WriteDeadline time.Duration // per-write deadline
	FrameTimeout  time.Duration // storage-call budget while handling one frame
	PongWait      time.Duration // read deadline, refreshed by pongs and frames
	RecentWindow  int64         // messages returned on subscribe
}

func (c *ServerConf) norm() {
	if c.SendQueueSize <= 0 {
		c.SendQueueSize = 256
	}
	if c.ReadLimit <= 0 {
		c.ReadLimit = 64 << 10
	}
	if c.WriteDeadline <= 0 {
		c.WriteDeadline = 5 * time.Second
	}
	if c.FrameTimeout <= 0 {
		c.FrameTimeout = 10 * time.Second
	}
	if c.PongWait <= 0 {
		c.PongWait = 60 * time.Second
	}
	if c.RecentWindow <= 0 {
		c.RecentWindow = 50
	}
}

// pingPeriod is how often the writer pings; it must fire before the peer's
// pong deadline lapses.
func (c *ServerConf) pingPeriod() time.Duration {
	return c.PongWait * 9 / 10
}

// Server owns the protocol core for one gateway node: the registry, the
// frame dispatcher, the broadcaster, and the storage gateway. Everything is
// injected at construction; tests build Servers around fakes.
type Server struct {
	gwID     string
	conf     ServerConf
	reg      *Registry
	disp     *Dispatcher
	bcast    *Broadcaster
	gw       Gateway
	presence PresenceTracker // optional
}

func NewServer(gwID string, conf ServerConf, reg *Registry, disp *Dispatcher, bcast *Broadcaster, gw Gateway, presence PresenceTracker) *Server {
	safe.MustNotNil(reg, "registry")
	safe.MustNotNil(disp, "dispatcher")
	safe.MustNotNil(bcast, "broadcaster")
	safe.MustNotNil(gw, "gateway")
	conf.norm()
	return &Server{
		gwID:     gwID,
		conf:     conf,
		reg:      reg,
		disp:     disp,
		bcast:    bcast,
		gw:       gw,
		presence: presence,
	}
}

func (s *Server) GwID() string { return s.gwID }

func (s *Server) Conf() ServerConf { return s.conf }

func (s *Server) Reg() *Registry { return s.reg }

func (s *Server) Disp() *Dispatcher { return s.disp }

func (s *Server) Broadcast() *Broadcaster { return s.bcast }

func (s *Server) Gateway() Gateway { return s.gw }

func (s *Server) Presence() PresenceTracker { return s.presence }
