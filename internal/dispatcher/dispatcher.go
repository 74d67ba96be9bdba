// Package dispatcher implements the single public front door described
// by spec.md §3: one TCP listener that load-balances newly accepted
// connections across a pool of sub-servers, growing the pool on demand.
package dispatcher

import (
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/rs/zerolog"

	"github.com/foundry/ringserver/internal/config"
	"github.com/foundry/ringserver/internal/game"
	"github.com/foundry/ringserver/internal/logging"
	"github.com/foundry/ringserver/internal/metrics"
	"github.com/foundry/ringserver/internal/subserver"
)

// Dispatcher owns the pool of sub-servers and the shared TCP front door.
// Each sub-server binds its own UDP socket; clients learn which port to
// send gameplay datagrams to from the SERVER_IDENTITY_RESPONSE the
// sub-server sends at connect time.
type Dispatcher struct {
	cfg config.ServerConfig
	log zerolog.Logger

	mu      sync.Mutex
	servers []*subserver.SubServer
}

// New returns a Dispatcher ready to Run.
func New(cfg config.ServerConfig, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{cfg: cfg, log: log}
}

// Run binds the first sub-server and the front door listener, then
// accepts forever, handing each connection to findFreeServer. It blocks
// until the listener fails.
func (d *Dispatcher) Run() error {
	if _, err := d.spawnSubServer(); err != nil {
		return fmt.Errorf("dispatcher: initial sub-server: %w", err)
	}

	front, err := net.Listen("tcp", fmt.Sprintf(":%d", d.cfg.TCPPort))
	if err != nil {
		return fmt.Errorf("dispatcher: front door listen: %w", err)
	}
	defer front.Close()
	d.log.Info().Int("port", int(d.cfg.TCPPort)).Msg("dispatcher listening")

	for {
		conn, err := front.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return fmt.Errorf("dispatcher: front door accept: %w", err)
			}
			d.log.Warn().Err(err).Msg("front door accept failed")
			continue
		}

		target := d.findFreeServer()
		if target == nil {
			conn.Close()
			continue
		}
		target.AcceptConn(conn)
	}
}

// findFreeServer returns the first sub-server with room for another
// peer, growing the pool (up to cfg.GrowLimit) when every existing
// sub-server is full and cfg.Grow is set. A bind failure while growing
// falls back to the last sub-server rather than rejecting the
// connection outright.
func (d *Dispatcher) findFreeServer() *subserver.SubServer {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, s := range d.servers {
		if s.Len() < game.MaxPeers {
			return s
		}
	}

	if len(d.servers) == 0 {
		return nil
	}
	if !d.cfg.Grow || len(d.servers) >= d.cfg.GrowLimit {
		return d.servers[len(d.servers)-1]
	}

	s, err := d.spawnSubServerLocked()
	if err != nil {
		d.log.Warn().Err(err).Msg("grow failed, routing onto the last sub-server instead")
		return d.servers[len(d.servers)-1]
	}
	return s
}

func (d *Dispatcher) spawnSubServer() (*subserver.SubServer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.spawnSubServerLocked()
}

// spawnSubServerLocked requires d.mu held. It binds the first free UDP
// port at or after cfg.UDPPort+len(servers), starts the sub-server's
// loops, and appends it to the pool.
func (d *Dispatcher) spawnSubServerLocked() (*subserver.SubServer, error) {
	base := int(d.cfg.UDPPort) + len(d.servers)
	var udpConn *net.UDPConn
	for attempt := 0; attempt < 64; attempt++ {
		conn, err := net.ListenUDP("udp", &net.UDPAddr{Port: base + attempt})
		if err == nil {
			udpConn = conn
			break
		}
	}
	if udpConn == nil {
		return nil, fmt.Errorf("no free udp port near %d", base)
	}

	name := fmt.Sprintf("sub-%d", len(d.servers)+1)
	sub := subserver.New(name, udpConn, logging.Component(d.log, name))

	d.servers = append(d.servers, sub)
	metrics.SubServers.Set(float64(len(d.servers)))
	go sub.Run()

	d.log.Info().Str("name", name).Int("udp_port", int(sub.UDPPort())).Msg("sub-server started")
	return sub, nil
}
