// Package relay mirrors the state events of a local entity to other
// processes over a Unix domain socket, one JSON object per event.
package relay

import (
	"encoding/json"
	"errors"
	"net"
	"os"
	"sync"

	serrors "github.com/turtacn/Strata/pkg/errors"
	"github.com/turtacn/Strata/pkg/logger"
	"github.com/turtacn/Strata/pkg/state"
)

// clientBuffer is how many events a slow client may fall behind before it
// is disconnected.
const clientBuffer = 64

// Publisher streams the events of source to every connected client. A new
// client first receives the current state.
type Publisher struct {
	socketPath string
	source     state.Stateful
	log        logger.Logger

	mu         sync.Mutex
	listener   net.Listener
	clients    map[*client]struct{}
	acceptDone chan struct{}
	wg         sync.WaitGroup
}

type client struct {
	conn     net.Conn
	events   chan state.Persisted
	listener state.Listener
	once     sync.Once
}

func NewPublisher(socketPath string, source state.Stateful) *Publisher {
	return &Publisher{
		socketPath: socketPath,
		source:     source,
		log:        logger.Log.With("component", "relay", "socket", socketPath),
		clients:    make(map[*client]struct{}),
	}
}

// prepareSocket removes a stale socket file and listens in its place.
func (p *Publisher) prepareSocket() (net.Listener, error) {
	if _, err := os.Stat(p.socketPath); err == nil {
		_ = os.Remove(p.socketPath)
	}
	l, err := net.Listen("unix", p.socketPath)
	if err != nil {
		return nil, serrors.New(serrors.ErrCodeRelayFailed, "Publisher.Start", "listen on "+p.socketPath, err)
	}
	// Ensure only the owner can connect
	_ = os.Chmod(p.socketPath, 0o700)
	return l, nil
}

// Start begins accepting clients in the background.
func (p *Publisher) Start() error {
	l, err := p.prepareSocket()
	if err != nil {
		return err
	}
	p.mu.Lock()
	p.listener = l
	p.acceptDone = make(chan struct{})
	p.mu.Unlock()

	go p.accept(l, p.acceptDone)
	p.log.Info("Relay publishing", "source", p.source.LastStateEvent().Source().String())
	return nil
}

func (p *Publisher) accept(l net.Listener, done chan struct{}) {
	defer close(done)
	for {
		conn, err := l.Accept()
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				p.log.Error("Accept failed", "err", err)
			}
			return
		}
		p.serve(conn)
	}
}

func (p *Publisher) serve(conn net.Conn) {
	c := &client{conn: conn, events: make(chan state.Persisted, clientBuffer)}
	c.listener = state.NewListener(func(ev state.Event) { p.enqueue(c, ev) })

	p.mu.Lock()
	p.clients[c] = struct{}{}
	p.mu.Unlock()

	p.wg.Add(1)
	go p.write(c)
	p.source.AddStateListener(c.listener)
	p.log.Debug("Client connected")
}

// enqueue runs inside the source's listener callback and must not block.
func (p *Publisher) enqueue(c *client, ev state.Event) {
	pe, err := ev.Persist()
	if err != nil {
		p.log.Error("Event not encodable", "err", err)
		return
	}
	select {
	case c.events <- pe:
	default:
		p.log.Warn("Client too slow, disconnecting")
		go p.drop(c)
	}
}

func (p *Publisher) write(c *client) {
	defer p.wg.Done()
	defer p.drop(c)

	enc := json.NewEncoder(c.conn)
	for pe := range c.events {
		if err := enc.Encode(pe); err != nil {
			p.log.Debug("Client write failed", "err", err)
			return
		}
	}
}

// drop disconnects c. It is safe to call more than once.
func (p *Publisher) drop(c *client) {
	c.once.Do(func() {
		p.source.RemoveStateListener(c.listener)
		p.mu.Lock()
		delete(p.clients, c)
		p.mu.Unlock()
		_ = c.conn.Close()
		close(c.events)
	})
}

// Close stops accepting, disconnects every client and removes the socket.
func (p *Publisher) Close() error {
	p.mu.Lock()
	l, acceptDone := p.listener, p.acceptDone
	p.listener = nil
	p.mu.Unlock()

	if l == nil {
		return nil
	}
	err := l.Close()
	<-acceptDone

	p.mu.Lock()
	clients := make([]*client, 0, len(p.clients))
	for c := range p.clients {
		clients = append(clients, c)
	}
	p.mu.Unlock()
	for _, c := range clients {
		p.drop(c)
	}
	p.wg.Wait()
	_ = os.Remove(p.socketPath)
	return err
}

// Personal.AI order the ending
