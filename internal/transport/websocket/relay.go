// Package websocket runs sessions over WebSocket: a Relay that peers dial
// and a Client implementing transport.Transport.
package websocket

import (
	"crypto/subtle"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	ws "github.com/gorilla/websocket"
	"github.com/tandemdrive/tandem/internal/channel"
	"github.com/tandemdrive/tandem/internal/config"
	"github.com/tandemdrive/tandem/internal/session"
	"github.com/tandemdrive/tandem/internal/transport"
	"github.com/tandemdrive/tandem/pkg/core"
	"github.com/tandemdrive/tandem/pkg/streaming"
)

const (
	peerSendChSize = 256
	helloTimeout   = 10 * time.Second
)

// Relay is an http.Handler hosting one session. It assigns participant
// ids, elects the owner, forwards owner snapshots to the other members and
// routes invocations to their recipient.
type Relay struct {
	secret    string
	writeWait time.Duration
	upgrader  ws.Upgrader
	start     time.Time
	logger    *slog.Logger

	mu     sync.Mutex
	roster transport.Roster
	peers  map[core.ParticipantID]*peerConn
}

// NewRelay creates a relay using the secret and write timeout from cfg.
func NewRelay(cfg config.NetConfig, logger *slog.Logger) *Relay {
	if logger == nil {
		logger = slog.Default()
	}
	writeWait := cfg.WriteWait
	if writeWait <= 0 {
		writeWait = 10 * time.Second
	}
	return &Relay{
		secret:    cfg.Secret,
		writeWait: writeWait,
		upgrader:  ws.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
		start:     time.Now(),
		logger:    logger,
		peers:     make(map[core.ParticipantID]*peerConn),
	}
}

func (r *Relay) now() float64 { return time.Since(r.start).Seconds() }

// Owner returns the elected session owner.
func (r *Relay) Owner() core.ParticipantID {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.roster.Owner()
}

// Members returns the connected participant ids in join order.
func (r *Relay) Members() []core.ParticipantID {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.roster.IDs()
}

// ServeHTTP upgrades the request and serves the peer until it disconnects.
func (r *Relay) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	if r.secret != "" && subtle.ConstantTimeCompare([]byte(req.URL.Query().Get("secret")), []byte(r.secret)) != 1 {
		http.Error(w, "invalid secret", http.StatusUnauthorized)
		return
	}

	conn, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		r.logger.Warn("WebSocket upgrade failed", "error", err)
		return
	}

	hello, err := readHello(conn)
	if err != nil {
		r.logger.Warn("Peer handshake failed", "remote", req.RemoteAddr, "error", err)
		_ = conn.Close()
		return
	}

	pc := r.join(conn, hello)
	defer r.leave(pc)
	r.readLoop(pc)
}

func readHello(conn *ws.Conn) (streaming.HelloPayload, error) {
	var hello streaming.HelloPayload
	if err := conn.SetReadDeadline(time.Now().Add(helloTimeout)); err != nil {
		return hello, err
	}
	kind, data, err := conn.ReadMessage()
	if err != nil {
		return hello, fmt.Errorf("reading hello: %w", err)
	}
	env, err := decodeMessage(kind, data)
	if err != nil {
		return hello, err
	}
	if env.Type != streaming.TypeHello {
		return hello, fmt.Errorf("expected hello, got %s", env.Type)
	}
	if err := env.Decode(&hello); err != nil {
		return hello, err
	}
	return hello, conn.SetReadDeadline(time.Time{})
}

func (r *Relay) join(conn *ws.Conn, hello streaming.HelloPayload) *peerConn {
	r.mu.Lock()
	id := hello.ID
	if _, taken := r.peers[id]; id == core.NoParticipant || taken {
		id = session.NewID()
	}
	pc := newPeerConn(id, conn, r.writeWait, r.logger)
	r.peers[id] = pc
	r.roster.Join(streaming.RosterMember{ID: id, Name: hello.Name, JoinedAt: time.Now()})
	r.mu.Unlock()

	go pc.writeLoop()

	welcome, err := streaming.NewEnvelope(streaming.TypeWelcome, core.NoParticipant, streaming.WelcomePayload{
		ID:         id,
		Session:    hello.Session,
		ServerTime: r.now(),
	})
	if err == nil {
		pc.sendEnvelope(welcome)
	}

	r.logger.Info("Peer joined relay", "participant", id, "name", hello.Name)
	r.publishRoster()
	return pc
}

func (r *Relay) leave(pc *peerConn) {
	pc.close()

	r.mu.Lock()
	if r.peers[pc.id] != pc {
		r.mu.Unlock()
		return
	}
	delete(r.peers, pc.id)
	migrated := r.roster.Leave(pc.id)
	owner := r.roster.Owner()
	r.mu.Unlock()

	r.logger.Info("Peer left relay", "participant", pc.id)
	if migrated {
		r.logger.Info("Session ownership migrated", "owner", owner)
	}
	r.publishRoster()
}

func (r *Relay) publishRoster() {
	r.mu.Lock()
	env, err := streaming.NewEnvelope(streaming.TypeRoster, core.NoParticipant, r.roster.Payload())
	peers := r.snapshotPeers(core.NoParticipant)
	r.mu.Unlock()

	if err != nil {
		r.logger.Error("Failed to build roster", "error", err)
		return
	}
	for _, p := range peers {
		p.sendEnvelope(env)
	}
}

// snapshotPeers lists every peer except skip. Caller holds r.mu.
func (r *Relay) snapshotPeers(skip core.ParticipantID) []*peerConn {
	out := make([]*peerConn, 0, len(r.peers))
	for id, p := range r.peers {
		if id != skip {
			out = append(out, p)
		}
	}
	return out
}

func (r *Relay) readLoop(pc *peerConn) {
	for {
		kind, data, err := pc.conn.ReadMessage()
		if err != nil {
			select {
			case <-pc.done:
			default:
				r.logger.Debug("Relay read ended", "participant", pc.id, "error", err)
			}
			return
		}

		// binary frames are snapshots and are forwarded without decoding
		if kind == ws.BinaryMessage {
			if !streaming.ValidFrame(data) {
				r.logger.Debug("Dropping malformed frame", "participant", pc.id, "size", len(data))
				continue
			}
			r.forwardSnapshot(pc, kind, data)
			continue
		}

		env, err := streaming.Decode(data)
		if err != nil {
			r.logger.Debug("Dropping undecodable message", "participant", pc.id, "error", err)
			continue
		}

		switch env.Type {
		case streaming.TypePing:
			r.pong(pc, env)
		case streaming.TypeSnapshot:
			r.forwardSnapshot(pc, kind, data)
		case streaming.TypeSteerRequest, streaming.TypeNitroRequest:
			r.route(pc, env)
		default:
			r.logger.Debug("Ignoring message", "participant", pc.id, "type", env.Type)
		}
	}
}

func (r *Relay) pong(pc *peerConn, env streaming.Envelope) {
	var ping streaming.PingPayload
	if err := env.Decode(&ping); err != nil {
		return
	}
	reply, err := streaming.NewEnvelope(streaming.TypePong, core.NoParticipant, streaming.PongPayload{
		Sent:       ping.Sent,
		ServerTime: r.now(),
	})
	if err == nil {
		pc.sendEnvelope(reply)
	}
}

// forwardSnapshot relays the frame unchanged when the sender owns the session.
func (r *Relay) forwardSnapshot(pc *peerConn, kind int, data []byte) {
	r.mu.Lock()
	if r.roster.Owner() != pc.id {
		r.mu.Unlock()
		r.logger.Debug("Dropping snapshot from non-owner", "participant", pc.id)
		return
	}
	peers := r.snapshotPeers(pc.id)
	r.mu.Unlock()

	for _, p := range peers {
		p.send(kind, data)
	}
}

func (r *Relay) route(pc *peerConn, env streaming.Envelope) {
	env.From = pc.id

	r.mu.Lock()
	to := env.To
	if to == core.NoParticipant {
		to = r.roster.Owner()
	}
	target, ok := r.peers[to]
	r.mu.Unlock()

	if !ok || to == pc.id {
		r.logger.Debug("Dropping invocation", "participant", pc.id, "type", env.Type, "to", to)
		return
	}
	target.sendEnvelope(env)
}

// Close disconnects every peer.
func (r *Relay) Close() error {
	r.mu.Lock()
	peers := r.snapshotPeers(core.NoParticipant)
	r.mu.Unlock()
	for _, p := range peers {
		p.close()
	}
	return nil
}

func decodeMessage(kind int, data []byte) (streaming.Envelope, error) {
	if kind == ws.BinaryMessage {
		return streaming.DecodeFrame(data)
	}
	return streaming.Decode(data)
}

type outbound struct {
	kind int
	data []byte
}

// peerConn is the relay side of one peer, with a single write goroutine.
type peerConn struct {
	id        core.ParticipantID
	conn      *ws.Conn
	sendCh    channel.Channel[outbound]
	done      chan struct{}
	once      sync.Once
	writeWait time.Duration
	logger    *slog.Logger
}

func newPeerConn(id core.ParticipantID, conn *ws.Conn, writeWait time.Duration, logger *slog.Logger) *peerConn {
	return &peerConn{
		id:        id,
		conn:      conn,
		sendCh:    channel.New[outbound](peerSendChSize),
		done:      make(chan struct{}),
		writeWait: writeWait,
		logger:    logger,
	}
}

func (p *peerConn) writeLoop() {
	for {
		select {
		case <-p.done:
			return
		case msg := <-p.sendCh.Receive():
			if err := p.conn.SetWriteDeadline(time.Now().Add(p.writeWait)); err != nil {
				p.close()
				return
			}
			if err := p.conn.WriteMessage(msg.kind, msg.data); err != nil {
				p.logger.Debug("Relay write failed", "participant", p.id, "error", err)
				p.close()
				return
			}
		}
	}
}

// send queues a message. Non-blocking; drops if the channel is full.
func (p *peerConn) send(kind int, data []byte) {
	select {
	case <-p.done:
		return
	default:
	}
	if !p.sendCh.TrySend(outbound{kind: kind, data: data}) {
		p.logger.Warn("Relay send channel full, dropping message", "participant", p.id, "queued", p.sendCh.Len())
	}
}

func (p *peerConn) sendEnvelope(env streaming.Envelope) {
	data, err := streaming.Encode(env)
	if err != nil {
		p.logger.Error("Failed to encode message", "type", env.Type, "error", err)
		return
	}
	p.send(ws.TextMessage, data)
}

func (p *peerConn) close() {
	p.once.Do(func() {
		close(p.done)
		_ = p.conn.Close()
	})
}
