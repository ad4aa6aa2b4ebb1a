package dht

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"sync"

	"github.com/xtaci/smux"
)

// streamSession is a multiplexed transport that can accept or initiate
// streams over one physical connection, mirroring how the teacher's
// gateway package wraps smux so RPC call sites never see the
// underlying net.Conn.
type streamSession interface {
	Accept() (net.Conn, error)
	Open() (net.Conn, error)
	Close() error
}

type smuxSession struct {
	sess *smux.Session
}

func (s smuxSession) Accept() (net.Conn, error) { return s.sess.AcceptStream() }
func (s smuxSession) Open() (net.Conn, error)   { return s.sess.OpenStream() }
func (s smuxSession) Close() error              { return s.sess.Close() }

func newSmuxServer(conn net.Conn) (streamSession, error) {
	sess, err := smux.Server(conn, nil)
	if err != nil {
		return nil, err
	}
	return smuxSession{sess}, nil
}

func newSmuxClient(conn net.Conn) (streamSession, error) {
	sess, err := smux.Client(conn, nil)
	if err != nil {
		return nil, err
	}
	return smuxSession{sess}, nil
}

// wireMessage is Message's over-the-wire encoding for a direct send: one
// JSON object per stream, newline-terminated.
type wireMessage struct {
	Kind    string `json:"kind"`
	Payload []byte `json:"payload"`
}

// wireReply is written back by the accepting side after the local
// handler has run.
type wireReply struct {
	Reply AcceptanceReply `json:"reply"`
}

// PeerTransport sends and receives direct messages over one smux session
// per peer, opening the underlying TCP connection lazily and reusing it
// for subsequent sends, the way the teacher's gateway keeps one session
// per remote peer rather than dialing per RPC.
type PeerTransport struct {
	mu       sync.Mutex
	sessions map[PeerAddress]streamSession

	listener net.Listener
}

// NewPeerTransport returns a transport with no open sessions yet.
func NewPeerTransport() *PeerTransport {
	return &PeerTransport{sessions: make(map[PeerAddress]streamSession)}
}

func (t *PeerTransport) sessionFor(addr PeerAddress) (streamSession, error) {
	t.mu.Lock()
	sess, ok := t.sessions[addr]
	t.mu.Unlock()
	if ok {
		return sess, nil
	}

	conn, err := net.Dial("tcp", string(addr))
	if err != nil {
		return nil, err
	}
	sess, err = newSmuxClient(conn)
	if err != nil {
		conn.Close()
		return nil, err
	}

	t.mu.Lock()
	t.sessions[addr] = sess
	t.mu.Unlock()
	return sess, nil
}

// SendDirect opens a stream to addr, writes msg, and waits for the
// accepting side's AcceptanceReply.
func (t *PeerTransport) SendDirect(ctx context.Context, addr PeerAddress, msg Message) (AcceptanceReply, error) {
	sess, err := t.sessionFor(addr)
	if err != nil {
		return ReplyFailure, nil
	}
	stream, err := sess.Open()
	if err != nil {
		t.mu.Lock()
		delete(t.sessions, addr)
		t.mu.Unlock()
		return ReplyFailure, nil
	}
	defer stream.Close()

	if dl, ok := ctx.Deadline(); ok {
		stream.SetDeadline(dl)
	}

	enc := json.NewEncoder(stream)
	if err := enc.Encode(wireMessage{Kind: msg.Kind, Payload: msg.Payload}); err != nil {
		return ReplyFailure, nil
	}

	var reply wireReply
	if err := json.NewDecoder(bufio.NewReader(stream)).Decode(&reply); err != nil {
		return ReplyFutureFailure, err
	}
	return reply.Reply, nil
}

// DirectHandler processes an inbound direct message and returns the
// AcceptanceReply to write back to the sender.
type DirectHandler func(from Message) AcceptanceReply

// Listen accepts TCP connections on laddr, wraps each as a smux server
// session, and dispatches every opened stream to handler. It runs until
// the returned listener is closed.
func Listen(laddr string, handler DirectHandler) (net.Listener, error) {
	l, err := net.Listen("tcp", laddr)
	if err != nil {
		return nil, err
	}
	go acceptLoop(l, handler)
	return l, nil
}

func acceptLoop(l net.Listener, handler DirectHandler) {
	for {
		conn, err := l.Accept()
		if err != nil {
			return
		}
		go serveSession(conn, handler)
	}
}

func serveSession(conn net.Conn, handler DirectHandler) {
	sess, err := newSmuxServer(conn)
	if err != nil {
		conn.Close()
		return
	}
	for {
		stream, err := sess.Accept()
		if err != nil {
			return
		}
		go serveStream(stream, handler)
	}
}

func serveStream(stream net.Conn, handler DirectHandler) {
	defer stream.Close()

	var wm wireMessage
	if err := json.NewDecoder(stream).Decode(&wm); err != nil {
		return
	}
	reply := handler(Message{Kind: wm.Kind, Payload: wm.Payload})
	json.NewEncoder(stream).Encode(wireReply{Reply: reply})
}

// NetworkOverlay composes a local store (Get/Put/PutUnblocked/Remove -
// the DHT routing and peer discovery that would back these in a real
// deployment are out of scope, per spec's transport-internals
// non-goal) with a PeerTransport carrying real direct-message traffic
// between daemon instances, so cmd/h2hd has a concrete Overlay that
// talks over the network for the one operation - SendDirect - spec
// actually specifies end-to-end.
type NetworkOverlay struct {
	Overlay
	transport *PeerTransport
}

// NewNetworkOverlay returns an Overlay delegating storage to local and
// direct messages to a PeerTransport.
func NewNetworkOverlay(local Overlay, transport *PeerTransport) *NetworkOverlay {
	return &NetworkOverlay{Overlay: local, transport: transport}
}

func (n *NetworkOverlay) SendDirect(ctx context.Context, addr PeerAddress, msg Message) (AcceptanceReply, error) {
	return n.transport.SendDirect(ctx, addr, msg)
}
