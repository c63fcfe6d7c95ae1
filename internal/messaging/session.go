package messaging

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultServer is the domain suffix appended to bare phone numbers.
const DefaultServer = "s.whatsapp.net"

var (
	// ErrNotInitialized is returned when the session has never reached the
	// open state since process start.
	ErrNotInitialized = errors.New("messaging: session not initialized")
	// ErrTransportClosed is returned when the session exists but is not
	// currently open, including after a terminal logout.
	ErrTransportClosed = errors.New("messaging: transport closed")
)

// State describes the session lifecycle.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateOpen
	StateClosedTerminal
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosedTerminal:
		return "closed_terminal"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// RetryPolicy controls reconnection after a non-terminal close. MaxAttempts
// bounds consecutive failed reconnects; zero means retry without bound.
type RetryPolicy struct {
	Delay       time.Duration
	MaxAttempts int
}

// QRSink receives login-challenge codes. The server binary renders them to the
// terminal; tests capture them.
type QRSink func(code string)

// Manager supervises the single messaging session. It dials through the
// Transport, persists credential rotations before processing further events,
// and schedules exactly one reconnect per non-terminal close. A terminal close
// (remote logout) clears stored credentials and parks the session until the
// operator relinks via a fresh QR scan.
type Manager struct {
	transport Transport
	creds     CredentialStore
	retry     RetryPolicy
	prefix    string
	qr        QRSink
	log       *zap.Logger

	mu          sync.Mutex
	state       State
	conn        Conn
	initialized bool
	gen         uint64
	failures    int
	shutdown    bool
	timer       *time.Timer
}

func NewManager(transport Transport, creds CredentialStore, retry RetryPolicy, countryPrefix string, qr QRSink, log *zap.Logger) *Manager {
	if retry.Delay <= 0 {
		retry.Delay = 3 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		transport: transport,
		creds:     creds,
		retry:     retry,
		prefix:    countryPrefix,
		qr:        qr,
		log:       log,
	}
}

// Initialize dials the transport with whatever credentials are on disk and
// starts the event loop. It is called once at boot and again by the reconnect
// timer; each call supersedes any previous connection's event loop.
func (m *Manager) Initialize(ctx context.Context) error {
	m.mu.Lock()
	if m.shutdown {
		m.mu.Unlock()
		return ErrTransportClosed
	}
	m.gen++
	gen := m.gen
	m.state = StateConnecting
	m.mu.Unlock()

	blob, err := m.creds.Load()
	if err != nil && !errors.Is(err, ErrNoCredentials) {
		m.log.Warn("credential load failed, starting fresh login", zap.Error(err))
		blob = nil
	}

	conn, events, err := m.transport.Dial(ctx, blob)
	if err != nil {
		m.onClose(gen, Event{Kind: KindClosed, Reason: err.Error()})
		return fmt.Errorf("dial transport: %w", err)
	}

	m.mu.Lock()
	if gen != m.gen || m.shutdown {
		m.mu.Unlock()
		conn.Close()
		return ErrTransportClosed
	}
	m.conn = conn
	m.mu.Unlock()

	go m.run(gen, events)
	return nil
}

// run consumes events for one connection generation. Events are handled
// sequentially, so a credential rotation is durable before the next event is
// looked at.
func (m *Manager) run(gen uint64, events <-chan Event) {
	for ev := range events {
		switch ev.Kind {
		case KindQR:
			m.log.Info("login challenge issued, scan to link")
			if m.qr != nil {
				m.qr(ev.QRCode)
			}
		case KindCredentials:
			m.mu.Lock()
			stale := gen != m.gen
			m.mu.Unlock()
			if stale {
				continue
			}
			if err := m.creds.Save(ev.Credentials); err != nil {
				m.log.Error("persist credentials", zap.Error(err))
			}
		case KindConnected:
			m.mu.Lock()
			if gen == m.gen {
				m.state = StateOpen
				m.initialized = true
				m.failures = 0
			}
			m.mu.Unlock()
			m.log.Info("session open")
		case KindClosed:
			m.onClose(gen, ev)
			return
		}
	}
	// Channel closed without a close event; treat as a non-terminal drop.
	m.onClose(gen, Event{Kind: KindClosed, Reason: "event stream ended"})
}

func (m *Manager) onClose(gen uint64, ev Event) {
	m.mu.Lock()
	if gen != m.gen || m.shutdown {
		// A newer connection already superseded this one; its loop owns
		// recovery now.
		m.mu.Unlock()
		return
	}
	if ev.Terminal {
		m.state = StateClosedTerminal
		m.mu.Unlock()
		m.log.Warn("session terminally closed, credentials invalidated", zap.String("reason", ev.Reason))
		if err := m.creds.Clear(); err != nil {
			m.log.Error("clear credentials", zap.Error(err))
		}
		return
	}
	m.state = StateDisconnected
	m.failures++
	failures := m.failures
	if m.retry.MaxAttempts > 0 && failures > m.retry.MaxAttempts {
		m.mu.Unlock()
		m.log.Error("reconnect attempts exhausted", zap.Int("attempts", failures-1), zap.String("reason", ev.Reason))
		return
	}
	m.timer = time.AfterFunc(m.retry.Delay, func() {
		if err := m.Initialize(context.Background()); err != nil {
			m.log.Warn("reconnect failed", zap.Error(err))
		}
	})
	m.mu.Unlock()
	m.log.Warn("session closed, reconnect scheduled",
		zap.String("reason", ev.Reason),
		zap.Duration("delay", m.retry.Delay),
		zap.Int("consecutive_failures", failures))
}

// Client returns the current connection handle. After a terminal close it
// keeps returning the last handle; sends on it fail until a fresh Initialize
// succeeds. Before the first successful connect it returns ErrNotInitialized.
func (m *Manager) Client() (Conn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.initialized {
		return nil, ErrNotInitialized
	}
	return m.conn, nil
}

// State reports the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Send normalizes the recipient and delivers a text message over the open
// session.
func (m *Manager) Send(ctx context.Context, recipient, text string) error {
	m.mu.Lock()
	if !m.initialized {
		m.mu.Unlock()
		return ErrNotInitialized
	}
	if m.state != StateOpen {
		m.mu.Unlock()
		return ErrTransportClosed
	}
	conn := m.conn
	m.mu.Unlock()

	addr, err := FormatAddress(recipient, m.prefix)
	if err != nil {
		return err
	}
	return conn.Send(ctx, addr, text)
}

// Shutdown closes the current connection and stops all recovery.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	m.shutdown = true
	m.gen++
	if m.timer != nil {
		m.timer.Stop()
	}
	conn := m.conn
	m.state = StateDisconnected
	m.mu.Unlock()
	if conn != nil {
		conn.Close()
	}
}

// FormatAddress turns a raw phone number into a fully-qualified messaging
// address. Values already carrying a domain part pass through unchanged.
// Separators are stripped; bare national numbers get the country prefix.
func FormatAddress(raw, countryPrefix string) (string, error) {
	if strings.ContainsRune(raw, '@') {
		return raw, nil
	}
	var digits strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	num := digits.String()
	if num == "" {
		return "", fmt.Errorf("messaging: no digits in recipient %q", raw)
	}
	if countryPrefix != "" && !strings.HasPrefix(num, countryPrefix) {
		num = countryPrefix + num
	}
	return num + "@" + DefaultServer, nil
}
