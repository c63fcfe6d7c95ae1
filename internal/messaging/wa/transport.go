// Package wa adapts the whatsmeow client to the messaging.Transport contract.
// The session manager owns reconnection and credential persistence, so the
// client's own auto-reconnect is switched off and every lifecycle event is
// translated onto the manager's event channel.
package wa

import (
	"context"
	"fmt"
	"strings"
	"sync"

	_ "github.com/mattn/go-sqlite3"
	"go.mau.fi/whatsmeow"
	waProto "go.mau.fi/whatsmeow/binary/proto"
	"go.mau.fi/whatsmeow/store"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	waLog "go.mau.fi/whatsmeow/util/log"
	"google.golang.org/protobuf/proto"

	"gymdesk/backend/internal/messaging"
)

// Transport dials WhatsApp through a whatsmeow client backed by a sqlite
// device store. The credential blob handed back through KindCredentials is
// the paired device JID; on reconnect it selects the matching device row so
// the session resumes without a new QR scan.
type Transport struct {
	storePath string
	log       waLog.Logger
}

func NewTransport(storePath string) *Transport {
	return &Transport{storePath: storePath, log: waLog.Noop}
}

// storeDSN accepts either a bare sqlite file path or a complete DSN. Bare
// paths get foreign keys switched on; anything already carrying a scheme or
// query string passes through untouched.
func storeDSN(path string) string {
	if strings.HasPrefix(path, "file:") || strings.Contains(path, "?") {
		return path
	}
	return fmt.Sprintf("file:%s?_foreign_keys=on", path)
}

func (t *Transport) Dial(ctx context.Context, credentials []byte) (messaging.Conn, <-chan messaging.Event, error) {
	container, err := sqlstore.New("sqlite3", storeDSN(t.storePath), t.log)
	if err != nil {
		return nil, nil, fmt.Errorf("open device store: %w", err)
	}

	device, err := t.selectDevice(container, credentials)
	if err != nil {
		return nil, nil, err
	}

	client := whatsmeow.NewClient(device, t.log)
	client.EnableAutoReconnect = false

	conn := &clientConn{client: client}
	eventC := make(chan messaging.Event, 32)

	// The channel closes with the KindClosed event; later client events must
	// not reach it.
	var mu sync.Mutex
	closed := false
	emit := func(ev messaging.Event) {
		mu.Lock()
		defer mu.Unlock()
		if closed {
			return
		}
		eventC <- ev
		if ev.Kind == messaging.KindClosed {
			closed = true
			close(eventC)
		}
	}

	client.AddEventHandler(func(evt interface{}) {
		switch e := evt.(type) {
		case *events.PairSuccess:
			emit(messaging.Event{Kind: messaging.KindCredentials, Credentials: []byte(e.ID.String())})
		case *events.Connected:
			emit(messaging.Event{Kind: messaging.KindConnected})
		case *events.LoggedOut:
			emit(messaging.Event{Kind: messaging.KindClosed, Reason: fmt.Sprintf("logged out: %v", e.Reason), Terminal: true})
		case *events.StreamReplaced:
			emit(messaging.Event{Kind: messaging.KindClosed, Reason: "stream replaced by another client", Terminal: true})
		case *events.Disconnected:
			emit(messaging.Event{Kind: messaging.KindClosed, Reason: "disconnected"})
		case *events.StreamError:
			emit(messaging.Event{Kind: messaging.KindClosed, Reason: fmt.Sprintf("stream error: %s", e.Code)})
		}
	})

	// A device without a stored identity needs a QR pairing pass. The QR
	// channel must be requested before the first Connect.
	if client.Store.ID == nil {
		qrC, err := client.GetQRChannel(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("request qr channel: %w", err)
		}
		go func() {
			for item := range qrC {
				if item.Event == "code" {
					emit(messaging.Event{Kind: messaging.KindQR, QRCode: item.Code})
				}
			}
		}()
	}

	if err := client.Connect(); err != nil {
		return nil, nil, fmt.Errorf("connect: %w", err)
	}
	return conn, eventC, nil
}

// selectDevice resumes the device named by the credential blob, falling back
// to a fresh device (and therefore a new QR pairing) when the blob is absent
// or no longer matches a stored device.
func (t *Transport) selectDevice(container *sqlstore.Container, credentials []byte) (*store.Device, error) {
	if len(credentials) == 0 {
		return container.NewDevice(), nil
	}
	jid, err := types.ParseJID(string(credentials))
	if err != nil {
		t.log.Warnf("stored credentials unparseable, pairing fresh: %v", err)
		return container.NewDevice(), nil
	}
	device, err := container.GetDevice(jid)
	if err != nil {
		return nil, fmt.Errorf("load device %s: %w", jid, err)
	}
	if device == nil {
		t.log.Warnf("device %s not in store, pairing fresh", jid)
		return container.NewDevice(), nil
	}
	return device, nil
}

type clientConn struct {
	client *whatsmeow.Client
}

func (c *clientConn) Send(ctx context.Context, address, text string) error {
	jid, err := types.ParseJID(address)
	if err != nil {
		return fmt.Errorf("parse recipient %q: %w", address, err)
	}
	_, err = c.client.SendMessage(ctx, jid, &waProto.Message{
		Conversation: proto.String(text),
	})
	return err
}

func (c *clientConn) Close() error {
	c.client.Disconnect()
	return nil
}
