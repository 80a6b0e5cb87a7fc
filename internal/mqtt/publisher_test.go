package mqtt

import (
	"io"
	"log/slog"
	"testing"
)

type stubMessage struct {
	topic   string
	payload []byte
}

func (m stubMessage) Duplicate() bool   { return false }
func (m stubMessage) Qos() byte         { return 1 }
func (m stubMessage) Retained() bool    { return false }
func (m stubMessage) Topic() string     { return m.topic }
func (m stubMessage) MessageID() uint16 { return 0 }
func (m stubMessage) Payload() []byte   { return m.payload }
func (m stubMessage) Ack()              {}

func newTestPublisher() *Publisher {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewPublisher(Config{BrokerURL: "tcp://localhost:1883", TopicPrefix: "domo"}, logger)
}

func TestStateSubscriptionTracksLastReport(t *testing.T) {
	p := newTestPublisher()

	if _, ok := p.LastState("luz_sala"); ok {
		t.Fatalf("state present before any report")
	}

	p.handleState(nil, stubMessage{topic: TopicDeviceStateFor("domo", "luz_sala"), payload: []byte(" on \n")})
	st, ok := p.LastState("luz_sala")
	if !ok {
		t.Fatalf("reported state not tracked")
	}
	if st.DeviceKey != "luz_sala" || st.Payload != "on" {
		t.Fatalf("state = %+v, want luz_sala/on", st)
	}
	if st.SeenAt.IsZero() {
		t.Fatalf("SeenAt not stamped")
	}

	p.handleState(nil, stubMessage{topic: TopicDeviceStateFor("domo", "luz_sala"), payload: []byte("off")})
	if st, _ = p.LastState("luz_sala"); st.Payload != "off" {
		t.Fatalf("state not overwritten, payload = %q", st.Payload)
	}
}

func TestStateSubscriptionIgnoresForeignTopics(t *testing.T) {
	p := newTestPublisher()

	p.handleState(nil, stubMessage{topic: "other/device/luz_sala/state", payload: []byte("on")})
	p.handleState(nil, stubMessage{topic: "domo/terminal/x/state", payload: []byte("on")})
	if _, ok := p.LastState("luz_sala"); ok {
		t.Fatalf("state tracked from a topic outside the device namespace")
	}
}

func TestPublisherEnabled(t *testing.T) {
	if !newTestPublisher().Enabled() {
		t.Fatalf("configured publisher reports disabled")
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if NewPublisher(Config{}, logger).Enabled() {
		t.Fatalf("publisher without broker reports enabled")
	}
}
