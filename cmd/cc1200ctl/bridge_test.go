package main

import (
	"encoding/json"
	"io"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	qt "github.com/frankban/quicktest"
	"golang.org/x/exp/slog"

	"tinygo.org/x/subghz/cc1200"
	"tinygo.org/x/subghz/tester"
)

type doneToken struct{}

func (doneToken) Wait() bool                     { return true }
func (doneToken) WaitTimeout(time.Duration) bool { return true }
func (doneToken) Error() error                   { return nil }

type published struct {
	topic   string
	payload []byte
}

type fakePublisher struct {
	mu   sync.Mutex
	msgs []published
}

func (p *fakePublisher) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, published{topic, payload.([]byte)})
	return doneToken{}
}

type fakeMessage struct {
	topic   string
	payload []byte
}

func (m fakeMessage) Duplicate() bool   { return false }
func (m fakeMessage) Qos() byte         { return 1 }
func (m fakeMessage) Retained() bool    { return false }
func (m fakeMessage) Topic() string     { return m.topic }
func (m fakeMessage) MessageID() uint16 { return 1 }
func (m fakeMessage) Payload() []byte   { return m.payload }
func (m fakeMessage) Ack()              {}

func newTestBridge(c *qt.C) (*bridge, *fakePublisher, *tester.CC1200) {
	chip := tester.NewCC1200(c)
	d := cc1200.New(chip, chip, chip.CSPin(), chip.ResetPin(), cc1200.Config{})
	c.Assert(defaultProfile().Radio.Apply(d), qt.IsNil)
	pub := &fakePublisher{}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return newBridge(d, pub, "lab", log), pub, chip
}

func TestBridgeTX(t *testing.T) {
	c := qt.New(t)
	b, _, chip := newTestBridge(c)

	b.handleTX(nil, fakeMessage{"lab/tx", []byte(`{"hex":"0102"}`)})
	c.Assert(chip.TXFIFO(), qt.DeepEquals, []byte{2, 1, 2})
	c.Assert(chip.State(), qt.Equals, uint8(tester.StateTX))

	b.handleTX(nil, fakeMessage{"lab/tx", []byte(`{"text":"hi"}`)})
	c.Assert(chip.TXFIFO(), qt.DeepEquals, []byte{2, 'h', 'i'})
}

func TestBridgeTXRejected(t *testing.T) {
	c := qt.New(t)
	b, _, chip := newTestBridge(c)
	chip.ClearLog()

	b.handleTX(nil, fakeMessage{"lab/tx", []byte(`not json`)})
	b.handleTX(nil, fakeMessage{"lab/tx", []byte(`{"hex":"0g"}`)})
	c.Assert(chip.Transactions(), qt.HasLen, 0)

	big, err := json.Marshal(txRequest{Text: string(make([]byte, cc1200.MaxPacketLength))})
	c.Assert(err, qt.IsNil)
	b.handleTX(nil, fakeMessage{"lab/tx", big})
	c.Assert(chip.TXFIFO(), qt.HasLen, 0)
	c.Assert(chip.State(), qt.Equals, uint8(tester.StateRX))
}

func TestBridgePoll(t *testing.T) {
	c := qt.New(t)
	b, pub, chip := newTestBridge(c)

	c.Assert(b.poll(), qt.Equals, 0)
	c.Assert(pub.msgs, qt.HasLen, 0)
	// idle radio is put back in RX
	c.Assert(chip.State(), qt.Equals, uint8(tester.StateRX))

	chip.QueueRX(0x02, 0xaa, 0xbb, 0xba, 0x80|42)
	chip.QueueRX(0x01, 0xcc, 0xc4, 0x05)
	c.Assert(b.poll(), qt.Equals, 2)
	c.Assert(pub.msgs, qt.HasLen, 2)

	var m rxMessage
	c.Assert(pub.msgs[0].topic, qt.Equals, "lab/rx")
	c.Assert(json.Unmarshal(pub.msgs[0].payload, &m), qt.IsNil)
	c.Assert(m.Payload, qt.Equals, "aabb")
	c.Assert(m.RSSI, qt.Equals, int8(-70))
	c.Assert(m.LQI, qt.Equals, uint8(42))
	c.Assert(m.CRCOK, qt.Equals, true)

	c.Assert(json.Unmarshal(pub.msgs[1].payload, &m), qt.IsNil)
	c.Assert(m.Payload, qt.Equals, "cc")
	c.Assert(m.CRCOK, qt.Equals, false)
}

func TestBridgePollFixedLengthPartial(t *testing.T) {
	c := qt.New(t)
	b, pub, chip := newTestBridge(c)
	b.dev.SetPacketMode(cc1200.FixedLength, true)

	chip.QueueRX(0x42)
	c.Assert(b.poll(), qt.Equals, 0)
	c.Assert(pub.msgs, qt.HasLen, 0)
	c.Assert(chip.RXFIFO(), qt.DeepEquals, []byte{0x42})
}

func TestBridgePollRecoversFIFOError(t *testing.T) {
	c := qt.New(t)
	b, _, chip := newTestBridge(c)

	chip.QueueRX(0x09, 1, 2)
	chip.SetState(tester.StateRXFIFOError)
	c.Assert(b.poll(), qt.Equals, 0)
	c.Assert(chip.RXFIFO(), qt.HasLen, 0)
	c.Assert(chip.State(), qt.Equals, uint8(tester.StateRX))
}

func TestBridgeStats(t *testing.T) {
	c := qt.New(t)
	b, pub, _ := newTestBridge(c)

	b.publishStats()
	c.Assert(pub.msgs, qt.HasLen, 1)
	c.Assert(pub.msgs[0].topic, qt.Equals, "lab/stats")

	var s statsMessage
	c.Assert(json.Unmarshal(pub.msgs[0].payload, &s), qt.IsNil)
	c.Assert(s.StreamingStats, qt.Equals, cc1200.StreamingStats{})
	c.Assert(s.State, qt.Not(qt.Equals), "")
}
