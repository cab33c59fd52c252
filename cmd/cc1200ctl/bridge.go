package main

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/spf13/cobra"
	"golang.org/x/exp/slog"

	"tinygo.org/x/subghz/cc1200"
)

// rxMessage is published for every received packet.
type rxMessage struct {
	Payload string    `json:"payload"` // hex
	RSSI    int8      `json:"rssi"`
	LQI     uint8     `json:"lqi"`
	CRCOK   bool      `json:"crc_ok"`
	At      time.Time `json:"at"`
}

// txRequest is accepted on the tx topic. Hex wins over Text.
type txRequest struct {
	Hex  string `json:"hex"`
	Text string `json:"text"`
}

type statsMessage struct {
	State string `json:"state"`
	cc1200.StreamingStats
}

// publisher is the part of mqtt.Client the bridge publishes through.
type publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// bridge moves packets between the radio and an MQTT broker. The MQTT
// callbacks and the poll loop share the device under mu.
type bridge struct {
	mu     sync.Mutex
	dev    *cc1200.Device
	pub    publisher
	prefix string
	log    *slog.Logger

	buf [cc1200.MaxPacketLength]byte
}

func newBridge(dev *cc1200.Device, pub publisher, prefix string, log *slog.Logger) *bridge {
	return &bridge{dev: dev, pub: pub, prefix: prefix, log: log}
}

func (b *bridge) topic(suffix string) string { return b.prefix + "/" + suffix }

func (b *bridge) publish(suffix string, v interface{}) {
	payload, err := json.Marshal(v)
	if err != nil {
		b.log.Warn("cannot encode message", "topic", suffix, "err", err)
		return
	}
	b.pub.Publish(b.topic(suffix), 1, false, payload)
}

// handleTX sends the packet described by an incoming message and returns the
// radio to RX.
func (b *bridge) handleTX(_ mqtt.Client, m mqtt.Message) {
	var req txRequest
	if err := json.Unmarshal(m.Payload(), &req); err != nil {
		b.log.Warn("cannot decode tx request", "topic", m.Topic(), "err", err)
		return
	}
	payload := []byte(req.Text)
	if req.Hex != "" {
		var err error
		if payload, err = hex.DecodeString(req.Hex); err != nil {
			b.log.Warn("bad tx payload", "err", err)
			return
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.dev.SendCommand(cc1200.SIDLE)
	b.dev.SendCommand(cc1200.SFTX)
	if !b.dev.EnqueuePacket(payload) {
		b.log.Warn("tx request does not fit", "len", len(payload))
		b.dev.SendCommand(cc1200.SRX)
		return
	}
	b.dev.SendCommand(cc1200.STX)
	b.log.Info("bridged packet to radio", "len", len(payload))
}

// poll publishes every packet waiting in the RX FIFO and reports how many
// it found.
func (b *bridge) poll() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := 0
	for b.dev.HasReceivedPacket() {
		l := b.dev.ReceivePacket(b.buf[:])
		st := b.dev.LastPacketStatus()
		b.publish("rx", rxMessage{
			Payload: hex.EncodeToString(b.buf[:l]),
			RSSI:    st.RSSI,
			LQI:     st.LQI,
			CRCOK:   st.CRCOK,
			At:      time.Now(),
		})
		n++
	}
	// after a packet or a FIFO error the radio may have left RX
	b.dev.UpdateState()
	switch b.dev.State() {
	case cc1200.StateRXFIFOError:
		b.dev.SendCommand(cc1200.SFRX)
		b.dev.SendCommand(cc1200.SRX)
	case cc1200.StateIdle:
		b.dev.SendCommand(cc1200.SRX)
	}
	return n
}

func (b *bridge) publishStats() {
	b.mu.Lock()
	s := statsMessage{State: b.dev.State().String(), StreamingStats: b.dev.ContinuousStreamingStats()}
	b.mu.Unlock()
	b.publish("stats", s)
}

// run polls the radio until ctx is done.
func (b *bridge) run(ctx context.Context, every, statsEvery time.Duration) {
	b.mu.Lock()
	b.dev.SendCommand(cc1200.SRX)
	b.mu.Unlock()

	poll := time.NewTicker(every)
	defer poll.Stop()
	stats := time.NewTicker(statsEvery)
	defer stats.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-poll.C:
			b.poll()
		case <-stats.C:
			b.publishStats()
		}
	}
}

// connectMQTT connects to the broker in p and waits for the session.
func connectMQTT(p MQTTProfile) (mqtt.Client, error) {
	id := p.ClientID
	if id == "" {
		hostname, _ := os.Hostname()
		id = "cc1200ctl-" + hostname
	}
	opts := mqtt.NewClientOptions().AddBroker(p.Broker)
	opts.SetClientID(id)
	opts.SetUsername(p.User)
	opts.SetPassword(p.Password)
	opts.SetAutoReconnect(true)

	c := mqtt.NewClient(opts)
	if token := c.Connect(); !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("mqtt connect %s: timeout", p.Broker)
	} else if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", p.Broker, err)
	}
	return c, nil
}

func newBridgeCmd(a *app) *cobra.Command {
	var (
		every      time.Duration
		statsEvery time.Duration
	)
	cmd := &cobra.Command{
		Use:   "bridge",
		Short: "Bridge packets between the radio and an MQTT broker",
		Long: "Publishes received packets on PREFIX/rx and periodic statistics on\n" +
			"PREFIX/stats, and sends the packets published on PREFIX/tx.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := a.radio()
			if err != nil {
				return err
			}
			defer r.close()

			c, err := connectMQTT(a.profile.MQTT)
			if err != nil {
				return err
			}
			defer c.Disconnect(250)
			a.log.Info("mqtt connected", "broker", a.profile.MQTT.Broker)

			b := newBridge(r.dev, c, a.profile.MQTT.Prefix, a.log)
			if token := c.Subscribe(b.topic("tx"), 1, b.handleTX); !token.WaitTimeout(2 * time.Second) {
				return fmt.Errorf("mqtt subscribe %s: timeout", b.topic("tx"))
			} else if err := token.Error(); err != nil {
				return fmt.Errorf("mqtt subscribe %s: %w", b.topic("tx"), err)
			}
			b.run(cmd.Context(), every, statsEvery)
			return nil
		},
	}
	cmd.Flags().DurationVar(&every, "poll", 5*time.Millisecond, "RX FIFO poll period")
	cmd.Flags().DurationVar(&statsEvery, "stats", 10*time.Second, "statistics publish period")
	return cmd
}
