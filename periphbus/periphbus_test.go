package periphbus

import (
	"sync/atomic"
	"testing"

	qt "github.com/frankban/quicktest"
	"periph.io/x/conn/v3/conntest"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"

	"tinygo.org/x/subghz/cc1200"
)

func TestTransfer(t *testing.T) {
	c := qt.New(t)
	p := &conntest.Playback{
		Ops: []conntest.IO{
			{W: []byte{0x3d}, R: []byte{0x0f}},
			{W: []byte{0xaa, 0x55}, R: []byte{0x01, 0x02}},
		},
		DontPanic: true,
	}
	b := New(p)

	r, err := b.Transfer(0x3d)
	c.Assert(err, qt.IsNil)
	c.Assert(r, qt.Equals, byte(0x0f))

	buf := make([]byte, 2)
	c.Assert(b.Tx([]byte{0xaa, 0x55}, buf), qt.IsNil)
	c.Assert(buf, qt.DeepEquals, []byte{0x01, 0x02})
	c.Assert(p.Close(), qt.IsNil)

	_, err = b.Transfer(0)
	c.Assert(err, qt.Not(qt.IsNil))
}

func TestStartTx(t *testing.T) {
	c := qt.New(t)
	p := &conntest.Playback{
		Ops:       []conntest.IO{{W: []byte{1, 2, 3}, R: []byte{4, 5, 6}}},
		DontPanic: true,
	}
	b := New(p)

	c.Assert(b.StartTx([]byte{1}, nil), qt.Equals, errShortRead)
	c.Assert(b.StartTx([]byte{1}, make([]byte, 1)), qt.Equals, errNoHandler)

	var completed, failed atomic.Int32
	b.HandleDMA(func() { completed.Add(1) }, func() { failed.Add(1) })

	r := make([]byte, 4)
	c.Assert(b.StartTx([]byte{1, 2, 3}, r), qt.IsNil)
	b.Wait()
	c.Assert(completed.Load(), qt.Equals, int32(1))
	c.Assert(r, qt.DeepEquals, []byte{4, 5, 6, 0})

	// the playback is exhausted
	c.Assert(b.StartTx([]byte{1}, make([]byte, 1)), qt.IsNil)
	b.Wait()
	c.Assert(failed.Load(), qt.Equals, int32(1))
	c.Assert(completed.Load(), qt.Equals, int32(1))
}

func TestPin(t *testing.T) {
	c := qt.New(t)
	g := &gpiotest.Pin{N: "CS", L: gpio.Low}
	p := Pin{g}

	p.High()
	c.Assert(g.Read(), qt.Equals, gpio.High)
	p.Low()
	c.Assert(g.Read(), qt.Equals, gpio.Low)
}

func TestDriverOverPlayback(t *testing.T) {
	c := qt.New(t)
	p := &conntest.Playback{
		Ops: []conntest.IO{
			// PKT_LEN read
			{W: []byte{0xae}, R: []byte{0x00}},
			{W: []byte{0x00}, R: []byte{0x7f}},
			// PARTNUMBER read through the extended escape
			{W: []byte{0xaf}, R: []byte{0x10}},
			{W: []byte{0x8f}, R: []byte{0x10}},
			{W: []byte{0x00}, R: []byte{0x20}},
		},
		DontPanic: true,
	}
	cs := &gpiotest.Pin{N: "CS", L: gpio.High}
	b := New(p)
	d := cc1200.New(b, b, Pin{cs}, Pin{&gpiotest.Pin{N: "RST"}}, cc1200.Config{})
	b.HandleDMA(d.DMAComplete, d.DMAError)

	c.Assert(d.ReadRegister(cc1200.REG_PKT_LEN), qt.Equals, uint8(0x7f))
	c.Assert(d.State(), qt.Equals, cc1200.StateIdle)
	c.Assert(d.ReadRegister(cc1200.REG_PARTNUMBER), qt.Equals, uint8(cc1200.PART_NUMBER_1200))
	c.Assert(d.State(), qt.Equals, cc1200.StateRX)
	c.Assert(cs.Read(), qt.Equals, gpio.High)
	c.Assert(p.Close(), qt.IsNil)
}
