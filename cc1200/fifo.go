package cc1200

import (
	"encoding/hex"
	"time"
)

// PacketStatus is the pair of status bytes the chip appends to a received
// packet when enabled with SetPacketMode.
type PacketStatus struct {
	RSSI  int8 // dBm, integer part
	LQI   uint8
	CRCOK bool
}

func decodePacketStatus(rssi, lqi byte) PacketStatus {
	return PacketStatus{
		RSSI:  int8(rssi),
		LQI:   lqi & LQI_VAL_LQI_MSK,
		CRCOK: lqi&LQI_VAL_CRC_OK != 0,
	}
}

// LastPacketStatus returns the status bytes of the last packet received with
// status appending enabled.
func (d *Device) LastPacketStatus() PacketStatus { return d.lastPktStat }

func (d *Device) statusLen() int {
	if d.appendStatus {
		return PacketStatusLen
	}
	return 0
}

// EnqueuePacket writes a packet into the TX FIFO, prefixed by its length in
// variable length mode. Nothing is written unless the whole packet fits.
func (d *Device) EnqueuePacket(payload []byte) bool {
	total := len(payload) + 1
	if total > MaxPacketLength {
		d.warn("packet too long", "len", len(payload), "max", MaxPacketLength-1)
		return false
	}
	if free := d.txFree(); total > free {
		if d.debug {
			d.dbg("TX FIFO full", "len", len(payload), "free", free)
		}
		return false
	}

	d.selectChip()
	d.loadStatus(d.exchange(ENQUEUE_TX | SPI_BURST))
	if d.packetMode == VariableLength {
		d.loadStatus(d.exchange(byte(len(payload))))
	}
	for _, b := range payload {
		d.loadStatus(d.exchange(b))
	}
	d.deselect()

	if d.debug {
		d.dbg("enqueued packet", "len", len(payload), "data", hex.EncodeToString(payload))
	}
	return true
}

// pendingPacket inspects the RX FIFO without consuming it. It returns the
// payload length of the packet at the head and the number of FIFO bytes the
// packet occupies, length byte and status bytes included.
func (d *Device) pendingPacket() (payload, total int, ok bool) {
	n := d.RXFIFOLen()
	if n == 0 {
		return 0, 0, false
	}
	status := d.statusLen()

	if d.packetMode == FixedLength {
		if plen := int(d.ReadRegister(REG_PKT_LEN)); plen > 0 && plen+status <= FIFOSize {
			total = plen + status
			return plen, total, n >= total
		}
		// PKT_LEN cannot describe a FIFO-sized packet: the whole FIFO
		// content is the packet, once there is payload past the status bytes
		return n - status, n, n > status
	}

	payload = int(d.peekRXFIFO(0))
	total = payload + 1 + status
	return payload, total, n >= total
}

// HasReceivedPacket reports whether a complete packet is waiting in the RX FIFO.
func (d *Device) HasReceivedPacket() bool {
	_, _, ok := d.pendingPacket()
	return ok
}

// ReceivePacket dequeues one packet and copies up to len(buf) bytes of its
// payload into buf, returning the number of bytes copied. The rest of the
// packet is always read and discarded so the next packet starts at the FIFO
// head. It returns 0 with the FIFO untouched when no complete packet is waiting.
func (d *Device) ReceivePacket(buf []byte) int {
	payload, total, ok := d.pendingPacket()
	if !ok {
		return 0
	}
	n := min(payload, len(buf))

	d.selectChip()
	d.loadStatus(d.exchange(DEQUEUE_RX | SPI_BURST))
	read := 0
	if d.packetMode == VariableLength {
		d.exchange(0)
		read++
	}
	for i := 0; i < n; i++ {
		buf[i] = d.exchange(0)
	}
	read += n
	for ; read < total-d.statusLen(); read++ {
		d.exchange(0)
	}
	if d.appendStatus && read+PacketStatusLen <= total {
		rssi := d.exchange(0)
		lqi := d.exchange(0)
		d.lastPktStat = decodePacketStatus(rssi, lqi)
	}
	d.deselect()

	if d.debug {
		d.dbg("received packet", "len", payload, "data", hex.EncodeToString(buf[:n]))
	}
	return n
}

// WriteStream writes as much of buf as fits in the TX FIFO, without framing.
func (d *Device) WriteStream(buf []byte) int {
	n := min(len(buf), d.txFree())
	if n == 0 {
		return 0
	}
	d.selectChip()
	d.loadStatus(d.exchange(ENQUEUE_TX | SPI_BURST))
	for _, b := range buf[:n] {
		d.loadStatus(d.exchange(b))
	}
	d.deselect()
	return n
}

// ReadStream reads as many bytes as are available, up to len(buf), without framing.
func (d *Device) ReadStream(buf []byte) int {
	n := min(len(buf), d.RXFIFOLen(), FIFOSize)
	if n == 0 {
		return 0
	}
	d.selectChip()
	d.loadStatus(d.exchange(DEQUEUE_RX | SPI_BURST))
	for i := range buf[:n] {
		buf[i] = d.exchange(0)
	}
	d.deselect()
	return n
}

// WriteStreamBlocking writes all of buf, waiting for FIFO space as needed. It
// gives up after timeout; a zero timeout waits forever.
func (d *Device) WriteStreamBlocking(buf []byte, timeout time.Duration) bool {
	return d.streamBlocking(buf, timeout, d.WriteStream)
}

// ReadStreamBlocking fills buf, waiting for received bytes as needed. It gives
// up after timeout; a zero timeout waits forever.
func (d *Device) ReadStreamBlocking(buf []byte, timeout time.Duration) bool {
	return d.streamBlocking(buf, timeout, d.ReadStream)
}

func (d *Device) streamBlocking(buf []byte, timeout time.Duration, step func([]byte) int) bool {
	deadline := time.Now().Add(timeout)
	done := 0
	for {
		done += step(buf[done:])
		if done == len(buf) {
			return true
		}
		if timeout > 0 && time.Now().After(deadline) {
			if d.debug {
				d.dbg("stream timeout", "moved", done, "wanted", len(buf))
			}
			return false
		}
		time.Sleep(time.Millisecond)
	}
}
