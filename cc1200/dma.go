package cc1200

import (
	"sync/atomic"
	"time"
)

const (
	// MaxDMATransfer is the longest single DMA transfer, header byte included.
	MaxDMATransfer = 256

	dmaTimeoutPerByte = 10 * time.Millisecond
	dmaReadyTimeout   = 100 * time.Millisecond
)

// dmaBuffer is a fixed-capacity scratch area for DMA transfers. It is only
// reachable through bounded accessors.
type dmaBuffer struct {
	b [MaxDMATransfer]byte
	n int
}

func (b *dmaBuffer) reset(header byte) {
	b.b[0] = header
	b.n = 1
}

func (b *dmaBuffer) add(p ...byte) bool {
	if b.n+len(p) > len(b.b) {
		return false
	}
	b.n += copy(b.b[b.n:], p)
	return true
}

// pad appends n zero bytes, clocked out while reading.
func (b *dmaBuffer) pad(n int) bool {
	if b.n+n > len(b.b) {
		return false
	}
	clear(b.b[b.n : b.n+n])
	b.n += n
	return true
}

func (b *dmaBuffer) bytes() []byte { return b.b[:b.n] }

// window returns the first n bytes, n capped at the capacity.
func (b *dmaBuffer) window(n int) []byte { return b.b[:min(n, len(b.b))] }

// transfer is the single in-flight DMA transfer slot. The flags are shared
// with interrupt context; everything else is owned by the task side.
type transfer struct {
	inProgress atomic.Bool
	complete   atomic.Bool
	failed     atomic.Bool

	tx dmaBuffer
	rx dmaBuffer
}

// claim reserves the transfer slot. It fails if a transfer is in flight.
func (d *Device) claim() bool {
	if d.dma == nil || !d.xfer.inProgress.CompareAndSwap(false, true) {
		return false
	}
	// A finished streaming RX drain still has its data in the rx buffer.
	d.harvestStreamingRx()
	d.xfer.complete.Store(false)
	d.xfer.failed.Store(false)
	return true
}

// release gives back a claimed slot that was never launched.
func (d *Device) release() {
	d.xfer.inProgress.Store(false)
}

// launch starts a claimed transfer. On a failed start the slot is released.
func (d *Device) launch(w, r []byte) bool {
	d.selectChip()
	if err := d.dma.StartTx(w, r); err != nil {
		d.deselect()
		d.release()
		if d.debug {
			d.dbg("DMA start failed", "len", len(w), "err", err)
		}
		return false
	}
	return true
}

// await waits for a launched transfer of n bytes to finish. On timeout the
// chip is deselected and the slot released; the abandoned transfer may still
// complete later.
func (d *Device) await(n int) bool {
	deadline := time.Now().Add(time.Duration(n) * dmaTimeoutPerByte)
	for {
		if d.xfer.complete.Load() {
			return true
		}
		if d.xfer.failed.Load() {
			d.warn("DMA transfer error", "len", n)
			return false
		}
		if time.Now().After(deadline) {
			d.deselect()
			d.release()
			d.warn("DMA transfer timeout", "len", n)
			return false
		}
		time.Sleep(time.Millisecond)
	}
}

func validTransfer(w, r []byte) bool {
	return len(w) > 0 && len(w) <= MaxDMATransfer && len(r) >= len(w)
}

// TransferDMA exchanges w for r[:len(w)] using DMA and waits for the
// transfer to finish. The chip select is asserted for the whole transfer, so
// w must start with a header byte. It fails if another transfer is in flight.
func (d *Device) TransferDMA(w, r []byte) bool {
	if !validTransfer(w, r) || !d.claim() {
		return false
	}
	if !d.launch(w, r[:len(w)]) {
		return false
	}
	return d.await(len(w))
}

// TransferDMANonBlocking starts a DMA exchange and returns immediately. The
// buffers must stay untouched until IsDMAComplete reports true. It fails
// without side effects if another transfer is in flight.
func (d *Device) TransferDMANonBlocking(w, r []byte) bool {
	if !validTransfer(w, r) || !d.claim() {
		return false
	}
	return d.launch(w, r[:len(w)])
}

// IsDMAComplete reports whether no DMA transfer is in flight.
func (d *Device) IsDMAComplete() bool {
	return !d.xfer.inProgress.Load()
}

// DMAFailed reports whether the last finished DMA transfer ended in error.
func (d *Device) DMAFailed() bool {
	return d.xfer.failed.Load()
}

// DMAComplete must be called by the host when the bus signals completion of a
// transfer started by this Device. It is safe to call from interrupt context.
func (d *Device) DMAComplete() {
	// Release the chip before the slot, so a transfer claimed right after
	// cannot be deselected by us.
	d.deselect()
	d.xfer.complete.Store(true)
	d.xfer.inProgress.Store(false)
}

// DMAError must be called by the host when the bus signals an error for a
// transfer started by this Device. It is safe to call from interrupt context.
func (d *Device) DMAError() {
	d.deselect()
	d.xfer.failed.Store(true)
	d.xfer.inProgress.Store(false)
}

// waitReady polls the status until the chip reports ready.
func (d *Device) waitReady(timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for {
		d.UpdateState()
		if d.chipReady {
			return true
		}
		if time.Now().After(deadline) {
			d.warn("timeout waiting for chip ready")
			return false
		}
		time.Sleep(time.Millisecond)
	}
}

// The DMA packet and stream paths claim the transfer slot before touching
// the bus, so a call made while a transfer is in flight fails without
// clocking anything into it.

// EnqueuePacketDMA is EnqueuePacket with the FIFO write done by DMA.
func (d *Device) EnqueuePacketDMA(payload []byte) bool {
	total := len(payload) + 1
	if total > MaxPacketLength {
		d.warn("packet too long", "len", len(payload), "max", MaxPacketLength-1)
		return false
	}
	if !d.claim() {
		return false
	}
	if !d.waitReady(dmaReadyTimeout) || total > d.txFree() {
		d.release()
		return false
	}

	tx, rx := &d.xfer.tx, &d.xfer.rx
	tx.reset(ENQUEUE_TX | SPI_BURST)
	if d.packetMode == VariableLength {
		tx.add(byte(len(payload)))
	}
	tx.add(payload...)
	w := tx.bytes()
	if !d.launch(w, rx.window(len(w))) || !d.await(len(w)) {
		return false
	}
	d.loadStatus(rx.b[0])
	return true
}

// ReceivePacketDMA is ReceivePacket with the FIFO read done by DMA.
func (d *Device) ReceivePacketDMA(buf []byte) int {
	if !d.claim() {
		return 0
	}
	payload, total, ok := d.pendingPacket()
	if !ok {
		d.release()
		return 0
	}

	tx, rx := &d.xfer.tx, &d.xfer.rx
	tx.reset(DEQUEUE_RX | SPI_BURST)
	tx.pad(total)
	w := tx.bytes()
	if !d.launch(w, rx.window(len(w))) || !d.await(len(w)) {
		return 0
	}
	d.loadStatus(rx.b[0])

	data := rx.b[1 : 1+total]
	if d.packetMode == VariableLength {
		data = data[1:]
	}
	if d.appendStatus && len(data) >= payload+PacketStatusLen {
		d.lastPktStat = decodePacketStatus(data[payload], data[payload+1])
	}
	return copy(buf, data[:payload])
}

// WriteStreamDMA writes as much of buf as fits in the TX FIFO using DMA.
func (d *Device) WriteStreamDMA(buf []byte) int {
	if len(buf) == 0 || !d.claim() {
		return 0
	}
	n := min(len(buf), d.txFree(), MaxDMATransfer-1)
	if n == 0 {
		d.release()
		return 0
	}
	tx, rx := &d.xfer.tx, &d.xfer.rx
	tx.reset(ENQUEUE_TX | SPI_BURST)
	tx.add(buf[:n]...)
	w := tx.bytes()
	if !d.launch(w, rx.window(len(w))) || !d.await(len(w)) {
		return 0
	}
	d.loadStatus(rx.b[0])
	return n
}

// ReadStreamDMA reads as many bytes as are available, up to len(buf), using DMA.
func (d *Device) ReadStreamDMA(buf []byte) int {
	if len(buf) == 0 || !d.claim() {
		return 0
	}
	n := min(len(buf), d.RXFIFOLen(), FIFOSize)
	if n == 0 {
		d.release()
		return 0
	}
	tx, rx := &d.xfer.tx, &d.xfer.rx
	tx.reset(DEQUEUE_RX | SPI_BURST)
	tx.pad(n)
	w := tx.bytes()
	if !d.launch(w, rx.window(len(w))) || !d.await(len(w)) {
		return 0
	}
	d.loadStatus(rx.b[0])
	return copy(buf, rx.b[1:1+n])
}
