package cc1200

// -------------------
// Register access
// -------------------

// header selects the register r for a single or burst access. Extended
// registers are reached through the EXT_ADDR escape followed by the address.
// The byte clocked in during the header is always the chip status.
func (d *Device) header(r Register, flags byte) {
	if r.Space() == Extended {
		d.loadStatus(d.exchange(EXT_ADDR | flags))
		d.exchange(r.Addr())
		return
	}
	d.loadStatus(d.exchange(r.Addr() | flags))
}

// ReadRegister reads a single register from either space.
func (d *Device) ReadRegister(r Register) uint8 {
	d.selectChip()
	d.header(r, SPI_READ)
	v := d.exchange(0)
	d.deselect()
	return v
}

// WriteRegister writes a single register in either space.
func (d *Device) WriteRegister(r Register, value uint8) {
	d.selectChip()
	d.header(r, SPI_WRITE)
	d.loadStatus(d.exchange(value))
	d.deselect()
}

// ReadRegisters fills buf with consecutive registers starting at start, using
// a single burst transaction.
func (d *Device) ReadRegisters(start Register, buf []byte) {
	if len(buf) == 0 {
		return
	}
	d.selectChip()
	d.header(start, SPI_READ|SPI_BURST)
	for i := range buf {
		buf[i] = d.exchange(0)
	}
	d.deselect()
}

// WriteRegisters writes values to consecutive registers starting at start,
// using a single burst transaction.
func (d *Device) WriteRegisters(start Register, values []byte) {
	if len(values) == 0 {
		return
	}
	d.selectChip()
	d.header(start, SPI_WRITE|SPI_BURST)
	for _, v := range values {
		d.loadStatus(d.exchange(v))
	}
	d.deselect()
}

// updateRegister replaces the bits of r selected by mask with value.
func (d *Device) updateRegister(r Register, mask, value uint8) {
	old := d.ReadRegister(r)
	d.WriteRegister(r, old&^mask|value&mask)
}

// SendCommand strobes a command. The cached status reflects the state the
// chip was in when the strobe was clocked in.
func (d *Device) SendCommand(cmd Command) {
	d.selectChip()
	d.loadStatus(d.exchange(uint8(cmd)))
	d.deselect()
}

// readFIFOMemory reads a FIFO byte by address without moving any pointers.
func (d *Device) readFIFOMemory(fifo, addr uint8) uint8 {
	d.selectChip()
	d.loadStatus(d.exchange(MEM_ACCESS | SPI_READ))
	d.exchange(fifo | addr&(FIFOSize-1))
	v := d.exchange(0)
	d.deselect()
	return v
}

// peekRXFIFO returns the byte offset positions past the RX FIFO head.
func (d *Device) peekRXFIFO(offset uint8) uint8 {
	first := d.ReadRegister(REG_RXFIRST)
	return d.readFIFOMemory(MEM_RX_FIFO, first+offset)
}

// TXFIFOLen returns the number of bytes waiting in the TX FIFO.
func (d *Device) TXFIFOLen() int {
	return int(d.ReadRegister(REG_NUM_TXBYTES))
}

// RXFIFOLen returns the number of bytes waiting in the RX FIFO.
func (d *Device) RXFIFOLen() int {
	return int(d.ReadRegister(REG_NUM_RXBYTES))
}

func (d *Device) txFree() int {
	n := FIFOSize - d.TXFIFOLen()
	if n < 0 {
		return 0
	}
	return n
}
