package cc1200

import (
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestSetRadioFrequency(t *testing.T) {
	c := qt.New(t)
	d, chip := newTestDevice(c, Config{})
	chip.SetReg(uint8(REG_FS_CFG), 0x10)

	s, ok := d.SetRadioFrequency(Band410To480MHz, 433.92e6)
	c.Assert(ok, qt.Equals, true)
	c.Assert(chip.ExtReg(0x0c), qt.Equals, uint8(s.Word>>16))
	c.Assert(chip.ExtReg(0x0d), qt.Equals, uint8(s.Word>>8))
	c.Assert(chip.ExtReg(0x0e), qt.Equals, uint8(s.Word))
	c.Assert(chip.Reg(uint8(REG_FS_CFG)), qt.Equals, uint8(0x11))
	c.Assert(d.Frequency(), qt.Equals, s.Actual)

	_, ok = d.SetRadioFrequency(Band(9), 433.92e6)
	c.Assert(ok, qt.Equals, false)
	c.Assert(d.Frequency(), qt.Equals, s.Actual)
}

func TestSetSymbolRate(t *testing.T) {
	c := qt.New(t)
	d, chip := newTestDevice(c, Config{})

	s := d.SetSymbolRate(50000)
	regs := s.Regs()
	c.Assert(chip.LastTransaction(), qt.DeepEquals, []byte{0x40 | uint8(REG_SYMBOL_RATE2), regs[0], regs[1], regs[2]})
	c.Assert(chip.Reg(uint8(REG_SYMBOL_RATE2)), qt.Equals, regs[0])
	c.Assert(chip.Reg(uint8(REG_SYMBOL_RATE1)), qt.Equals, regs[1])
	c.Assert(chip.Reg(uint8(REG_SYMBOL_RATE0)), qt.Equals, regs[2])
	c.Assert(d.SymbolRate(), qt.Equals, s.Actual)
}

func TestSetFSKDeviationKeepsModulation(t *testing.T) {
	c := qt.New(t)
	d, chip := newTestDevice(c, Config{})

	d.SetModulationFormat(Mod4GFSK)
	d.SetFSKDeviation(20e3)
	c.Assert(chip.Reg(uint8(REG_DEVIATION_M)), qt.Equals, uint8(131))
	c.Assert(chip.Reg(uint8(REG_MODCFG_DEV_E)), qt.Equals, uint8(0b101<<3|1))
}

func TestSetRXFilterBandwidth(t *testing.T) {
	c := qt.New(t)
	d, chip := newTestDevice(c, Config{})

	s := d.SetRXFilterBandwidth(78125, true)
	c.Assert(chip.Reg(uint8(REG_CHAN_BW)), qt.Equals, s.Reg())
	c.Assert(d.RXBandwidth(), qt.Equals, 78125.0)
}

func TestPowerSettings(t *testing.T) {
	c := qt.New(t)
	d, chip := newTestDevice(c, Config{})
	chip.SetReg(uint8(REG_PA_CFG1), 0x40)

	d.SetOutputPower(0)
	c.Assert(chip.Reg(uint8(REG_PA_CFG1)), qt.Equals, uint8(0x40|32))

	hi, lo := d.SetASKPowers(14, -16)
	c.Assert(hi.Reg, qt.Equals, uint8(60))
	c.Assert(lo.Reg, qt.Equals, uint8(0))
	c.Assert(chip.Reg(uint8(REG_PA_CFG1)), qt.Equals, uint8(0x40|60))
	c.Assert(chip.Reg(uint8(REG_ASK_CFG)), qt.Equals, uint8(0))

	d.SetPARampRate(1, 2, RampTime12_5ns)
	c.Assert(chip.Reg(uint8(REG_PA_CFG0)), qt.Equals, uint8(2<<4|2<<2|1))
	d.DisablePARamping()
	c.Assert(chip.Reg(uint8(REG_PA_CFG0)), qt.Equals, uint8(0))
}

func TestSetPacketMode(t *testing.T) {
	c := qt.New(t)
	d, chip := newTestDevice(c, Config{})
	chip.SetReg(uint8(REG_PKT_CFG1), 0x04)

	d.SetPacketMode(VariableLength, true)
	c.Assert(chip.Reg(uint8(REG_PKT_CFG0)), qt.Equals, uint8(0x20))
	c.Assert(chip.Reg(uint8(REG_PKT_CFG1)), qt.Equals, uint8(0x05))

	d.SetPacketMode(FixedLength, false)
	c.Assert(chip.Reg(uint8(REG_PKT_CFG0)), qt.Equals, uint8(0x00))
	c.Assert(chip.Reg(uint8(REG_PKT_CFG1)), qt.Equals, uint8(0x04))

	d.SetCRCEnabled(false)
	c.Assert(chip.Reg(uint8(REG_PKT_CFG1)), qt.Equals, uint8(0x00))

	d.SetPacketLength(0xff)
	c.Assert(chip.Reg(uint8(REG_PKT_LEN)), qt.Equals, uint8(0xff))

	d.ConfigureFIFO(0x7f, true)
	c.Assert(chip.Reg(uint8(REG_FIFO_CFG)), qt.Equals, uint8(0xff))
}

func TestConfigureSyncWordAndPreamble(t *testing.T) {
	c := qt.New(t)
	d, chip := newTestDevice(c, Config{})

	d.ConfigureSyncWord(0x930b51de, Sync32Bits, 10)
	c.Assert(chip.Reg(uint8(REG_SYNC3)), qt.Equals, uint8(0x93))
	c.Assert(chip.Reg(uint8(REG_SYNC0)), qt.Equals, uint8(0xde))
	c.Assert(chip.Reg(uint8(REG_SYNC_CFG0)), qt.Equals, uint8(5<<2))
	c.Assert(chip.Reg(uint8(REG_SYNC_CFG1)), qt.Equals, uint8(10))

	d.ConfigurePreamble(0b0101, 0b10)
	c.Assert(chip.Reg(uint8(REG_PREAMBLE_CFG1)), qt.Equals, uint8(0b0101<<2|0b10))
}

func TestConfigureGPIO(t *testing.T) {
	c := qt.New(t)
	d, chip := newTestDevice(c, Config{})

	c.Assert(d.ConfigureGPIO(0, GPIOPktSyncRXTX, false), qt.Equals, true)
	c.Assert(chip.Reg(uint8(REG_IOCFG0)), qt.Equals, uint8(6))
	c.Assert(d.ConfigureGPIO(3, GPIOCRCOK, true), qt.Equals, true)
	c.Assert(chip.Reg(uint8(REG_IOCFG3)), qt.Equals, uint8(0x40|7))
	c.Assert(d.ConfigureGPIO(4, GPIOCRCOK, true), qt.Equals, false)
}

func TestOffStates(t *testing.T) {
	c := qt.New(t)
	d, chip := newTestDevice(c, Config{})

	d.SetOnReceiveState(StateRX, StateRX)
	c.Assert(chip.Reg(uint8(REG_RFEND_CFG1)), qt.Equals, uint8(3<<4))
	c.Assert(chip.Reg(uint8(REG_RFEND_CFG0)), qt.Equals, uint8(RFEND_CFG0_TERM_ON_BAD_PK))

	d.SetOnTransmitState(StateFastOn)
	c.Assert(chip.Reg(uint8(REG_RFEND_CFG0)), qt.Equals, uint8(1<<4|RFEND_CFG0_TERM_ON_BAD_PK))

	d.SetOnReceiveState(StateCalibrate, StateIdle)
	c.Assert(chip.Reg(uint8(REG_RFEND_CFG1)), qt.Equals, uint8(0))
	c.Assert(chip.Reg(uint8(REG_RFEND_CFG0)), qt.Equals, uint8(1<<4))
}

func TestAGCSettings(t *testing.T) {
	c := qt.New(t)
	d, chip := newTestDevice(c, Config{})

	d.SetAGCReferenceLevel(0x20)
	d.SetAGCSyncBehaviour(AGCSyncFreezeBoth)
	d.SetAGCGainRange(0x11, 0x04)
	d.SetAGCHysteresis(2)
	d.SetAGCSlewRate(1)
	d.SetAGCSettleWait(3)
	d.SetRSSIOffset(-3)
	d.SetFSCalMode(FSCalFromIdle)

	c.Assert(chip.Reg(uint8(REG_AGC_REF)), qt.Equals, uint8(0x20))
	c.Assert(chip.Reg(uint8(REG_AGC_CFG3)), qt.Equals, uint8(0b011<<5|0x11))
	c.Assert(chip.Reg(uint8(REG_AGC_CFG2)), qt.Equals, uint8(0x04))
	c.Assert(chip.Reg(uint8(REG_AGC_CFG0)), qt.Equals, uint8(2<<6|1<<4))
	c.Assert(chip.Reg(uint8(REG_AGC_CFG1)), qt.Equals, uint8(3))
	c.Assert(chip.Reg(uint8(REG_AGC_GAIN_ADJUST)), qt.Equals, uint8(0xfd))
	c.Assert(chip.Reg(uint8(REG_SETTLING_CFG)), qt.Equals, uint8(1<<3))
}

func TestConfigureDCFilter(t *testing.T) {
	c := qt.New(t)
	d, chip := newTestDevice(c, Config{})

	d.ConfigureDCFilter(true, 1, 4)
	c.Assert(chip.LastTransaction(), qt.DeepEquals, []byte{0x0c, 0x40 | 1<<3 | 4})

	// out of range codes are masked to their field
	d.ConfigureDCFilter(false, 0xff, 0x0a)
	c.Assert(chip.Reg(uint8(REG_DCFILT_CFG)), qt.Equals, uint8(0b111<<3|0b010))
}

func TestSetIFConfig(t *testing.T) {
	c := qt.New(t)
	d, chip := newTestDevice(c, Config{})
	chip.SetExtReg(REG_IF_MIX_CFG.Addr(), 0x03)
	chip.SetReg(uint8(REG_IQIC), 0x46)

	d.SetIFConfig(IFMinusDiv8, true)
	c.Assert(chip.ExtReg(0x00), qt.Equals, uint8(0b011<<2|0x03))
	c.Assert(chip.Reg(uint8(REG_IQIC)), qt.Equals, uint8(0x80|0x46))

	d.SetIFConfig(IFZero, false)
	c.Assert(chip.ExtReg(0x00), qt.Equals, uint8(0x03))
	c.Assert(chip.Reg(uint8(REG_IQIC)), qt.Equals, uint8(0x46))
}

func TestSignalQuality(t *testing.T) {
	c := qt.New(t)
	d, chip := newTestDevice(c, Config{})

	// -100.5 dBm: 12-bit value 0x9b8
	chip.SetExtReg(0x71, 0x9b)
	chip.SetExtReg(0x72, 0x8<<3|RSSI0_VALID)
	dbm, valid := d.RSSI()
	c.Assert(dbm, qt.Equals, -100.5)
	c.Assert(valid, qt.Equals, true)

	chip.SetExtReg(0x72, 0)
	_, valid = d.RSSI()
	c.Assert(valid, qt.Equals, false)

	chip.SetExtReg(0x74, 0x80|0x33)
	lqi, crcOK := d.LQI()
	c.Assert(lqi, qt.Equals, uint8(0x33))
	c.Assert(crcOK, qt.Equals, true)

	c.Assert(d.IsFSLocked(), qt.Equals, false)
	chip.SetExtReg(0x8d, FSCAL_CTRL_LOCK)
	c.Assert(d.IsFSLocked(), qt.Equals, true)
}
