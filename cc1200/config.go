package cc1200

// ModFormat is the MODCFG_DEV_E.MOD_FORMAT modulation setting.
type ModFormat uint8

const (
	Mod2FSK  ModFormat = 0b000
	Mod2GFSK ModFormat = 0b001
	ModASK   ModFormat = 0b011 // ASK/OOK
	Mod4FSK  ModFormat = 0b100
	Mod4GFSK ModFormat = 0b101
)

// FSCalMode selects when the frequency synthesizer calibrates itself.
type FSCalMode uint8

const (
	FSCalNever        FSCalMode = iota // only on SCAL strobe
	FSCalFromIdle                      // going from IDLE to RX or TX
	FSCalToIdle                        // going from RX or TX back to IDLE
	FSCalToIdleEvery4                  // every fourth time back to IDLE
)

// SyncMode is the SYNC_CFG0.SYNC_MODE sync word length.
type SyncMode uint8

const (
	SyncNone SyncMode = iota
	Sync11Bits
	Sync16Bits
	Sync18Bits
	Sync24Bits
	Sync32Bits
	Sync16BitsDualH
	Sync16BitsDualD
)

// GPIOMode is the signal routed to a GPIO pin. Only the commonly used values
// are named; any 6-bit IOCFG code may be passed.
type GPIOMode uint8

const (
	GPIORXFIFOThreshold    GPIOMode = 0
	GPIORXFIFOThresholdPkt GPIOMode = 1
	GPIOTXFIFOThreshold    GPIOMode = 2
	GPIOTXFIFOThresholdPkt GPIOMode = 3
	GPIORXFIFOOverflow     GPIOMode = 4
	GPIOTXFIFOUnderflow    GPIOMode = 5
	GPIOPktSyncRXTX        GPIOMode = 6
	GPIOCRCOK              GPIOMode = 7
	GPIOSerialClock        GPIOMode = 8
	GPIOSerialRXData       GPIOMode = 9
	GPIOCarrierSense       GPIOMode = 17
	GPIOHighZ              GPIOMode = 48
)

// RampTime is the PA ramp step time field.
type RampTime uint8

const (
	RampTime3_125ns RampTime = iota
	RampTime6_25ns
	RampTime12_5ns
	RampTime25ns
)

// SyncBehaviour is what the AGC does once a sync word is found.
type SyncBehaviour uint8

const (
	AGCSyncNoAction     SyncBehaviour = 0b000
	AGCSyncFreezeGain   SyncBehaviour = 0b001
	AGCSyncFreezeFilter SyncBehaviour = 0b010
	AGCSyncFreezeBoth   SyncBehaviour = 0b011
)

// IFMode is the IF_MIX_CFG.CMIX_CFG intermediate frequency, a fraction of
// the oscillator over the RX filter decimation factor.
type IFMode uint8

const (
	IFZero      IFMode = 0b000
	IFMinusDiv4 IFMode = 0b001
	IFMinusDiv6 IFMode = 0b010
	IFMinusDiv8 IFMode = 0b011
	IFPlusDiv4  IFMode = 0b101
	IFPlusDiv6  IFMode = 0b110
	IFPlusDiv8  IFMode = 0b111
)

// SetRadioFrequency programs the synthesizer. It fails only for an invalid band.
func (d *Device) SetRadioFrequency(band Band, hz float64) (FrequencySetting, bool) {
	s, ok := EncodeFrequency(band, hz)
	if !ok {
		d.warn("invalid band", "band", uint8(band))
		return s, false
	}

	regs := s.Regs()
	d.WriteRegister(REG_FREQ0, regs[0])
	d.WriteRegister(REG_FREQ1, regs[1])
	d.WriteRegister(REG_FREQ2, regs[2])
	d.updateRegister(REG_FS_CFG, FS_CFG_FSD_BANDSELECT_MSK, band.bandSelect())

	d.frequency = s.Actual
	d.info("set radio frequency", "band", band.String(), "requested", hz, "actual", s.Actual)
	return s, true
}

// SetSymbolRate programs SYMBOL_RATE2..0 in one burst. All three registers
// are rewritten, including the SRATE_M bits held in SYMBOL_RATE2.
func (d *Device) SetSymbolRate(hz float64) SymbolRateSetting {
	s := EncodeSymbolRate(hz)
	regs := s.Regs()
	d.WriteRegisters(REG_SYMBOL_RATE2, regs[:])
	d.symbolRate = s.Actual
	d.info("set symbol rate", "requested", hz, "actual", s.Actual)
	return s
}

// SetFSKDeviation programs the frequency deviation.
func (d *Device) SetFSKDeviation(hz float64) DeviationSetting {
	s := EncodeDeviation(hz)
	d.WriteRegister(REG_DEVIATION_M, s.Mantissa)
	d.updateRegister(REG_MODCFG_DEV_E, MODCFG_DEV_E_DEV_E_MSK, s.Exponent)
	d.info("set FSK deviation", "requested", hz, "actual", s.Actual)
	return s
}

// SetRXFilterBandwidth programs the decimation pair closest to hz.
func (d *Device) SetRXFilterBandwidth(hz float64, preferHigherCIC bool) BandwidthSetting {
	s := EncodeRXBandwidth(hz, preferHigherCIC)
	d.WriteRegister(REG_CHAN_BW, s.Reg())
	d.rxBandwidth = s.Actual
	d.info("set RX filter bandwidth", "requested", hz, "actual", s.Actual,
		"adc", s.ADCDecimation, "cic", s.CICDecimation)
	return s
}

// SetOutputPower sets the PA level, clamped to [MinPower, MaxPower].
func (d *Device) SetOutputPower(dbm float64) PowerSetting {
	s := EncodePower(dbm)
	d.updateRegister(REG_PA_CFG1, PA_CFG1_POWER_MSK, s.Reg)
	d.info("set output power", "requested", dbm, "actual", s.Actual, "reg", s.Reg)
	return s
}

// SetASKPowers sets the on and off levels used for ASK/OOK.
func (d *Device) SetASKPowers(maxDBm, minDBm float64) (hi, lo PowerSetting) {
	hi, lo = EncodePower(maxDBm), EncodePower(minDBm)
	d.updateRegister(REG_PA_CFG1, PA_CFG1_POWER_MSK, hi.Reg)
	d.updateRegister(REG_ASK_CFG, ASK_CFG_DEPTH_MSK, lo.Reg)
	d.info("set ASK powers", "max", hi.Actual, "min", lo.Actual)
	return hi, lo
}

// SetModulationFormat sets MOD_FORMAT.
func (d *Device) SetModulationFormat(f ModFormat) {
	d.updateRegister(REG_MODCFG_DEV_E, MODCFG_DEV_E_MOD_FMT_MK, uint8(f)<<MODCFG_DEV_E_MOD_FORMAT)
}

// SetCRCEnabled turns the CRC16 check on received packets on or off.
func (d *Device) SetCRCEnabled(enabled bool) {
	var v uint8
	if enabled {
		v = 0b01 << PKT_CFG1_CRC_CFG
	}
	d.updateRegister(REG_PKT_CFG1, PKT_CFG1_CRC_CFG_MSK, v)
}

// SetPacketMode selects fixed or variable length framing, and whether the
// chip appends the RSSI and LQI status bytes to received packets.
func (d *Device) SetPacketMode(mode PacketMode, appendStatus bool) {
	d.packetMode = mode
	d.appendStatus = appendStatus

	var lengthCfg uint8
	if mode == VariableLength {
		lengthCfg = 0b01 << PKT_CFG0_LENGTH_CONFIG
	}
	d.updateRegister(REG_PKT_CFG0, PKT_CFG0_LENGTH_MSK, lengthCfg)

	var status uint8
	if appendStatus {
		status = PKT_CFG1_APPEND_STATUS
	}
	d.updateRegister(REG_PKT_CFG1, PKT_CFG1_APPEND_STATUS, status)
}

// PacketMode returns the current framing.
func (d *Device) PacketMode() (mode PacketMode, appendStatus bool) {
	return d.packetMode, d.appendStatus
}

// SetPacketLength sets PKT_LEN: the packet length in fixed mode, the maximum
// accepted length in variable mode.
func (d *Device) SetPacketLength(length uint8) {
	d.WriteRegister(REG_PKT_LEN, length)
}

// ConfigureFIFO sets the FIFO threshold and whether packets failing CRC are
// flushed from the RX FIFO.
func (d *Device) ConfigureFIFO(threshold uint8, crcAutoflush bool) {
	v := threshold & FIFO_CFG_THR_MSK
	if crcAutoflush {
		v |= FIFO_CFG_CRC_AUTOFLUSH
	}
	d.WriteRegister(REG_FIFO_CFG, v)
}

// SetFSCalMode sets the synthesizer autocalibration policy.
func (d *Device) SetFSCalMode(mode FSCalMode) {
	d.updateRegister(REG_SETTLING_CFG, SETTLING_CFG_FS_AUTOCAL_MSK, uint8(mode)<<SETTLING_CFG_FS_AUTOCAL)
}

// ConfigureSyncWord writes the sync word (most significant byte first), its
// length and the correlation threshold.
func (d *Device) ConfigureSyncWord(word uint32, mode SyncMode, threshold uint8) {
	d.WriteRegisters(REG_SYNC3, []byte{byte(word >> 24), byte(word >> 16), byte(word >> 8), byte(word)})
	d.updateRegister(REG_SYNC_CFG0, SYNC_CFG0_SYNC_MODE_MSK, uint8(mode)<<SYNC_CFG0_SYNC_MODE)
	d.updateRegister(REG_SYNC_CFG1, SYNC_CFG1_SYNC_THR_MASK, threshold)
}

// ConfigurePreamble sets the NUM_PREAMBLE and PREAMBLE_WORD codes.
func (d *Device) ConfigurePreamble(lengthCfg, wordCfg uint8) {
	d.WriteRegister(REG_PREAMBLE_CFG1,
		lengthCfg<<PREAMBLE_CFG1_NUM_PREAMBLE&PREAMBLE_CFG1_NUM_MSK|wordCfg&PREAMBLE_CFG1_WORD_MSK)
}

// SetPARampRate shapes the PA ramp with two intermediate levels and a step time.
func (d *Device) SetPARampRate(first, second uint8, t RampTime) {
	d.WriteRegister(REG_PA_CFG0,
		first&0x3<<PA_CFG0_RAMP_SHAPE_0|second&0x3<<PA_CFG0_RAMP_SHAPE_1|uint8(t)&0x7<<PA_CFG0_RAMP_STEP_TIME)
}

// DisablePARamping clears every ramp setting.
func (d *Device) DisablePARamping() {
	d.WriteRegister(REG_PA_CFG0, 0)
}

// ConfigureDCFilter writes DCFILT_CFG. With freezeCoeff the DC offset
// compensation keeps its coefficients once settled; settle and cutoff are the
// 3-bit DCFILT_BW_SETTLE and DCFILT_BW codes.
func (d *Device) ConfigureDCFilter(freezeCoeff bool, settle, cutoff uint8) {
	v := settle&DCFILT_CFG_BW_MSK<<DCFILT_CFG_BW_SETTLE | cutoff&DCFILT_CFG_BW_MSK
	if freezeCoeff {
		v |= DCFILT_CFG_FREEZE_COEFF
	}
	d.WriteRegister(REG_DCFILT_CFG, v)
}

// SetIFConfig selects the intermediate frequency and turns IQ image
// compensation on or off. Zero-IF needs IQIC off.
func (d *Device) SetIFConfig(mode IFMode, iqic bool) {
	d.updateRegister(REG_IF_MIX_CFG, IF_MIX_CFG_CMIX_MSK, uint8(mode)<<IF_MIX_CFG_CMIX_CFG)
	var en uint8
	if iqic {
		en = IQIC_IQIC_EN
	}
	d.updateRegister(REG_IQIC, IQIC_IQIC_EN, en)
}

// SetAGCReferenceLevel sets AGC_REF.
func (d *Device) SetAGCReferenceLevel(level uint8) {
	d.WriteRegister(REG_AGC_REF, level)
}

// SetAGCSyncBehaviour sets what the AGC freezes once a sync word is found.
func (d *Device) SetAGCSyncBehaviour(b SyncBehaviour) {
	d.updateRegister(REG_AGC_CFG3, 0x7<<AGC_CFG3_SYNC_BEHAVIOUR, uint8(b)<<AGC_CFG3_SYNC_BEHAVIOUR)
}

// SetAGCGainRange limits the gain table indexes the AGC may use.
func (d *Device) SetAGCGainRange(minIndex, maxIndex uint8) {
	d.updateRegister(REG_AGC_CFG3, AGC_CFG3_MIN_GAIN_MSK, minIndex)
	d.updateRegister(REG_AGC_CFG2, AGC_CFG2_MAX_GAIN_MSK, maxIndex)
}

// SetAGCHysteresis sets the AGC_CFG0 hysteresis level code (0-3).
func (d *Device) SetAGCHysteresis(cfg uint8) {
	d.updateRegister(REG_AGC_CFG0, 0x3<<AGC_CFG0_HYST_LEVEL, cfg<<AGC_CFG0_HYST_LEVEL)
}

// SetAGCSlewRate limits the AGC gain step size, as an AGC_CFG0 code (0-3).
func (d *Device) SetAGCSlewRate(cfg uint8) {
	d.updateRegister(REG_AGC_CFG0, 0x3<<AGC_CFG0_SLEWRATE_LIMIT, cfg<<AGC_CFG0_SLEWRATE_LIMIT)
}

// SetAGCSettleWait sets how long the AGC waits after a gain change, as an
// AGC_CFG1 code.
func (d *Device) SetAGCSettleWait(cfg uint8) {
	d.updateRegister(REG_AGC_CFG1, AGC_CFG1_SETTLE_WAIT_MSK, cfg)
}

// SetRSSIOffset adjusts the gain offset applied to RSSI readings, in dB.
func (d *Device) SetRSSIOffset(adjust int8) {
	d.WriteRegister(REG_AGC_GAIN_ADJUST, uint8(adjust))
}

// RSSI returns the received signal strength in dBm. valid is false until the
// chip has a fresh measurement.
func (d *Device) RSSI() (dbm float64, valid bool) {
	var b [2]byte
	d.ReadRegisters(REG_RSSI1, b[:])
	// 12-bit two's complement: RSSI1 holds bits 11:4, RSSI0 bits 3:0 at 6:3.
	raw := int16(uint16(b[0])<<8|uint16(b[1]&0x78)<<1) >> 4
	return float64(raw) * 0.0625, b[1]&RSSI0_VALID != 0
}

// LQI returns the link quality of the last packet and whether its CRC matched.
func (d *Device) LQI() (lqi uint8, crcOK bool) {
	v := d.ReadRegister(REG_LQI_VAL)
	return v & LQI_VAL_LQI_MSK, v&LQI_VAL_CRC_OK != 0
}

// IsFSLocked reports whether the frequency synthesizer is in lock.
func (d *Device) IsFSLocked() bool {
	return d.ReadRegister(REG_FSCAL_CTRL)&FSCAL_CTRL_LOCK != 0
}

var gpioRegs = [...]Register{REG_IOCFG0, REG_IOCFG1, REG_IOCFG2, REG_IOCFG3}

// ConfigureGPIO routes mode to GPIO pin n (0-3).
func (d *Device) ConfigureGPIO(n int, mode GPIOMode, invert bool) bool {
	if n < 0 || n >= len(gpioRegs) {
		return false
	}
	v := uint8(mode) & IOCFG_CFG_MASK
	if invert {
		v |= 1 << IOCFG_GPIO_INV
	}
	d.WriteRegister(gpioRegs[n], v)
	return true
}

// offMode converts a follow-up state to the RXOFF_MODE/TXOFF_MODE encoding.
// States the chip cannot settle in map to IDLE.
func offMode(s State) uint8 {
	switch s {
	case StateFastOn:
		return 1
	case StateTX:
		return 2
	case StateRX:
		return 3
	}
	return 0
}

// SetOnReceiveState sets where the radio goes after receiving a good packet.
// After a bad packet it either returns to RX (badPacket == StateRX) or
// follows the good packet state.
func (d *Device) SetOnReceiveState(goodPacket, badPacket State) {
	d.updateRegister(REG_RFEND_CFG1, RFEND_OFF_MODE_MSK<<RFEND_CFG1_RXOFF_MODE, offMode(goodPacket)<<RFEND_CFG1_RXOFF_MODE)
	var term uint8
	if badPacket == StateRX {
		term = RFEND_CFG0_TERM_ON_BAD_PK
	}
	d.updateRegister(REG_RFEND_CFG0, RFEND_CFG0_TERM_ON_BAD_PK, term)
}

// SetOnTransmitState sets where the radio goes after sending a packet.
func (d *Device) SetOnTransmitState(s State) {
	d.updateRegister(REG_RFEND_CFG0, RFEND_OFF_MODE_MSK<<RFEND_CFG0_TXOFF_MODE, offMode(s)<<RFEND_CFG0_TXOFF_MODE)
}
