package cc1200

// Space selects one of the chip's two register address spaces.
type Space uint8

const (
	Direct   Space = iota // 7-bit space, addressed by the header byte
	Extended              // reached through the EXT_ADDR prefix byte
)

// Register names a register in either address space. Extended registers carry
// the extSpace tag above the 8-bit address.
type Register uint16

const extSpace Register = 0x100

// Space returns the address space the register lives in.
func (r Register) Space() Space {
	if r&extSpace != 0 {
		return Extended
	}
	return Direct
}

// Addr returns the register's address within its space.
func (r Register) Addr() uint8 { return uint8(r) }

const (
	// direct registers
	REG_IOCFG3          Register = 0x00
	REG_IOCFG2          Register = 0x01
	REG_IOCFG1          Register = 0x02
	REG_IOCFG0          Register = 0x03
	REG_SYNC3           Register = 0x04
	REG_SYNC2           Register = 0x05
	REG_SYNC1           Register = 0x06
	REG_SYNC0           Register = 0x07
	REG_SYNC_CFG1       Register = 0x08
	REG_SYNC_CFG0       Register = 0x09
	REG_DEVIATION_M     Register = 0x0a
	REG_MODCFG_DEV_E    Register = 0x0b
	REG_DCFILT_CFG      Register = 0x0c
	REG_PREAMBLE_CFG1   Register = 0x0d
	REG_PREAMBLE_CFG0   Register = 0x0e
	REG_IQIC            Register = 0x0f
	REG_CHAN_BW         Register = 0x10
	REG_MDMCFG1         Register = 0x11
	REG_MDMCFG0         Register = 0x12
	REG_SYMBOL_RATE2    Register = 0x13
	REG_SYMBOL_RATE1    Register = 0x14
	REG_SYMBOL_RATE0    Register = 0x15
	REG_AGC_REF         Register = 0x16
	REG_AGC_CS_THR      Register = 0x17
	REG_AGC_GAIN_ADJUST Register = 0x18
	REG_AGC_CFG3        Register = 0x19
	REG_AGC_CFG2        Register = 0x1a
	REG_AGC_CFG1        Register = 0x1b
	REG_AGC_CFG0        Register = 0x1c
	REG_FIFO_CFG        Register = 0x1d
	REG_DEV_ADDR        Register = 0x1e
	REG_SETTLING_CFG    Register = 0x1f
	REG_FS_CFG          Register = 0x20
	REG_WOR_CFG1        Register = 0x21
	REG_WOR_CFG0        Register = 0x22
	REG_WOR_EVENT0_MSB  Register = 0x23
	REG_WOR_EVENT0_LSB  Register = 0x24
	REG_RXDCM_TIME      Register = 0x25
	REG_PKT_CFG2        Register = 0x26
	REG_PKT_CFG1        Register = 0x27
	REG_PKT_CFG0        Register = 0x28
	REG_RFEND_CFG1      Register = 0x29
	REG_RFEND_CFG0      Register = 0x2a
	REG_PA_CFG1         Register = 0x2b
	REG_PA_CFG0         Register = 0x2c
	REG_ASK_CFG         Register = 0x2d
	REG_PKT_LEN         Register = 0x2e

	// extended registers
	REG_IF_MIX_CFG  Register = extSpace | 0x00
	REG_FREQOFF_CFG Register = extSpace | 0x01
	REG_MDMCFG2     Register = extSpace | 0x05
	REG_FREQ2       Register = extSpace | 0x0c
	REG_FREQ1       Register = extSpace | 0x0d
	REG_FREQ0       Register = extSpace | 0x0e
	REG_RSSI1       Register = extSpace | 0x71
	REG_RSSI0       Register = extSpace | 0x72
	REG_MARCSTATE   Register = extSpace | 0x73
	REG_LQI_VAL     Register = extSpace | 0x74
	REG_FSCAL_CTRL  Register = extSpace | 0x8d
	REG_PARTNUMBER  Register = extSpace | 0x8f
	REG_PARTVERSION Register = extSpace | 0x90
	REG_MODEM_STAT1 Register = extSpace | 0x92
	REG_MARC_STAT1  Register = extSpace | 0x94
	REG_RXFIRST     Register = extSpace | 0xd2
	REG_TXFIRST     Register = extSpace | 0xd3
	REG_RXLAST      Register = extSpace | 0xd4
	REG_TXLAST      Register = extSpace | 0xd5
	REG_NUM_TXBYTES Register = extSpace | 0xd6
	REG_NUM_RXBYTES Register = extSpace | 0xd7
)

// Header byte flags and special addresses of the SPI protocol.
const (
	SPI_READ  = 0x80
	SPI_WRITE = 0x00
	SPI_BURST = 0x40

	EXT_ADDR       = 0x2f
	MEM_ACCESS     = 0x3e
	ENQUEUE_TX     = 0x3f
	DEQUEUE_RX     = 0xbf
	MEM_RX_FIFO    = 0x80 // address flag selecting the RX FIFO for MEM_ACCESS
	MEM_TX_FIFO    = 0x00
	STATUS_NOT_RDY = 0x80
	STATUS_STATE   = 0x70
)

// Command is a strobe: a single header byte that triggers a state change.
type Command uint8

const (
	SRES    Command = 0x30 // reset chip
	SFSTXON Command = 0x31 // enable and calibrate synthesizer
	SXOFF   Command = 0x32 // crystal off on CS release
	SCAL    Command = 0x33 // calibrate synthesizer
	SRX     Command = 0x34 // enable RX
	STX     Command = 0x35 // enable TX
	SIDLE   Command = 0x36 // exit RX/TX
	SAFC    Command = 0x37 // automatic frequency compensation
	SWOR    Command = 0x38 // wake-on-radio
	SPWD    Command = 0x39 // power down on CS release
	SFRX    Command = 0x3a // flush RX FIFO
	SFTX    Command = 0x3b // flush TX FIFO
	SWORRST Command = 0x3c // reset eWOR timer
	SNOP    Command = 0x3d // no operation, returns status
)

// Field positions and masks.
const (
	IOCFG_GPIO_INV = 6
	IOCFG_CFG_MASK = 0x3f

	SYNC_CFG1_SYNC_THR_MASK = 0x1f
	SYNC_CFG0_SYNC_MODE     = 2
	SYNC_CFG0_SYNC_MODE_MSK = 0x07 << SYNC_CFG0_SYNC_MODE

	MODCFG_DEV_E_DEV_E      = 0
	MODCFG_DEV_E_DEV_E_MSK  = 0x07
	MODCFG_DEV_E_MOD_FORMAT = 3
	MODCFG_DEV_E_MOD_FMT_MK = 0x07 << MODCFG_DEV_E_MOD_FORMAT

	PREAMBLE_CFG1_NUM_PREAMBLE = 2
	PREAMBLE_CFG1_NUM_MSK      = 0x0f << PREAMBLE_CFG1_NUM_PREAMBLE
	PREAMBLE_CFG1_WORD_MSK     = 0x03

	CHAN_BW_ADC_CIC_DECFACT = 6

	DCFILT_CFG_FREEZE_COEFF = 0x40
	DCFILT_CFG_BW_SETTLE    = 3
	DCFILT_CFG_BW_MSK       = 0x07
	IQIC_IQIC_EN            = 0x80
	IF_MIX_CFG_CMIX_CFG     = 2
	IF_MIX_CFG_CMIX_MSK     = 0x07 << IF_MIX_CFG_CMIX_CFG

	SYMBOL_RATE2_SRATE_E = 4

	AGC_CFG3_SYNC_BEHAVIOUR  = 5
	AGC_CFG3_MIN_GAIN_MSK    = 0x1f
	AGC_CFG2_MAX_GAIN_MSK    = 0x1f
	AGC_CFG1_SETTLE_WAIT_MSK = 0x03
	AGC_CFG0_HYST_LEVEL      = 6
	AGC_CFG0_SLEWRATE_LIMIT  = 4

	FIFO_CFG_CRC_AUTOFLUSH = 0x80
	FIFO_CFG_THR_MSK       = 0x7f

	SETTLING_CFG_FS_AUTOCAL     = 3
	SETTLING_CFG_FS_AUTOCAL_MSK = 0x03 << SETTLING_CFG_FS_AUTOCAL

	FS_CFG_FSD_BANDSELECT_MSK = 0x03

	PKT_CFG1_CRC_CFG       = 2
	PKT_CFG1_CRC_CFG_MSK   = 0x03 << PKT_CFG1_CRC_CFG
	PKT_CFG1_APPEND_STATUS = 0x01
	PKT_CFG0_LENGTH_CONFIG = 5
	PKT_CFG0_LENGTH_MSK    = 0x03 << PKT_CFG0_LENGTH_CONFIG

	RFEND_CFG1_RXOFF_MODE     = 4
	RFEND_CFG0_TXOFF_MODE     = 4
	RFEND_OFF_MODE_MSK        = 0x03
	RFEND_CFG0_TERM_ON_BAD_PK = 0x08

	PA_CFG1_POWER_MSK      = 0x3f
	PA_CFG0_RAMP_SHAPE_0   = 0
	PA_CFG0_RAMP_SHAPE_1   = 2
	PA_CFG0_RAMP_STEP_TIME = 4
	ASK_CFG_DEPTH_MSK      = 0x3f

	LQI_VAL_CRC_OK   = 0x80
	LQI_VAL_LQI_MSK  = 0x7f
	RSSI0_VALID      = 0x01
	FSCAL_CTRL_LOCK  = 0x01
	PART_NUMBER_1200 = 0x20
	PART_NUMBER_1201 = 0x21
)
