package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"tinygo.org/x/subghz/cc1200"
)

// Profile is everything cc1200ctl needs to reach and configure a radio.
type Profile struct {
	Bus    BusProfile   `yaml:"bus"`
	CC1201 bool         `yaml:"cc1201"`
	Radio  RadioProfile `yaml:"radio"`
	MQTT   MQTTProfile  `yaml:"mqtt"`
}

// BusProfile names the host SPI port and GPIO lines.
type BusProfile struct {
	Port    string `yaml:"port"`
	SpeedHz int64  `yaml:"speed_hz"`
	CS      string `yaml:"cs"`
	Reset   string `yaml:"reset"`
}

// RadioProfile holds the modem settings. Zero numeric values leave the chip
// setting untouched.
type RadioProfile struct {
	Frequency       float64  `yaml:"frequency"`
	SymbolRate      float64  `yaml:"symbol_rate"`
	Deviation       float64  `yaml:"deviation"`
	RXBandwidth     float64  `yaml:"rx_bandwidth"`
	PreferHigherCIC bool     `yaml:"prefer_higher_cic"`
	Power           *float64 `yaml:"power"`
	Modulation      string   `yaml:"modulation"`
	SyncWord        uint32   `yaml:"sync_word"`
	SyncBits        int      `yaml:"sync_bits"`
	SyncThreshold   uint8    `yaml:"sync_threshold"`
	PreambleLength  uint8    `yaml:"preamble_length"`
	PreambleWord    uint8    `yaml:"preamble_word"`
	PacketMode      string   `yaml:"packet_mode"`
	PacketLength    uint8    `yaml:"packet_length"`
	AppendStatus    bool     `yaml:"append_status"`
	CRC             bool     `yaml:"crc"`
}

// MQTTProfile configures the bridge command.
type MQTTProfile struct {
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"client_id"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Prefix   string `yaml:"prefix"`
}

func defaultProfile() Profile {
	power := 0.0
	return Profile{
		Bus: BusProfile{SpeedHz: 4e6, CS: "GPIO8", Reset: "GPIO25"},
		Radio: RadioProfile{
			Frequency:     868.3e6,
			SymbolRate:    38400,
			Deviation:     20e3,
			RXBandwidth:   100e3,
			Power:         &power,
			Modulation:    "2gfsk",
			SyncWord:      0x930b51de,
			SyncBits:      32,
			SyncThreshold: 10,
			PacketMode:    "variable",
			PacketLength:  0xff,
			AppendStatus:  true,
			CRC:           true,
		},
		MQTT: MQTTProfile{Broker: "tcp://localhost:1883", Prefix: "cc1200"},
	}
}

// loadProfile reads a YAML profile on top of the defaults. An empty path
// returns the defaults.
func loadProfile(path string) (Profile, error) {
	p := defaultProfile()
	if path == "" {
		return p, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return p, fmt.Errorf("read profile: %w", err)
	}
	if err := decodeProfile(b, &p); err != nil {
		return p, fmt.Errorf("profile %s: %w", path, err)
	}
	return p, nil
}

func decodeProfile(b []byte, p *Profile) error {
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(p); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// addProfileFlags registers the flags that override profile fields.
func addProfileFlags(fs *pflag.FlagSet) {
	fs.String("port", "", "SPI port name (default first port)")
	fs.Int64("speed", 0, "SPI clock in Hz")
	fs.String("cs", "", "chip select GPIO name")
	fs.String("reset", "", "reset GPIO name")
	fs.Float64("frequency", 0, "carrier frequency in Hz")
	fs.Float64("power", 0, "output power in dBm")
	fs.Bool("cc1201", false, "expect a CC1201")
}

// overrideProfile copies the flags that were set on the command line into p.
func overrideProfile(fs *pflag.FlagSet, p *Profile) error {
	var err error
	fs.Visit(func(f *pflag.Flag) {
		if err != nil {
			return
		}
		switch f.Name {
		case "port":
			p.Bus.Port = f.Value.String()
		case "cs":
			p.Bus.CS = f.Value.String()
		case "reset":
			p.Bus.Reset = f.Value.String()
		case "speed":
			p.Bus.SpeedHz, err = fs.GetInt64("speed")
		case "frequency":
			p.Radio.Frequency, err = fs.GetFloat64("frequency")
		case "power":
			var v float64
			v, err = fs.GetFloat64("power")
			p.Radio.Power = &v
		case "cc1201":
			p.CC1201, err = fs.GetBool("cc1201")
		}
	})
	return err
}

var modFormats = map[string]cc1200.ModFormat{
	"2fsk":  cc1200.Mod2FSK,
	"2gfsk": cc1200.Mod2GFSK,
	"ask":   cc1200.ModASK,
	"ook":   cc1200.ModASK,
	"4fsk":  cc1200.Mod4FSK,
	"4gfsk": cc1200.Mod4GFSK,
}

var syncModes = map[int]cc1200.SyncMode{
	0:  cc1200.SyncNone,
	11: cc1200.Sync11Bits,
	16: cc1200.Sync16Bits,
	18: cc1200.Sync18Bits,
	24: cc1200.Sync24Bits,
	32: cc1200.Sync32Bits,
}

// Apply programs the radio settings into d. Nothing is written when a field
// is invalid.
func (r RadioProfile) Apply(d *cc1200.Device) error {
	var band cc1200.Band
	if r.Frequency != 0 {
		var ok bool
		if band, ok = cc1200.BandFor(r.Frequency); !ok {
			return fmt.Errorf("frequency %.0f Hz is outside every band", r.Frequency)
		}
	}
	mod, ok := modFormats[strings.ToLower(r.Modulation)]
	if r.Modulation != "" && !ok {
		return fmt.Errorf("unknown modulation %q", r.Modulation)
	}
	sync, ok := syncModes[r.SyncBits]
	if !ok {
		return fmt.Errorf("unsupported sync word length %d", r.SyncBits)
	}
	var mode cc1200.PacketMode
	switch strings.ToLower(r.PacketMode) {
	case "", "variable":
		mode = cc1200.VariableLength
	case "fixed":
		mode = cc1200.FixedLength
	default:
		return fmt.Errorf("unknown packet mode %q", r.PacketMode)
	}

	d.SendCommand(cc1200.SIDLE)
	if r.Modulation != "" {
		d.SetModulationFormat(mod)
	}
	if r.Frequency != 0 {
		d.SetRadioFrequency(band, r.Frequency)
	}
	if r.SymbolRate != 0 {
		d.SetSymbolRate(r.SymbolRate)
	}
	if r.Deviation != 0 {
		d.SetFSKDeviation(r.Deviation)
	}
	if r.RXBandwidth != 0 {
		d.SetRXFilterBandwidth(r.RXBandwidth, r.PreferHigherCIC)
	}
	if r.Power != nil {
		d.SetOutputPower(*r.Power)
	}
	d.ConfigureSyncWord(r.SyncWord, sync, r.SyncThreshold)
	if r.PreambleLength != 0 {
		d.ConfigurePreamble(r.PreambleLength, r.PreambleWord)
	}
	d.SetCRCEnabled(r.CRC)
	d.SetPacketMode(mode, r.AppendStatus)
	d.SetPacketLength(r.PacketLength)
	d.SetFSCalMode(cc1200.FSCalFromIdle)
	d.SendCommand(cc1200.SFRX)
	d.SendCommand(cc1200.SFTX)
	return nil
}
