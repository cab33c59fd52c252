// Command cc1200ctl drives a CC1200 or CC1201 transceiver wired to a Linux
// host SPI port: identify it, send and receive packets, stream raw bytes and
// bridge packets to an MQTT broker.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"golang.org/x/exp/slog"
	"periph.io/x/conn/v3/physic"

	"tinygo.org/x/subghz/cc1200"
	"tinygo.org/x/subghz/periphbus"
)

// radio is an opened and configured transceiver.
type radio struct {
	dev   *cc1200.Device
	close func() error
}

// opener connects to the hardware described by a profile.
type opener func(p Profile, cfg cc1200.Config) (*radio, error)

type app struct {
	configPath string
	debug      bool

	log     *slog.Logger
	profile Profile
	open    opener
}

func openPeriph(p Profile, cfg cc1200.Config) (*radio, error) {
	brd, err := periphbus.Open(periphbus.Config{
		Port:  p.Bus.Port,
		Speed: physic.Frequency(p.Bus.SpeedHz) * physic.Hertz,
		CS:    p.Bus.CS,
		Reset: p.Bus.Reset,
	})
	if err != nil {
		return nil, err
	}
	dev := cc1200.New(brd.Bus, brd.Bus, brd.CS, brd.Reset, cfg)
	brd.Bus.HandleDMA(dev.DMAComplete, dev.DMAError)
	return &radio{dev: dev, close: brd.Close}, nil
}

func newRootCmd(a *app, stderr io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "cc1200ctl",
		Short:         "Control a CC1200/CC1201 sub-GHz transceiver",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			lvl := slog.LevelInfo
			if a.debug {
				lvl = slog.LevelDebug
			}
			a.log = slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: lvl}))

			p, err := loadProfile(a.configPath)
			if err != nil {
				return err
			}
			if err := overrideProfile(cmd.Flags(), &p); err != nil {
				return err
			}
			a.profile = p
			return nil
		},
	}
	fs := root.PersistentFlags()
	fs.StringVarP(&a.configPath, "config", "c", "", "YAML radio profile")
	fs.BoolVar(&a.debug, "debug", false, "debug logging and SPI tracing")
	addProfileFlags(fs)

	root.AddCommand(
		newInfoCmd(a),
		newTxCmd(a),
		newRxCmd(a),
		newStreamTxCmd(a),
		newStreamRxCmd(a),
		newBridgeCmd(a),
	)
	return root
}

// radio opens, identifies and configures the transceiver.
func (a *app) radio() (*radio, error) {
	r, err := a.open(a.profile, cc1200.Config{
		IsCC1201: a.profile.CC1201,
		Logger:   a.log,
		Debug:    a.debug,
	})
	if err != nil {
		return nil, err
	}
	if !r.dev.Begin() {
		r.close()
		return nil, fmt.Errorf("cc1200 init: %w", r.dev.Err())
	}
	if err := a.profile.Radio.Apply(r.dev); err != nil {
		r.close()
		return nil, fmt.Errorf("apply profile: %w", err)
	}
	return r, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	a := &app{open: openPeriph}
	if err := newRootCmd(a, os.Stderr).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "cc1200ctl:", err)
		stop()
		os.Exit(1)
	}
}
