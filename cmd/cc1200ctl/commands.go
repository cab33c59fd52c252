package main

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"tinygo.org/x/subghz/cc1200"
)

func newInfoCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Identify the chip and print its configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := a.radio()
			if err != nil {
				return err
			}
			defer r.close()

			d := r.dev
			d.UpdateState()
			out := cmd.OutOrStdout()
			part := "CC1200"
			if a.profile.CC1201 {
				part = "CC1201"
			}
			fmt.Fprintf(out, "part:        %s version 0x%02x\n", part, d.PartVersion())
			fmt.Fprintf(out, "state:       %s (ready %v)\n", d.State(), d.ChipReady())
			fmt.Fprintf(out, "frequency:   %.0f Hz\n", d.Frequency())
			fmt.Fprintf(out, "symbol rate: %.1f Hz\n", d.SymbolRate())
			fmt.Fprintf(out, "rx filter:   %.0f Hz\n", d.RXBandwidth())
			mode, status := d.PacketMode()
			fmt.Fprintf(out, "packets:     %s length, status bytes %v\n", packetModeName(mode), status)
			fmt.Fprintf(out, "fs lock:     %v\n", d.IsFSLocked())
			return nil
		},
	}
}

func packetModeName(m cc1200.PacketMode) string {
	if m == cc1200.FixedLength {
		return "fixed"
	}
	return "variable"
}

// payloadArg decodes the command line payload, as hex when asHex is set.
func payloadArg(s string, asHex bool) ([]byte, error) {
	if !asHex {
		return []byte(s), nil
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("payload: %w", err)
	}
	return b, nil
}

func newTxCmd(a *app) *cobra.Command {
	var (
		asHex    bool
		useDMA   bool
		count    int
		interval time.Duration
	)
	cmd := &cobra.Command{
		Use:   "tx PAYLOAD",
		Short: "Send a packet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := payloadArg(args[0], asHex)
			if err != nil {
				return err
			}
			r, err := a.radio()
			if err != nil {
				return err
			}
			defer r.close()

			d := r.dev
			enqueue := d.EnqueuePacket
			if useDMA {
				enqueue = d.EnqueuePacketDMA
			}
			for i := 0; i < count; i++ {
				if i > 0 && !sleepCtx(cmd.Context(), interval) {
					return nil
				}
				d.SendCommand(cc1200.SIDLE)
				d.SendCommand(cc1200.SFTX)
				if !enqueue(payload) {
					return errors.New("packet does not fit in the TX FIFO")
				}
				d.SendCommand(cc1200.STX)
				a.log.Info("packet sent", "n", i+1, "len", len(payload))
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&asHex, "hex", "x", false, "payload is hex encoded")
	cmd.Flags().BoolVar(&useDMA, "dma", false, "load the FIFO with a DMA transfer")
	cmd.Flags().IntVarP(&count, "count", "n", 1, "number of packets")
	cmd.Flags().DurationVar(&interval, "interval", time.Second, "delay between packets")
	return cmd
}

func newRxCmd(a *app) *cobra.Command {
	var (
		count   int
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "rx",
		Short: "Receive packets and print them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := a.radio()
			if err != nil {
				return err
			}
			defer r.close()

			ctx := cmd.Context()
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			d := r.dev
			d.SendCommand(cc1200.SRX)
			buf := make([]byte, cc1200.MaxPacketLength)
			out := cmd.OutOrStdout()
			for got := 0; count == 0 || got < count; {
				if !d.HasReceivedPacket() {
					if !sleepCtx(ctx, time.Millisecond) {
						return nil
					}
					continue
				}
				n := d.ReceivePacket(buf)
				st := d.LastPacketStatus()
				fmt.Fprintf(out, "%s rssi=%d lqi=%d crc=%v\n", hex.EncodeToString(buf[:n]), st.RSSI, st.LQI, st.CRCOK)
				got++
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 0, "stop after this many packets, 0 for no limit")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "give up after this long, 0 for no limit")
	return cmd
}

func newStreamTxCmd(a *app) *cobra.Command {
	var (
		pattern  string
		tick     time.Duration
		duration time.Duration
	)
	cmd := &cobra.Command{
		Use:   "stream-tx",
		Short: "Transmit a repeating byte pattern",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := hex.DecodeString(pattern)
			if err != nil {
				return fmt.Errorf("pattern: %w", err)
			}
			r, err := a.radio()
			if err != nil {
				return err
			}
			defer r.close()

			d := r.dev
			if !d.StartContinuousStreamingTx(p) {
				return fmt.Errorf("pattern must be 1 to %d bytes", cc1200.StreamPatternCap)
			}
			d.ProcessContinuousStreaming()
			d.SendCommand(cc1200.STX)
			streamFor(cmd.Context(), d, tick, duration)
			d.StopContinuousStreamingTx()
			waitDMA(d)
			d.SendCommand(cc1200.SIDLE)
			printStats(cmd, d.ContinuousStreamingStats())
			return nil
		},
	}
	cmd.Flags().StringVarP(&pattern, "pattern", "p", "55", "hex encoded pattern")
	cmd.Flags().DurationVar(&tick, "tick", time.Millisecond, "streaming service period")
	cmd.Flags().DurationVarP(&duration, "duration", "d", 0, "stop after this long, 0 for no limit")
	return cmd
}

func newStreamRxCmd(a *app) *cobra.Command {
	var (
		tick     time.Duration
		duration time.Duration
	)
	cmd := &cobra.Command{
		Use:   "stream-rx",
		Short: "Receive raw bytes and print them as hex",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := a.radio()
			if err != nil {
				return err
			}
			defer r.close()

			d := r.dev
			out := cmd.OutOrStdout()
			d.SetStreamingRxSink(func(b []byte) {
				fmt.Fprintln(out, hex.EncodeToString(b))
			})
			d.StartContinuousStreamingRx(a.debug)
			d.SendCommand(cc1200.SRX)
			streamFor(cmd.Context(), d, tick, duration)
			d.StopContinuousStreamingRx()
			waitDMA(d)
			// deliver the last drain
			d.ProcessContinuousStreaming()
			d.SendCommand(cc1200.SIDLE)
			printStats(cmd, d.ContinuousStreamingStats())
			return nil
		},
	}
	cmd.Flags().DurationVar(&tick, "tick", time.Millisecond, "streaming service period")
	cmd.Flags().DurationVarP(&duration, "duration", "d", 0, "stop after this long, 0 for no limit")
	return cmd
}

// streamFor services the streaming controller every tick until ctx is done
// or d has elapsed.
func streamFor(ctx context.Context, dev *cc1200.Device, tick, d time.Duration) {
	if d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}
	t := time.NewTicker(tick)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			dev.ProcessContinuousStreaming()
		}
	}
}

// waitDMA lets an in-flight streaming transfer finish before the bus is
// used for anything else.
func waitDMA(d *cc1200.Device) {
	for i := 0; i < 100 && !d.IsDMAComplete(); i++ {
		time.Sleep(time.Millisecond)
	}
}

func printStats(cmd *cobra.Command, s cc1200.StreamingStats) {
	fmt.Fprintf(cmd.ErrOrStderr(), "tx %d (errors %d) rx %d (errors %d)\n",
		s.TxCount, s.TxErrors, s.RxCount, s.RxErrors)
}

// sleepCtx sleeps for d and reports false if ctx ended first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
