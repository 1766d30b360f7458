// Command dreamy turns a live microphone into an ambient instrument.
//
//	dreamy [flags]
//
// Three modes are available. "dreamy" (the default) runs the full pipeline:
// echo cancellation, granular resynthesis, and the effects chain. "reactive"
// plays a drone that brightens with room loudness and keystrokes. "hybrid"
// plays a pentatonic arpeggio whose tempo and chaos follow the same energy.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gordonklaus/portaudio"
	"github.com/sirupsen/logrus"
	"golang.org/x/term"

	"github.com/cwbudde/algo-dreamy/dreamy"
	"github.com/cwbudde/algo-dreamy/drone"
	"github.com/cwbudde/algo-dreamy/dsp/core"
	"github.com/cwbudde/algo-dreamy/energy"
)

const (
	defaultSampleRate = 44100.0
	defaultBlockSize  = 512

	// Matches the original tunings: reactive keystrokes are strong bursts,
	// hybrid keystrokes nudge the composer.
	hybridKeySensitivity = 0.025

	meterInterval = 50 * time.Millisecond
)

func main() {
	mode := flag.String("mode", "dreamy", "operation mode: dreamy, reactive, or hybrid")
	listDevices := flag.Bool("list-devices", false, "list available input devices and exit")
	device := flag.String("device", "", "name (or substring) of the input device to use")
	seed := flag.Int64("seed", 1, "random seed for grain scheduling and note chaos")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: dreamy [flags]\n\n")
		fmt.Fprintf(os.Stderr, "Real-time dreamy microphone processor.\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  dreamy\n")
		fmt.Fprintf(os.Stderr, "  dreamy -mode reactive\n")
		fmt.Fprintf(os.Stderr, "  dreamy -mode hybrid -device usb\n")
		fmt.Fprintf(os.Stderr, "  dreamy -list-devices\n")
	}
	flag.Parse()

	log := logrus.New()
	if err := run(log, *mode, *listDevices, *device, *seed); err != nil {
		log.Fatal(err)
	}
}

func run(log *logrus.Logger, mode string, listDevices bool, device string, seed int64) error {
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("portaudio init: %w", err)
	}
	defer portaudio.Terminate()

	if listDevices {
		return printInputDevices()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch mode {
	case "dreamy":
		return runDreamy(ctx, log, device, seed)
	case "reactive":
		return runReactive(ctx, stop, log, device, seed)
	case "hybrid":
		return runHybrid(ctx, stop, log, device, seed)
	default:
		return fmt.Errorf("unknown mode %q (want dreamy, reactive, or hybrid)", mode)
	}
}

func printInputDevices() error {
	devices, err := portaudio.Devices()
	if err != nil {
		return fmt.Errorf("list devices: %w", err)
	}
	fmt.Println("Available input devices:")
	for _, d := range devices {
		if d.MaxInputChannels > 0 {
			fmt.Printf("  - %s\n", d.Name)
		}
	}
	return nil
}

func resolveInputDevice(name string) (*portaudio.DeviceInfo, error) {
	if name == "" {
		host, err := portaudio.DefaultHostApi()
		if err != nil {
			return nil, fmt.Errorf("default host api: %w", err)
		}
		if host.DefaultInputDevice == nil {
			return nil, fmt.Errorf("no default input device")
		}
		return host.DefaultInputDevice, nil
	}

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	needle := strings.ToLower(name)
	for _, d := range devices {
		if d.MaxInputChannels > 0 && strings.Contains(strings.ToLower(d.Name), needle) {
			return d, nil
		}
	}
	return nil, fmt.Errorf("no input device matching %q", name)
}

func resolveOutputDevice() (*portaudio.DeviceInfo, error) {
	host, err := portaudio.DefaultHostApi()
	if err != nil {
		return nil, fmt.Errorf("default host api: %w", err)
	}
	if host.DefaultOutputDevice == nil {
		return nil, fmt.Errorf("no default output device")
	}
	return host.DefaultOutputDevice, nil
}

func openInputStream(dev *portaudio.DeviceInfo, sampleRate float64, blockSize int, onBlock func([]float64)) (*portaudio.Stream, error) {
	capture := make([]float64, blockSize)
	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   dev,
			Channels: 1,
			Latency:  dev.DefaultLowInputLatency,
		},
		SampleRate:      sampleRate,
		FramesPerBuffer: blockSize,
	}
	return portaudio.OpenStream(params, func(in []float32) {
		n := len(in)
		if n > len(capture) {
			n = len(capture)
		}
		for i := 0; i < n; i++ {
			capture[i] = float64(in[i])
		}
		onBlock(capture[:n])
	})
}

func openOutputStream(dev *portaudio.DeviceInfo, sampleRate float64, blockSize int, render func([]float64)) (*portaudio.Stream, error) {
	block := make([]float64, blockSize)
	params := portaudio.StreamParameters{
		Output: portaudio.StreamDeviceParameters{
			Device:   dev,
			Channels: 1,
			Latency:  dev.DefaultLowOutputLatency,
		},
		SampleRate:      sampleRate,
		FramesPerBuffer: blockSize,
	}
	return portaudio.OpenStream(params, func(out []float32) {
		n := len(out)
		if n > len(block) {
			n = len(block)
		}
		render(block[:n])
		for i := 0; i < n; i++ {
			out[i] = float32(block[i])
		}
		for i := n; i < len(out); i++ {
			out[i] = 0
		}
	})
}

func startStreams(streams ...*portaudio.Stream) error {
	for _, s := range streams {
		if err := s.Start(); err != nil {
			return fmt.Errorf("start stream: %w", err)
		}
	}
	return nil
}

func stopStreams(log *logrus.Logger, streams ...*portaudio.Stream) {
	for _, s := range streams {
		if err := s.Stop(); err != nil {
			log.WithError(err).Warn("stop stream")
		}
		if err := s.Close(); err != nil {
			log.WithError(err).Warn("close stream")
		}
	}
}

func runDreamy(ctx context.Context, log *logrus.Logger, device string, seed int64) error {
	cfg := dreamy.DefaultConfig()
	cfg.Seed = seed
	proc, err := dreamy.New(cfg)
	if err != nil {
		return err
	}
	slot, err := dreamy.NewSlot(cfg.BlockSize)
	if err != nil {
		return err
	}

	inDev, err := resolveInputDevice(device)
	if err != nil {
		return err
	}
	outDev, err := resolveOutputDevice()
	if err != nil {
		return err
	}

	in, err := openInputStream(inDev, cfg.SampleRate, cfg.BlockSize, slot.Offer)
	if err != nil {
		return fmt.Errorf("open input stream: %w", err)
	}
	mic := make([]float64, cfg.BlockSize)
	out, err := openOutputStream(outDev, cfg.SampleRate, cfg.BlockSize, func(dst []float64) {
		// No captured block yet: feed silence so the grain cloud keeps
		// playing out from history.
		if !slot.Take(mic) {
			core.Zero(mic)
		}
		proc.ProcessBlock(dst, mic[:len(dst)])
	})
	if err != nil {
		stopStreams(log, in)
		return fmt.Errorf("open output stream: %w", err)
	}

	if err := startStreams(in, out); err != nil {
		stopStreams(log, in, out)
		return err
	}
	defer stopStreams(log, in, out)

	log.WithFields(logrus.Fields{
		"input":  inDev.Name,
		"output": outDev.Name,
		"rate":   cfg.SampleRate,
		"block":  cfg.BlockSize,
	}).Info("dreamy pipeline running, Ctrl+C to stop")

	<-ctx.Done()
	log.Info("shutting down")
	return nil
}

func runReactive(ctx context.Context, stop context.CancelFunc, log *logrus.Logger, device string, seed int64) error {
	meter, err := energy.NewMeter(energy.DefaultMicBoost, energy.DefaultKeySensitivity)
	if err != nil {
		return err
	}
	voice, err := drone.NewVoice(defaultSampleRate)
	if err != nil {
		return err
	}
	voice.SetRandomSeed(seed)

	inDev, err := resolveInputDevice(device)
	if err != nil {
		return err
	}
	outDev, err := resolveOutputDevice()
	if err != nil {
		return err
	}

	in, err := openInputStream(inDev, defaultSampleRate, defaultBlockSize, meter.ObserveInput)
	if err != nil {
		return fmt.Errorf("open input stream: %w", err)
	}
	out, err := openOutputStream(outDev, defaultSampleRate, defaultBlockSize, func(dst []float64) {
		voice.Render(dst, meter.Level())
	})
	if err != nil {
		stopStreams(log, in)
		return fmt.Errorf("open output stream: %w", err)
	}

	if err := startStreams(in, out); err != nil {
		stopStreams(log, in, out)
		return err
	}
	defer stopStreams(log, in, out)

	restore, err := watchKeyboard(stop, meter)
	if err != nil {
		return fmt.Errorf("keyboard capture: %w", err)
	}
	defer restore()

	log.WithFields(logrus.Fields{"input": inDev.Name, "output": outDev.Name}).
		Info("reactive drone running, make noise or type, Ctrl+C to stop")

	ticker := time.NewTicker(meterInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			fmt.Print("\r\n")
			log.Info("shutting down")
			return nil
		case <-ticker.C:
			meter.Tick()
			fmt.Printf("Mic: %.3f | Key: %.3f | Total: %.3f\r",
				meter.MicLevel(), meter.KeyLevel(), meter.Level())
		}
	}
}

func runHybrid(ctx context.Context, stop context.CancelFunc, log *logrus.Logger, device string, seed int64) error {
	// The hybrid mic feeds the composer directly, without the reactive boost.
	meter, err := energy.NewMeter(1, hybridKeySensitivity)
	if err != nil {
		return err
	}
	voice, err := drone.NewSineVoice(defaultSampleRate)
	if err != nil {
		return err
	}
	arp := drone.NewArpeggiator()
	arp.SetRandomSeed(seed)

	inDev, err := resolveInputDevice(device)
	if err != nil {
		return err
	}
	outDev, err := resolveOutputDevice()
	if err != nil {
		return err
	}

	in, err := openInputStream(inDev, defaultSampleRate, defaultBlockSize, meter.ObserveInput)
	if err != nil {
		return fmt.Errorf("open input stream: %w", err)
	}
	out, err := openOutputStream(outDev, defaultSampleRate, defaultBlockSize, voice.Render)
	if err != nil {
		stopStreams(log, in)
		return fmt.Errorf("open output stream: %w", err)
	}

	if err := startStreams(in, out); err != nil {
		stopStreams(log, in, out)
		return err
	}
	defer stopStreams(log, in, out)

	restore, err := watchKeyboard(stop, meter)
	if err != nil {
		return fmt.Errorf("keyboard capture: %w", err)
	}
	defer restore()

	// The composer: pick the next note from the current energy, hold it,
	// repeat. Energy shortens the hold and raises the chance of random
	// note and octave jumps.
	go func() {
		for {
			freq, hold := arp.Next(meter.Level())
			voice.SetFrequency(freq)
			select {
			case <-ctx.Done():
				return
			case <-time.After(hold):
			}
		}
	}()

	log.WithFields(logrus.Fields{"input": inDev.Name, "output": outDev.Name}).
		Info("hybrid arpeggio running, make noise or type, Ctrl+C to stop")

	ticker := time.NewTicker(meterInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			fmt.Print("\r\n")
			log.Info("shutting down")
			return nil
		case <-ticker.C:
			meter.Tick()
		}
	}
}

// watchKeyboard puts the terminal in raw mode so keystrokes arrive
// immediately, and feeds each one to the meter. Ctrl+C and q stop the
// program. The returned restore func leaves raw mode.
func watchKeyboard(stop context.CancelFunc, meter *energy.Meter) (restore func(), err error) {
	fd := int(os.Stdin.Fd())
	state, err := term.MakeRaw(fd)
	if err != nil {
		return nil, err
	}

	go func() {
		buf := make([]byte, 1)
		for {
			n, err := os.Stdin.Read(buf)
			if err != nil {
				return
			}
			if n != 1 {
				continue
			}
			switch buf[0] {
			case 0x03, 'q': // Ctrl+C in raw mode, or q
				stop()
				return
			default:
				meter.Keystroke()
			}
		}
	}()

	return func() { _ = term.Restore(fd, state) }, nil
}
