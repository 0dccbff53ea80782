// Package cmd wires the trainer together behind the eartrain command.
package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"gitlab.com/gomidi/midi/v2"

	"github.com/0xlemi/eartrain/internal/audio"
	"github.com/0xlemi/eartrain/internal/midiin"
	"github.com/0xlemi/eartrain/internal/pitch"
	"github.com/0xlemi/eartrain/internal/recorder"
	"github.com/0xlemi/eartrain/internal/trainer"
	"github.com/0xlemi/eartrain/internal/ui"
	"github.com/0xlemi/eartrain/internal/web"
)

var (
	flagOctaveStart int
	flagOctaveEnd   int
	flagWindow      int
	flagThreshold   float64
	flagHoldMs      int
	flagPerfect     float64
	flagRotateMs    int
	flagFrameMs     int

	flagBufferSize int
	flagHopSize    int
	flagSampleRate int
	flagChannels   int
	flagGain       float64

	flagMIDI     bool
	flagMIDIPort string

	flagWebAddr string
	flagRecord  string
	flagNoUI    bool

	flagLogFile string
	flagDebug   bool
)

var rootCmd = &cobra.Command{
	Use:   "eartrain",
	Short: "Pitch matching practice in the terminal",
	Long: `EarTrain picks random target notes and listens while you sing or play
them back. Hold the right pitch to pass a target; the next one is drawn
automatically. Progress, intonation and statistics render live in the
terminal, and can additionally be served over HTTP or logged to a MIDI
file.`,
	SilenceUsage: true,
	RunE:         run,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cfg := trainer.DefaultConfig()

	rootCmd.Flags().IntVar(&flagOctaveStart, "octave-start", cfg.OctaveStart, "lowest octave targets are drawn from")
	rootCmd.Flags().IntVar(&flagOctaveEnd, "octave-end", cfg.OctaveEnd, "highest octave targets are drawn from")
	rootCmd.Flags().IntVar(&flagWindow, "window", cfg.WindowCapacity, "stability vote window size in frames")
	rootCmd.Flags().Float64Var(&flagThreshold, "threshold", cfg.VoteThreshold, "majority share a note needs to count as stable")
	rootCmd.Flags().IntVar(&flagHoldMs, "hold-ms", cfg.HoldMs, "how long a match must hold before it passes, in ms")
	rootCmd.Flags().Float64Var(&flagPerfect, "perfect-cents", cfg.PerfectCents, "maximum deviation in cents still judged on pitch")
	rootCmd.Flags().IntVar(&flagRotateMs, "rotate-ms", cfg.RotateMs, "pause on a passed target before the next draw, in ms")
	rootCmd.Flags().IntVar(&flagFrameMs, "frame-ms", cfg.FrameMs, "analysis cadence in ms (0 derives it from the hop size)")

	rootCmd.Flags().IntVar(&flagBufferSize, "buffer-size", 2048, "analysis frame length in samples")
	rootCmd.Flags().IntVar(&flagHopSize, "hop-size", 512, "hop between analysis frames in samples")
	rootCmd.Flags().IntVar(&flagSampleRate, "sample-rate", 44100, "capture sample rate in Hz")
	rootCmd.Flags().IntVar(&flagChannels, "channels", 1, "capture channel count")
	rootCmd.Flags().Float64Var(&flagGain, "gain", 5.0, "input amplification factor")

	rootCmd.Flags().BoolVar(&flagMIDI, "midi", false, "practice with a MIDI keyboard instead of the microphone")
	rootCmd.Flags().StringVar(&flagMIDIPort, "midi-port", "", "MIDI input port name (default: first available)")

	rootCmd.Flags().StringVar(&flagWebAddr, "web", "", "serve session state over HTTP on this address, e.g. :8787")
	rootCmd.Flags().StringVar(&flagRecord, "record", "", "write passed targets to this MIDI file")
	rootCmd.Flags().BoolVar(&flagNoUI, "no-ui", false, "run headless; pair with --web or --record")

	rootCmd.PersistentFlags().StringVar(&flagLogFile, "log-file", "", "write logs to this file (default: discard)")
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "log at debug level with source positions")
}

func run(_ *cobra.Command, _ []string) error {
	log, closeLog, err := initLogger()
	if err != nil {
		return err
	}
	defer closeLog()

	cfg := trainer.DefaultConfig()
	cfg.OctaveStart = flagOctaveStart
	cfg.OctaveEnd = flagOctaveEnd
	cfg.WindowCapacity = flagWindow
	cfg.VoteThreshold = flagThreshold
	cfg.HoldMs = flagHoldMs
	cfg.PerfectCents = flagPerfect
	cfg.RotateMs = flagRotateMs
	cfg.FrameMs, err = frameCadence(flagFrameMs, flagHopSize, flagSampleRate)
	if err != nil {
		return err
	}

	source, err := buildSource(log)
	if err != nil {
		return err
	}
	if flagMIDI {
		defer midi.CloseDriver()
	}

	sess, err := trainer.NewSession(cfg, source, log)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}

	var rec *recorder.Recorder
	if flagRecord != "" {
		rec = recorder.New(flagRecord)
		sess.Subscribe(func(snap trainer.Snapshot) { rec.Observe(snap, time.Now()) })
	}

	if flagWebAddr != "" {
		ws := web.NewServer(flagWebAddr, sess, log)
		if err := ws.Start(); err != nil {
			return err
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			if err := ws.Shutdown(ctx); err != nil {
				log.Warn("web shutdown", "error", err)
			}
		}()
	}

	var uiErr error
	if flagNoUI {
		uiErr = runHeadless(log, sess)
	} else {
		p := tea.NewProgram(ui.NewModel(sess, cfg), tea.WithAltScreen())
		sess.Subscribe(func(snap trainer.Snapshot) { p.Send(ui.SnapshotMsg(snap)) })
		sess.OnLevel(func(db float64) { p.Send(ui.LevelMsg(db)) })

		if err := sess.Start(); err != nil {
			log.Error("starting session", "error", err)
			return err
		}
		if _, err := p.Run(); err != nil {
			uiErr = fmt.Errorf("terminal ui: %w", err)
		}
		sess.Stop()
	}

	if rec != nil {
		if err := rec.Close(); err != nil {
			log.Error("write practice log", "error", err)
		}
	}
	if uiErr != nil {
		return uiErr
	}

	sum := sess.Summary()
	fmt.Printf("Practiced %.0fs: %d targets, %d passed\n", sum.ElapsedSecs, sum.Targets, sum.Passed)
	return nil
}

// runHeadless drives the session without the terminal UI: state changes go
// to the log, and the web API or the recorder carry the output. Blocks
// until interrupted.
func runHeadless(log *slog.Logger, sess *trainer.Session) error {
	var last trainer.Status
	sess.Subscribe(func(snap trainer.Snapshot) {
		if snap.Status != last {
			last = snap.Status
			log.Debug("state change", "status", snap.Status, "target", snap.TargetName)
		}
	})

	if err := sess.Start(); err != nil {
		log.Error("starting session", "error", err)
		return err
	}

	fmt.Println("Practicing without the UI; ctrl-c stops.")
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	fmt.Println()

	sess.Stop()
	return nil
}

// frameCadence resolves the analysis cadence: an explicit --frame-ms wins,
// otherwise one hop of capture at the given rate, floored at 1ms.
func frameCadence(frameMs, hop, rate int) (int, error) {
	if frameMs != 0 {
		return frameMs, nil
	}
	if hop <= 0 || rate <= 0 {
		return 0, fmt.Errorf("derive frame cadence: hop size %d and sample rate %d must be positive", hop, rate)
	}
	return max(hop*1000/rate, 1), nil
}

// buildSource picks the input chain: microphone capture with FFT pitch
// detection, or a MIDI keyboard.
func buildSource(log *slog.Logger) (trainer.FrequencySource, error) {
	if flagMIDI {
		return midiin.New(flagMIDIPort, log), nil
	}

	capturer, err := audio.NewPortAudioCapturer(flagBufferSize, flagSampleRate, flagChannels)
	if err != nil {
		return nil, fmt.Errorf("init audio: %w", err)
	}
	capturer.SetAmplification(float32(flagGain))

	det, err := pitch.New(pitch.DefaultConfig(flagBufferSize, flagHopSize, flagSampleRate))
	if err != nil {
		return nil, err
	}
	return pitch.NewSource(capturer, det, log), nil
}

func initLogger() (*slog.Logger, func(), error) {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if flagDebug {
		opts.Level = slog.LevelDebug
		opts.AddSource = true
	}

	// The terminal belongs to the UI; logs only go somewhere when asked.
	// Headless runs have no UI to fight with, so they default to stderr.
	out := io.Writer(io.Discard)
	if flagNoUI {
		out = os.Stderr
	}
	closeLog := func() {}
	if flagLogFile != "" {
		f, err := os.OpenFile(flagLogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		out = f
		closeLog = func() { f.Close() }
	}

	log := slog.New(slog.NewTextHandler(out, opts))
	slog.SetDefault(log)
	return log, closeLog, nil
}
