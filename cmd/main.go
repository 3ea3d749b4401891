package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/lcortes/semitone/internal/audio"
	"github.com/lcortes/semitone/internal/pitch"
	"github.com/lcortes/semitone/internal/tuner"
	"github.com/lcortes/semitone/internal/ui"
)

const (
	// Audio settings
	defaultBufferSize = 4096
	defaultSampleRate = 44100
	channels          = 1

	defaultAmplification = 4.0
	defaultTick          = 30 * time.Millisecond
)

var (
	flagBufferSize     int
	flagSampleRate     int
	flagHistory        int
	flagNoiseThreshold float64
	flagAmplify        float64
	flagEngine         string
	flagTone           float64
	flagProfile        string
	flagDebug          bool
)

// initLogger configures the shared slog logger. The TUI owns stdout, so
// logs go to stderr; at the default level that is only lifecycle noise.
func initLogger(debug bool) *slog.Logger {
	level := slog.LevelWarn
	if debug {
		level = slog.LevelDebug
	}
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	log := slog.New(h)
	slog.SetDefault(log)
	return log
}

// applyProfile maps the battery/quality trade-off onto frame size,
// history depth and tick pacing, without overriding explicit flags.
func applyProfile(cmd *cobra.Command) (time.Duration, error) {
	tick := defaultTick

	switch flagProfile {
	case "quality":
		// The flag defaults already are the quality preset.
	case "battery":
		if !cmd.Flags().Changed("buffer-size") {
			flagBufferSize = 2048
		}
		if !cmd.Flags().Changed("history") {
			flagHistory = 6
		}
		tick = 50 * time.Millisecond
	default:
		return 0, fmt.Errorf("unknown profile %q (want quality or battery)", flagProfile)
	}
	return tick, nil
}

func run(cmd *cobra.Command, _ []string) error {
	log := initLogger(flagDebug)

	tick, err := applyProfile(cmd)
	if err != nil {
		return err
	}

	cfg := pitch.AnalyzerConfig{NoiseThreshold: flagNoiseThreshold}
	var detector pitch.Detector
	switch flagEngine {
	case "acf":
		detector = pitch.NewAnalyzer(cfg)
	case "fft":
		detector = pitch.NewFFTDetector(cfg)
	default:
		return fmt.Errorf("unknown engine %q (want acf or fft)", flagEngine)
	}

	var capturer audio.Capturer
	if flagTone > 0 {
		capturer = audio.NewToneCapturer(flagTone, flagBufferSize, flagSampleRate)
	} else {
		pa, err := audio.NewPortAudioCapturer(flagBufferSize, flagSampleRate, channels)
		if err != nil {
			return err
		}
		pa.SetAmplification(float32(flagAmplify))
		capturer = pa
	}

	session := tuner.NewSession(capturer, detector, tuner.Config{
		TickInterval: tick,
		HistorySize:  flagHistory,
	}, log)

	p := tea.NewProgram(ui.NewModel(), tea.WithAltScreen())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := session.Run(ctx, func(r pitch.Reading, ok bool) {
			if ok {
				p.Send(ui.ReadingMsg(r))
			} else {
				p.Send(ui.IdleMsg{LoudnessDB: r.LoudnessDB})
			}
		})
		if err != nil {
			log.Error("session failed", "err", err)
			p.Quit()
		}
		return err
	})

	_, uiErr := p.Run()
	cancel()
	if err := g.Wait(); err != nil {
		return err
	}
	return uiErr
}

func main() {
	root := &cobra.Command{
		Use:          "semitone",
		Short:        "Terminal chromatic instrument tuner",
		Long:         "semitone listens to the microphone, estimates the fundamental pitch in real time and shows how far off the nearest note you are.",
		RunE:         run,
		SilenceUsage: true,
	}

	root.Flags().IntVar(&flagBufferSize, "buffer-size", defaultBufferSize, "samples per analysis frame (must be even)")
	root.Flags().IntVar(&flagSampleRate, "sample-rate", defaultSampleRate, "capture sample rate in Hz")
	root.Flags().IntVar(&flagHistory, "history", pitch.DefaultHistorySize, "smoothing window size in frames")
	root.Flags().Float64Var(&flagNoiseThreshold, "noise-threshold", pitch.DefaultNoiseThreshold, "RMS level below which input counts as silence")
	root.Flags().Float64Var(&flagAmplify, "amplify", defaultAmplification, "input gain factor")
	root.Flags().StringVar(&flagEngine, "engine", "acf", "detection engine: acf or fft")
	root.Flags().Float64Var(&flagTone, "tone", 0, "synthesize a test tone at this frequency instead of capturing")
	root.Flags().StringVar(&flagProfile, "profile", "quality", "analysis profile: quality or battery")
	root.Flags().BoolVar(&flagDebug, "debug", false, "enable debug logging on stderr")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
