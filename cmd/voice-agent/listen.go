package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"voice-agent/internal/models"
	"voice-agent/internal/voice/dispatcher"
	"voice-agent/internal/voice/feedback"
	"voice-agent/internal/voice/speech"
)

var listenFlags struct {
	gateway string
}

var listenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Capture speech from a recognition gateway and act on each command",
	Long: "listen connects to the speech gateway, interprets every final transcript as\n" +
		"a voice command, speaks the feedback back through the gateway and prints\n" +
		"each outcome until interrupted.",
	RunE: runListen,
}

func init() {
	f := listenCmd.Flags()
	f.StringVar(&listenFlags.gateway, "gateway", "", "Speech gateway websocket URL (default: speech.gateway_url)")
	addOutputFlag(f)
}

func runListen(cmd *cobra.Command, _ []string) error {
	if err := checkFormat(outputFormat); err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("config load failed: %w", err)
	}
	if listenFlags.gateway != "" {
		cfg.Speech.GatewayURL = listenFlags.gateway
	}
	if cfg.Speech.GatewayURL == "" {
		return speech.ErrCaptureUnavailable
	}

	zapLog := newZapLogger(cfg)
	defer zapLog.Sync()

	ctx, stop := signal.NotifyContext(contextOrBackground(cmd), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, zapLog, 3)
	if err != nil {
		return err
	}
	defer a.Close()

	synth, err := feedback.DialWebsocketSynthesizer(ctx, cfg.Speech.GatewayURL)
	if err != nil {
		zapLog.Warn("speech feedback unavailable", zap.Error(err))
	}

	var speaker dispatcher.Speaker
	if synth != nil {
		sink := a.newSink(synth)
		defer synth.Close()
		defer sink.Close()
		speaker = sink
	}
	d := a.newDispatcher(speaker)

	adapter := a.newAdapter(speech.NewWebsocketRecognizer(cfg.Speech.GatewayURL, speechLogger{a.log}))
	stream := d.Subscribe(ctx, adapter)
	if err := adapter.Start(ctx); err != nil {
		return err
	}
	defer adapter.Stop()

	zapLog.Info("Listening for voice commands", zap.String("gateway", cfg.Speech.GatewayURL))

	out := cmd.OutOrStdout()
	stream.Run(ctx, func(o models.CommandOutcome) {
		if err := writeOutput(out, outputFormat, o); err != nil {
			zapLog.Warn("failed to print outcome", zap.Error(err))
		}
	})

	zapLog.Info("Stopped listening")
	return nil
}
