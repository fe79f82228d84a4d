package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"time"

	"chirp/audio"
	"chirp/config"
	"chirp/doctor"
	"chirp/log"
	"chirp/session"
	"chirp/shutdown"
	"chirp/transport"
	"chirp/vad"
)

var version = "dev"

func main() {
	configFlag := flag.String("config", "", "Config file path (default: ~/.config/chirp/config.toml)")
	urlFlag := flag.String("url", "", "Voice service websocket URL (overrides config)")
	setupFlag := flag.Bool("setup", false, "Select microphone device (otherwise uses system default)")
	deviceFlag := flag.String("device", "", "Use named microphone device")
	oneshotFlag := flag.Bool("oneshot", false, "Exit after a single exchange")
	versionFlag := flag.Bool("version", false, "Print version and exit")
	doctorFlag := flag.Bool("doctor", false, "Run system diagnostics and exit")
	crashFlag := flag.Bool("crash", false, "Trigger synthetic panic for testing crash logging")
	logPathFlag := flag.String("logpath", "", "log directory path (default: OS-specific location, use ./ for current dir)")
	testFlag := flag.Bool("test", false, "Test mode (headless, stdin-driven, loopback server)")
	flag.Parse()

	// Resolve log directory early
	logPath, err := log.ResolveDir(*logPathFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to resolve log directory: %v\n", err)
		os.Exit(1)
	}
	log.SetDir(logPath)

	if err := log.EnsureDir(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not create log directory: %v\n", err)
	}

	crashPath := filepath.Join(log.Dir(), "crash_log.txt")
	crashFile, err := os.OpenFile(crashPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err == nil {
		fmt.Fprintf(crashFile, "\n=== Session %s [pid=%d] ===\n", time.Now().Format("2006-01-02 15:04:05"), os.Getpid())
		debug.SetCrashOutput(crashFile, debug.CrashOptions{})
	}

	if *crashFlag {
		panic("TEST CRASH: synthetic panic to verify crash logging")
	}

	if *versionFlag {
		fmt.Printf("chirp %s\n", version)
		os.Exit(0)
	}

	if *doctorFlag {
		os.Exit(doctor.Run(*configFlag))
	}

	cfg, err := config.Load(*configFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if *urlFlag != "" {
		cfg.Server.URL = *urlFlag
	}
	if *deviceFlag != "" {
		cfg.Audio.Device = *deviceFlag
	}
	if *oneshotFlag {
		cfg.Session.OneShot = true
	}

	if err := log.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not init logging: %v\n", err)
	}
	defer log.Close()

	if *testFlag {
		args := flag.Args()
		if len(args) == 0 {
			fmt.Fprintln(os.Stderr, "Usage: chirp -test <wav-file>")
			os.Exit(1)
		}
		os.Exit(runTestMode(cfg, args[0]))
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	os.Exit(run(cfg, *setupFlag))
}

func run(cfg *config.Config, setup bool) int {
	audioCtx, err := audio.NewContext()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing audio: %v\n", err)
		return 1
	}
	defer audioCtx.Close()

	var device *audio.DeviceInfo
	if setup {
		device, err = audio.SelectDevice(audioCtx)
	} else {
		device, err = audio.ResolveDevice(audioCtx, cfg.Audio.Device)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	if device != nil && audio.IsBluetooth(device.Name) {
		fmt.Println("Note: bluetooth mic detected, capture quality may suffer")
	}

	audioCfg := audio.Config{
		SampleRate: uint32(cfg.Audio.SampleRate),
		Channels:   1,
		ChunkBytes: cfg.Audio.ChunkBytes,
	}
	src, err := audioCtx.NewSource(device, audioCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening microphone: %v\n", err)
		return 1
	}
	defer src.Close()
	sink, err := audioCtx.NewSink(audioCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening speaker: %v\n", err)
		return 1
	}
	defer sink.Close()

	det, err := newDetector(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	ch := transport.NewWebSocket(cfg.Server.URL, cfg.Server.Token)
	notifier := newConsoleNotifier(cfg, audioCtx, audioCfg)

	sess, err := session.New(cfg.SessionConfig(), ch, src, sink, det, notifier)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	log.SessionStart(cfg.Server.URL, cfg.Audio.SampleRate)
	fmt.Printf("chirp %s connecting to %s\n", version, cfg.Server.URL)
	fmt.Println("Commands: <Enter> end turn, i interrupt, q quit")

	sigCh := make(chan os.Signal, 1)
	shutdown.Notify(sigCh)
	go func() {
		<-sigCh
		sess.Stop()
	}()

	go stdinCommands(sess)

	err = sess.Run(context.Background())
	log.SessionEnd(sess.Turns())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Session ended: %v\n", err)
		return 1
	}
	return 0
}

func newDetector(cfg *config.Config) (vad.Detector, error) {
	if cfg.VAD.Engine == "energy" {
		return vad.NewEnergy(cfg.VAD.EnergyThreshold), nil
	}
	return vad.NewWebRTC(cfg.Audio.SampleRate, cfg.VAD.Aggressiveness)
}

// stdinCommands maps terminal input onto session controls. Line-buffered
// on purpose; no raw mode fighting with the device picker.
func stdinCommands(sess *session.Session) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		switch strings.TrimSpace(scanner.Text()) {
		case "":
			sess.EndTurn()
		case "i":
			sess.Interrupt()
		case "q":
			sess.Stop()
			return
		}
	}
	// stdin closed; keep the session running on VAD alone
}
