package doctor

import (
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"chirp/audio"
	"chirp/config"
	"chirp/transport"
	"chirp/vad"
	"chirp/wire"
)

// Run executes interactive diagnostic checks and returns an exit code (0=all pass, 1=any fail).
func Run(configPath string) int {
	resetTerminal()
	setupInterruptHandler()

	fmt.Println("chirp doctor - interactive system diagnostics")
	fmt.Println("=============================================")

	cfg, ok := checkConfig(configPath)
	allPass := ok

	if allPass && !checkMic(cfg) {
		allPass = false
	}
	if allPass && !checkServer(cfg) {
		allPass = false
	}

	fmt.Println()
	if allPass {
		fmt.Println("All checks passed!")
	} else {
		fmt.Println("Some checks failed. See details above.")
	}

	if allPass {
		return 0
	}
	return 1
}

func checkConfig(path string) (*config.Config, bool) {
	fmt.Println()
	fmt.Println("[1/3] Configuration")

	cfg, err := config.Load(path)
	if err != nil {
		fmt.Printf("  FAIL: %v\n", err)
		return nil, false
	}
	if cfg.Server.URL == "" {
		fmt.Println("  WARN: server.url not set; the server check will be skipped")
	} else {
		fmt.Printf("  server: %s\n", cfg.Server.URL)
	}
	fmt.Printf("  audio: %d Hz, %d byte chunks\n", cfg.Audio.SampleRate, cfg.Audio.ChunkBytes)
	fmt.Printf("  vad: %s, silence hold %d ms\n", cfg.VAD.Engine, cfg.VAD.SilenceMs)
	fmt.Println("  PASS: config loads")
	return cfg, true
}

func checkMic(cfg *config.Config) bool {
	fmt.Println()
	fmt.Println("[2/3] Microphone")

	reader := bufio.NewReader(os.Stdin)

	ctx, err := audio.NewContext()
	if err != nil {
		fmt.Printf("  FAIL: cannot connect to audio: %v\n", err)
		return false
	}
	defer ctx.Close()

	devices, err := ctx.Devices()
	if err != nil {
		fmt.Printf("  FAIL: cannot list devices: %v\n", err)
		return false
	}
	if len(devices) == 0 {
		fmt.Println("  FAIL: no capture devices found")
		return false
	}

	var device *audio.DeviceInfo
	if len(devices) == 1 {
		device = &devices[0]
		fmt.Printf("Using device: %s\n", device.Name)
	} else {
		fmt.Println()
		fmt.Println("Select input device:")
		for i, d := range devices {
			fmt.Printf("  %d. %s\n", i+1, d.Name)
		}
		fmt.Printf("Choice [1-%d]: ", len(devices))

		devChoice, _ := reader.ReadString('\n')
		devChoice = strings.TrimSpace(devChoice)
		idx := 0
		if devChoice != "" {
			fmt.Sscanf(devChoice, "%d", &idx)
			idx--
		}
		if idx < 0 || idx >= len(devices) {
			fmt.Printf("  FAIL: invalid choice\n")
			return false
		}
		device = &devices[idx]
		fmt.Printf("Selected: %s\n", device.Name)
	}

	audioCfg := audio.Config{
		SampleRate: uint32(cfg.Audio.SampleRate),
		Channels:   1,
		ChunkBytes: cfg.Audio.ChunkBytes,
	}
	src, err := ctx.NewSource(device, audioCfg)
	if err != nil {
		fmt.Printf("  FAIL: cannot open microphone: %v\n", err)
		return false
	}
	defer src.Close()

	fmt.Println()
	fmt.Print("Press Enter and speak for 3 seconds...")
	reader.ReadString('\n')

	if err := src.Start(); err != nil {
		fmt.Printf("  FAIL: recording error: %v\n", err)
		return false
	}

	det := vad.NewEnergy(0)
	var captured, voiced int
	var peak float64
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		chunk, ok := src.NextChunk()
		if !ok {
			time.Sleep(10 * time.Millisecond)
			continue
		}
		captured += len(chunk)
		if det.Voiced(chunk) {
			voiced++
		}
		if p := peakLevel(chunk); p > peak {
			peak = p
		}
	}
	src.Stop()

	if captured == 0 {
		fmt.Println("  FAIL: no audio captured")
		return false
	}
	fmt.Printf("  Recorded %.1f KB, peak level %.0f%%\n", float64(captured)/1024, peak*100)
	if voiced == 0 {
		fmt.Println("  WARN: no voice detected; check the mic level")
	}
	fmt.Println("  PASS: microphone works")
	return true
}

func checkServer(cfg *config.Config) bool {
	fmt.Println()
	fmt.Println("[3/3] Voice service")

	if cfg.Server.URL == "" {
		fmt.Println("  SKIP: server.url not configured")
		return true
	}

	ch := transport.NewWebSocket(cfg.Server.URL, cfg.Server.Token)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	start := time.Now()
	if err := ch.Open(ctx); err != nil {
		fmt.Printf("  FAIL: cannot connect: %v\n", err)
		return false
	}
	defer ch.Close()
	fmt.Printf("  Connected in %d ms\n", time.Since(start).Milliseconds())

	hello := wire.EncodeControl(wire.ControlFrame{Kind: wire.KindHello, Format: wire.Format{
		Encoding:     "pcm16",
		SampleRateHz: cfg.Audio.SampleRate,
		Channels:     1,
		ChunkBytes:   cfg.Audio.ChunkBytes,
	}})
	if err := ch.Send(ctx, hello); err != nil {
		fmt.Printf("  FAIL: cannot send: %v\n", err)
		return false
	}

	data, err := ch.Receive(ctx)
	if err != nil {
		fmt.Printf("  FAIL: no response: %v\n", err)
		return false
	}
	frame, err := wire.Decode(data)
	if err != nil {
		fmt.Printf("  FAIL: undecodable response: %v\n", err)
		return false
	}
	cf, ok := frame.(wire.ControlFrame)
	if !ok || cf.Kind != wire.KindReady {
		fmt.Printf("  FAIL: expected ready, got %T\n", frame)
		return false
	}

	bye := wire.EncodeControl(wire.ControlFrame{Kind: wire.KindBye})
	ch.Send(ctx, bye)

	fmt.Println("  PASS: server answers the handshake")
	return true
}

func peakLevel(chunk []byte) float64 {
	var peak float64
	for i := 0; i+1 < len(chunk); i += 2 {
		s := math.Abs(float64(int16(binary.LittleEndian.Uint16(chunk[i:]))))
		if s > peak {
			peak = s
		}
	}
	return peak / 32768
}
