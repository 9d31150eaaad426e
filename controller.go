package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/cyberdeck-team/cyberdeck/deck-controller/pkg/animation"
	"github.com/cyberdeck-team/cyberdeck/deck-controller/pkg/busarbiter"
	"github.com/cyberdeck-team/cyberdeck/deck-controller/pkg/controlloop"
	"github.com/cyberdeck-team/cyberdeck/deck-controller/pkg/encoder"
	"github.com/cyberdeck-team/cyberdeck/deck-controller/pkg/gpioinput"
	"github.com/cyberdeck-team/cyberdeck/deck-controller/pkg/mux"
	"github.com/cyberdeck-team/cyberdeck/deck-controller/pkg/oled"
	"github.com/cyberdeck-team/cyberdeck/deck-controller/pkg/pca9685"
	"github.com/cyberdeck-team/cyberdeck/deck-controller/pkg/servo"
	"github.com/cyberdeck-team/cyberdeck/deck-controller/pkg/state"
)

const i2cDevice = "/dev/i2c-1"

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	fmt.Print("---- Cyberdeck deck controller ----\n\n")

	// Our global context, we cancel it to trigger shutdown.
	ctx, cancel := context.WithCancel(context.Background())

	signals := make(chan os.Signal, 2)
	signal.Notify(signals, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		s := <-signals
		log.Println("Signal: ", s)
		cancel()
		// If the loop wedges mid-shutdown, bail out anyway.
		time.Sleep(5 * time.Second)
		os.Exit(0)
	}()

	store := &state.Store{
		ConfigPath: envOr("DECK_CONFIG", "config.json"),
		StatePath:  envOr("DECK_STATE", "position_state.json"),
	}
	config := store.LoadConfig()

	// Probe the mux; without one every device is assumed directly wired.
	var mx mux.Interface
	muxPresent := false
	if m, err := mux.New(i2cDevice); err != nil {
		fmt.Printf("Failed to open I2C bus for mux: %v\n", err)
		mx = mux.Dummy()
	} else if err := m.Probe(); err != nil {
		fmt.Printf("No multiplexer at 0x%02x, assuming direct connections\n", mux.DefaultAddr)
		_ = m.Close()
		mx = mux.Dummy()
	} else {
		fmt.Printf("Multiplexer found at 0x%02x\n", mux.DefaultAddr)
		mx = m
		muxPresent = true
	}
	defer mx.Close()

	arbiter := busarbiter.New(mx, mux.ChannelOLED, muxPresent)

	animationConfig := animation.LoadConfig(envOr("DECK_ANIMATION", "animation.yaml"))

	// Display first: it owns the idle channel.
	var display controlloop.DisplayDevice
	var frames controlloop.FrameSource
	if err := arbiter.Switch(mux.ChannelOLED); err != nil {
		fmt.Println("Failed to reach OLED channel:", err)
	} else if dev, err := oled.New(i2cDevice); err != nil {
		fmt.Println("Failed to initialize OLED, display disabled:", err)
	} else {
		defer dev.Close()
		display = dev
		frames = animation.NewSpectrum(animationConfig)
	}

	// Then the servo controller on its own channel; the guard puts the bus
	// back on the OLED channel whatever happens.
	var actuator controlloop.ActuatorDevice
	func() {
		guard, err := arbiter.AcquireScoped(mux.ChannelServo)
		defer guard.Release()
		if err != nil {
			fmt.Println("Failed to reach servo channel, actuator disabled:", err)
			return
		}
		dev, err := pca9685.New(i2cDevice)
		if err != nil {
			fmt.Println("Failed to open PCA9685, actuator disabled:", err)
			return
		}
		if err := dev.Configure(); err != nil {
			fmt.Println("Failed to configure PCA9685, actuator disabled:", err)
			_ = dev.Close()
			return
		}
		actuator = dev
	}()

	// The encoder is the deck's only input; without it there is nothing
	// for this process to do.
	input, err := gpioinput.New(
		envOr("DECK_ENCODER_CLK", gpioinput.DefaultCLKPin),
		envOr("DECK_ENCODER_DT", gpioinput.DefaultDTPin),
		envOr("DECK_ENCODER_SW", gpioinput.DefaultSWPin),
	)
	if err != nil {
		if os.Getenv("DECK_DUMMY_INPUT") == "true" {
			fmt.Println("Encoder unavailable, using dummy input:", err)
			input = gpioinput.Dummy()
		} else {
			log.Fatalf("No usable input source: %v", err)
		}
	}
	defer input.Close()

	// Seed the model from the saved position, then drive the servo there.
	mode := config.DefaultMode
	model := servo.NewPositionModel(config, mode)
	if saved, ok := store.LoadState(); ok {
		if m, err := servo.ParseMode(saved.Mode); err == nil {
			mode = m
		}
		model = servo.NewPositionModel(config, mode)
		model.SeedAngle(saved.LastPosition)
		fmt.Printf("Restored position %.1f degrees in %v mode\n", model.Angle(), mode)
	}

	queue := encoder.NewQueue(encoder.DefaultQueueSize)
	sampler := encoder.NewSampler(input, queue)
	var samplerDone sync.WaitGroup
	samplerDone.Add(1)
	go sampler.Loop(ctx, &samplerDone)

	loop := &controlloop.Loop{
		Arbiter:         arbiter,
		Model:           model,
		Events:          queue,
		Saver:           store,
		Display:         display,
		Frames:          frames,
		Actuator:        actuator,
		ActuatorChannel: mux.ChannelServo,
		ServoPort:       config.ServoChannel,
		FPS:             animationConfig.FPS,
	}

	// Put the servo on the restored position before the loop starts.
	if actuator != nil {
		guard, err := arbiter.AcquireScoped(mux.ChannelServo)
		if err == nil {
			if err := actuator.SetAngle(config.ServoChannel, model.Angle()); err != nil {
				fmt.Println("Initial servo write failed:", err)
			}
		}
		guard.Release()
	}

	fmt.Printf("Mode: %v, Position: %.1f degrees\n", model.Mode(), model.Angle())
	loop.Run(ctx)

	samplerDone.Wait()
	fmt.Println("Shutdown complete")
}
