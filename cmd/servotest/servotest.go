package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/cyberdeck-team/cyberdeck/deck-controller/pkg/busarbiter"
	"github.com/cyberdeck-team/cyberdeck/deck-controller/pkg/mux"
	"github.com/cyberdeck-team/cyberdeck/deck-controller/pkg/pca9685"
)

func main() {
	mx, err := mux.New("/dev/i2c-1")
	muxPresent := err == nil && mx.Probe() == nil
	if !muxPresent {
		fmt.Println("No multiplexer, assuming direct connection")
		mx = mux.Dummy()
	}
	defer mx.Close()

	arbiter := busarbiter.New(mx, mux.ChannelOLED, muxPresent)

	guard, err := arbiter.AcquireScoped(mux.ChannelServo)
	if err != nil {
		fmt.Println("Failed to reach servo channel:", err)
		guard.Release()
		return
	}
	pwmController, err := pca9685.New("/dev/i2c-1")
	if err == nil {
		err = pwmController.Configure()
	}
	guard.Release()
	if err != nil {
		fmt.Println("Failed to set up PCA9685:", err)
		return
	}
	defer pwmController.Close()

	fmt.Println(
		`Commands:
    a <n> <degrees>   # Move servo on port n to an angle

<n>        Port number 0-15
<degrees>  Angle 0-270\n`)

	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Print("> ")
		line, err := reader.ReadString('\n')
		if err != nil {
			fmt.Println("\nFailed to read stdin: ", err)
			return
		}

		parts := strings.Split(strings.TrimSpace(line), " ")
		if parts[0] != "a" {
			continue
		}
		if len(parts) < 3 {
			fmt.Println("Not enough parameters")
			continue
		}
		n, err := strconv.Atoi(parts[1])
		if err != nil || n < 0 || n > 15 {
			fmt.Println("Expected port 0-15, not ", parts[1])
			continue
		}
		degrees, err := strconv.ParseFloat(parts[2], 64)
		if err != nil {
			fmt.Println("Expected float, not ", parts[2])
			continue
		}

		guard, acquireErr := arbiter.AcquireScoped(mux.ChannelServo)
		if acquireErr != nil {
			fmt.Println("Bus unavailable:", acquireErr)
		} else {
			fmt.Printf("Setting servo %d to %.1f degrees\n", n, degrees)
			if err := pwmController.SetAngle(n, degrees); err != nil {
				fmt.Println("Failed to write to PCA9685: ", err)
			}
		}
		guard.Release()
	}
}
