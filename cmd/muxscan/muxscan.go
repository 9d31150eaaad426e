package main

import (
	"fmt"
	"time"

	"golang.org/x/exp/io/i2c"

	"github.com/cyberdeck-team/cyberdeck/deck-controller/pkg/mux"
	"github.com/cyberdeck-team/cyberdeck/deck-controller/pkg/oled"
	"github.com/cyberdeck-team/cyberdeck/deck-controller/pkg/pca9685"
)

// Walks every mux channel and probes the addresses the deck cares about.
// Handy when the ribbon cable has been reseated.
func main() {
	mx, err := mux.New("/dev/i2c-1")
	if err != nil {
		fmt.Println("Failed to open I2C bus:", err)
		return
	}
	defer mx.Close()

	if err := mx.Probe(); err != nil {
		fmt.Printf("No multiplexer at 0x%02x: %v\n", mux.DefaultAddr, err)
		return
	}
	fmt.Printf("Multiplexer found at 0x%02x\n", mux.DefaultAddr)

	addrs := []struct {
		addr int
		name string
	}{
		{oled.DefaultAddr, "SSD1306 OLED"},
		{pca9685.DefaultAddr, "PCA9685 servo controller"},
	}

	for channel := 0; channel < mux.NumChannels; channel++ {
		if err := mx.SelectSinglePort(channel); err != nil {
			fmt.Printf("Channel %d: select failed: %v\n", channel, err)
			continue
		}
		time.Sleep(2 * time.Millisecond)

		for _, a := range addrs {
			if probe(a.addr) == nil {
				fmt.Printf("Channel %d: 0x%02x %s\n", channel, a.addr, a.name)
			}
		}
	}

	// Leave the mux parked on the OLED channel.
	if err := mx.SelectSinglePort(mux.ChannelOLED); err != nil {
		fmt.Println("Failed to park mux:", err)
	}
}

func probe(addr int) error {
	dev, err := i2c.Open(&i2c.Devfs{Dev: "/dev/i2c-1"}, addr)
	if err != nil {
		return err
	}
	defer dev.Close()
	var buf [1]byte
	return dev.Read(buf[:])
}
