// SPDX-License-Identifier: MIT
package audio

import (
	"fmt"

	"github.com/gordonklaus/portaudio"
)

// Device describes one usable audio input device.
type Device struct {
	ID                int // Index into the usable device list, stable until the next rescan.
	Name              string
	MaxInputChannels  int
	DefaultSampleRate float64
}

// usableDevices returns the PortAudio devices the pipeline can capture from:
// those exposing at least one and at most two input channels. The returned
// DeviceInfo slice is parallel to the Device summaries.
func usableDevices() ([]Device, []*portaudio.DeviceInfo, error) {
	infos, err := paDevices()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to enumerate devices: %w", err)
	}

	var devices []Device
	var usable []*portaudio.DeviceInfo
	for _, info := range infos {
		if info.MaxInputChannels < 1 || info.MaxInputChannels > 2 {
			continue
		}
		if info.Name == "" {
			return nil, nil, fmt.Errorf("device with %d input channels has no name", info.MaxInputChannels)
		}
		devices = append(devices, Device{
			ID:                len(devices),
			Name:              info.Name,
			MaxInputChannels:  info.MaxInputChannels,
			DefaultSampleRate: info.DefaultSampleRate,
		})
		usable = append(usable, info)
	}

	return devices, usable, nil
}

// HostDevices returns summaries of all usable input devices.
func HostDevices() ([]Device, error) {
	devices, _, err := usableDevices()
	return devices, err
}

// ListDevices prints the usable input devices, one per line, with channel
// count and default sample rate.
func ListDevices() error {
	devices, err := HostDevices()
	if err != nil {
		return err
	}

	if len(devices) == 0 {
		fmt.Println("No usable input devices found (need 1 or 2 input channels)")
		return nil
	}

	fmt.Printf("\nUsable Audio Input Devices\n\n")
	for _, device := range devices {
		channels := "mono"
		if device.MaxInputChannels == 2 {
			channels = "stereo"
		}
		fmt.Printf("[%d] %s (%s)\n", device.ID, device.Name, channels)
		fmt.Printf("    Default sample rate: %.0f Hz\n", device.DefaultSampleRate)
	}
	fmt.Println()

	return nil
}
