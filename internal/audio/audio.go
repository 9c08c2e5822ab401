// SPDX-License-Identifier: MIT
/*
Package audio implements the capture side of the pipeline:
- PortAudio device enumeration filtered to usable input devices
- A per-channel ring buffer Clip fed by the capture callback
- Stream lifecycle (select/unselect) with synchronous teardown
- Optional WAV recording of the raw capture

Thread Safety:
- The Clip mutex is held only for plain copies, never during computation
- The capture callback never blocks on consumers
- Recording state is flipped with atomic operations
*/
package audio

import (
	"fmt"

	"github.com/gordonklaus/portaudio"
)

// Seam variables around the PortAudio library so device logic can be
// exercised in tests without audio hardware.
var (
	paLibInitialize          = portaudio.Initialize
	paLibTerminate           = portaudio.Terminate
	paLibDevicesFunc         = portaudio.Devices
	paLibOpenStreamFunc      = portaudio.OpenStream
	paLibDefaultInputDevFunc = portaudio.DefaultInputDevice
)

// Initialize sets up the PortAudio subsystem. Must be called before any
// other operation in this package and paired with a Terminate call.
func Initialize() error {
	if err := paLibInitialize(); err != nil {
		return fmt.Errorf("failed to initialize PortAudio: %w", err)
	}
	return nil
}

// Terminate cleanly shuts down the PortAudio subsystem.
// This should be deferred immediately after Initialize().
func Terminate() error {
	if err := paLibTerminate(); err != nil {
		return fmt.Errorf("failed to terminate PortAudio: %w", err)
	}
	return nil
}

// paDevices returns all PortAudio devices, normalizing a nil result to an
// empty slice.
func paDevices() ([]*portaudio.DeviceInfo, error) {
	devices, err := paLibDevicesFunc()
	if err != nil {
		return nil, err
	}
	if devices == nil {
		devices = []*portaudio.DeviceInfo{}
	}
	return devices, nil
}
