// SPDX-License-Identifier: MIT
package audio

import (
	"fmt"
	"io"
	"time"

	"github.com/gordonklaus/portaudio"
	"github.com/pkg/errors"
)

// Device lookup errors.
var (
	ErrBadDevice     = errors.New("audio: invalid device id")
	ErrNoInputDevice = errors.New("audio: device has no input channels")
)

// DefaultDeviceID selects the system default input device.
const DefaultDeviceID = -1

// Hooks over the PortAudio host API so device handling can be tested
// without audio hardware.
var (
	paDevicesFunc      = portaudio.Devices
	paDefaultInputFunc = portaudio.DefaultInputDevice
)

// Device describes one PortAudio device.
type Device struct {
	ID                int
	Name              string
	HostAPI           string
	MaxInputChannels  int
	MaxOutputChannels int
	DefaultSampleRate float64
	LowInputLatency   time.Duration
	HighInputLatency  time.Duration
}

// IsInput reports whether the device can capture.
func (d Device) IsInput() bool { return d.MaxInputChannels > 0 }

// Kind is "Input", "Output" or "Input/Output".
func (d Device) Kind() string {
	switch {
	case d.MaxInputChannels > 0 && d.MaxOutputChannels > 0:
		return "Input/Output"
	case d.MaxInputChannels > 0:
		return "Input"
	case d.MaxOutputChannels > 0:
		return "Output"
	default:
		return "None"
	}
}

// Initialize sets up the PortAudio subsystem. Pair every call with Terminate.
func Initialize() error {
	return errors.Wrap(portaudio.Initialize(), "audio: initialize PortAudio")
}

// Terminate shuts the PortAudio subsystem down.
func Terminate() error {
	return errors.Wrap(portaudio.Terminate(), "audio: terminate PortAudio")
}

func toDevice(id int, info *portaudio.DeviceInfo) Device {
	d := Device{
		ID:                id,
		Name:              info.Name,
		MaxInputChannels:  info.MaxInputChannels,
		MaxOutputChannels: info.MaxOutputChannels,
		DefaultSampleRate: info.DefaultSampleRate,
		LowInputLatency:   info.DefaultLowInputLatency,
		HighInputLatency:  info.DefaultHighInputLatency,
	}
	if info.HostApi != nil {
		d.HostAPI = info.HostApi.Name
	}
	return d
}

// HostDevices lists every device PortAudio reports. IDs are list indices.
func HostDevices() ([]Device, error) {
	infos, err := paDevicesFunc()
	if err != nil {
		return nil, errors.Wrap(err, "audio: list devices")
	}
	devices := make([]Device, len(infos))
	for i, info := range infos {
		devices[i] = toDevice(i, info)
	}
	return devices, nil
}

// InputDevices lists only devices with input channels.
func InputDevices() ([]Device, error) {
	all, err := HostDevices()
	if err != nil {
		return nil, err
	}
	inputs := all[:0]
	for _, d := range all {
		if d.IsInput() {
			inputs = append(inputs, d)
		}
	}
	return inputs, nil
}

// InputDevice resolves deviceID to a capture device. DefaultDeviceID picks
// the system default.
func InputDevice(deviceID int) (*portaudio.DeviceInfo, error) {
	if deviceID == DefaultDeviceID {
		info, err := paDefaultInputFunc()
		if err != nil {
			return nil, errors.Wrap(err, "audio: default input device")
		}
		return info, nil
	}

	infos, err := paDevicesFunc()
	if err != nil {
		return nil, errors.Wrap(err, "audio: list devices")
	}
	if deviceID < 0 || deviceID >= len(infos) {
		return nil, errors.Wrapf(ErrBadDevice, "id %d (have %d devices)", deviceID, len(infos))
	}
	info := infos[deviceID]
	if info.MaxInputChannels < 1 {
		return nil, errors.Wrapf(ErrNoInputDevice, "%q", info.Name)
	}
	return info, nil
}

// PrintDevices writes a human-readable device table to w.
func PrintDevices(w io.Writer, devices []Device) {
	fmt.Fprintf(w, "\nAvailable Audio Devices\n\n")
	for _, d := range devices {
		fmt.Fprintf(w, "[%d] %s (%s)\n", d.ID, d.Name, d.Kind())
		fmt.Fprintf(w, "    Input channels: %d, Output channels: %d\n", d.MaxInputChannels, d.MaxOutputChannels)
		fmt.Fprintf(w, "    Default sample rate: %.0f Hz\n", d.DefaultSampleRate)
		fmt.Fprintf(w, "    Latency: Low=%.2fms, High=%.2fms\n",
			d.LowInputLatency.Seconds()*1000, d.HighInputLatency.Seconds()*1000)
		fmt.Fprintln(w)
	}
}
