// SPDX-License-Identifier: MIT

// Package tui is the interactive input-device picker behind
// `lightdesk devices --pick`.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"lightdesk/internal/audio"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(lipgloss.Color("#25A065")).
			Padding(0, 1).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5"))

	highlightStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#25A065")).
			Bold(true)
)

var (
	keyQuit   = key.NewBinding(key.WithKeys("q", "ctrl+c"))
	keyUp     = key.NewBinding(key.WithKeys("up", "k"))
	keyDown   = key.NewBinding(key.WithKeys("down", "j"))
	keyEnter  = key.NewBinding(key.WithKeys("enter"))
	keyEscape = key.NewBinding(key.WithKeys("esc"))
)

// SampleRates are the rates offered on the configuration screen.
var SampleRates = []float64{44100, 48000, 88200, 96000}

// ScreenType defines which screen is currently active.
type ScreenType int

const (
	ListScreen ScreenType = iota
	ConfigScreen
)

// Selection is the device and rate the user confirmed.
type Selection struct {
	DeviceID   int
	DeviceName string
	SampleRate float64
}

// DeviceListModel lists input devices and lets the user pick one and a
// sample rate.
type DeviceListModel struct {
	load func() ([]audio.Device, error)

	devices       []audio.Device
	selectedIndex int
	viewport      viewport.Model
	ready         bool
	err           error
	activeScreen  ScreenType

	sampleRateIndex int
	selection       *Selection
}

type devicesMsg struct {
	devices []audio.Device
}

type errMsg struct {
	err error
}

// NewDeviceListModel creates a picker that lists devices from load.
func NewDeviceListModel(load func() ([]audio.Device, error)) DeviceListModel {
	return DeviceListModel{load: load, activeScreen: ListScreen}
}

// Init fetches the device list.
func (m DeviceListModel) Init() tea.Cmd {
	load := m.load
	return func() tea.Msg {
		devices, err := load()
		if err != nil {
			return errMsg{err}
		}
		return devicesMsg{devices}
	}
}

// Selection returns the confirmed choice, if any.
func (m DeviceListModel) Selection() (Selection, bool) {
	if m.selection == nil {
		return Selection{}, false
	}
	return *m.selection, true
}

func (m DeviceListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-4)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - 4
		}
		m.refresh()

	case devicesMsg:
		m.devices = msg.devices
		m.refresh()

	case errMsg:
		m.err = msg.err

	case tea.KeyMsg:
		if key.Matches(msg, keyQuit) || m.err != nil {
			return m, tea.Quit
		}
		switch m.activeScreen {
		case ListScreen:
			m.updateList(msg)
		case ConfigScreen:
			if m.updateConfig(msg) {
				return m, tea.Quit
			}
		}
	}

	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m *DeviceListModel) updateList(msg tea.KeyMsg) {
	switch {
	case key.Matches(msg, keyUp):
		if m.selectedIndex > 0 {
			m.selectedIndex--
		}
	case key.Matches(msg, keyDown):
		if m.selectedIndex < len(m.devices)-1 {
			m.selectedIndex++
		}
	case key.Matches(msg, keyEnter):
		if len(m.devices) == 0 {
			return
		}
		m.activeScreen = ConfigScreen
		m.sampleRateIndex = 0
		for i, rate := range SampleRates {
			if rate == m.devices[m.selectedIndex].DefaultSampleRate {
				m.sampleRateIndex = i
				break
			}
		}
	}
	m.refresh()
}

// updateConfig reports true when the user confirmed a selection.
func (m *DeviceListModel) updateConfig(msg tea.KeyMsg) bool {
	switch {
	case key.Matches(msg, keyEscape):
		m.activeScreen = ListScreen
	case key.Matches(msg, keyUp):
		if m.sampleRateIndex > 0 {
			m.sampleRateIndex--
		}
	case key.Matches(msg, keyDown):
		if m.sampleRateIndex < len(SampleRates)-1 {
			m.sampleRateIndex++
		}
	case key.Matches(msg, keyEnter):
		d := m.devices[m.selectedIndex]
		m.selection = &Selection{DeviceID: d.ID, DeviceName: d.Name, SampleRate: SampleRates[m.sampleRateIndex]}
		return true
	}
	m.refresh()
	return false
}

func (m *DeviceListModel) refresh() {
	if !m.ready {
		return
	}
	if m.activeScreen == ConfigScreen {
		m.viewport.SetContent(m.renderDeviceConfig())
	} else {
		m.viewport.SetContent(m.renderDevices())
	}
}

// View renders the UI.
func (m DeviceListModel) View() string {
	if m.err != nil {
		return fmt.Sprintf("Error: %v\n\nPress any key to exit.", m.err)
	}
	if !m.ready {
		return "Initializing..."
	}

	var title, help string
	if m.activeScreen == ListScreen {
		title = titleStyle.Render("Input Devices")
		help = infoStyle.Render("↑/↓: Navigate • Enter: Select • q: Quit")
	} else {
		title = titleStyle.Render("Capture Settings")
		help = infoStyle.Render("↑/↓: Sample Rate • Enter: Use • Esc: Back • q: Quit")
	}
	return fmt.Sprintf("%s\n\n%s\n\n%s", title, m.viewport.View(), help)
}

func (m DeviceListModel) renderDevices() string {
	if len(m.devices) == 0 {
		return "No input devices found."
	}

	var sb strings.Builder
	for i, d := range m.devices {
		info := fmt.Sprintf("[%d] %s (%s)\n", d.ID, d.Name, d.HostAPI)
		info += fmt.Sprintf("    Input channels: %d\n", d.MaxInputChannels)
		info += fmt.Sprintf("    Default sample rate: %.0f Hz, latency %.1f/%.1f ms\n",
			d.DefaultSampleRate, d.LowInputLatency.Seconds()*1000, d.HighInputLatency.Seconds()*1000)
		if i == m.selectedIndex {
			info = highlightStyle.Render(info)
		}
		sb.WriteString(info)
		sb.WriteString("\n")
	}
	return sb.String()
}

func (m DeviceListModel) renderDeviceConfig() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Capture from: %s\n\nSample Rate:\n", m.devices[m.selectedIndex].Name)
	for i, rate := range SampleRates {
		marker := " "
		if i == m.sampleRateIndex {
			marker = "▶"
		}
		line := fmt.Sprintf("  %s %.0f Hz\n", marker, rate)
		if i == m.sampleRateIndex {
			line = highlightStyle.Render(line)
		}
		sb.WriteString(line)
	}
	return sb.String()
}

// PickInputDevice runs the picker full screen. ok is false when the user
// quit without choosing.
func PickInputDevice() (sel Selection, ok bool, err error) {
	p := tea.NewProgram(NewDeviceListModel(audio.InputDevices), tea.WithAltScreen())
	final, err := p.Run()
	if err != nil {
		return Selection{}, false, err
	}
	m := final.(DeviceListModel)
	if m.err != nil {
		return Selection{}, false, m.err
	}
	sel, ok = m.Selection()
	return sel, ok, nil
}
