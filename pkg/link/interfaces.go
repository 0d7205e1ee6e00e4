package link

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/gousb"
	"go.bug.st/serial/enumerator"
)

// InterfaceKind categorizes the ways a socket can be reached.
type InterfaceKind string

const (
	InterfaceKindSerial InterfaceKind = "serial"
	InterfaceKindUSB    InterfaceKind = "usb"
	InterfaceKindSim    InterfaceKind = "simulator"
)

// InterfaceInfo describes a detected board or serial port.
type InterfaceInfo struct {
	Kind        InterfaceKind
	Description string
	VendorID    uint16
	ProductID   uint16
	Serial      string
	Path        string // serial device, empty for USB only entries
}

// Label returns a user-friendly description for the interface.
func (i InterfaceInfo) Label() string {
	switch {
	case i.Path != "" && i.Description != "":
		return fmt.Sprintf("%s (%s)", i.Path, i.Description)
	case i.Path != "":
		return i.Path
	case i.Description != "":
		return i.Description
	case i.Kind != "":
		return fmt.Sprintf("%s (%04X:%04X)", string(i.Kind), i.VendorID, i.ProductID)
	}
	return fmt.Sprintf("Interface %04X:%04X", i.VendorID, i.ProductID)
}

// DiscoverInterfaces lists serial ports, then USB devices that match a
// known USB serial bridge but have no port yet (missing driver or
// permissions). It always returns the simulator entry last so the tool can
// be exercised without hardware.
func DiscoverInterfaces(ctx context.Context) ([]InterfaceInfo, error) {
	results, err := serialPorts()
	if err != nil {
		return nil, fmt.Errorf("link: list serial ports: %w", err)
	}

	usb, err := usbDevices(ctx)
	if err != nil {
		return results, fmt.Errorf("link: list usb devices: %w", err)
	}
	for _, u := range usb {
		if !hasPortFor(results, u) {
			results = append(results, u)
		}
	}

	results = append(results, InterfaceInfo{
		Kind:        InterfaceKindSim,
		Description: "Simulator (no hardware)",
	})
	return results, nil
}

func serialPorts() ([]InterfaceInfo, error) {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, err
	}
	var results []InterfaceInfo
	for _, p := range ports {
		info := InterfaceInfo{Kind: InterfaceKindSerial, Path: p.Name}
		if p.IsUSB {
			info.VendorID = parseID(p.VID)
			info.ProductID = parseID(p.PID)
			info.Serial = p.SerialNumber
			info.Description = p.Product
			if known, ok := lookupBridge(info.VendorID, info.ProductID); ok && info.Description == "" {
				info.Description = known.Description
			}
		}
		results = append(results, info)
	}
	return results, nil
}

func usbDevices(ctx context.Context) ([]InterfaceInfo, error) {
	var results []InterfaceInfo
	usb := gousb.NewContext()
	defer usb.Close()

	_, err := usb.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		select {
		case <-ctx.Done():
			return false
		default:
		}

		if info, ok := classifyUSBDevice(desc); ok {
			results = append(results, info)
		}
		return false
	})
	if err != nil && err != gousb.ErrorAccess {
		return results, err
	}
	return results, nil
}

func classifyUSBDevice(desc *gousb.DeviceDesc) (InterfaceInfo, bool) {
	known, ok := lookupBridge(uint16(desc.Vendor), uint16(desc.Product))
	if !ok {
		return InterfaceInfo{}, false
	}
	return InterfaceInfo{
		Kind:        InterfaceKindUSB,
		Description: known.Description,
		VendorID:    known.VendorID,
		ProductID:   known.ProductID,
	}, true
}

func hasPortFor(ports []InterfaceInfo, u InterfaceInfo) bool {
	for _, p := range ports {
		if p.VendorID == u.VendorID && p.ProductID == u.ProductID {
			return true
		}
	}
	return false
}

// parseID decodes the hex VID/PID strings the enumerator reports.
func parseID(s string) uint16 {
	v, err := strconv.ParseUint(strings.TrimPrefix(strings.ToLower(s), "0x"), 16, 16)
	if err != nil {
		return 0
	}
	return uint16(v)
}

type knownUSBDevice struct {
	VendorID    uint16
	ProductID   uint16
	Description string
}

func lookupBridge(vid, pid uint16) (knownUSBDevice, bool) {
	for _, known := range knownSerialBridges {
		if vid == known.VendorID && pid == known.ProductID {
			return known, true
		}
	}
	return knownUSBDevice{}, false
}

var knownSerialBridges = []knownUSBDevice{
	{VendorID: 0x0483, ProductID: 0x5740, Description: "STM32 Virtual COM Port"},
	{VendorID: 0x0403, ProductID: 0x6001, Description: "FTDI FT232R"},
	{VendorID: 0x0403, ProductID: 0x6015, Description: "FTDI FT-X"},
	{VendorID: 0x10c4, ProductID: 0xea60, Description: "Silicon Labs CP210x"},
	{VendorID: 0x1a86, ProductID: 0x7523, Description: "WCH CH340"},
}
