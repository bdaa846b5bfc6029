// Package valid holds pure predicate checks for config strings, network
// parameters, sensor readings and GPS coordinates. Functions here are
// total over their input domain and never allocate.
package valid

import (
	"math"
	"strings"
)

// WiFi credential bounds per IEEE 802.11: SSID up to 31 bytes here
// (NUL-terminated storage on the device), WPA2 passphrase 8..63.
const (
	SSIDMax     = 32
	PasswordMin = 8
	PasswordMax = 64
)

// Physical sensor bounds. Voltage covers up to a 12S pack with
// headroom, current is a bidirectional hall sensor in milliamps.
const (
	VoltageMin = 0.0
	VoltageMax = 60.0
	CurrentMin = -10000.0
	CurrentMax = 10000.0
)

// CommandMax caps a single command token before the JSON envelope.
const CommandMax = 256

func SSID(s string) bool {
	return len(s) > 0 && len(s) < SSIDMax
}

func Password(s string) bool {
	return len(s) >= PasswordMin && len(s) < PasswordMax
}

// IPAddress accepts strict dotted-quad only: exactly four octets,
// digits only, each in 0..255. Deliberately no net.ParseIP: it accepts
// IPv6 and other forms the device firmware must not see.
func IPAddress(s string) bool {
	if len(s) == 0 {
		return false
	}
	octet := 0
	digits := 0
	dots := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
			octet = octet*10 + int(c-'0')
			digits++
			if digits > 3 || octet > 255 {
				return false
			}
		case c == '.':
			if digits == 0 {
				return false
			}
			dots++
			if dots > 3 {
				return false
			}
			octet = 0
			digits = 0
		default:
			return false
		}
	}
	return dots == 3 && digits > 0
}

func Port(p int) bool {
	return p >= 1 && p <= 65535
}

func Voltage(v float64) bool {
	return finite(v) && v >= VoltageMin && v <= VoltageMax
}

func Current(c float64) bool {
	return finite(c) && c >= CurrentMin && c <= CurrentMax
}

func GPSCoordinate(lat, lng float64) bool {
	if !finite(lat) || !finite(lng) {
		return false
	}
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}

// Command rejects empty, oversized and shell-metacharacter input.
// The allowlist of known command verbs belongs to the dispatcher; this
// check only guarantees the token is safe to log and pass around.
func Command(s string) bool {
	if len(s) == 0 || len(s) > CommandMax {
		return false
	}
	return !strings.ContainsAny(s, ";|&$`<>\n\r\x00")
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
