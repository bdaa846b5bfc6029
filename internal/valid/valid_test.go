package valid

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSSID(t *testing.T) {
	t.Parallel()
	assert.False(t, SSID(""))
	assert.True(t, SSID("a"))
	assert.True(t, SSID(strings.Repeat("A", 31)))
	assert.False(t, SSID(strings.Repeat("A", 32)))
	assert.False(t, SSID(strings.Repeat("A", 100)))
}

func TestPassword(t *testing.T) {
	t.Parallel()
	assert.False(t, Password(""))
	assert.False(t, Password("123"))
	assert.True(t, Password("SecurePass123"))
	assert.True(t, Password(strings.Repeat("P", 8)))
	assert.True(t, Password(strings.Repeat("P", 63)))
	assert.False(t, Password(strings.Repeat("P", 64)))
	assert.False(t, Password(strings.Repeat("P", 100)))
}

func TestIPAddress(t *testing.T) {
	t.Parallel()
	cases := []struct {
		input  string
		expect bool
	}{
		{"192.168.1.100", true},
		{"10.0.0.1", true},
		{"0.0.0.0", true},
		{"255.255.255.255", true},
		{"999.999.999.999", false},
		{"256.1.1.1", false},
		{"not.an.ip", false},
		{"", false},
		{"....", false},
		{"1.2.3", false},
		{"1.2.3.4.5", false},
		{"1..2.3", false},
		{"1.2.3.", false},
		{".1.2.3", false},
		{"1.2.3.4 ", false},
		{"01.2.3.4", true}, // leading zero, still one octet 0..255
		{"1234.1.1.1", false},
	}
	for _, c := range cases {
		assert.Equal(t, c.expect, IPAddress(c.input), "input=%q", c.input)
	}
}

func TestPort(t *testing.T) {
	t.Parallel()
	assert.False(t, Port(0))
	assert.False(t, Port(-1))
	assert.True(t, Port(1))
	assert.True(t, Port(3003))
	assert.True(t, Port(65535))
	assert.False(t, Port(65536))
}

func TestVoltage(t *testing.T) {
	t.Parallel()
	assert.True(t, Voltage(12.0))
	assert.True(t, Voltage(0))
	assert.True(t, Voltage(60))
	assert.False(t, Voltage(-1.0))
	assert.False(t, Voltage(100.0))
	assert.False(t, Voltage(math.NaN()))
	assert.False(t, Voltage(math.Inf(1)))
	assert.False(t, Voltage(math.Inf(-1)))
}

func TestCurrent(t *testing.T) {
	t.Parallel()
	assert.True(t, Current(150.0))
	assert.True(t, Current(-150.0))
	assert.True(t, Current(10000))
	assert.False(t, Current(-20000.0))
	assert.False(t, Current(20000.0))
	assert.False(t, Current(math.NaN()))
}

func TestGPSCoordinate(t *testing.T) {
	t.Parallel()
	assert.False(t, GPSCoordinate(91.0, 0.0))
	assert.False(t, GPSCoordinate(-91.0, 0.0))
	assert.False(t, GPSCoordinate(0.0, 181.0))
	assert.False(t, GPSCoordinate(0.0, -181.0))
	assert.True(t, GPSCoordinate(-5.358400, 105.311700))
	assert.True(t, GPSCoordinate(0.0, 0.0))
	assert.False(t, GPSCoordinate(math.NaN(), 0))
	assert.False(t, GPSCoordinate(0, math.Inf(1)))
}

func TestCommand(t *testing.T) {
	t.Parallel()
	assert.True(t, Command("reboot"))
	assert.True(t, Command("set_mode auto"))
	assert.False(t, Command(""))
	assert.False(t, Command("reboot; rm -rf /"))
	assert.False(t, Command("a|b"))
	assert.False(t, Command("a && b"))
	assert.False(t, Command("$(boom)"))
	assert.False(t, Command("`boom`"))
	assert.False(t, Command("a > b"))
	assert.False(t, Command("line1\nline2"))
	assert.False(t, Command(strings.Repeat("A", CommandMax+1)))
	assert.True(t, Command(strings.Repeat("A", CommandMax)))
}
