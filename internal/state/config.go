// Package state holds runtime configuration: the HCL file config, the
// persisted network credentials and the validated-update path that
// guarantees a bad config is never applied or saved.
package state

import (
	"os"

	"github.com/hashicorp/hcl"
	"github.com/juju/errors"
	"github.com/krti/uavcore/helpers"
	"github.com/krti/uavcore/internal/valid"
	"github.com/krti/uavcore/log2"
)

// NetworkConfig is the persisted connection identity. A config failing
// any bound is never persisted or applied; last-known-good stays
// active.
type NetworkConfig struct {
	SSID       string `hcl:"ssid" json:"ssid"`
	Password   string `hcl:"password" json:"password"` // secret
	TargetIP   string `hcl:"target_ip" json:"target_ip"`
	TargetPort int    `hcl:"target_port" json:"target_port"`
}

func (nc *NetworkConfig) Validate() error {
	errs := make([]error, 0, 4)
	if !valid.SSID(nc.SSID) {
		errs = append(errs, errors.Errorf("network ssid invalid len=%d", len(nc.SSID)))
	}
	if !valid.Password(nc.Password) {
		errs = append(errs, errors.Errorf("network password invalid len=%d", len(nc.Password)))
	}
	if !valid.IPAddress(nc.TargetIP) {
		errs = append(errs, errors.Errorf("network target_ip='%s' invalid", nc.TargetIP))
	}
	if !valid.Port(nc.TargetPort) {
		errs = append(errs, errors.Errorf("network target_port=%d invalid", nc.TargetPort))
	}
	return helpers.FoldErrors(errs)
}

type Config struct {
	Network NetworkConfig `hcl:"network"`

	Tele struct { //nolint:maligned
		Transport         string `hcl:"transport"` // http|mqtt
		Endpoint          string `hcl:"endpoint"`
		MqttBroker        string `hcl:"mqtt_broker"`
		MqttPassword      string `hcl:"mqtt_password"` // secret
		DeviceId          int    `hcl:"device_id"`
		TlsCaFile         string `hcl:"tls_ca_file"`
		LogDebug          bool   `hcl:"log_debug"`
		SendIntervalMs    int    `hcl:"send_interval_ms"`
		NetworkTimeoutSec int    `hcl:"network_timeout_sec"`
		ConnectTimeoutSec int    `hcl:"connect_timeout_sec"`
		BackoffMinMs      int    `hcl:"backoff_min_ms"`
		BackoffMaxMs      int    `hcl:"backoff_max_ms"`
	} `hcl:"tele"`

	Sensor struct {
		PollIntervalMs    int `hcl:"poll_interval_ms"`
		GpsIntervalMs     int `hcl:"gps_interval_ms"`
		CommandIntervalMs int `hcl:"command_interval_ms"`
	} `hcl:"sensor"`

	Persist struct {
		Root string `hcl:"root"`
	} `hcl:"persist"`
}

func ReadConfig(log *log2.Log, b []byte) (*Config, error) {
	c := &Config{}
	if err := hcl.Unmarshal(b, c); err != nil {
		return nil, errors.Annotatef(err, "config unmarshal content='%s'", string(b))
	}
	log.Debugf("config parsed tele.transport=%s", c.Tele.Transport)
	return c, nil
}

func ReadConfigFile(log *log2.Log, path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Annotatef(err, "config read path=%s", path)
	}
	return ReadConfig(log, b)
}

func MustReadConfigFile(log *log2.Log, path string) *Config {
	c, err := ReadConfigFile(log, path)
	if err != nil {
		log.Fatal(errors.ErrorStack(err))
	}
	return c
}
