package state

import (
	"sync"

	"github.com/juju/errors"
	"github.com/krti/uavcore/log2"
)

// Network owns the active NetworkConfig: loaded once at startup,
// mutated only through the validated Update path, re-persisted on
// change. Reads return a copy so a concurrent update never tears a
// connect attempt.
type Network struct {
	mu      sync.Mutex
	log     *log2.Log
	store   Store
	current NetworkConfig
	valid   bool
}

// NewNetwork loads the persisted config, falling back to the file
// config's network section when the store is empty. An invalid
// fallback leaves the session without a config: it stays Disconnected
// until Update supplies a good one.
func NewNetwork(log *log2.Log, store Store, fallback NetworkConfig) *Network {
	n := &Network{log: log, store: store}
	if nc, err := store.Load(); err != nil {
		log.Errorf("network store load err=%v", err)
	} else if nc != nil {
		n.current = *nc
		n.valid = true
		return n
	}
	if err := fallback.Validate(); err == nil {
		n.current = fallback
		n.valid = true
	} else {
		log.Errorf("network fallback config invalid err=%v", err)
	}
	return n
}

// Current returns a copy of the active config and whether it is valid.
func (n *Network) Current() (NetworkConfig, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.current, n.valid
}

// Update validates, applies and persists nc. On any failure the
// previous config stays active in memory and on disk.
func (n *Network) Update(nc NetworkConfig) error {
	if err := nc.Validate(); err != nil {
		return errors.Annotate(err, "network update")
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := n.store.Save(&nc); err != nil {
		return errors.Annotate(err, "network update persist")
	}
	n.current = nc
	n.valid = true
	n.log.Infof("network config updated ssid=%s target=%s:%d", nc.SSID, nc.TargetIP, nc.TargetPort)
	return nil
}
