// uavd is the flight telemetry daemon: one cooperative tick loop
// driving sensor polls, frame encoding and the network session. The
// ticker below is the only place the process blocks.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/daemon"
	"github.com/juju/errors"
	"github.com/temoto/alive/v2"

	"github.com/krti/uavcore/helpers"
	"github.com/krti/uavcore/internal/ctl"
	"github.com/krti/uavcore/internal/session"
	"github.com/krti/uavcore/internal/stat"
	"github.com/krti/uavcore/internal/state"
	"github.com/krti/uavcore/log2"
)

const tickInterval = 20 * time.Millisecond

var log = log2.NewStderr(log2.LDebug)

func main() {
	flagConfig := flag.String("config", "uavd.hcl", "")
	flag.Parse()

	if sdnotify("start") {
		// under systemd, journal adds timestamps
		log.SetFlags(log2.LServiceFlags)
	} else {
		log.SetFlags(log2.LInteractiveFlags)
	}
	log.Debugf("hello")

	config := state.MustReadConfigFile(log, *flagConfig)
	if !config.Tele.LogDebug {
		log.SetLevel(log2.LInfo)
	}

	a := alive.NewAlive()
	ctx := context.Background()

	persistRoot := config.Persist.Root
	if persistRoot == "" {
		persistRoot = "./uavd-state"
	}
	store := state.NewFileStore(log, persistRoot)
	network := state.NewNetwork(log, store, config.Network)

	counters := new(stat.Counters)
	counters.Publish("uav")

	transport := newTransport(config)
	sess := session.New(log, transport, counters, nil, session.Config{
		ConnectTimeout: helpers.IntSecondDefault(config.Tele.ConnectTimeoutSec, 0),
		BackoffMin:     helpers.IntMillisecondDefault(config.Tele.BackoffMinMs, 0),
		BackoffMax:     helpers.IntMillisecondDefault(config.Tele.BackoffMaxMs, 0),
	}, nil)
	sess.OnState(func(s session.State) { sdnotify("STATUS=session " + s.String()) })

	opt := ctl.Options{
		Log:      log,
		Session:  sess,
		Network:  network,
		Counters: counters,
		Sensors:  newSimSensors(),
		GPS:      newSimGPS(),
		Handler:  commandHandler(a),
	}
	ctl.PeriodsFromConfig(config, &opt)
	controller := ctl.New(opt)

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		log.Infof("stop requested")
		a.Stop()
	}()

	sdnotify(daemon.SdNotifyReady)
	log.Infof("init complete, running")

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()
	stopCh := a.StopChan()
	for a.IsRunning() {
		select {
		case <-stopCh:
		case <-ticker.C:
			controller.Tick(ctx)
		}
	}

	if err := transport.Close(); err != nil {
		log.Errorf("transport close err=%v", err)
	}
	log.Infof("final %s", counters.String())
	a.Wait()
}

func newTransport(config *state.Config) session.Transport {
	switch config.Tele.Transport {
	case "", "http":
		endpoint := config.Tele.Endpoint
		if endpoint == "" {
			nc := config.Network
			endpoint = fmt.Sprintf("http://%s:%d/telemetry", nc.TargetIP, nc.TargetPort)
		}
		return session.NewHTTP(log, session.HTTPOptions{
			Endpoint: endpoint,
			Timeout:  helpers.IntSecondDefault(config.Tele.NetworkTimeoutSec, 0),
		})

	case "mqtt":
		t, err := session.NewMQTT(log, session.MQTTOptions{
			Broker:         config.Tele.MqttBroker,
			DeviceID:       config.Tele.DeviceId,
			Password:       config.Tele.MqttPassword,
			TLSCaFile:      config.Tele.TlsCaFile,
			NetworkTimeout: helpers.IntSecondDefault(config.Tele.NetworkTimeoutSec, 0),
			LogDebug:       config.Tele.LogDebug,
		})
		if err != nil {
			log.Fatal(errors.ErrorStack(err))
		}
		return t
	}
	log.Fatalf("config tele.transport=%s not supported", config.Tele.Transport)
	return nil
}

// commandHandler executes ground station commands. Unknown commands are
// logged and acknowledged, the ground side decides what to do about it.
func commandHandler(a *alive.Alive) ctl.CommandFunc {
	return func(name string) error {
		log.Infof("command name=%s", name)
		if name == "shutdown" {
			a.Stop()
		}
		return nil
	}
}

func sdnotify(s string) bool {
	ok, err := daemon.SdNotify(false, s)
	if err != nil {
		log.Fatal("sdnotify: ", errors.ErrorStack(err))
	}
	return ok
}
