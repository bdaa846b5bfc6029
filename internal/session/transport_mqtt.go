package session

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/juju/errors"
	"github.com/krti/uavcore/log2"
)

const defaultMQTTTimeout = 30 * time.Second

// inbound command buffer; excess is dropped, commands are not queued work
const mqttInboundMax = 4

type MQTTOptions struct {
	Broker         string
	DeviceID       int
	Password       string
	TLSCaFile      string
	NetworkTimeout time.Duration
	LogDebug       bool
}

// MQTTTransport publishes telemetry and subscribes for commands.
// paho tokens make the operations naturally pollable: issue once, then
// WaitTimeout(0) on following ticks.
type MQTTTransport struct {
	log  *log2.Log
	m    mqtt.Client
	mopt *mqtt.ClientOptions

	topicTelemetry string
	topicCommand   string

	connectToken mqtt.Token
	subToken     mqtt.Token
	subscribed   bool
	sendToken    mqtt.Token
	inbound      chan []byte
}

var _ Transport = (*MQTTTransport)(nil)

func NewMQTT(log *log2.Log, opt MQTTOptions) (*MQTTTransport, error) {
	mqttLog := log.Clone(log2.LDebug)
	mqtt.CRITICAL = mqttLog
	mqtt.ERROR = mqttLog
	mqtt.WARN = mqttLog
	if opt.LogDebug {
		mqtt.DEBUG = mqttLog
	}

	clientID := fmt.Sprintf("uav%d", opt.DeviceID)
	networkTimeout := opt.NetworkTimeout
	if networkTimeout == 0 {
		networkTimeout = defaultMQTTTimeout
	}

	t := &MQTTTransport{
		log:            log,
		topicTelemetry: fmt.Sprintf("%s/w/1t", clientID),
		topicCommand:   fmt.Sprintf("%s/r/c", clientID),
		inbound:        make(chan []byte, mqttInboundMax),
	}

	tlsconf := new(tls.Config)
	if opt.TLSCaFile != "" {
		tlsconf.RootCAs = x509.NewCertPool()
		cabytes, err := os.ReadFile(opt.TLSCaFile)
		if err != nil {
			return nil, errors.Annotate(err, "mqtt tls ca")
		}
		tlsconf.RootCAs.AppendCertsFromPEM(cabytes)
	}
	credFun := func() (string, string) { return clientID, opt.Password }
	t.mopt = mqtt.NewClientOptions().
		AddBroker(opt.Broker).
		SetAutoReconnect(false).
		SetCleanSession(false).
		SetClientID(clientID).
		SetConnectTimeout(networkTimeout).
		SetCredentialsProvider(credFun).
		SetKeepAlive(networkTimeout / 2).
		SetPingTimeout(networkTimeout).
		SetTLSConfig(tlsconf).
		SetWriteTimeout(networkTimeout)
	t.m = mqtt.NewClient(t.mopt)
	return t, nil
}

func (t *MQTTTransport) Connect(context.Context) (Result, error) {
	if t.m.IsConnected() && t.subscribed {
		return OK, nil
	}
	if t.connectToken == nil {
		t.subscribed = false
		t.connectToken = t.m.Connect()
	}
	if !t.connectToken.WaitTimeout(0) {
		return Pending, nil
	}
	if err := t.connectToken.Error(); err != nil {
		t.connectToken = nil
		return Pending, classifyMQTT(err)
	}

	if t.subToken == nil {
		t.subToken = t.m.Subscribe(t.topicCommand, 1, t.onCommand)
	}
	if !t.subToken.WaitTimeout(0) {
		return Pending, nil
	}
	err := t.subToken.Error()
	t.subToken = nil
	if err != nil {
		t.connectToken = nil
		return Pending, classifyMQTT(err)
	}
	t.connectToken = nil
	t.subscribed = true
	return OK, nil
}

func (t *MQTTTransport) Send(_ context.Context, payload []byte) (Result, error) {
	if t.sendToken == nil {
		// paho keeps a reference, caller reuses the buffer
		t.sendToken = t.m.Publish(t.topicTelemetry, 1, false, append([]byte(nil), payload...))
	}
	if !t.sendToken.WaitTimeout(0) {
		return Pending, nil
	}
	err := t.sendToken.Error()
	t.sendToken = nil
	if err != nil {
		return Pending, classifyMQTT(err)
	}
	return OK, nil
}

func (t *MQTTTransport) Receive() []byte {
	select {
	case b := <-t.inbound:
		return b
	default:
		return nil
	}
}

func (t *MQTTTransport) Close() error {
	t.m.Disconnect(uint(time.Second / time.Millisecond))
	return nil
}

func (t *MQTTTransport) onCommand(_ mqtt.Client, msg mqtt.Message) {
	payload := append([]byte(nil), msg.Payload()...)
	select {
	case t.inbound <- payload:
	default:
		t.log.Errorf("mqtt inbound queue full, command dropped")
	}
}

// classifyMQTT maps paho auth failures onto HTTP-style codes so the
// session applies the reconfig path. paho exposes CONNACK refusals
// only as error strings.
func classifyMQTT(err error) error {
	s := strings.ToLower(err.Error())
	if strings.Contains(s, "bad user name or password") {
		return &StatusError{Code: 401}
	}
	if strings.Contains(s, "not authorized") || strings.Contains(s, "not authorised") {
		return &StatusError{Code: 403}
	}
	return err
}
