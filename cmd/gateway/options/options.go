package options

import (
	"fmt"
	"net"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/spf13/pflag"
	"k8s.io/klog/v2"

	"smcgateway/cmd/gateway/config"
	"smcgateway/pkg/device"
	"smcgateway/pkg/gateway"
	"smcgateway/pkg/generic"
	baseoptions "smcgateway/pkg/generic/options"
	"smcgateway/pkg/storage"
)

type Options struct {
	Port         string        `json:"port"`
	Wait         time.Duration `json:"graceful-timeout"`
	MqttBroker   string        `json:"mqtt-broker"`
	MqttUsername string        `json:"mqtt-username"`
	MqttPassword string        `json:"mqtt-password"`
	baseoptions.BaseOptions
}

const (
	_defaultPort       = "32200"
	_defaultWait       = 15 * time.Second
	_defaultMqttBroker = "tcp://127.0.0.1:1883"

	mqttConnectTimeout = 5 * time.Second
)

func NewDefaultOptions() *Options {
	return &Options{
		Port:        _defaultPort,
		Wait:        _defaultWait,
		MqttBroker:  _defaultMqttBroker,
		BaseOptions: baseoptions.NewDefaultBaseOptions(),
	}
}

func (o *Options) AddFlags(fs *pflag.FlagSet) {
	// refer to node port assignment https://rancher.com/docs/rancher/v2.x/en/installation/requirements/ports/#commonly-used-ports
	fs.StringVarP(&o.Port, "port", "P", o.Port, "Port exposed")
	fs.DurationVar(&o.Wait, "graceful-timeout", o.Wait, "The duration for which the server gracefully wait for existing connections to finish - e.g. 15s or 1m")
	fs.StringVar(&o.MqttBroker, "mqtt-broker", o.MqttBroker, "MQTT broker URI the collected data is published to - e.g. tcp://127.0.0.1:1883")
	fs.StringVar(&o.MqttUsername, "mqtt-username", o.MqttUsername, "MQTT broker username")
	fs.StringVar(&o.MqttPassword, "mqtt-password", o.MqttPassword, "MQTT broker password")
}

func Validate(o *Options) []error {
	var errs []error
	if err := o.BaseOptions.ValidateAndApply(); err != nil {
		errs = append(errs, err)
	}
	if _, err := net.LookupPort("tcp", o.Port); err != nil {
		errs = append(errs, fmt.Errorf("invalid port %q: %v", o.Port, err))
	}
	if len(o.MqttBroker) == 0 {
		errs = append(errs, fmt.Errorf("mqtt-broker must not be empty"))
	}
	return errs
}

func (o *Options) Config(stopCh <-chan struct{}) (*config.Config, error) {
	c := &config.Config{}

	gatewayMgr := gateway.NewGatewayManager(stopCh)
	gatewayMgr.Init()
	gatewayMeta, _ := gatewayMgr.GetGatewayMeta()

	store, err := generic.NewStore(storage.StoreGroupToString[storage.StoreGroupDevice], storage.Devices, generic.DeviceTypeObjectMap)
	if err != nil {
		return nil, err
	}

	mqttClient := o.newMqttClient(gatewayMeta.ID)

	deviceMgr := device.NewManager(store, mqttClient, gatewayMeta, stopCh)
	deviceMgr.Init()

	c.GatewayMgr = gatewayMgr
	c.DeviceMgr = deviceMgr

	return c, nil
}

// newMqttClient connects to the telemetry broker. A broker outage is not
// fatal; paho reconnects in the background and publishes resume.
func (o *Options) newMqttClient(clientId string) mqtt.Client {
	opts := mqtt.NewClientOptions().
		AddBroker(o.MqttBroker).
		SetClientID(fmt.Sprintf("smcgateway-%s", clientId)).
		SetUsername(o.MqttUsername).
		SetPassword(o.MqttPassword).
		SetAutoReconnect(true).
		SetConnectRetry(true)
	opts.OnConnect = func(client mqtt.Client) {
		klog.V(2).InfoS("Connected to MQTT broker", "broker", o.MqttBroker)
	}
	opts.OnConnectionLost = func(client mqtt.Client, err error) {
		klog.V(1).InfoS("Lost MQTT broker connection", "broker", o.MqttBroker, "err", err)
	}

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(mqttConnectTimeout) || token.Error() != nil {
		klog.V(1).InfoS("Failed to connect MQTT broker,retrying in background", "broker", o.MqttBroker, "err", token.Error())
	}
	return client
}
