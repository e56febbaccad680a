package smc100

import (
	"context"
	"fmt"
	"time"

	"go.bug.st/serial"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"
	"k8s.io/klog/v2"

	smcruntime "smcgateway/pkg/protocol/smc100/runtime"
	"smcgateway/pkg/runtime"
	"smcgateway/pkg/runtime/constant"
)

// connectTimeout bounds the initial drive-to-ready of every axis on the bus,
// homing included.
const connectTimeout = 60 * time.Second

var _ runtime.Broker = (*SMC100Broker)(nil)

type axisController struct {
	axis       *smcruntime.Axis
	controller *Controller
}

// SMC100Broker owns one daisy chain: the Link, the Registry of axis
// controllers and the periodic telemetry poll. One poll pass reads position,
// velocity, state and enabled per axis; the Link lock serializes the
// individual transactions against concurrent actions.
type SMC100Broker struct {
	exitCh        chan struct{}
	Device        *smcruntime.SMC100Device
	Registry      *Registry
	VariableCh    chan *runtime.ParseVariableResult
	VariableCount int
	CanCollect    bool
	axes          map[string]*axisController
}

func NewBroker(d runtime.Device) (runtime.Broker, chan *runtime.ParseVariableResult, error) {
	device, ok := d.(*smcruntime.SMC100Device)
	if !ok {
		klog.V(2).InfoS("Failed to new smc100 broker,device type not supported")
		return nil, nil, smcruntime.ErrDeviceType
	}
	if len(device.Axes) == 0 {
		klog.V(2).InfoS("Failed to collect smc100.Because of the axes is empty", "deviceId", device.ID)
		return nil, nil, constant.ErrDeviceEmptyVariable
	}

	option := device.Address.Option
	mode := &serial.Mode{
		BaudRate: option.BaudRate,
		DataBits: option.DataBits,
		Parity:   smcruntime.ParityToSerial[option.Parity],
		StopBits: smcruntime.StopBitsToSerial[option.StopBits],
	}
	link := NewLink(OpenSerial(device.Address.Location, mode))
	if err := link.Connect(); err != nil {
		klog.V(2).InfoS("Failed to connect serial port", "location", device.Address.Location, "err", err)
		return nil, nil, constant.ErrConnectDevice
	}

	broker, results, err := newBroker(device, link)
	if err != nil {
		_ = link.Disconnect()
		return nil, nil, err
	}
	return broker, results, nil
}

// newBroker builds the registry and drives every axis to ready over an
// already connected link. Split out so tests can substitute an in-memory
// port.
func newBroker(device *smcruntime.SMC100Device, link *Link) (*SMC100Broker, chan *runtime.ParseVariableResult, error) {
	registry := NewRegistry(link)
	axes := make(map[string]*axisController, len(device.Axes))

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	for _, axis := range device.Axes {
		controller := registry.Primary()
		if axis.Address != smcruntime.PrimaryAddress {
			var err error
			controller, err = registry.Secondary(int(axis.Address))
			if err != nil {
				return nil, nil, err
			}
		}
		if err := controller.Connect(ctx, axis.HomeIsHardwareDefined, true); err != nil {
			klog.V(2).InfoS("Failed to connect axis", "deviceId", device.ID, "axis", axis.Name, "address", axis.Address, "err", err)
			return nil, nil, constant.ErrConnectDevice
		}
		axes[axis.Name] = &axisController{axis: axis, controller: controller}
	}

	broker := &SMC100Broker{
		exitCh:        make(chan struct{}),
		Device:        device,
		Registry:      registry,
		VariableCh:    make(chan *runtime.ParseVariableResult, 1),
		VariableCount: len(device.Axes) * 4,
		CanCollect:    true,
		axes:          axes,
	}
	return broker, broker.VariableCh, nil
}

// Destroy stops collection and releases the serial port. VariableCh is owned
// by the collect goroutine and closed there once it observes exitCh, so a
// result send in flight can never hit a closed channel.
func (broker *SMC100Broker) Destroy(ctx context.Context) {
	close(broker.exitCh)
	if err := broker.Registry.Link().Disconnect(); err != nil {
		klog.V(2).InfoS("Failed to close serial port", "deviceId", broker.Device.ID, "err", err)
	}
}

func (broker *SMC100Broker) Collect(ctx context.Context) {
	if !broker.CanCollect {
		return
	}
	go func() {
		defer close(broker.VariableCh)
		for {
			start := time.Now()
			if !broker.poll(ctx) {
				return
			}
			select {
			case <-broker.exitCh:
				return
			default:
				elapsed := time.Since(start)
				cycle := time.Duration(broker.Device.CollectorCycle) * time.Second
				if elapsed < cycle {
					time.Sleep(cycle - elapsed)
				}
			}
		}
	}()
}

func (broker *SMC100Broker) poll(ctx context.Context) bool {
	select {
	case <-broker.exitCh:
		return false
	default:
		variables := make([]runtime.VariableValue, 0, broker.VariableCount)
		errs := make([]error, 0)
		for name, ac := range broker.axes {
			position, err := ac.controller.Position()
			if err != nil {
				errs = append(errs, err)
			} else {
				variables = append(variables, broker.variable(name, smcruntime.VariablePosition, position))
			}
			velocity, err := ac.controller.Velocity()
			if err != nil {
				errs = append(errs, err)
			} else {
				variables = append(variables, broker.variable(name, smcruntime.VariableVelocity, velocity))
			}
			enabled, err := ac.controller.IsEnabled()
			if err != nil {
				errs = append(errs, err)
			} else {
				variables = append(variables, broker.variable(name, smcruntime.VariableEnabled, enabled))
			}
			state := ac.controller.State()
			variables = append(variables, broker.variable(name, smcruntime.VariableState, state.String()))
		}

		select {
		case <-broker.exitCh:
			return false
		case broker.VariableCh <- &runtime.ParseVariableResult{Err: errs, VariableSlice: variables}:
			return true
		}
	}
}

func (broker *SMC100Broker) variable(axis string, suffix string, value interface{}) runtime.VariableValue {
	name := fmt.Sprintf("%s.%s", axis, suffix)
	if v, ok := broker.Device.GetVariable(name); ok {
		v.SetValue(value)
		return v
	}
	return &smcruntime.Variable{Name: name, Value: value}
}

// DeliverAction maps writable axis variables to wire operations: position
// moves, enable toggles, home and stop verbs and semantic state requests.
// State requests run asynchronously; the driver reports through logs.
func (broker *SMC100Broker) DeliverAction(ctx context.Context, actions map[string]interface{}) error {
	var errs []error
	for name, value := range actions {
		axisName, suffix, ok := smcruntime.SplitVariable(name)
		if !ok {
			errs = append(errs, fmt.Errorf("%w: %s", smcruntime.ErrActionUnSupported, name))
			continue
		}
		ac, ok := broker.axes[axisName]
		if !ok {
			errs = append(errs, fmt.Errorf("%w: %s", smcruntime.ErrAxisNotFound, axisName))
			continue
		}
		if err := broker.deliver(ctx, ac.controller, suffix, value); err != nil {
			klog.V(2).InfoS("Failed to deliver axis action", "deviceId", broker.Device.ID, "action", name, "err", err)
			errs = append(errs, err)
		}
	}
	return utilerrors.NewAggregate(errs)
}

func (broker *SMC100Broker) deliver(ctx context.Context, controller *Controller, suffix string, value interface{}) error {
	switch suffix {
	case smcruntime.VariablePosition:
		position, ok := toFloat(value)
		if !ok {
			return fmt.Errorf("%w: position %v", smcruntime.ErrActionUnSupported, value)
		}
		return controller.GoTo(ctx, position, false)
	case smcruntime.VariableEnabled:
		enabled, ok := value.(bool)
		if !ok {
			return fmt.Errorf("%w: enabled %v", smcruntime.ErrActionUnSupported, value)
		}
		return controller.SetEnabled(enabled)
	case smcruntime.VariableHome:
		return controller.GoHome(ctx, false)
	case smcruntime.VariableStop:
		return controller.Stop()
	case smcruntime.VariableState:
		name, ok := value.(string)
		if !ok {
			return fmt.Errorf("%w: state %v", smcruntime.ErrActionUnSupported, value)
		}
		target, ok := smcruntime.StringToControllerState[name]
		if !ok || target == smcruntime.StateUnknown {
			return fmt.Errorf("%w: state %q", smcruntime.ErrActionUnSupported, name)
		}
		controller.RequestState(context.Background(), target)
		return nil
	default:
		return fmt.Errorf("%w: %s", smcruntime.ErrActionUnSupported, suffix)
	}
}

func toFloat(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	}
	return 0, false
}
