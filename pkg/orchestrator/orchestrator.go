// Package orchestrator drives the bus fabric one tick at a time.
//
// A tick drains device serial output onto the bus, frames TCP input from the
// gateway, delivers every queued byte, steps each device within a budget,
// publishes GPIO changes and answers at most one control request. Everything
// runs on the caller's goroutine; only the gateway's connection goroutines run
// concurrently, and they are reached through the Multiplexer interface.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dd0wney/cluso-busnet/pkg/control"
	"github.com/dd0wney/cluso-busnet/pkg/device"
	"github.com/dd0wney/cluso-busnet/pkg/events"
	"github.com/dd0wney/cluso-busnet/pkg/framing"
	"github.com/dd0wney/cluso-busnet/pkg/lifecycle"
	"github.com/dd0wney/cluso-busnet/pkg/logging"
	"github.com/dd0wney/cluso-busnet/pkg/metrics"
	"github.com/dd0wney/cluso-busnet/pkg/network"
)

var (
	ErrAlreadyRunning = errors.New("orchestrator already running")
	ErrNoDevices      = errors.New("no devices configured")
	ErrDuplicateNode  = errors.New("duplicate node name")
	ErrUnknownDevice  = errors.New("unknown device")
)

// DefaultPorts are the GPIO ports tracked when a node lists none.
var DefaultPorts = []byte{'B', 'C', 'D'}

// Node is one device on the bus and the names it is wired to.
type Node struct {
	Device device.Device
	Peers  []string
	// Ports are the GPIO ports whose changes are published.
	Ports []byte
}

// Deps are the collaborators of an Orchestrator. Every field but Nodes may be nil.
type Deps struct {
	Nodes   []Node
	Gateway Multiplexer
	Events  events.Publisher
	Control control.Responder
	Logbook *logging.Ring
	Metrics *metrics.Registry
	Logger  logging.Logger
}

type deviceEntry struct {
	dev    device.Device
	pins   *PinTracker
	state  device.State
	halted bool
}

// Orchestrator owns the network and runs the tick loop.
type Orchestrator struct {
	cfg        Config
	network    *network.Network
	devices    []*deviceEntry
	byName     map[string]*deviceEntry
	gateway    Multiplexer
	gwReceiver *GatewayReceiver
	events     events.Publisher
	control    control.Responder
	dispatcher *control.Dispatcher
	logbook    *logging.Ring
	metrics    *metrics.Registry
	logger     logging.Logger

	topology  map[string][]string
	lastStats framing.Stats
	state     lifecycle.State

	ticks    atomic.Uint64
	mu       sync.RWMutex // guards lastTick and halted
	lastTick time.Time
	halted   []string
}

// New builds the bus topology. A peer that names an unknown node or the node
// itself is a configuration error.
func New(cfg Config, deps Deps) (*Orchestrator, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(deps.Nodes) == 0 {
		return nil, ErrNoDevices
	}

	logger := logging.OrNop(deps.Logger).With(logging.Component("orchestrator"))
	o := &Orchestrator{
		cfg:        cfg,
		network:    network.New(),
		byName:     make(map[string]*deviceEntry, len(deps.Nodes)),
		gateway:    deps.Gateway,
		gwReceiver: NewGatewayReceiver(cfg.GatewayAddress, deps.Gateway),
		events:     deps.Events,
		control:    deps.Control,
		logbook:    deps.Logbook,
		metrics:    deps.Metrics,
		logger:     logger,
	}

	if err := o.network.CreateNode(cfg.GatewayName, o.gwReceiver); err != nil {
		return nil, err
	}

	for _, n := range deps.Nodes {
		name := n.Device.Name()
		if name == cfg.GatewayName {
			return nil, fmt.Errorf("%w: device %s collides with the gateway", ErrDuplicateNode, name)
		}
		if err := o.network.CreateNode(name, NewDeviceReceiver(n.Device, cfg.SerialPort)); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrDuplicateNode, err)
		}
		ports := n.Ports
		if len(ports) == 0 {
			ports = DefaultPorts
		}
		entry := &deviceEntry{dev: n.Device, pins: NewPinTracker(ports)}
		o.devices = append(o.devices, entry)
		o.byName[name] = entry
	}

	for _, n := range deps.Nodes {
		if err := o.network.ConnectAll(n.Device.Name(), n.Peers); err != nil {
			return nil, fmt.Errorf("topology: %w", err)
		}
	}
	o.topology = o.network.Topology()

	o.dispatcher = control.NewDispatcher(deps.Logger).
		Handle(control.KindList, o.handleList).
		Handle(control.KindLogs, o.handleLogs).
		Handle(control.KindIo, o.handleIo)

	logger.Info("topology built",
		logging.Int("devices", len(o.devices)),
		logging.String("gateway", cfg.GatewayName),
		logging.Any("peers", o.topology))

	return o, nil
}

// Run ticks until ctx is cancelled or a tick fails.
func (o *Orchestrator) Run(ctx context.Context) error {
	unlock, running := o.state.TryStart()
	if running {
		return ErrAlreadyRunning
	}
	o.state.MarkStarted()
	unlock()
	defer o.state.MarkStopped()

	var pace <-chan time.Time
	if o.cfg.TickInterval > 0 {
		ticker := time.NewTicker(o.cfg.TickInterval)
		defer ticker.Stop()
		pace = ticker.C
	}

	o.logger.Info("tick loop started", logging.Duration("interval", o.cfg.TickInterval))
	for {
		select {
		case <-ctx.Done():
			o.logger.Info("tick loop stopped", logging.Tick(o.ticks.Load()))
			return nil
		default:
		}

		if err := o.Tick(); err != nil {
			o.logger.Error("tick failed", logging.Tick(o.ticks.Load()), logging.Error(err))
			return err
		}

		if pace != nil {
			select {
			case <-ctx.Done():
				o.logger.Info("tick loop stopped", logging.Tick(o.ticks.Load()))
				return nil
			case <-pace:
			}
		}
	}
}

// Tick runs one iteration of the loop.
func (o *Orchestrator) Tick() error {
	start := time.Now()
	err := o.tick()
	o.metrics.RecordTick(time.Since(start), err)
	if err != nil {
		return err
	}

	n := o.ticks.Add(1)
	o.mu.Lock()
	o.lastTick = time.Now()
	o.mu.Unlock()

	if n == 1 {
		o.logger.Debug("first tick complete", logging.Duration("took", time.Since(start)))
	}
	return nil
}

func (o *Orchestrator) tick() error {
	if err := o.drainDevices(); err != nil {
		return err
	}
	if err := o.drainGateway(); err != nil {
		return err
	}

	// Gateway and device receivers run inside delivery.
	o.network.DeliverMessages()
	o.recordGatewayOut()

	o.stepDevices()
	o.publishPins()
	o.serviceControl()
	return nil
}

func (o *Orchestrator) drainDevices() error {
	port := o.cfg.SerialPort
	for _, e := range o.devices {
		var out []byte
		for {
			b, ok := e.dev.ReadSerial(port)
			if !ok {
				break
			}
			out = append(out, b)
		}
		if len(out) == 0 {
			continue
		}

		name := e.dev.Name()
		if err := o.network.BroadcastFrom(name, out); err != nil {
			return err
		}
		o.metrics.RecordBusBytes(metrics.DirectionDeviceOut, len(out))
		o.publish(events.BusTopic(name), out)
	}
	return nil
}

func (o *Orchestrator) drainGateway() error {
	if o.gateway == nil {
		return nil
	}
	for _, id := range o.gateway.ConnectedClientIDs() {
		data, ok := o.gateway.ReadData(id)
		if !ok {
			continue
		}
		o.metrics.RecordBusBytes(metrics.DirectionGatewayIn, len(data))
		o.logger.Debug("gateway input", logging.ClientID(uint16(id)), logging.Bytes(len(data)))
		for _, frame := range framing.Split(o.cfg.InboundAddress, data) {
			if err := o.network.BroadcastFrom(o.cfg.GatewayName, frame); err != nil {
				return err
			}
		}
	}
	return nil
}

func (o *Orchestrator) recordGatewayOut() {
	o.metrics.RecordBusBytes(metrics.DirectionGatewayOut, o.gwReceiver.takeSent())

	stats := o.gwReceiver.Stats()
	if stats.Oversized > o.lastStats.Oversized {
		o.logger.Debug("dropped oversized frame",
			logging.Uint64("oversized_total", stats.Oversized),
			logging.Error(framing.ErrFrameTooLarge))
	}
	o.metrics.RecordFrames(
		stats.Accepted-o.lastStats.Accepted,
		stats.Filtered-o.lastStats.Filtered,
		stats.Oversized-o.lastStats.Oversized,
	)
	o.lastStats = stats
}

func (o *Orchestrator) stepDevices() {
	budget := o.cfg.StepBudget
	for _, e := range o.devices {
		if e.halted {
			continue
		}

		steps := 0
		state := device.StateRunning
		for steps < budget {
			state = e.dev.Step()
			steps++
			if state != device.StateRunning {
				break
			}
		}
		e.state = state

		stoppedBy := ""
		if state != device.StateRunning {
			stoppedBy = state.String()
		}
		o.metrics.RecordSteps(e.dev.Name(), steps, stoppedBy)

		if state.Halted() {
			e.halted = true
			o.mu.Lock()
			o.halted = append(o.halted, e.dev.Name())
			o.mu.Unlock()
			o.logger.Warn("device halted",
				logging.Device(e.dev.Name()),
				logging.String("state", state.String()),
				logging.Tick(o.ticks.Load()))
		}
	}
}

func (o *Orchestrator) publishPins() {
	total := 0
	for _, e := range o.devices {
		changes := e.pins.Update(e.dev)
		for _, ev := range changes {
			o.publish(events.PinTopic(ev.Device, ev.Port, ev.Bit), events.PinPayload(ev.State))
		}
		total += len(changes)
	}
	o.metrics.RecordPinEvents(total)
}

func (o *Orchestrator) serviceControl() {
	if o.control == nil {
		return
	}

	req, ok, err := o.control.TryRecv()
	if !ok {
		if err != nil && !errors.Is(err, control.ErrMalformedRequest) {
			o.logger.Warn("control receive failed", logging.Error(err))
		}
		return
	}

	kind, resp := string(req.Kind), ""
	if err != nil {
		o.logger.Warn("malformed control request", logging.Error(err))
		kind, resp = "malformed", control.ErrorResponse
	} else {
		resp = o.Handle(req)
	}

	status := "ok"
	if resp == control.ErrorResponse {
		status = "error"
	}
	o.metrics.RecordControlRequest(kind, status)

	if err := o.control.Send(resp); err != nil {
		o.logger.Warn("control reply failed", logging.String("kind", kind), logging.Error(err))
	}
}

func (o *Orchestrator) publish(topic string, payload []byte) {
	if o.events == nil {
		return
	}
	err := o.events.Publish(topic, payload)
	o.metrics.RecordPublish(err)
	if err != nil {
		o.logger.Debug("publish failed", logging.Topic(topic), logging.Error(err))
	}
}

// Ticks returns the number of completed ticks.
func (o *Orchestrator) Ticks() uint64 {
	return o.ticks.Load()
}

// LastTick returns when the last tick completed.
func (o *Orchestrator) LastTick() time.Time {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.lastTick
}

// HaltedDevices returns the devices that reported done or crashed.
func (o *Orchestrator) HaltedDevices() []string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return slices.Clone(o.halted)
}

// DeviceNames returns the device names in configuration order.
func (o *Orchestrator) DeviceNames() []string {
	names := make([]string, len(o.devices))
	for i, e := range o.devices {
		names[i] = e.dev.Name()
	}
	return names
}

// Topology returns each node's peers as built by New.
func (o *Orchestrator) Topology() map[string][]string {
	out := make(map[string][]string, len(o.topology))
	for name, peers := range o.topology {
		out[name] = slices.Clone(peers)
	}
	return out
}

// IsRunning reports whether Run is active.
func (o *Orchestrator) IsRunning() bool {
	return o.state.IsRunning()
}
