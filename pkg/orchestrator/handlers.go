package orchestrator

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/dd0wney/cluso-busnet/pkg/control"
	"github.com/dd0wney/cluso-busnet/pkg/logging"
)

// Handle answers one control request. Every failure becomes control.ErrorResponse.
func (o *Orchestrator) Handle(req control.Request) string {
	if err := req.Validate(); err != nil {
		o.logger.Warn("invalid control request", logging.Error(err))
		return control.ErrorResponse
	}
	return o.dispatcher.Reply(req)
}

func (o *Orchestrator) handleList(control.Request) (string, error) {
	names := o.DeviceNames()
	slices.Sort(names)
	return strings.Join(names, ", "), nil
}

func (o *Orchestrator) handleLogs(control.Request) (string, error) {
	if o.logbook == nil {
		return "", nil
	}
	lines := o.logbook.Lines()
	if len(lines) > o.cfg.LogLines {
		lines = lines[len(lines)-o.cfg.LogLines:]
	}
	return strings.Join(lines, "\n"), nil
}

func (o *Orchestrator) handleIo(req control.Request) (string, error) {
	args := req.Io
	e, ok := o.byName[args.MachineID]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownDevice, args.MachineID)
	}
	high := e.dev.DigitalPin(args.Port[0], args.PinIndex)
	return strconv.FormatBool(high), nil
}
