package logger

import (
	"strings"

	"go.uber.org/fx/fxevent"
)

// FxLoggerAdapter writes fx container events to the batch logger.
// Wiring chatter goes to DEBUG; only failures and the started event are visible at INFO.
type FxLoggerAdapter struct{}

// NewFxLoggerAdapter creates a new instance of FxLoggerAdapter.
func NewFxLoggerAdapter() fxevent.Logger {
	return &FxLoggerAdapter{}
}

// LogEvent logs events from fx.
func (l *FxLoggerAdapter) LogEvent(event fxevent.Event) {
	switch e := event.(type) {
	case *fxevent.OnStartExecuted:
		hookResult("OnStart", e.FunctionName, e.Err)
	case *fxevent.OnStopExecuted:
		hookResult("OnStop", e.FunctionName, e.Err)
	case *fxevent.Supplied:
		if e.Err != nil {
			Errorf("fx supply of %s failed: %v", e.TypeName, e.Err)
		}
	case *fxevent.Provided:
		if e.Err != nil {
			Errorf("fx provide via %s failed: %v", hookName(e.ConstructorName), e.Err)
			return
		}
		for _, name := range e.OutputTypeNames {
			Debugf("fx provided %s", name)
		}
	case *fxevent.Invoked:
		if e.Err != nil {
			Errorf("fx invoke of %s failed: %v", hookName(e.FunctionName), e.Err)
		}
	case *fxevent.Stopping:
		Debugf("fx received signal %s, stopping", e.Signal)
	case *fxevent.RollingBack:
		Errorf("fx start failed, rolling back: %v", e.StartErr)
	case *fxevent.Started:
		if e.Err != nil {
			Errorf("fx start failed: %v", e.Err)
		} else {
			Debugf("fx application started")
		}
	case *fxevent.LoggerInitialized:
		if e.Err != nil {
			Errorf("fx logger initialization failed: %v", e.Err)
		}
	}
}

func hookResult(kind, fn string, err error) {
	if err != nil {
		Errorf("%s hook %s failed: %v", kind, hookName(fn), err)
		return
	}
	Debugf("%s hook %s executed", kind, hookName(fn))
}

// hookName strips the ".funcN" suffix fx reports for closures.
func hookName(fn string) string {
	if idx := strings.LastIndex(fn, ".func"); idx != -1 {
		return fn[:idx]
	}
	return fn
}
