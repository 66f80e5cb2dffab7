package environment

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dop251/goja"
)

// ErrScriptTimeout is returned when a custom script runs past its deadline.
var ErrScriptTimeout = errors.New("script timed out")

// Sandbox runs custom scripts in a fresh JavaScript runtime per call. The only
// host binding is console.log, which goes to the logger; there is no file,
// network or process access.
type Sandbox struct {
	timeout time.Duration
	logger  *slog.Logger
}

// NewSandbox returns a Sandbox that interrupts scripts after timeout.
func NewSandbox(timeout time.Duration, logger *slog.Logger) *Sandbox {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sandbox{
		timeout: timeout,
		logger:  logger.With(slog.String("component", "sandbox")),
	}
}

// Run executes src. Exceptions, panics and timeouts are returned as errors.
func (s *Sandbox) Run(src string) (err error) {
	vm := goja.New()

	console := vm.NewObject()
	if err := console.Set("log", s.log); err != nil {
		return fmt.Errorf("sandbox: bind console: %w", err)
	}
	if err := vm.Set("console", console); err != nil {
		return fmt.Errorf("sandbox: bind console: %w", err)
	}

	if s.timeout > 0 {
		timer := time.AfterFunc(s.timeout, func() {
			vm.Interrupt(ErrScriptTimeout)
		})
		defer timer.Stop()
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sandbox: panic: %v", r)
		}
	}()

	if _, err := vm.RunScript("customJS", src); err != nil {
		var interrupted *goja.InterruptedError
		if errors.As(err, &interrupted) {
			return ErrScriptTimeout
		}
		return fmt.Errorf("sandbox: %w", err)
	}
	return nil
}

func (s *Sandbox) log(call goja.FunctionCall) goja.Value {
	parts := make([]string, len(call.Arguments))
	for i, a := range call.Arguments {
		parts[i] = a.String()
	}
	s.logger.Info("console.log", slog.String("message", strings.Join(parts, " ")))
	return goja.Undefined()
}
