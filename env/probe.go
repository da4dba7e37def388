// Package env detects whether the host environment already resolves CSS
// selectors natively, in which case styled proxies work in passthrough mode.
package env

import (
	"fmt"
	"strings"

	"github.com/dop251/goja"
	"go.uber.org/zap"
)

// nativeCheck is true only where a DOM is available.
const nativeCheck = `typeof window.document.getElementById === "function"`

// Detection modes accepted by Detect.
const (
	ModeAuto = "auto"
	ModeOn   = "on"
	ModeOff  = "off"
)

// NativeSelectors reports whether runtime exposes a DOM. It never fails:
// missing globals, script exceptions and panics all mean "no".
func NativeSelectors(vm *goja.Runtime) (native bool) {
	if vm == nil {
		return false
	}
	defer func() {
		if r := recover(); r != nil {
			native = false
		}
	}()

	v, err := vm.RunString(nativeCheck)
	if err != nil {
		return false
	}
	return v.ToBoolean()
}

// Probe runs setup script in a fresh runtime and checks it for native
// selector support. Error is returned only when setup script itself fails.
func Probe(setup string) (bool, error) {
	vm := goja.New()
	if strings.TrimSpace(setup) != "" {
		if _, err := vm.RunString(setup); err != nil {
			return false, fmt.Errorf("unable to run environment script: %w", err)
		}
	}
	return NativeSelectors(vm), nil
}

// Detect resolves detection mode to native flag. In auto mode environment is
// probed with setup script.
func Detect(mode, setup string, log *zap.Logger) (bool, error) {
	if log == nil {
		log = zap.NewNop()
	}
	switch strings.ToLower(mode) {
	case ModeOn:
		return true, nil
	case ModeOff:
		return false, nil
	case ModeAuto, "":
		native, err := Probe(setup)
		if err != nil {
			return false, err
		}
		log.Debug("Environment probed", zap.Bool("native", native))
		return native, nil
	}
	return false, fmt.Errorf("unknown native selectors mode '%s'", mode)
}

// InstallDocument defines minimal window.document in runtime, enough for
// NativeSelectors to report true. Lookups always return null.
func InstallDocument(vm *goja.Runtime) error {
	doc := vm.NewObject()
	if err := doc.Set("getElementById", func(goja.FunctionCall) goja.Value {
		return goja.Null()
	}); err != nil {
		return fmt.Errorf("unable to define getElementById: %w", err)
	}
	window := vm.NewObject()
	if err := window.Set("document", doc); err != nil {
		return fmt.Errorf("unable to define document: %w", err)
	}
	if err := vm.Set("window", window); err != nil {
		return fmt.Errorf("unable to define window: %w", err)
	}
	return nil
}
