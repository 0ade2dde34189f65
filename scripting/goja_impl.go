package scripting

import (
	"context"
	"errors"

	"github.com/dop251/goja"
)

// GojaEngine evaluates rule scripts in a goja runtime. A runtime is not
// safe for concurrent use; create one engine per goroutine.
type GojaEngine struct {
	vm *goja.Runtime
}

func NewEngine() *GojaEngine {
	vm := goja.New()
	return &GojaEngine{vm: vm}
}

// Execute compiles and runs script. The completion value is exported to
// Go; undefined becomes nil. Cancelling ctx interrupts a running script and
// returns the context error.
func (e *GojaEngine) Execute(ctx context.Context, script string) (interface{}, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	prog, err := goja.Compile("rule.js", script, false)
	if err != nil {
		return nil, err
	}

	stop := context.AfterFunc(ctx, func() { e.vm.Interrupt(ctx.Err()) })
	defer e.vm.ClearInterrupt()
	defer stop()

	val, err := e.vm.RunProgram(prog)
	if err != nil {
		var interrupted *goja.InterruptedError
		if errors.As(err, &interrupted) {
			if cause, ok := interrupted.Value().(error); ok && cause != nil {
				return nil, cause
			}
			return nil, context.Canceled
		}
		return nil, err
	}
	if val == nil || goja.IsUndefined(val) {
		return nil, nil
	}
	return val.Export(), nil
}

func (e *GojaEngine) RegisterDOM(dom DocumentView) error {
	logFn := func(call goja.FunctionCall) goja.Value {
		msg := ""
		if len(call.Arguments) > 0 {
			msg = call.Arguments[0].String()
		}
		dom.Log(msg)
		return goja.Undefined()
	}
	console := e.vm.NewObject()
	if err := console.Set("log", logFn); err != nil {
		return err
	}
	if err := e.vm.Set("console", console); err != nil {
		return err
	}

	doc := e.vm.NewObject()
	roles := e.vm.NewObject()
	for role, n := range dom.RoleCounts() {
		if err := roles.Set(role, n); err != nil {
			return err
		}
	}
	props := map[string]interface{}{
		"lang":      dom.Lang(),
		"title":     dom.Title(),
		"marked":    dom.Marked(),
		"pageCount": dom.PageCount(),
		"roles":     roles,
	}
	for k, v := range props {
		if err := doc.Set(k, v); err != nil {
			return err
		}
	}
	err := doc.Set("count", func(call goja.FunctionCall) goja.Value {
		if len(call.Arguments) < 1 {
			return e.vm.ToValue(0)
		}
		return e.vm.ToValue(dom.RoleCounts()[call.Arguments[0].String()])
	})
	if err != nil {
		return err
	}
	err = doc.Set("page", func(call goja.FunctionCall) goja.Value {
		if len(call.Arguments) < 1 {
			return goja.Undefined()
		}
		page := dom.Page(int(call.Arguments[0].ToInteger()))
		if page == nil {
			return goja.Null()
		}
		obj := e.vm.NewObject()
		_ = obj.Set("number", page.GetNumber())
		_ = obj.Set("tabOrder", page.GetTabOrder())
		_ = obj.Set("annotations", page.GetAnnotationCount())
		return obj
	})
	if err != nil {
		return err
	}
	return e.vm.Set("doc", doc)
}
