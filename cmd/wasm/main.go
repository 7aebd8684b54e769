//go:build js && wasm

package main

import (
	"encoding/json"
	"syscall/js"

	"github.com/codequest/backend-go/internal/document"
	"github.com/codequest/backend-go/internal/engine"
)

func main() {
	js.Global().Set("createCanvas", js.FuncOf(createCanvas))
	js.Global().Set("sampleCanvas", js.FuncOf(sampleCanvas))

	// Signal that WASM is ready
	js.Global().Set("canvasWasmReady", js.ValueOf(true))

	// Keep Go runtime alive
	select {}
}

// createCanvas(initialJSON, readOnly, onSave, theme) returns an engine API object.
// initialJSON may be empty; onSave receives CanvasData JSON after every change.
func createCanvas(this js.Value, args []js.Value) interface{} {
	opts := engine.Options{}

	if len(args) > 0 && args[0].Type() == js.TypeString && args[0].String() != "" {
		initial, err := document.Decode([]byte(args[0].String()))
		if err != nil {
			return js.ValueOf(map[string]interface{}{"error": err.Error()})
		}
		opts.Initial = &initial
	}
	if len(args) > 1 && args[1].Type() == js.TypeBoolean {
		opts.ReadOnly = args[1].Bool()
	}
	if len(args) > 2 && args[2].Type() == js.TypeFunction {
		onSave := args[2]
		opts.OnSave = func(data document.CanvasData) {
			out, err := json.Marshal(data)
			if err != nil {
				return
			}
			onSave.Invoke(string(out))
		}
	}
	if len(args) > 3 && args[3].Type() == js.TypeString {
		opts.Theme = engine.ThemeByName(args[3].String())
	}

	return newCanvasAPI(engine.NewEngine(opts))
}

func sampleCanvas(this js.Value, args []js.Value) interface{} {
	out, err := json.Marshal(document.NewSampleCanvas())
	if err != nil {
		return js.ValueOf("")
	}
	return js.ValueOf(string(out))
}

func newCanvasAPI(eng *engine.Engine) js.Value {
	api := js.Global().Get("Object").New()

	// --- Commands (frontend → engine) ---
	api.Set("setTool", js.FuncOf(func(this js.Value, args []js.Value) interface{} {
		if len(args) < 1 {
			return nil
		}
		tool, err := engine.ParseTool(args[0].String())
		if err != nil {
			return js.ValueOf(map[string]interface{}{"error": err.Error()})
		}
		eng.SetTool(tool)
		return nil
	}))
	api.Set("pointerDown", pointerFunc(eng.PointerDown))
	api.Set("pointerMove", pointerFunc(eng.PointerMove))
	api.Set("pointerUp", pointerFunc(eng.PointerUp))
	api.Set("cancelGesture", voidFunc(eng.CancelGesture))
	api.Set("typeText", stringFunc(eng.TypeText))
	api.Set("key", stringFunc(eng.Key))
	api.Set("submitText", stringFunc(eng.SubmitText))
	api.Set("confirmText", voidFunc(eng.ConfirmText))
	api.Set("cancelText", voidFunc(eng.CancelText))
	api.Set("deleteSelected", voidFunc(eng.DeleteSelected))
	api.Set("clearAll", voidFunc(eng.ClearAll))
	api.Set("undo", voidFunc(eng.Undo))
	api.Set("redo", voidFunc(eng.Redo))
	api.Set("save", voidFunc(eng.Save))

	// --- Queries (frontend ← engine) ---
	api.Set("render", js.FuncOf(func(this js.Value, args []js.Value) interface{} {
		out, err := engine.DrawCommandsToJSON(eng.Render())
		if err != nil {
			return js.ValueOf("[]")
		}
		return js.ValueOf(out)
	}))
	api.Set("hitTest", js.FuncOf(func(this js.Value, args []js.Value) interface{} {
		if len(args) < 2 {
			return js.ValueOf("")
		}
		return js.ValueOf(eng.HitTest(args[0].Float(), args[1].Float()))
	}))
	api.Set("getSelectionBounds", js.FuncOf(func(this js.Value, args []js.Value) interface{} {
		r, ok := eng.SelectionBounds()
		if !ok {
			return js.Null()
		}
		return js.ValueOf(engine.RectToJSON(r))
	}))
	api.Set("snapshot", jsonFunc(func() interface{} { return eng.Snapshot() }))
	api.Set("state", jsonFunc(func() interface{} { return eng.State() }))

	return api
}

func pointerFunc(fn func(x, y float64)) js.Func {
	return js.FuncOf(func(this js.Value, args []js.Value) interface{} {
		if len(args) < 2 {
			return nil
		}
		fn(args[0].Float(), args[1].Float())
		return nil
	})
}

func stringFunc(fn func(string)) js.Func {
	return js.FuncOf(func(this js.Value, args []js.Value) interface{} {
		if len(args) < 1 {
			return nil
		}
		fn(args[0].String())
		return nil
	})
}

func voidFunc(fn func()) js.Func {
	return js.FuncOf(func(this js.Value, args []js.Value) interface{} {
		fn()
		return nil
	})
}

func jsonFunc(fn func() interface{}) js.Func {
	return js.FuncOf(func(this js.Value, args []js.Value) interface{} {
		out, err := json.Marshal(fn())
		if err != nil {
			return js.ValueOf("{}")
		}
		return js.ValueOf(string(out))
	})
}
