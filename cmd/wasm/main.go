//go:build js && wasm

package main

import (
	"encoding/json"
	"fmt"
	"syscall/js"

	"vavmerge/pkg/engine"
	"vavmerge/pkg/parser"
	"vavmerge/pkg/schema"
)

// NOTE: Each Web Worker loads its own WASM instance and nothing is kept
// between calls. Every function takes JSON or bytes in and returns a JSON
// string; failures come back as {"error": "..."}.

func errorJSON(msg string) string {
	out, _ := json.Marshal(map[string]string{"error": schema.ToASCII(msg)})
	return string(out)
}

func resultJSON(v any) string {
	out, err := json.Marshal(v)
	if err != nil {
		return errorJSON(err.Error())
	}
	return string(out)
}

// checkArg verifies that args[i] is present and has the wanted JS type.
func checkArg(args []js.Value, i int, name string, want js.Type) error {
	if i >= len(args) {
		return fmt.Errorf("missing argument %d (%s)", i, name)
	}
	if got := args[i].Type(); got != want {
		return fmt.Errorf("argument %d (%s) must be a %s, got %s", i, name, want, got)
	}
	return nil
}

type arg struct {
	name string
	want js.Type
}

// checkArgs checks args positionally against want.
func checkArgs(args []js.Value, want ...arg) error {
	for i, a := range want {
		if err := checkArg(args, i, a.name, a.want); err != nil {
			return err
		}
	}
	return nil
}

// optionalString returns args[i] when it is a non-empty string. Undefined and
// null count as absent; any other type is an error.
func optionalString(args []js.Value, i int, name string) (string, error) {
	if i >= len(args) || args[i].IsUndefined() || args[i].IsNull() {
		return "", nil
	}
	if err := checkArg(args, i, name, js.TypeString); err != nil {
		return "", err
	}
	return args[i].String(), nil
}

// readSchedule handles vavReadSchedule.
// args[0] = Uint8Array (CSV bytes)
// args[1] = string (options JSON, may be empty)
// Returns the schedule with its header info and records.
func readSchedule(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 || args[0].Type() != js.TypeObject || !args[0].InstanceOf(js.Global().Get("Uint8Array")) {
		return errorJSON("readSchedule requires a Uint8Array argument")
	}
	data := make([]byte, args[0].Get("length").Int())
	js.CopyBytesToGo(data, args[0])

	opts := parser.DefaultOptions()
	raw, err := optionalString(args, 1, "options")
	if err != nil {
		return errorJSON(err.Error())
	}
	if raw != "" {
		if err := json.Unmarshal([]byte(raw), &opts); err != nil {
			return errorJSON("invalid options: " + err.Error())
		}
	}
	if err := opts.Validate(); err != nil {
		return errorJSON(err.Error())
	}

	sheet, err := parser.DecodeCSV(data)
	if err != nil {
		return errorJSON(err.Error())
	}
	sched := parser.BuildSchedule(sheet.Grid, opts)
	return resultJSON(map[string]interface{}{
		"schedule": sched,
		"encoding": sheet.Encoding,
		"warnings": sheet.Warnings,
	})
}

// inferHeaders handles vavInferHeaders.
// args[0] = string (grid JSON: array of rows of scalar cells)
// args[1] = number (header rows, 1 or 2)
// args[2] = bool (skip title row)
func inferHeaders(this js.Value, args []js.Value) interface{} {
	if len(args) < 3 {
		return errorJSON("inferHeaders requires 3 arguments: gridJSON, headerRows and skipTitleRow")
	}
	if err := checkArgs(args, arg{"gridJSON", js.TypeString}, arg{"headerRows", js.TypeNumber}, arg{"skipTitleRow", js.TypeBoolean}); err != nil {
		return errorJSON(err.Error())
	}
	var grid schema.Grid
	if err := json.Unmarshal([]byte(args[0].String()), &grid); err != nil {
		return errorJSON("invalid grid: " + err.Error())
	}
	headerRows := args[1].Int()
	if headerRows < 1 || headerRows > 2 {
		return errorJSON(fmt.Sprintf("headerRows must be 1 or 2, got %d", headerRows))
	}
	info := schema.InferHeaders(grid, schema.HeaderOptions{
		HeaderRows:   headerRows,
		SkipTitleRow: args[2].Bool(),
	})
	return resultJSON(info)
}

// compare handles vavCompare.
// args[0] = string (spreadsheet records JSON)
// args[1] = string (database records JSON)
// args[2] = string (thresholds JSON, optional)
func compare(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return errorJSON("compare requires 2 arguments: excelRecordsJSON and dbRecordsJSON")
	}
	if err := checkArgs(args, arg{"excelRecordsJSON", js.TypeString}, arg{"dbRecordsJSON", js.TypeString}); err != nil {
		return errorJSON(err.Error())
	}
	raw, err := optionalString(args, 2, "thresholdsJSON")
	if err != nil {
		return errorJSON(err.Error())
	}
	var excel, db []schema.Record
	if err := json.Unmarshal([]byte(args[0].String()), &excel); err != nil {
		return errorJSON("invalid spreadsheet records: " + err.Error())
	}
	if err := json.Unmarshal([]byte(args[1].String()), &db); err != nil {
		return errorJSON("invalid database records: " + err.Error())
	}

	th := engine.DefaultThresholds()
	if raw != "" {
		if err := json.Unmarshal([]byte(raw), &th); err != nil {
			return errorJSON("invalid thresholds: " + err.Error())
		}
	}
	if err := th.Validate(); err != nil {
		return errorJSON(err.Error())
	}
	return resultJSON(engine.Compare(excel, db, th))
}

func main() {
	js.Global().Set("vavReadSchedule", js.FuncOf(readSchedule))
	js.Global().Set("vavInferHeaders", js.FuncOf(inferHeaders))
	js.Global().Set("vavCompare", js.FuncOf(compare))

	// Block forever; the module stays alive for the page.
	select {}
}
