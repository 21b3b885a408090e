//go:build js && wasm

package main

import (
	"archive/zip"
	"bytes"
	"fmt"
	"sort"
	"syscall/js"
	"time"

	"health-analyzer/config"
	"health-analyzer/pipeline"
)

// cache survives between calls so re-analysing the same export with new
// options skips the XML parse.
var cache = pipeline.NewCache()

func main() {
	js.Global().Set("analyzeHealthExport", js.FuncOf(analyzeHealthExport))
	js.Global().Set("clearHealthCache", js.FuncOf(func(js.Value, []js.Value) any {
		cache.Purge()
		return nil
	}))
	select {}
}

func analyzeHealthExport(_ js.Value, args []js.Value) any {
	if len(args) < 2 {
		return failure("expected arguments: exportBytes(Uint8Array), options(object)")
	}
	exportArg := args[0]
	optsArg := args[1]
	if exportArg.IsUndefined() || exportArg.IsNull() || exportArg.Get("length").Int() == 0 {
		return failure("export bytes are required")
	}
	exportBytes, ok := copyBytes(exportArg)
	if !ok {
		return failure("failed to read export bytes from JS input")
	}

	tracks := map[string][]byte{}
	if optsArg.IsUndefined() || optsArg.IsNull() {
		optsArg = js.Global().Get("Object").New()
	}
	if t := optsArg.Get("tracks"); !t.IsUndefined() && !t.IsNull() {
		keys := js.Global().Get("Object").Call("keys", t)
		for i := 0; i < keys.Length(); i++ {
			name := keys.Index(i).String()
			data, ok := copyBytes(t.Get(name))
			if !ok {
				return failure(fmt.Sprintf("failed to read track %s", name))
			}
			tracks[name] = data
		}
	}

	settings := config.FromEnv()
	settings.Range = getString(optsArg, "range", settings.Range)
	settings.Timezone = getString(optsArg, "timezone", settings.Timezone)
	settings.Workload = getString(optsArg, "workload", settings.Workload)
	if v := getFloat(optsArg, "fitness_days"); v > 0 {
		settings.FitnessDays = int(v)
	}
	if v := getFloat(optsArg, "fatigue_days"); v > 0 {
		settings.FatigueDays = int(v)
	}
	cfg, err := settings.AnalysisConfig(nil)
	if err != nil {
		return failure(err.Error())
	}

	result, err := pipeline.RunBytes(pipeline.BytesOptions{
		ExportName: getString(optsArg, "source_file_name", "export.xml"),
		ExportData: exportBytes,
		Tracks:     tracks,
		Format:     getString(optsArg, "format", "parquet"),
		Config:     cfg,
		Cache:      cache,
	})
	if err != nil {
		return failure(err.Error())
	}

	zipBytes, err := zipArtifacts(result.Files)
	if err != nil {
		return failure(fmt.Sprintf("create zip: %v", err))
	}
	payload := js.Global().Get("Uint8Array").New(len(zipBytes))
	js.CopyBytesToJS(payload, zipBytes)

	fileNames := make([]string, 0, len(result.Files))
	for name := range result.Files {
		fileNames = append(fileNames, name)
	}
	sort.Strings(fileNames)

	return map[string]any{
		"ok":        true,
		"zip":       payload,
		"notes":     result.Analysis.Notes,
		"cache_hit": result.CacheHit,
		"warnings":  stringsToAny(result.Warnings),
		"files":     stringsToAny(fileNames),
	}
}

func failure(msg string) map[string]any {
	return map[string]any{
		"ok":    false,
		"error": msg,
	}
}

func copyBytes(v js.Value) ([]byte, bool) {
	if v.IsUndefined() || v.IsNull() {
		return nil, false
	}
	out := make([]byte, v.Get("length").Int())
	if len(out) == 0 {
		return out, true
	}
	return out, js.CopyBytesToGo(out, v) == len(out)
}

func zipArtifacts(files map[string][]byte) ([]byte, error) {
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	fixedTime := time.Unix(0, 0).UTC()

	for _, name := range names {
		h := &zip.FileHeader{
			Name:   name,
			Method: zip.Deflate,
		}
		h.SetModTime(fixedTime)
		w, err := zw.CreateHeader(h)
		if err != nil {
			return nil, err
		}
		if _, err := w.Write(files[name]); err != nil {
			return nil, err
		}
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func getString(v js.Value, key, fallback string) string {
	if v.IsUndefined() || v.IsNull() {
		return fallback
	}
	out := v.Get(key)
	if out.IsUndefined() || out.IsNull() {
		return fallback
	}
	s := out.String()
	if s == "" || s == "undefined" || s == "null" {
		return fallback
	}
	return s
}

func getFloat(v js.Value, key string) float64 {
	if v.IsUndefined() || v.IsNull() {
		return 0
	}
	out := v.Get(key)
	if out.IsUndefined() || out.IsNull() || out.Type() != js.TypeNumber {
		return 0
	}
	return out.Float()
}

func stringsToAny(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
