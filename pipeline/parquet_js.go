//go:build js

package pipeline

import "os"

func writeParquetFile(path string, schema any, rows []any) error {
	data, err := marshalParquet(schema, rows)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
