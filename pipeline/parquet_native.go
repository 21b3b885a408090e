//go:build !js

package pipeline

import "github.com/xitongsys/parquet-go-source/local"

func writeParquetFile(path string, schema any, rows []any) error {
	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		return err
	}
	return writeParquet(fw, schema, rows)
}
