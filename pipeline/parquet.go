package pipeline

import (
	"math"

	parquetbuffer "github.com/xitongsys/parquet-go-source/buffer"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/source"
	"github.com/xitongsys/parquet-go/writer"
)

type dailyParquetRow struct {
	Date        string  `parquet:"name=date, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	Metric      string  `parquet:"name=metric, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	Series      string  `parquet:"name=series, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	Aggregation string  `parquet:"name=aggregation, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	Value       float64 `parquet:"name=value, type=DOUBLE"`
	Count       int64   `parquet:"name=count, type=INT64"`
}

type loadParquetRow struct {
	Date       string  `parquet:"name=date, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	Load       float64 `parquet:"name=load, type=DOUBLE"`
	ACWR       float64 `parquet:"name=acwr, type=DOUBLE"`
	ACWRStatus string  `parquet:"name=acwr_status, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	Band       string  `parquet:"name=band, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	Fitness    float64 `parquet:"name=fitness, type=DOUBLE"`
	Fatigue    float64 `parquet:"name=fatigue, type=DOUBLE"`
	TSB        float64 `parquet:"name=tsb, type=DOUBLE"`
}

func dailyParquetRows(rows []DailyRow) []any {
	out := make([]any, len(rows))
	for i, r := range rows {
		out[i] = dailyParquetRow{
			Date:        r.Date,
			Metric:      r.Metric,
			Series:      r.Series,
			Aggregation: r.Aggregation,
			Value:       r.Value,
			Count:       int64(r.Count),
		}
	}
	return out
}

func loadParquetRows(rows []LoadRow) []any {
	out := make([]any, len(rows))
	for i, r := range rows {
		out[i] = loadParquetRow{
			Date:       r.Date,
			Load:       r.Load,
			ACWR:       valueOrNaN(r.ACWR),
			ACWRStatus: r.ACWRStatus,
			Band:       r.Band,
			Fitness:    r.Fitness,
			Fatigue:    r.Fatigue,
			TSB:        r.TSB,
		}
	}
	return out
}

// writeParquet streams rows into fw with SNAPPY compression and closes fw.
func writeParquet(fw source.ParquetFile, schema any, rows []any) error {
	pw, err := writer.NewParquetWriter(fw, schema, 4)
	if err != nil {
		_ = fw.Close()
		return err
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY
	for _, row := range rows {
		if err := pw.Write(row); err != nil {
			_ = pw.WriteStop()
			_ = fw.Close()
			return err
		}
	}
	if err := pw.WriteStop(); err != nil {
		_ = fw.Close()
		return err
	}
	return fw.Close()
}

func marshalParquet(schema any, rows []any) ([]byte, error) {
	fw := parquetbuffer.NewBufferFile()
	if err := writeParquet(fw, schema, rows); err != nil {
		return nil, err
	}
	return append([]byte(nil), fw.Bytes()...), nil
}

func valueOrNaN(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}
