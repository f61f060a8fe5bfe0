package storage

import (
	"bytes"
	"compress/gzip"
	"encoding/gob"
	"fmt"
	"io"
	"os"
)

// EncodeRecord serialises a record as gzip-compressed gob.
func EncodeRecord(record Record) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeRecord(&buf, record); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeRecord is the inverse of EncodeRecord.
func DecodeRecord(data []byte) (Record, error) {
	return readRecord(bytes.NewReader(data))
}

// WriteRecordFile writes a single record to filePath, replacing any existing file.
func WriteRecordFile(filePath string, record Record) error {
	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create network file '%s': %w", filePath, err)
	}
	if err := writeRecord(file, record); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// ReadRecordFile loads a record written by WriteRecordFile.
func ReadRecordFile(filePath string) (Record, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return Record{}, fmt.Errorf("failed to open network file '%s': %w", filePath, err)
	}
	defer file.Close()
	return readRecord(file)
}

func writeRecord(w io.Writer, record Record) error {
	gzWriter := gzip.NewWriter(w)
	if err := gob.NewEncoder(gzWriter).Encode(record); err != nil {
		gzWriter.Close()
		return fmt.Errorf("failed to encode network record: %w", err)
	}
	if err := gzWriter.Close(); err != nil {
		return fmt.Errorf("failed to flush network record: %w", err)
	}
	return nil
}

func readRecord(r io.Reader) (Record, error) {
	gzReader, err := gzip.NewReader(r)
	if err != nil {
		return Record{}, fmt.Errorf("failed to create gzip reader for network record: %w", err)
	}
	defer gzReader.Close()

	var record Record
	if err := gob.NewDecoder(gzReader).Decode(&record); err != nil {
		return Record{}, fmt.Errorf("failed to decode network record: %w", err)
	}
	return record, nil
}
