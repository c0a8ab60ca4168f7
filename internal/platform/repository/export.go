// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package repository

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/taibuivan/backoffice/internal/platform/apperr"
)

// # Formats

// Format is an export serialisation.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatXML  Format = "xml"
)

// ParseFormat validates a caller-supplied format, defaulting to JSON.
func ParseFormat(raw string) (Format, error) {
	switch format := Format(strings.ToLower(strings.TrimSpace(raw))); format {
	case "":
		return FormatJSON, nil
	case FormatJSON, FormatCSV, FormatXML:
		return format, nil
	}
	return "", apperr.ValidationError("Unsupported export format",
		apperr.FieldError{Field: "format", Message: "Must be one of: json, csv, xml"})
}

// ContentType is the HTTP media type of the format.
func (f Format) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatXML:
		return "application/xml; charset=utf-8"
	default:
		return "application/json; charset=utf-8"
	}
}

// Extension is the file extension without the dot.
func (f Format) Extension() string { return string(f) }

// # Export

// Export is a serialised extract ready to be sent as a file.
type Export struct {
	Filename    string
	ContentType string
	Body        []byte
	Count       int
}

// Export serialises every active entity matching filters.
//
// Records are the entity's JSON form restricted to the descriptor columns, in
// column order. CSV and XML render nested values as compact JSON and null as
// an empty string.
func (repository *Repository[T]) Export(ctx context.Context, filters Filters, format Format) (*Export, error) {
	items, err := repository.All(ctx, filters)
	if err != nil {
		return nil, err
	}

	records, err := repository.records(items)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("export_records_failed: %w", err))
	}

	var body []byte
	switch format {
	case FormatJSON:
		body, err = json.Marshal(records)
	case FormatCSV:
		body, err = repository.encodeCSV(records)
	case FormatXML:
		body, err = repository.encodeXML(records)
	default:
		_, err = ParseFormat(string(format))
		return nil, err
	}
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("export_encode_failed: %w", err))
	}

	return &Export{
		Filename:    repository.descriptor.Collection + "." + format.Extension(),
		ContentType: format.ContentType(),
		Body:        body,
		Count:       len(records),
	}, nil
}

// records projects entities onto the column whitelist via their JSON form.
func (repository *Repository[T]) records(items []T) ([]map[string]any, error) {
	records := make([]map[string]any, 0, len(items))

	for _, item := range items {
		raw, err := json.Marshal(item)
		if err != nil {
			return nil, err
		}

		decoder := json.NewDecoder(bytes.NewReader(raw))
		decoder.UseNumber()

		var full map[string]any
		if err := decoder.Decode(&full); err != nil {
			return nil, err
		}

		record := make(map[string]any, len(repository.descriptor.Columns))
		for _, column := range repository.descriptor.Columns {
			record[column] = full[column]
		}
		records = append(records, record)
	}

	return records, nil
}

func (repository *Repository[T]) encodeCSV(records []map[string]any) ([]byte, error) {
	var buffer bytes.Buffer
	writer := csv.NewWriter(&buffer)

	columns := repository.descriptor.Columns
	if err := writer.Write(columns); err != nil {
		return nil, err
	}

	row := make([]string, len(columns))
	for _, record := range records {
		for i, column := range columns {
			row[i] = flatten(record[column])
		}
		if err := writer.Write(row); err != nil {
			return nil, err
		}
	}

	writer.Flush()
	return buffer.Bytes(), writer.Error()
}

func (repository *Repository[T]) encodeXML(records []map[string]any) ([]byte, error) {
	var buffer bytes.Buffer
	buffer.WriteString(xml.Header)

	encoder := xml.NewEncoder(&buffer)
	encoder.Indent("", "  ")

	root := xml.StartElement{Name: xml.Name{Local: repository.descriptor.Collection}}
	if err := encoder.EncodeToken(root); err != nil {
		return nil, err
	}

	for _, record := range records {
		element := xml.StartElement{Name: xml.Name{Local: "record"}}
		if err := encoder.EncodeToken(element); err != nil {
			return nil, err
		}
		for _, column := range repository.descriptor.Columns {
			field := xml.StartElement{Name: xml.Name{Local: column}}
			if err := encoder.EncodeElement(flatten(record[column]), field); err != nil {
				return nil, err
			}
		}
		if err := encoder.EncodeToken(element.End()); err != nil {
			return nil, err
		}
	}

	if err := encoder.EncodeToken(root.End()); err != nil {
		return nil, err
	}
	if err := encoder.Flush(); err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}

// flatten renders one JSON value as a flat text cell.
func flatten(value any) string {
	switch typed := value.(type) {
	case nil:
		return ""
	case string:
		return typed
	case json.Number:
		return typed.String()
	case bool:
		if typed {
			return "true"
		}
		return "false"
	default:
		nested, err := json.Marshal(typed)
		if err != nil {
			return fmt.Sprint(typed)
		}
		return string(nested)
	}
}
