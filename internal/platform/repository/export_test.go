// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package repository_test

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/backoffice/internal/platform/apperr"
	"github.com/taibuivan/backoffice/internal/platform/repository"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		raw  string
		want repository.Format
	}{
		{"", repository.FormatJSON},
		{"json", repository.FormatJSON},
		{"CSV", repository.FormatCSV},
		{" xml ", repository.FormatXML},
	}
	for _, tt := range tests {
		format, err := repository.ParseFormat(tt.raw)
		require.NoError(t, err)
		assert.Equal(t, tt.want, format)
	}

	_, err := repository.ParseFormat("xlsx")
	assert.True(t, apperr.HasCode(err, apperr.CodeValidation))
}

func TestExport_CSV(t *testing.T) {
	repo, _ := newWidgets(t)

	export, err := repo.Export(context.Background(), repository.Filters{"id": []string{"a", "b"}}, repository.FormatCSV)
	require.NoError(t, err)

	assert.Equal(t, "widgets.csv", export.Filename)
	assert.Equal(t, "text/csv; charset=utf-8", export.ContentType)
	assert.Equal(t, 2, export.Count)

	lines := strings.Split(strings.TrimSpace(string(export.Body)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "id,name,status,price,tags,created_at,updated_at", lines[0])
	assert.Equal(t, `b,Bravo,inactive,200,"[""tBravo""]",2026-01-01T01:00:00Z,0001-01-01T00:00:00Z`, lines[1])
}

func TestExport_JSON_RestrictsToColumns(t *testing.T) {
	repo, _ := newWidgets(t)
	require.NoError(t, repo.Delete(context.Background(), "e"))

	export, err := repo.Export(context.Background(), nil, repository.FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, 4, export.Count, "trashed rows are not exported")

	var records []map[string]any
	require.NoError(t, json.Unmarshal(export.Body, &records))
	require.Len(t, records, 4)

	assert.Equal(t, "d", records[0]["id"])
	assert.NotContains(t, records[0], "deleted_at")
	assert.Len(t, records[0], 7)
}

func TestExport_XML(t *testing.T) {
	repo, _ := newWidgets(t)

	export, err := repo.Export(context.Background(), repository.Filters{"id": "c"}, repository.FormatXML)
	require.NoError(t, err)

	body := string(export.Body)
	assert.Equal(t, "widgets.xml", export.Filename)
	assert.True(t, strings.HasPrefix(body, "<?xml"))
	assert.Contains(t, body, "<widgets>")
	assert.Contains(t, body, "<record>")
	assert.Contains(t, body, "<name>Charlie</name>")
	assert.Contains(t, body, "<price>300</price>")
	assert.Contains(t, body, "</widgets>")
}
