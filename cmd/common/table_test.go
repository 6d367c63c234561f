package common_test

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/north-cloud/reader/cmd/common"
)

func TestTruncate(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "short", common.Truncate("short", 10))
	assert.Equal(t, "abcd…", common.Truncate("abcdefgh", 5))
	assert.Equal(t, "日本…", common.Truncate("日本語の記事", 3))
	assert.Empty(t, common.Truncate("anything", 0))
}

func TestFormatTime(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "-", common.FormatTime(nil))
	assert.Equal(t, "-", common.FormatTime(&time.Time{}))

	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.Local)
	assert.Equal(t, "2024-01-02 03:04:05", common.FormatTime(&ts))
}

func TestNewTable_RendersToWriter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	tw := common.NewTable(&buf, table.Row{"Name"})
	tw.AppendRow(table.Row{"reader"})
	tw.Render()

	out := buf.String()
	require.NotEmpty(t, out)
	assert.True(t, strings.Contains(out, "reader"))
	assert.True(t, strings.Contains(strings.ToUpper(out), "NAME"))
}

func TestParseID(t *testing.T) {
	t.Parallel()

	id, err := common.ParseID("source", " 1b4e28ba-2fa1-11d2-883f-0016d3cca427 ")
	require.NoError(t, err)
	assert.Equal(t, "1b4e28ba-2fa1-11d2-883f-0016d3cca427", id.String())

	_, err = common.ParseID("source", "nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid source id")
}
