package analytics

import (
	"bytes"
	"context"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"shortlink-service/internal/model"
	"shortlink-service/internal/storetest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteCSV_ReplacesCommas(t *testing.T) {
	at := time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC)
	events := []model.ClickEvent{
		{Timestamp: at, IPAddressHash: "0123456789abcdef", Country: "US", City: "Portland", DeviceType: "desktop", OS: "Linux", Browser: "Firefox", Referrer: "foo, bar"},
		{Timestamp: at.Add(time.Minute), Country: "DE", City: "Frankfurt, am Main", DeviceType: "mobile", OS: "Android", Browser: "Chrome", Referrer: "Direct"},
		{Timestamp: at.Add(2 * time.Minute), Country: "FR", City: "Paris", DeviceType: "tablet", OS: "iOS", Browser: "Safari", Referrer: "line\nbreak"},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, events))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "Timestamp,IP (Anonymized),Country,City,Device,OS,Browser,Referrer", lines[0])
	assert.Equal(t, "2026-02-03T04:05:06Z,0123456789abcdef,US,Portland,desktop,Linux,Firefox,foo  bar", lines[1])
	for _, line := range lines {
		assert.Len(t, strings.Split(line, ","), 8, line)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Len(t, records, 4)
}

func TestWriteCSV_CapsRows(t *testing.T) {
	events := make([]model.ClickEvent, MaxExportRows+10)
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, events))
	assert.Equal(t, MaxExportRows+1, strings.Count(buf.String(), "\n"))
}

func TestBuild(t *testing.T) {
	s := storetest.New(t)
	link := storetest.SeedLink(t, s, "stats", "https://example.com", func(l *model.Link) { l.ClickCount = 42 })

	require.NoError(t, s.UpsertDailyStats(context.Background(), []model.DailyLinkStat{
		{LinkID: link.ID, Date: "2026-03-02", Clicks: 7},
		{LinkID: link.ID, Date: "2026-03-01", Clicks: 5},
	}))
	now := time.Now()
	storetest.SeedClick(t, s, link.ID, now, "mobile")
	storetest.SeedClick(t, s, link.ID, now, "mobile")
	storetest.SeedClick(t, s, link.ID, now, "desktop")

	sum, err := Build(context.Background(), s, link)
	require.NoError(t, err)
	assert.Equal(t, "stats", sum.Slug)
	assert.Equal(t, int64(42), sum.TotalClicks)
	assert.Equal(t, 3, sum.RecentClicks)
	assert.Equal(t, []DailyPoint{{"2026-03-01", 5}, {"2026-03-02", 7}}, sum.Daily)
	assert.Equal(t, []Bucket{{"mobile", 2}, {"desktop", 1}}, sum.Devices)
	assert.Equal(t, []Bucket{{"Unknown", 3}}, sum.Countries)
}
