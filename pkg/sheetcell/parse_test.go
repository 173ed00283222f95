package sheetcell

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var loc = time.FixedZone("BRT", -3*3600)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

func TestParseDateFormat(t *testing.T) {
	cases := map[string]DateFormat{
		"":             DMY,
		"DD/MM/AAAA":   DMY,
		"DD-MM-AAAA":   DMY,
		"dd/mm/yyyy":   DMY,
		"MM/DD/AAAA":   MDY,
		"AAAA-MM-DD":   YMD,
		"YYYY-MM-DD":   YMD,
		"DD/MMM/AA":    DMonY,
		"desconhecido": DMY,
	}
	for tok, want := range cases {
		assert.Equal(t, want, ParseDateFormat(tok), "token %q", tok)
	}
	assert.Equal(t, "DD/MMM/AA", DMonY.Token())
}

func TestDateFormat_JSON(t *testing.T) {
	var payload struct {
		F DateFormat `json:"f"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"f":"MM/DD/AAAA"}`), &payload))
	assert.Equal(t, MDY, payload.F)

	data, err := json.Marshal(payload)
	require.NoError(t, err)
	assert.JSONEq(t, `{"f":"MM/DD/AAAA"}`, string(data))
}

func TestParseDate(t *testing.T) {
	cases := []struct {
		name   string
		v      Value
		format DateFormat
		want   time.Time
		ok     bool
	}{
		{"dmy slash", StringValue("05/03/2024"), DMY, day(2024, 3, 5), true},
		{"dmy dash", StringValue("05-03-2024"), DMY, day(2024, 3, 5), true},
		{"dmy dot", StringValue("05.03.24"), DMY, day(2024, 3, 5), true},
		{"dmy with time", StringValue("05/03/2024 08:00"), DMY, day(2024, 3, 5), true},
		{"mdy", StringValue("03/05/2024"), MDY, day(2024, 3, 5), true},
		{"ymd", StringValue("2024-03-05"), YMD, day(2024, 3, 5), true},
		{"ymd iso with T", StringValue("2024-03-01T08:00"), YMD, day(2024, 3, 1), true},
		{"ymd iso with seconds", StringValue("2024-03-01T08:00:00"), YMD, day(2024, 3, 1), true},
		{"dmony upper case with time", StringValue("05/SET/24 08:00"), DMonY, day(2024, 9, 5), true},
		{"dmony", StringValue("11/Dez/25"), DMonY, day(2025, 12, 11), true},
		{"dmony full month", StringValue("11 fevereiro 2025"), DMonY, day(2025, 2, 11), true},
		{"dmony unknown month", StringValue("11/Dec/25"), DMonY, time.Time{}, false},
		{"two parts", StringValue("05/03"), DMY, time.Time{}, false},
		{"month out of range", StringValue("05/13/2024"), DMY, time.Time{}, false},
		{"day out of range", StringValue("30/02/2024"), DMY, time.Time{}, false},
		{"garbage", StringValue("amanhã"), DMY, time.Time{}, false},
		{"empty", StringValue(" "), DMY, time.Time{}, false},
		{"number", NumberValue(45352), DMY, time.Time{}, false},
		{"date value", TimeValue(time.Date(2024, 3, 5, 14, 0, 0, 0, time.UTC)), DMY, day(2024, 3, 5), true},
		{"time only value", TimeValue(time.Date(1899, 12, 30, 8, 0, 0, 0, time.UTC)), DMY, time.Time{}, false},
		{"year 1970 is a date", TimeValue(time.Date(1970, 1, 2, 0, 0, 0, 0, time.UTC)), DMY, day(1970, 1, 2), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ParseDate(tc.v, tc.format, loc)
			assert.Equal(t, tc.ok, ok)
			if tc.ok {
				assert.True(t, tc.want.Equal(got), "want %v got %v", tc.want, got)
			}
		})
	}
}

func TestResolveTime(t *testing.T) {
	ref := day(2024, 3, 1)
	at := func(h, m int) time.Time { return time.Date(2024, 3, 1, h, m, 0, 0, loc) }

	cases := []struct {
		name string
		v    Value
		want time.Time
	}{
		{"day fraction noon", NumberValue(0.5), at(12, 0)},
		{"day fraction 08:30", NumberValue(8.5 / 24), at(8, 30)},
		{"serial with date part", NumberValue(45352.25), at(6, 0)},
		{"string", StringValue("08:00"), at(8, 0)},
		{"string single digit hour", StringValue("7:05"), at(7, 5)},
		{"string with seconds", StringValue("13:45:59"), at(13, 45)},
		{"string garbage", StringValue("manhã"), at(0, 0)},
		{"date and time string", StringValue("01/03/2024 08:00"), at(8, 0)},
		{"iso date time string", StringValue("2024-03-01T17:45"), at(17, 45)},
		{"string partially garbage", StringValue("xx:15"), at(0, 15)},
		{"empty", Value{}, at(0, 0)},
		{"blank string", StringValue("  "), at(0, 0)},
		{"time only uses UTC fields", TimeValue(time.Date(1899, 12, 30, 9, 15, 0, 0, time.UTC)), at(9, 15)},
		{"full date keeps own date", TimeValue(time.Date(2024, 5, 10, 14, 20, 33, 0, time.UTC)),
			time.Date(2024, 5, 10, 14, 20, 0, 0, loc)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ResolveTime(tc.v, ref, loc)
			assert.True(t, tc.want.Equal(got), "want %v got %v", tc.want, got)
		})
	}
}

func TestResolveTime_NilLocation(t *testing.T) {
	got := ResolveTime(StringValue("10:00"), time.Date(2024, 3, 1, 0, 0, 0, 0, time.Local), nil)
	assert.Equal(t, 10, got.Hour())
	assert.Equal(t, time.Local, got.Location())
}

func TestParseDurationMinutes(t *testing.T) {
	cases := []struct {
		name string
		v    Value
		want int
		ok   bool
	}{
		{"fraction", NumberValue(2.5 / 24), 150, true},
		{"fraction rounding", NumberValue(0.0416), 60, true},
		{"string", StringValue("2:30"), 150, true},
		{"string padded", StringValue("02:05"), 125, true},
		{"hours only", StringValue("3"), 180, true},
		{"zero", StringValue("0:00"), 0, true},
		{"garbage", StringValue("duas horas"), 0, false},
		{"negative", NumberValue(-0.1), 0, false},
		{"empty", Value{}, 0, false},
		{"time only", TimeValue(time.Date(1899, 12, 30, 1, 45, 0, 0, time.UTC)), 105, true},
		{"full date", TimeValue(time.Date(2024, 1, 1, 1, 45, 0, 0, time.UTC)), 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ParseDurationMinutes(tc.v)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestIsTimeOnly(t *testing.T) {
	assert.True(t, IsTimeOnly(time.Date(1899, 12, 30, 8, 0, 0, 0, time.UTC)))
	assert.True(t, IsTimeOnly(time.Date(1969, 12, 31, 23, 0, 0, 0, time.UTC)))
	assert.False(t, IsTimeOnly(time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)))
}
