package sheetcell

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValue_IsEmpty(t *testing.T) {
	assert.True(t, Value{}.IsEmpty())
	assert.True(t, StringValue("   ").IsEmpty())
	assert.False(t, StringValue("x").IsEmpty())
	assert.False(t, NumberValue(0).IsEmpty())
	assert.False(t, TimeValue(time.Now()).IsEmpty())
}

func TestValue_Text(t *testing.T) {
	assert.Equal(t, "12345", NumberValue(12345).Text())
	assert.Equal(t, "0.5", NumberValue(0.5).Text())
	assert.Equal(t, "Bomba P-101", StringValue("  Bomba P-101 ").Text())
	assert.Equal(t, "08:30", TimeValue(time.Date(1899, 12, 30, 8, 30, 0, 0, time.UTC)).Text())
	assert.Equal(t, "05/03/2024", TimeValue(time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)).Text())
	assert.Equal(t, "05/03/2024 14:10", TimeValue(time.Date(2024, 3, 5, 14, 10, 0, 0, time.UTC)).Text())
	assert.Equal(t, "", Value{}.Text())
}

func TestRow_JSONPreservesKinds(t *testing.T) {
	ts := time.Date(2024, 3, 1, 7, 30, 0, 0, time.FixedZone("BRT", -3*3600))
	row := Row{
		"Inicio":    NumberValue(0.5),
		"Descricao": StringValue("Troca de filtro"),
		"Data":      TimeValue(ts),
		"Vazio":     {},
	}

	data, err := json.Marshal(row)
	require.NoError(t, err)

	var back Row
	require.NoError(t, json.Unmarshal(data, &back))

	assert.Equal(t, Number, back["Inicio"].Kind)
	assert.Equal(t, 0.5, back["Inicio"].Num)
	assert.Equal(t, String, back["Descricao"].Kind)
	assert.Equal(t, "Troca de filtro", back["Descricao"].Str)
	assert.Equal(t, Time, back["Data"].Kind)
	assert.True(t, ts.Equal(back["Data"].Time))
	assert.Equal(t, Empty, back["Vazio"].Kind)
}

func TestValue_UnmarshalBareScalars(t *testing.T) {
	var row Row
	require.NoError(t, json.Unmarshal([]byte(`{"a":0.25,"b":"08:00","c":null}`), &row))

	assert.Equal(t, NumberValue(0.25), row["a"])
	assert.Equal(t, StringValue("08:00"), row["b"])
	assert.Equal(t, Empty, row["c"].Kind)
}

func TestValue_UnmarshalInvalid(t *testing.T) {
	var v Value
	assert.Error(t, json.Unmarshal([]byte(`{"t":"x","v":1}`), &v))
	assert.Error(t, json.Unmarshal([]byte(`{"t":"d","v":"ontem"}`), &v))
	assert.Error(t, json.Unmarshal([]byte(`true`), &v))
}

func TestRow_GetUnmapped(t *testing.T) {
	row := Row{"": StringValue("x"), "A": StringValue("y")}
	assert.Equal(t, Empty, row.Get("").Kind)
	assert.Equal(t, "y", row.Get("A").Str)
	assert.Equal(t, Empty, row.Get("B").Kind)
}
