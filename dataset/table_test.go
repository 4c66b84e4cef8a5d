package dataset

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSplitRow_QuotedComma(t *testing.T) {
	fields, err := SplitRow(`"Korea, South",36.5,127.5,1,2,3`)
	require.NoError(t, err)
	require.Equal(t, []string{"Korea, South", "36.5", "127.5", "1", "2", "3"}, fields)
}

func TestSplitRow_EmptyFields(t *testing.T) {
	fields, err := SplitRow(`,Afghanistan,33.93911,67.709953,0,0`)
	require.NoError(t, err)
	require.Len(t, fields, 6)
	require.Equal(t, "", fields[0])
	require.Equal(t, "Afghanistan", fields[1])
}

func TestSplitRow_UnbalancedQuote(t *testing.T) {
	fields, err := SplitRow(`"Korea, South,1,2`)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrMalformedRow))
	require.Equal(t, []string{`"Korea`, `South`, `1`, `2`}, fields)
}

func TestSplitRow_SpaceBeforeQuote(t *testing.T) {
	fields, err := SplitRow(`, "Korea, South",36.5,127.5,1,2`)
	require.NoError(t, err)
	require.Equal(t, []string{"", "Korea, South", "36.5", "127.5", "1", "2"}, fields)
}

func TestSplitRow_QuoteInsideUnquotedField(t *testing.T) {
	fields, err := SplitRow(`Bonaire "Sint, Eustatius" Saba,Netherlands,12.1,-68.2,3`)
	require.NoError(t, err)
	require.Equal(t, []string{`Bonaire "Sint, Eustatius" Saba`, "Netherlands", "12.1", "-68.2", "3"}, fields)
}

func TestSplitQuoteParity(t *testing.T) {
	require.Equal(t, []string{"a", "b,c", "d"}, splitQuoteParity(`a, "b,c" ,d`))
	require.Equal(t, []string{`say "hi"`, "x"}, splitQuoteParity(`"say ""hi""",x`))
	require.Equal(t, []string{""}, splitQuoteParity(""))
}

func TestSplitLines(t *testing.T) {
	lines := SplitLines("a,b\r\n\nc,d\n  \n")
	require.Equal(t, []string{"a,b", "c,d"}, lines)
	require.Empty(t, SplitLines(""))
}

func TestParseTable(t *testing.T) {
	diag := NewDiagnostics()
	tbl := ParseTable("infected", "Province,Country,Lat,Long,1/22/20,1/23/20\n,A,1,2,3,4\n\"B,x,5,6,7,8\n", diag)

	require.Equal(t, "infected", tbl.Name)
	require.Equal(t, []string{"1/22/20", "1/23/20"}, tbl.Dates())
	require.Len(t, tbl.Rows, 2)
	require.Equal(t, 1, diag.Count(KindMalformedRow))

	ev := diag.Events()
	require.Len(t, ev, 1)
	require.Equal(t, 1, ev[0].Row)
}

func TestParseTable_Empty(t *testing.T) {
	tbl := ParseTable("deceased", "", nil)
	require.Nil(t, tbl.Header)
	require.Empty(t, tbl.Rows)
	require.Nil(t, tbl.Dates())
}

func TestRowKey(t *testing.T) {
	require.Equal(t, "|Afghanistan", rowKey([]string{"", "Afghanistan", "1"}))
	require.Equal(t, "Ontario|Canada", rowKey([]string{" Ontario ", "Canada"}))
	require.Equal(t, "", rowKey([]string{"", ""}))
	require.Equal(t, "", rowKey(nil))
}
