package utils

import (
    "strings"
    "testing"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

func TestRowLabels(t *testing.T) {
    cases := []struct {
        idx   int
        label string
    }{{0, "A"}, {7, "H"}, {25, "Z"}, {26, "AA"}, {27, "AB"}, {701, "ZZ"}, {702, "AAA"}}
    for _, c := range cases {
        assert.Equal(t, c.label, IndexToRowLabel(c.idx))
        got, ok := RowLabelToIndex(strings.ToLower(c.label))
        require.True(t, ok, c.label)
        assert.Equal(t, c.idx, got)
    }
    assert.Equal(t, "", IndexToRowLabel(-1))

    _, ok := RowLabelToIndex(" ")
    assert.False(t, ok)
    _, ok = RowLabelToIndex("A1")
    assert.False(t, ok)
    assert.Equal(t, "AB", NormalizeRowLabel(" a-b9 "))
}

func TestQRCode(t *testing.T) {
    png, err := QRCodePNG("QR_123", 0)
    require.NoError(t, err)
    assert.Equal(t, []byte("\x89PNG"), png[:4])

    url, err := QRCodeDataURL("QR_123", 128)
    require.NoError(t, err)
    assert.True(t, strings.HasPrefix(url, "data:image/png;base64,"))
}
