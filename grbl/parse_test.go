package grbl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cncio/gsend/coord"
)

func TestParseStatusMPos(t *testing.T) {
	stat, err := parseStatus(Status{}, "<Idle|MPos:1.000,2.500,-0.100|FS:0,0>")
	require.NoError(t, err)
	assert.Equal(t, "Idle", stat.State)
	assert.Equal(t, coord.Point{X: 1, Y: 2.5, Z: -0.1}, stat.MPos)
	assert.Equal(t, stat.MPos, stat.WPos())
}

func TestParseStatusWCOCarriedForward(t *testing.T) {
	stat, err := parseStatus(Status{}, "<Run|MPos:10.000,0.000,0.000|WCO:5.000,0.000,1.000>")
	require.NoError(t, err)
	assert.Equal(t, coord.Point{X: 5, Y: 0, Z: -1}, stat.WPos())

	// next report omits WCO; the previous offset still applies
	stat, err = parseStatus(*stat, "<Run|MPos:12.000,0.000,0.000>")
	require.NoError(t, err)
	assert.Equal(t, coord.Point{X: 5, Y: 0, Z: 1}, stat.WCO)
	assert.Equal(t, coord.Point{X: 7, Y: 0, Z: -1}, stat.WPos())
}

func TestParseStatusWPos(t *testing.T) {
	prev := Status{WCO: coord.Point{X: 2, Y: 0, Z: 0}}
	stat, err := parseStatus(prev, "<Hold|WPos:1.000,1.000,0.000>")
	require.NoError(t, err)
	assert.Equal(t, coord.Point{X: 3, Y: 1, Z: 0}, stat.MPos)
	assert.Equal(t, coord.Point{X: 1, Y: 1, Z: 0}, stat.WPos())
}

func TestParseStatusInvalid(t *testing.T) {
	_, err := parseStatus(Status{}, "<Idle|MPos:1.000,2.000>")
	assert.Error(t, err)

	_, err = parseStatus(Status{}, "<Idle|MPos:a,b,c>")
	assert.Error(t, err)
}

func TestParseStatusGarbledField(t *testing.T) {
	// a field with no value must not panic; it is skipped
	prev := Status{MPos: coord.Point{X: 1}}
	stat, err := parseStatus(prev, "<Idle|MPos>")
	require.NoError(t, err)
	assert.Equal(t, "Idle", stat.State)
	assert.Equal(t, prev.MPos, stat.MPos)
}
