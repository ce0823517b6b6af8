package kv_test

import (
	"errors"
	"testing"

	"github.com/ValentinKolb/nvKV/lib/kv"
	"github.com/ValentinKolb/nvKV/lib/kv/config"
	_ "github.com/ValentinKolb/nvKV/lib/kv/engines/blackhole"
	_ "github.com/ValentinKolb/nvKV/lib/kv/engines/stree"
	"github.com/stretchr/testify/require"
)

func TestOpenUnknownEngine(t *testing.T) {
	_, err := kv.Open("nonsense", config.New())
	require.Error(t, err)
	require.Equal(t, kv.StatusWrongEngineName, kv.StatusOf(err))
	require.Contains(t, err.Error(), "available engines")
	require.Contains(t, kv.ErrorMsg(), "nonsense")
}

func TestEnginesListed(t *testing.T) {
	engines := kv.Engines()
	require.Contains(t, engines, "stree")
	require.Contains(t, engines, "blackhole")
}

func TestOpenBlackhole(t *testing.T) {
	engine, err := kv.Open("blackhole", config.New())
	require.NoError(t, err)
	defer engine.Close()

	require.Equal(t, kv.StatusOK, engine.Put([]byte("k"), []byte("v")))
	require.Equal(t, kv.StatusNotFound, engine.Exists([]byte("k")))

	cnt, st := engine.CountAll()
	require.Equal(t, kv.StatusOK, st)
	require.Zero(t, cnt)

	_, _, ok := engine.GetBegin()
	require.False(t, ok)
}

func TestStatusStrings(t *testing.T) {
	// wire values are stable
	require.Equal(t, kv.Status(0), kv.StatusOK)
	require.Equal(t, kv.Status(2), kv.StatusNotFound)
	require.Equal(t, kv.Status(7), kv.StatusStoppedByCallback)
	require.Equal(t, kv.Status(9), kv.StatusWrongEngineName)
	require.Equal(t, kv.Status(11), kv.StatusDefragError)

	require.Equal(t, "stopped-by-callback", kv.StatusStoppedByCallback.String())
	require.Equal(t, "OK", kv.StatusOK.String())
}

func TestStatusOf(t *testing.T) {
	require.Equal(t, kv.StatusOK, kv.StatusOf(nil))
	require.Equal(t, kv.StatusNotFound, kv.StatusOf(kv.NewError(kv.StatusNotFound, "x")))
	require.Equal(t, kv.StatusUnknownError, kv.StatusOf(errors.New("plain error")))
}
