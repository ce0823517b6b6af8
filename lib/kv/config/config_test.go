package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPutGetRoundtrip(t *testing.T) {
	cfg := New().
		PutUint64("size", 1<<30).
		PutInt64("offset", -5).
		PutString("path", "/tmp/pool").
		PutData("table", []byte{1, 2, 3})

	u, ok, err := cfg.GetUint64("size")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(1<<30), u)

	i, ok, err := cfg.GetInt64("offset")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int64(-5), i)

	s, ok, err := cfg.GetString("path")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "/tmp/pool", s)

	d, ok, err := cfg.GetData("table")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte{1, 2, 3}, d)
}

func TestAbsentKeys(t *testing.T) {
	cfg := New()
	_, ok, err := cfg.GetUint64("missing")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestTypeMismatch(t *testing.T) {
	cfg := New().PutString("size", "big")

	_, _, err := cfg.GetUint64("size")
	require.Error(t, err)
	require.True(t, IsTypeError(err))
}

func TestDataIsCopied(t *testing.T) {
	original := []byte{1, 2, 3}
	cfg := New().PutData("table", original)
	original[0] = 99

	d, _, _ := cfg.GetData("table")
	require.Equal(t, []byte{1, 2, 3}, d)
}

func TestOverwriteRunsDestroyer(t *testing.T) {
	destroyed := 0
	cfg := New().PutObject("obj", "first", func(any) { destroyed++ })
	cfg.PutObject("obj", "second", func(any) { destroyed++ })
	require.Equal(t, 1, destroyed)

	v, ok, err := cfg.GetObject("obj")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "second", v)
}

func TestReleaseRunsDestroyers(t *testing.T) {
	destroyed := 0
	cfg := New().
		PutObject("a", 1, func(any) { destroyed++ }).
		PutObject("b", 2, func(any) { destroyed++ })

	cfg.Release()
	require.Equal(t, 2, destroyed)

	// releasing twice is harmless
	cfg.Release()
	require.Equal(t, 2, destroyed)

	require.Empty(t, cfg.Keys())
}

func TestKeys(t *testing.T) {
	cfg := New().PutString("path", "x").PutUint64("size", 1)
	require.ElementsMatch(t, []string{"path", "size"}, cfg.Keys())
}
