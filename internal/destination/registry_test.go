package destination

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NicabarNimble/ghmirror/internal/errors"
)

func TestNewWithoutHost(t *testing.T) {
	for _, kind := range Kinds {
		reg, err := New(context.Background(), Options{Kind: kind})
		require.NoError(t, err)
		assert.IsType(t, None{}, reg, kind)
	}
}

func TestNewUnknownKind(t *testing.T) {
	_, err := New(context.Background(), Options{Kind: "svn", Host: "h"})
	require.Error(t, err)
	assert.Equal(t, errors.ConfigurationInvalid, errors.KindOf(err))
}

func TestNone(t *testing.T) {
	ctx := context.Background()
	var reg Registry = None{}

	ok, err := reg.Exists(ctx, "anything")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, reg.Create(ctx, "anything"))
	assert.NoError(t, reg.Push(ctx, "/tmp/x.git", "remote"))
	assert.Empty(t, reg.RemoteURL("anything"))
}

func TestPusher(t *testing.T) {
	runner := &fakeRunner{}
	p := pusher{runner: runner}
	require.NoError(t, p.Push(context.Background(), "/work/repos/foo.git", "git@mirror:foo.git"))
	assert.Equal(t, []string{"foo.git: push --mirror git@mirror:foo.git"}, runner.recorded())
}
