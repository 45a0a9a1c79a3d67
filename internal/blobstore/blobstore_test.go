package blobstore

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanKey(t *testing.T) {
	tests := []struct {
		key     string
		want    string
		wantErr bool
	}{
		{key: "u1/badge.png", want: "u1/badge.png"},
		{key: "/u1//badge.png", want: "u1/badge.png"},
		{key: "u1/./badge.png", want: "u1/badge.png"},
		{key: "../etc/passwd", wantErr: true},
		{key: "u1/../../x", wantErr: true},
		{key: `u1\..\x`, wantErr: true},
		{key: "", wantErr: true},
		{key: "/", wantErr: true},
		{key: "u1/badge.png.meta.yaml", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			got, err := CleanKey(tt.key)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidKey)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDirBucketRoundTrip(t *testing.T) {
	ctx := context.Background()
	b, err := NewDirBucket(t.TempDir(), "badge-cards", "http://localhost:8080/storage/v1/object/public/")
	require.NoError(t, err)

	ok, err := b.Exists(ctx, "u1/first.png")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, b.Put(ctx, "u1/first.png", []byte("png"), "image/png", "public, max-age=31536000"))
	ok, err = b.Exists(ctx, "u1/first.png")
	require.NoError(t, err)
	assert.True(t, ok)

	obj, err := b.Open(ctx, "u1/first.png")
	require.NoError(t, err)
	defer obj.Close()
	data, err := io.ReadAll(obj)
	require.NoError(t, err)
	assert.Equal(t, "png", string(data))
	assert.Equal(t, int64(3), obj.Size)
	assert.Equal(t, Meta{ContentType: "image/png", CacheControl: "public, max-age=31536000"}, obj.Meta)

	require.NoError(t, b.Put(ctx, "u1/first.png", []byte("png2"), "image/png", ""))
	obj2, err := b.Open(ctx, "u1/first.png")
	require.NoError(t, err)
	defer obj2.Close()
	assert.Equal(t, int64(4), obj2.Size)

	assert.Equal(t, "http://localhost:8080/storage/v1/object/public/badge-cards/u1/first.png", b.URL("u1/first.png"))
}

func TestDirBucketRejectsEscapes(t *testing.T) {
	ctx := context.Background()
	b, err := NewDirBucket(t.TempDir(), "cards", "/s")
	require.NoError(t, err)

	assert.ErrorIs(t, b.Put(ctx, "../x.png", []byte("x"), "image/png", ""), ErrInvalidKey)
	_, err = b.Open(ctx, "a/../../x")
	assert.ErrorIs(t, err, ErrInvalidKey)
	_, err = b.Open(ctx, "missing.png")
	assert.ErrorIs(t, err, ErrNotFound)
}
