package utils

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProofKey(t *testing.T) {
	key, contentType, err := ProofKey("user/../42", "Screen Shot.PNG")
	require.NoError(t, err)
	assert.Equal(t, "image/png", contentType)
	assert.True(t, strings.HasPrefix(key, "proofs/user____42/"), key)
	assert.True(t, strings.HasSuffix(key, ".png"), key)

	_, _, err = ProofKey("u1", "payload.exe")
	assert.Error(t, err)
}

func TestLocalStore_Save(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStore(dir, "/uploads/")
	require.NoError(t, err)

	url, err := store.Save(context.Background(), "proofs/u1/a.png", "image/png", strings.NewReader("png-bytes"))
	require.NoError(t, err)
	assert.Equal(t, "/uploads/proofs/u1/a.png", url)

	data, err := os.ReadFile(filepath.Join(dir, "proofs", "u1", "a.png"))
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))

	_, err = store.Save(context.Background(), "../escape.png", "image/png", strings.NewReader("x"))
	assert.Error(t, err)
}

type FakeObjectPutter struct {
	PutObjectFunc func(ctx context.Context, params *s3.PutObjectInput) (*s3.PutObjectOutput, error)
	inputs        []*s3.PutObjectInput
	bodies        []string
}

func (f *FakeObjectPutter) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	body, _ := io.ReadAll(params.Body)
	f.inputs = append(f.inputs, params)
	f.bodies = append(f.bodies, string(body))
	if f.PutObjectFunc != nil {
		return f.PutObjectFunc(ctx, params)
	}
	return &s3.PutObjectOutput{}, nil
}

func TestR2Store_Save(t *testing.T) {
	fake := &FakeObjectPutter{}
	store := &R2Store{Client: fake, Bucket: "proofs", CDNBaseURL: "https://cdn.example.com"}

	url, err := store.Save(context.Background(), "proofs/u1/a.png", "image/png", strings.NewReader("img"))
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/proofs/u1/a.png", url)

	require.Len(t, fake.inputs, 1)
	assert.Equal(t, "proofs", aws.ToString(fake.inputs[0].Bucket))
	assert.Equal(t, "proofs/u1/a.png", aws.ToString(fake.inputs[0].Key))
	assert.Equal(t, "image/png", aws.ToString(fake.inputs[0].ContentType))
	assert.Equal(t, "img", fake.bodies[0])
}
