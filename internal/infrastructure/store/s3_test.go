package store

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartshop/backend/internal/domain"
)

// mockS3 keeps objects in memory keyed by bucket/key
type mockS3 struct {
	objects map[string][]byte
	getErr  error
	putErr  error
}

func newMockS3() *mockS3 {
	return &mockS3{objects: make(map[string][]byte)}
}

func (m *mockS3) GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	data, ok := m.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{Message: aws.String("not found")}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (m *mockS3) PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if m.putErr != nil {
		return nil, m.putErr
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	m.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)] = data
	return &s3.PutObjectOutput{}, nil
}

func TestS3Store(t *testing.T) {
	ctx := context.Background()

	t.Run("requires a bucket", func(t *testing.T) {
		_, err := NewS3Store(newMockS3(), " ", "prefix")
		assert.Error(t, err)
	})

	t.Run("save then load under prefix", func(t *testing.T) {
		api := newMockS3()
		s, err := NewS3Store(api, "smartshop", "/state/")
		require.NoError(t, err)

		require.NoError(t, s.Save(ctx, domain.SlotSavedLists, []byte(`[]`)))
		assert.Contains(t, api.objects, "smartshop/state/smartshop-saved-lists.json")

		got, err := s.Load(ctx, domain.SlotSavedLists)
		require.NoError(t, err)
		assert.Equal(t, []byte(`[]`), got)
	})

	t.Run("missing object maps to slot not found", func(t *testing.T) {
		s, err := NewS3Store(newMockS3(), "smartshop", "")
		require.NoError(t, err)

		_, err = s.Load(ctx, domain.SlotGroceryList)
		assert.ErrorIs(t, err, domain.ErrSlotNotFound)
	})

	t.Run("transport errors are wrapped", func(t *testing.T) {
		api := newMockS3()
		boom := errors.New("connection reset")
		api.getErr = boom
		api.putErr = boom
		s, err := NewS3Store(api, "smartshop", "")
		require.NoError(t, err)

		_, err = s.Load(ctx, domain.SlotGroceryList)
		assert.ErrorIs(t, err, boom)
		assert.NotErrorIs(t, err, domain.ErrSlotNotFound)
		assert.ErrorIs(t, s.Save(ctx, domain.SlotGroceryList, nil), boom)
	})
}
