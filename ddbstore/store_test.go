package ddbstore

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	sdk "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oriumgames/cardinal/tree"
)

// fakeClient is an in-memory table keyed by KeyAttribute.
type fakeClient struct {
	items map[string]map[string]types.AttributeValue
	fail  error
	table string
}

func newFakeClient() *fakeClient {
	return &fakeClient{items: make(map[string]map[string]types.AttributeValue)}
}

func keyOf(m map[string]types.AttributeValue) string {
	return m[KeyAttribute].(*types.AttributeValueMemberS).Value
}

func (f *fakeClient) GetItem(_ context.Context, in *sdk.GetItemInput, _ ...func(*sdk.Options)) (*sdk.GetItemOutput, error) {
	if f.fail != nil {
		return nil, f.fail
	}
	f.table = aws.ToString(in.TableName)
	return &sdk.GetItemOutput{Item: f.items[keyOf(in.Key)]}, nil
}

func (f *fakeClient) PutItem(_ context.Context, in *sdk.PutItemInput, _ ...func(*sdk.Options)) (*sdk.PutItemOutput, error) {
	if f.fail != nil {
		return nil, f.fail
	}
	f.table = aws.ToString(in.TableName)
	f.items[keyOf(in.Item)] = in.Item
	return &sdk.PutItemOutput{}, nil
}

func (f *fakeClient) DeleteItem(_ context.Context, in *sdk.DeleteItemInput, _ ...func(*sdk.Options)) (*sdk.DeleteItemOutput, error) {
	if f.fail != nil {
		return nil, f.fail
	}
	delete(f.items, keyOf(in.Key))
	return &sdk.DeleteItemOutput{}, nil
}

func sampleTree(t *testing.T) *tree.Compound {
	t.Helper()
	root := tree.NewCompound()
	sub := tree.NewCompound()
	require.NoError(t, tree.Put(sub, "value", 42))
	root.PutCompound("xp", sub)
	return root
}

func TestStores(t *testing.T) {
	stores := map[string]Store{
		"memory": NewMemoryStore(),
		"dynamo": New(newFakeClient(), "players"),
	}
	for name, s := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, err := s.Load(ctx, "steve")
			assert.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, s.Save(ctx, "steve", sampleTree(t)))

			got, err := s.Load(ctx, "steve")
			require.NoError(t, err)
			assert.Equal(t, []string{"xp"}, got.Keys())
			sub, ok := got.Compound("xp")
			require.True(t, ok)
			v, err := tree.Get[int](sub, "value")
			require.NoError(t, err)
			assert.Equal(t, 42, v)

			require.NoError(t, s.Delete(ctx, "steve"))
			_, err = s.Load(ctx, "steve")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestDynamoStoreDoesNotMutateTree(t *testing.T) {
	client := newFakeClient()
	s := New(client, "players")
	root := sampleTree(t)

	require.NoError(t, s.Save(context.Background(), "steve", root))
	assert.False(t, root.Has(KeyAttribute))
	assert.Equal(t, "players", client.table)
	assert.Equal(t, "steve", keyOf(client.items["steve"]))
}

func TestDynamoStoreErrors(t *testing.T) {
	client := newFakeClient()
	client.fail = errors.New("throttled")
	s := New(client, "players")
	ctx := context.Background()

	_, err := s.Load(ctx, "steve")
	assert.ErrorIs(t, err, client.fail)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.Save(ctx, "steve", tree.NewCompound()), client.fail)
	assert.ErrorIs(t, s.Delete(ctx, "steve"), client.fail)
}

func TestMemoryStoreCopies(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	root := sampleTree(t)
	require.NoError(t, s.Save(ctx, "steve", root))

	root.Remove("xp")
	got, err := s.Load(ctx, "steve")
	require.NoError(t, err)
	assert.True(t, got.Has("xp"))
	assert.Equal(t, 1, s.Len())
}
