package ddbstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	sdk "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/oriumgames/cardinal"
	"github.com/oriumgames/cardinal/tree"
)

// KeyAttribute is the partition key of the table.
const KeyAttribute = "id"

// Client is the subset of the DynamoDB API the store uses.
// *dynamodb.Client satisfies it.
type Client interface {
	GetItem(ctx context.Context, in *sdk.GetItemInput, optFns ...func(*sdk.Options)) (*sdk.GetItemOutput, error)
	PutItem(ctx context.Context, in *sdk.PutItemInput, optFns ...func(*sdk.Options)) (*sdk.PutItemOutput, error)
	DeleteItem(ctx context.Context, in *sdk.DeleteItemInput, optFns ...func(*sdk.Options)) (*sdk.DeleteItemOutput, error)
}

// DynamoStore stores owner trees in a DynamoDB table with a string partition
// key named KeyAttribute.
type DynamoStore struct {
	client Client
	table  string
}

// New returns a store backed by client.
func New(client Client, table string) *DynamoStore {
	return &DynamoStore{client: client, table: table}
}

// NewClient creates a DynamoDB client from the store configuration.
// Static credentials are used when set, otherwise the default chain.
func NewClient(ctx context.Context, cfg cardinal.StoreConfig) (*sdk.Client, error) {
	var opts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return sdk.NewFromConfig(awsCfg, func(o *sdk.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	}), nil
}

// Open creates a client from cfg and returns a store on cfg.Table.
func Open(ctx context.Context, cfg cardinal.StoreConfig) (*DynamoStore, error) {
	if cfg.Table == "" {
		return nil, errors.New("ddbstore: no table configured")
	}
	client, err := NewClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return New(client, cfg.Table), nil
}

func (s *DynamoStore) key(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		KeyAttribute: &types.AttributeValueMemberS{Value: id},
	}
}

// Load reads the tree saved under id.
func (s *DynamoStore) Load(ctx context.Context, id string) (*tree.Compound, error) {
	out, err := s.client.GetItem(ctx, &sdk.GetItemInput{
		TableName:      aws.String(s.table),
		Key:            s.key(id),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("ddbstore: get %s: %w", id, err)
	}
	if len(out.Item) == 0 {
		return nil, ErrNotFound
	}
	t := tree.FromItem(out.Item).Clone()
	t.Remove(KeyAttribute)
	return t, nil
}

// Save writes t under id, replacing any previous tree.
func (s *DynamoStore) Save(ctx context.Context, id string, t *tree.Compound) error {
	item := t.Clone()
	item.Set(KeyAttribute, &types.AttributeValueMemberS{Value: id})

	_, err := s.client.PutItem(ctx, &sdk.PutItemInput{
		TableName: aws.String(s.table),
		Item:      item.Item(),
	})
	if err != nil {
		return fmt.Errorf("ddbstore: put %s: %w", id, err)
	}
	return nil
}

// Delete removes the tree saved under id.
func (s *DynamoStore) Delete(ctx context.Context, id string) error {
	_, err := s.client.DeleteItem(ctx, &sdk.DeleteItemInput{
		TableName: aws.String(s.table),
		Key:       s.key(id),
	})
	if err != nil {
		return fmt.Errorf("ddbstore: delete %s: %w", id, err)
	}
	return nil
}
