package dynamodb

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	awsv2dynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsv2types "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	awsv2xray "github.com/aws/aws-xray-sdk-go/instrumentation/awsv2"
	"github.com/aws/aws-xray-sdk-go/xray"
)

// API is the subset of the DynamoDB client the session table uses.
type API interface {
	GetItem(ctx context.Context, in *awsv2dynamodb.GetItemInput, optFns ...func(*awsv2dynamodb.Options)) (*awsv2dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *awsv2dynamodb.PutItemInput, optFns ...func(*awsv2dynamodb.Options)) (*awsv2dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, in *awsv2dynamodb.DeleteItemInput, optFns ...func(*awsv2dynamodb.Options)) (*awsv2dynamodb.DeleteItemOutput, error)
}

type Client struct {
	db        API
	tableName string
}

func NewClient(ctx context.Context, region, tableName string) (*Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, err
	}
	awsv2xray.AWSV2Instrumentor(&cfg.APIOptions)
	return &Client{db: awsv2dynamodb.NewFromConfig(cfg), tableName: tableName}, nil
}

func NewClientWithAPI(db API, tableName string) *Client {
	return &Client{db: db, tableName: tableName}
}

func consolePK(namespace string) string { return "CONSOLE#" + namespace }
func keySK(key string) string           { return "KEY#" + key }

// SessionStore keeps the console session in a single-table layout, one item
// per key under the operator's namespace partition.
type SessionStore struct {
	client    *Client
	namespace string
}

func NewSessionStore(client *Client, namespace string) *SessionStore {
	if namespace == "" {
		namespace = "default"
	}
	return &SessionStore{client: client, namespace: namespace}
}

func (s *SessionStore) key(key string) map[string]awsv2types.AttributeValue {
	return map[string]awsv2types.AttributeValue{
		"PK": &awsv2types.AttributeValueMemberS{Value: consolePK(s.namespace)},
		"SK": &awsv2types.AttributeValueMemberS{Value: keySK(key)},
	}
}

func (s *SessionStore) Get(ctx context.Context, key string) (string, bool, error) {
	var out *awsv2dynamodb.GetItemOutput
	err := xray.Capture(ctx, "DynamoDB.GetSessionKey", func(ctx context.Context) error {
		var e error
		out, e = s.client.db.GetItem(ctx, &awsv2dynamodb.GetItemInput{
			TableName:      aws.String(s.client.tableName),
			Key:            s.key(key),
			ConsistentRead: aws.Bool(true),
		})
		return e
	})
	if err != nil {
		return "", false, err
	}
	if out.Item == nil {
		return "", false, nil
	}
	raw := struct {
		Value string `dynamodbav:"Value"`
	}{}
	if err := attributevalue.UnmarshalMap(out.Item, &raw); err != nil {
		return "", false, err
	}
	return raw.Value, true, nil
}

func (s *SessionStore) Set(ctx context.Context, key, value string) error {
	item := map[string]any{
		"PK":         consolePK(s.namespace),
		"SK":         keySK(key),
		"EntityType": "SESSION_KEY",
		"Value":      value,
		"UpdatedAt":  time.Now().UTC().Format(time.RFC3339),
	}
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return err
	}
	return xray.Capture(ctx, "DynamoDB.PutSessionKey", func(ctx context.Context) error {
		_, err := s.client.db.PutItem(ctx, &awsv2dynamodb.PutItemInput{
			TableName: aws.String(s.client.tableName),
			Item:      av,
		})
		return err
	})
}

func (s *SessionStore) Delete(ctx context.Context, keys ...string) error {
	for _, k := range keys {
		err := xray.Capture(ctx, "DynamoDB.DeleteSessionKey", func(ctx context.Context) error {
			_, err := s.client.db.DeleteItem(ctx, &awsv2dynamodb.DeleteItemInput{
				TableName: aws.String(s.client.tableName),
				Key:       s.key(k),
			})
			return err
		})
		if err != nil {
			return err
		}
	}
	return nil
}
