package durable

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/yndnr/shopmate-go/internal/core/domain"
)

const (
	dynamoPKPrefix = "SESSION#"
	dynamoSKPrefix = "REC#"
)

// dynamodbAPI is the subset of the DynamoDB client Dynamo needs.
type dynamodbAPI interface {
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	DescribeTable(ctx context.Context, in *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
}

// DynamoConfig holds DynamoDB settings.
type DynamoConfig struct {
	Table  string
	Region string
	// Endpoint overrides the service endpoint (DynamoDB Local).
	Endpoint string
}

// Dynamo stores records in a DynamoDB table with PK/SK string keys.
type Dynamo struct {
	api   dynamodbAPI
	table string
}

// NewDynamo wraps an existing client.
func NewDynamo(api dynamodbAPI, table string) (*Dynamo, error) {
	if api == nil {
		return nil, errors.New("dynamodb: api must not be nil")
	}
	if strings.TrimSpace(table) == "" {
		return nil, errors.New("dynamodb: table name must not be empty")
	}
	return &Dynamo{api: api, table: table}, nil
}

// NewDynamoFromConfig builds a client from the default AWS credential chain.
func NewDynamoFromConfig(ctx context.Context, cfg DynamoConfig) (*Dynamo, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("dynamodb: load aws config: %w", err)
	}

	client := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return NewDynamo(client, cfg.Table)
}

func dynamoPK(sessionID string) string {
	return dynamoPKPrefix + sessionID
}

func dynamoSK(recordID string) string {
	return dynamoSKPrefix + recordID
}

func (d *Dynamo) Insert(ctx context.Context, rec *domain.DurableRecord) error {
	item, err := recordItem(rec)
	if err != nil {
		return fmt.Errorf("dynamodb: Insert %s: %w", rec.SessionID, err)
	}
	_, err = d.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(d.table),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(PK) AND attribute_not_exists(SK)"),
	})
	if err != nil {
		return fmt.Errorf("dynamodb: Insert %s: %w", rec.SessionID, err)
	}
	return nil
}

func (d *Dynamo) FindBySession(ctx context.Context, sessionID string) ([]*domain.DurableRecord, error) {
	in := &dynamodb.QueryInput{
		TableName:              aws.String(d.table),
		KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :prefix)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":     &types.AttributeValueMemberS{Value: dynamoPK(sessionID)},
			":prefix": &types.AttributeValueMemberS{Value: dynamoSKPrefix},
		},
		ScanIndexForward: aws.Bool(true),
	}

	recs := []*domain.DurableRecord{}
	for {
		out, err := d.api.Query(ctx, in)
		if err != nil {
			return nil, fmt.Errorf("dynamodb: FindBySession query: %w", err)
		}
		for _, item := range out.Items {
			rec, err := itemToRecord(item)
			if err != nil {
				return nil, fmt.Errorf("dynamodb: FindBySession unmarshal: %w", err)
			}
			recs = append(recs, rec)
		}
		if len(out.LastEvaluatedKey) == 0 {
			return recs, nil
		}
		in.ExclusiveStartKey = out.LastEvaluatedKey
	}
}

func (d *Dynamo) Ping(ctx context.Context) error {
	_, err := d.api.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(d.table)})
	if err != nil {
		return fmt.Errorf("dynamodb: describe table %s: %w", d.table, err)
	}
	return nil
}

// Close is a no-op; the SDK client holds no long-lived connection.
func (d *Dynamo) Close() error {
	return nil
}

func recordItem(rec *domain.DurableRecord) (map[string]types.AttributeValue, error) {
	turns, err := json.Marshal(rec.ConversationTurns)
	if err != nil {
		return nil, fmt.Errorf("encode turns: %w", err)
	}
	metadata, err := json.Marshal(rec.Metadata)
	if err != nil {
		return nil, fmt.Errorf("encode metadata: %w", err)
	}
	return map[string]types.AttributeValue{
		"PK":                 &types.AttributeValueMemberS{Value: dynamoPK(rec.SessionID)},
		"SK":                 &types.AttributeValueMemberS{Value: dynamoSK(rec.ID)},
		"record_id":          &types.AttributeValueMemberS{Value: rec.ID},
		"session_id":         &types.AttributeValueMemberS{Value: rec.SessionID},
		"conversation_turns": &types.AttributeValueMemberS{Value: string(turns)},
		"metadata":           &types.AttributeValueMemberS{Value: string(metadata)},
		"persisted_at":       &types.AttributeValueMemberS{Value: rec.PersistedAt.UTC().Format(time.RFC3339Nano)},
	}, nil
}

func itemToRecord(item map[string]types.AttributeValue) (*domain.DurableRecord, error) {
	rec := &domain.DurableRecord{}
	var err error

	if rec.ID, err = strAttr(item, "record_id"); err != nil {
		return nil, err
	}
	if rec.SessionID, err = strAttr(item, "session_id"); err != nil {
		return nil, err
	}

	persistedAt, err := strAttr(item, "persisted_at")
	if err != nil {
		return nil, err
	}
	if rec.PersistedAt, err = time.Parse(time.RFC3339Nano, persistedAt); err != nil {
		return nil, fmt.Errorf("parse persisted_at: %w", err)
	}

	turns, err := strAttr(item, "conversation_turns")
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(turns), &rec.ConversationTurns); err != nil {
		return nil, fmt.Errorf("decode conversation_turns: %w", err)
	}

	metadata, err := strAttr(item, "metadata")
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(metadata), &rec.Metadata); err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}
	return rec, nil
}

func strAttr(item map[string]types.AttributeValue, key string) (string, error) {
	v, ok := item[key]
	if !ok {
		return "", fmt.Errorf("missing attribute %q", key)
	}
	s, ok := v.(*types.AttributeValueMemberS)
	if !ok {
		return "", fmt.Errorf("attribute %q is not a string", key)
	}
	return s.Value, nil
}

var _ Store = (*Dynamo)(nil)
