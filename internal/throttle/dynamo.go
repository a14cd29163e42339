package throttle

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/udecfit/backend/internal/model"
)

// DynamoStore implements AttemptStore on a DynamoDB table keyed by email.
// Conditional writes carry the compare half of the CAS, so two concurrent
// failed logins for the same email cannot both commit against the same
// prior state.
type DynamoStore struct {
	client *dynamodb.Client
	table  string
}

// NewDynamoStore creates an AttemptStore backed by the given table.
func NewDynamoStore(client *dynamodb.Client, tableName string) *DynamoStore {
	return &DynamoStore{client: client, table: tableName}
}

func (s *DynamoStore) Get(ctx context.Context, email string) (*model.LoginAttempt, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.table),
		Key: map[string]types.AttributeValue{
			"email": &types.AttributeValueMemberS{Value: email},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get login attempts for %s: %w", email, err)
	}
	if out.Item == nil {
		// Lazily created: absence reads as a clear record.
		return &model.LoginAttempt{Email: email}, nil
	}

	var rec model.LoginAttempt
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal login attempts for %s: %w", email, err)
	}
	return &rec, nil
}

func (s *DynamoStore) Reset(ctx context.Context, email string) error {
	item, err := attributevalue.MarshalMap(model.LoginAttempt{Email: email})
	if err != nil {
		return fmt.Errorf("failed to marshal login attempts for %s: %w", email, err)
	}
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("failed to reset login attempts for %s: %w", email, err)
	}
	return nil
}

func (s *DynamoStore) CompareAndSet(ctx context.Context, email string, expected, next model.LoginAttempt) error {
	item, err := attributevalue.MarshalMap(next)
	if err != nil {
		return fmt.Errorf("failed to marshal login attempts for %s: %w", email, err)
	}

	// A zero expected record also matches an item that was never created.
	cond := "attempts = :attempts AND blocked_until = :blocked_until"
	if expected.Attempts == 0 && expected.BlockedUntil == 0 {
		cond = "attribute_not_exists(email) OR (" + cond + ")"
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.table),
		Item:                item,
		ConditionExpression: aws.String(cond),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":attempts":      &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", expected.Attempts)},
			":blocked_until": &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", expected.BlockedUntil)},
		},
	})
	if err != nil {
		var condFailed *types.ConditionalCheckFailedException
		if errors.As(err, &condFailed) {
			return ErrConflict
		}
		return fmt.Errorf("failed to update login attempts for %s: %w", email, err)
	}
	return nil
}
