package docstore

import (
	"context"
	"fmt"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/udecfit/backend/internal/model"
)

// DynamoStore implements Store on a single DynamoDB table keyed by
// collection (HASH) and id (RANGE). Keeping every collection in one table
// lets backup enumerate collections without ListTables permissions.
type DynamoStore struct {
	client *dynamodb.Client
	table  string
}

// item is the persisted shape of a document.
type item struct {
	Collection string         `dynamodbav:"collection"`
	ID         string         `dynamodbav:"id"`
	Data       map[string]any `dynamodbav:"data"`
}

// NewDynamoStore creates a Store backed by the given DynamoDB table.
func NewDynamoStore(client *dynamodb.Client, tableName string) *DynamoStore {
	return &DynamoStore{client: client, table: tableName}
}

// ListCollections scans the partition key and returns the distinct
// collection names, sorted ascending.
func (s *DynamoStore) ListCollections(ctx context.Context) ([]string, error) {
	seen := map[string]bool{}

	var startKey map[string]types.AttributeValue
	for {
		out, err := s.client.Scan(ctx, &dynamodb.ScanInput{
			TableName:                s.tableName(),
			ProjectionExpression:     aws.String("#c"),
			ExpressionAttributeNames: map[string]string{"#c": "collection"},
			ExclusiveStartKey:        startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to scan collections: %w", err)
		}
		for _, it := range out.Items {
			if v, ok := it["collection"].(*types.AttributeValueMemberS); ok {
				seen[v.Value] = true
			}
		}
		if out.LastEvaluatedKey == nil {
			break
		}
		startKey = out.LastEvaluatedKey
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// ExportCollection queries every document in the collection partition.
func (s *DynamoStore) ExportCollection(ctx context.Context, collection string) ([]model.Document, error) {
	var docs []model.Document

	var startKey map[string]types.AttributeValue
	for {
		out, err := s.client.Query(ctx, &dynamodb.QueryInput{
			TableName:                 s.tableName(),
			KeyConditionExpression:    aws.String("#c = :c"),
			ExpressionAttributeNames:  map[string]string{"#c": "collection"},
			ExpressionAttributeValues: map[string]types.AttributeValue{":c": &types.AttributeValueMemberS{Value: collection}},
			ExclusiveStartKey:         startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to query collection %s: %w", collection, err)
		}
		for _, raw := range out.Items {
			var it item
			if err := attributevalue.UnmarshalMap(raw, &it); err != nil {
				return nil, fmt.Errorf("failed to unmarshal document in %s: %w", collection, err)
			}
			docs = append(docs, model.Document{ID: it.ID, Data: it.Data})
		}
		if out.LastEvaluatedKey == nil {
			break
		}
		startKey = out.LastEvaluatedKey
	}

	return docs, nil
}

// ImportCollection writes the whole batch in a single transaction so a
// restored collection is never half-applied. DynamoDB's transaction item
// limit is an external constraint the caller accepts.
func (s *DynamoStore) ImportCollection(ctx context.Context, collection string, docs []model.Document) error {
	if len(docs) == 0 {
		return nil
	}

	writes := make([]types.TransactWriteItem, 0, len(docs))
	for _, doc := range docs {
		av, err := attributevalue.MarshalMap(item{Collection: collection, ID: doc.ID, Data: doc.Data})
		if err != nil {
			return fmt.Errorf("failed to marshal document %s/%s: %w", collection, doc.ID, err)
		}
		writes = append(writes, types.TransactWriteItem{
			Put: &types.Put{
				TableName: s.tableName(),
				Item:      av,
			},
		})
	}

	_, err := s.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: writes,
	})
	if err != nil {
		return fmt.Errorf("failed to commit batch for %s: %w", collection, err)
	}
	return nil
}

// GetDocument retrieves one document by collection and id.
func (s *DynamoStore) GetDocument(ctx context.Context, collection, id string) (*model.Document, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: s.tableName(),
		Key: map[string]types.AttributeValue{
			"collection": &types.AttributeValueMemberS{Value: collection},
			"id":         &types.AttributeValueMemberS{Value: id},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get document %s/%s: %w", collection, id, err)
	}
	if out.Item == nil {
		return nil, ErrNotFound
	}

	var it item
	if err := attributevalue.UnmarshalMap(out.Item, &it); err != nil {
		return nil, fmt.Errorf("failed to unmarshal document %s/%s: %w", collection, id, err)
	}
	return &model.Document{ID: it.ID, Data: it.Data}, nil
}

// PutDocument sets a single document, overwriting any existing one.
func (s *DynamoStore) PutDocument(ctx context.Context, collection string, doc model.Document) error {
	av, err := attributevalue.MarshalMap(item{Collection: collection, ID: doc.ID, Data: doc.Data})
	if err != nil {
		return fmt.Errorf("failed to marshal document %s/%s: %w", collection, doc.ID, err)
	}
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: s.tableName(),
		Item:      av,
	})
	if err != nil {
		return fmt.Errorf("failed to put document %s/%s: %w", collection, doc.ID, err)
	}
	return nil
}

func (s *DynamoStore) tableName() *string {
	return aws.String(s.table)
}
