package db

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	log "github.com/sirupsen/logrus"

	"github.com/zzenonn/zpicker/internal/domain"
	zerrors "github.com/zzenonn/zpicker/internal/errors"
)

// NodeTableAPI is the subset of the DynamoDB client used by NodeRepository.
type NodeTableAPI interface {
	dynamodb.ScanAPIClient
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// NodeRepository manages DynamoDB interactions for storage node reports.
type NodeRepository struct {
	client    NodeTableAPI
	tableName string
	pageSize  int32
}

// NewNodeRepository initializes a new NodeRepository.
func NewNodeRepository(client NodeTableAPI, tableName string) NodeRepository {
	return NodeRepository{
		client:    client,
		tableName: tableName,
		pageSize:  1000,
	}
}

// ListNodes scans the whole table page by page.
func (repo *NodeRepository) ListNodes(ctx context.Context) ([]domain.StorageNode, error) {
	paginator := dynamodb.NewScanPaginator(repo.client, &dynamodb.ScanInput{
		TableName: aws.String(repo.tableName),
		Limit:     aws.Int32(repo.pageSize),
	})

	var nodes []domain.StorageNode
	pages := 0
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to scan storage nodes: %w", err)
		}
		pages++

		var batch []domain.StorageNode
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &batch); err != nil {
			return nil, fmt.Errorf("failed to unmarshal storage nodes: %w", err)
		}
		nodes = append(nodes, batch...)
	}

	log.WithFields(log.Fields{
		"table": repo.tableName,
		"pages": pages,
		"nodes": len(nodes),
	}).Debug("scanned storage node table")
	return nodes, nil
}

// GetNode retrieves one storage node report by id.
func (repo *NodeRepository) GetNode(ctx context.Context, id string) (domain.StorageNode, error) {
	result, err := repo.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(repo.tableName),
		Key: map[string]types.AttributeValue{
			"manta_storage_id": &types.AttributeValueMemberS{Value: id},
		},
	})
	if err != nil {
		return domain.StorageNode{}, fmt.Errorf("failed to get storage node: %w", err)
	}

	if result.Item == nil {
		return domain.StorageNode{}, fmt.Errorf("%w: %s", zerrors.ErrNodeNotFound, id)
	}

	var node domain.StorageNode
	if err := attributevalue.UnmarshalMap(result.Item, &node); err != nil {
		return domain.StorageNode{}, fmt.Errorf("failed to unmarshal storage node: %w", err)
	}
	return node, nil
}

// PutNode stores or replaces a storage node report.
func (repo *NodeRepository) PutNode(ctx context.Context, node domain.StorageNode) (domain.StorageNode, error) {
	item, err := attributevalue.MarshalMap(node)
	if err != nil {
		return domain.StorageNode{}, fmt.Errorf("failed to marshal storage node: %w", err)
	}

	if _, err := repo.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(repo.tableName),
		Item:      item,
	}); err != nil {
		return domain.StorageNode{}, fmt.Errorf("failed to put storage node: %w", err)
	}
	return node, nil
}

// DeleteNode removes a storage node report by id.
func (repo *NodeRepository) DeleteNode(ctx context.Context, id string) error {
	if _, err := repo.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(repo.tableName),
		Key: map[string]types.AttributeValue{
			"manta_storage_id": &types.AttributeValueMemberS{Value: id},
		},
	}); err != nil {
		return fmt.Errorf("failed to delete storage node: %w", err)
	}
	return nil
}
