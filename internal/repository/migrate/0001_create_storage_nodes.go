package migrate

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const (
	StorageNodesTableName = "storage_nodes"
	StorageNodesVersion   = "20261019000000_storage_nodes_table"
)

type CreateStorageNodesTable struct {
	tableName string
}

func NewCreateStorageNodesTable(tableName string) *CreateStorageNodesTable {
	if tableName == "" {
		tableName = StorageNodesTableName
	}
	return &CreateStorageNodesTable{tableName: tableName}
}

func (m *CreateStorageNodesTable) Version() string {
	return StorageNodesVersion
}

func (m *CreateStorageNodesTable) TableName() string {
	return m.tableName
}

func (m *CreateStorageNodesTable) Up(ctx context.Context, client *dynamodb.Client) error {
	input := &dynamodb.CreateTableInput{
		AttributeDefinitions: []types.AttributeDefinition{
			{
				AttributeName: aws.String("manta_storage_id"),
				AttributeType: types.ScalarAttributeTypeS,
			},
		},
		KeySchema: []types.KeySchemaElement{
			{
				AttributeName: aws.String("manta_storage_id"),
				KeyType:       types.KeyTypeHash, // Partition Key
			},
		},
		TableName:   aws.String(m.tableName),
		BillingMode: types.BillingModePayPerRequest,
		Tags: []types.Tag{
			{
				Key:   aws.String("Purpose"),
				Value: aws.String("StorageNodeCapacity"),
			},
		},
	}

	if _, err := client.CreateTable(ctx, input); err != nil {
		return err
	}

	waiter := dynamodb.NewTableExistsWaiter(client)
	return waiter.Wait(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(m.tableName),
	}, 5*time.Minute)
}

func (m *CreateStorageNodesTable) Down(ctx context.Context, client *dynamodb.Client) error {
	_, err := client.DeleteTable(ctx, &dynamodb.DeleteTableInput{
		TableName: aws.String(m.tableName),
	})
	return err
}
