package db

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	log "github.com/sirupsen/logrus"

	"github.com/zzenonn/zpicker/internal/repository/migrate"
)

type DynamoDb struct {
	Client    *dynamodb.Client
	TableName string
}

func NewDatabase(awsConfig aws.Config, tableName string) (*DynamoDb, error) {
	client := dynamodb.NewFromConfig(awsConfig)
	if client == nil {
		return nil, fmt.Errorf("failed to create DynamoDB client")
	}

	return &DynamoDb{
		Client:    client,
		TableName: tableName,
	}, nil
}

// MigrateDb creates the storage node table and waits until it is active.
func (d *DynamoDb) MigrateDb(ctx context.Context) error {
	m := migrate.NewCreateStorageNodesTable(d.TableName)
	log.Infof("Applying migration %s to table %s", m.Version(), m.TableName())
	return m.Up(ctx, d.Client)
}

// MigrateDown drops the storage node table.
func (d *DynamoDb) MigrateDown(ctx context.Context) error {
	m := migrate.NewCreateStorageNodesTable(d.TableName)
	log.Infof("Rolling back migration %s on table %s", m.Version(), m.TableName())
	return m.Down(ctx, d.Client)
}
