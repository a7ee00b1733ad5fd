package dynamo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"terptracker/internal/log"
)

// Secondary index names.
const (
	// LoginEmailIndex supports uniqueness checks and login by email.
	LoginEmailIndex = "username-index"
	// ExpenseTimestampIndex mirrors the expense table's primary key to
	// serve the month-window range queries.
	ExpenseTimestampIndex = "UserTimestampIndex"
)

const tableWaitTimeout = 2 * time.Minute

// tableExists checks table membership by name against ListTables.
func tableExists(ctx context.Context, client *dynamodb.Client, tableName string) (bool, error) {
	var startName *string
	for {
		out, err := client.ListTables(ctx, &dynamodb.ListTablesInput{
			ExclusiveStartTableName: startName,
		})
		if err != nil {
			return false, fmt.Errorf("list tables: %w", err)
		}
		for _, name := range out.TableNames {
			if name == tableName {
				return true, nil
			}
		}
		if out.LastEvaluatedTableName == nil {
			return false, nil
		}
		startName = out.LastEvaluatedTableName
	}
}

// EnsureLoginTable creates the login table if it does not exist and blocks
// until it is active. Two processes racing to create it both pass the
// existence check; the loser's create fails with ResourceInUseException,
// which is treated as a benign skip.
func (s *Store) EnsureLoginTable(ctx context.Context) error {
	exists, err := tableExists(ctx, s.client, s.loginTable)
	if err != nil {
		return err
	}
	if exists {
		s.logger.InfoContext(ctx, "Table already exists", log.FieldTable, s.loginTable)
		return nil
	}

	s.logger.InfoContext(ctx, "Creating table", log.FieldTable, s.loginTable, log.FieldOperation, log.OpCreateTable)
	_, err = s.client.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName: aws.String(s.loginTable),
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String("user_id"), KeyType: types.KeyTypeHash},
		},
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String("user_id"), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String("email"), AttributeType: types.ScalarAttributeTypeS},
		},
		BillingMode: types.BillingModeProvisioned,
		ProvisionedThroughput: &types.ProvisionedThroughput{
			ReadCapacityUnits:  aws.Int64(2),
			WriteCapacityUnits: aws.Int64(2),
		},
		GlobalSecondaryIndexes: []types.GlobalSecondaryIndex{
			{
				IndexName: aws.String(LoginEmailIndex),
				KeySchema: []types.KeySchemaElement{
					{AttributeName: aws.String("email"), KeyType: types.KeyTypeHash},
				},
				Projection: &types.Projection{ProjectionType: types.ProjectionTypeAll},
				ProvisionedThroughput: &types.ProvisionedThroughput{
					ReadCapacityUnits:  aws.Int64(1),
					WriteCapacityUnits: aws.Int64(1),
				},
			},
		},
	})
	if err != nil {
		var inUse *types.ResourceInUseException
		if errors.As(err, &inUse) {
			s.logger.WarnContext(ctx, "Table is being created by another process, skipping", log.FieldTable, s.loginTable)
			return nil
		}
		return fmt.Errorf("create table %s: %w", s.loginTable, err)
	}

	if err := s.waitForTable(ctx, s.loginTable); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "Table created", log.FieldTable, s.loginTable)
	return nil
}

// EnsureExpenseTable creates the expense table if it does not exist and
// blocks until it is active. Same racing-create semantics as the login
// table.
func (s *Store) EnsureExpenseTable(ctx context.Context) error {
	exists, err := tableExists(ctx, s.client, s.expenseTable)
	if err != nil {
		return err
	}
	if exists {
		s.logger.InfoContext(ctx, "Table already exists", log.FieldTable, s.expenseTable)
		return nil
	}

	s.logger.InfoContext(ctx, "Creating table", log.FieldTable, s.expenseTable, log.FieldOperation, log.OpCreateTable)
	_, err = s.client.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName: aws.String(s.expenseTable),
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String("userEmail"), KeyType: types.KeyTypeHash},
			{AttributeName: aws.String("expenseTimestamp"), KeyType: types.KeyTypeRange},
		},
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String("userEmail"), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String("expenseTimestamp"), AttributeType: types.ScalarAttributeTypeS},
		},
		BillingMode: types.BillingModePayPerRequest,
		GlobalSecondaryIndexes: []types.GlobalSecondaryIndex{
			{
				IndexName: aws.String(ExpenseTimestampIndex),
				KeySchema: []types.KeySchemaElement{
					{AttributeName: aws.String("userEmail"), KeyType: types.KeyTypeHash},
					{AttributeName: aws.String("expenseTimestamp"), KeyType: types.KeyTypeRange},
				},
				Projection: &types.Projection{ProjectionType: types.ProjectionTypeAll},
			},
		},
	})
	if err != nil {
		var inUse *types.ResourceInUseException
		if errors.As(err, &inUse) {
			s.logger.WarnContext(ctx, "Table is being created by another process, skipping", log.FieldTable, s.expenseTable)
			return nil
		}
		return fmt.Errorf("create table %s: %w", s.expenseTable, err)
	}

	if err := s.waitForTable(ctx, s.expenseTable); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "Table created", log.FieldTable, s.expenseTable)
	return nil
}

// EnsureTables provisions both tables, creating whichever is missing.
func (s *Store) EnsureTables(ctx context.Context) error {
	if err := s.EnsureLoginTable(ctx); err != nil {
		return err
	}
	return s.EnsureExpenseTable(ctx)
}

func (s *Store) waitForTable(ctx context.Context, tableName string) error {
	waiter := dynamodb.NewTableExistsWaiter(s.client)
	err := waiter.Wait(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(tableName),
	}, tableWaitTimeout)
	if err != nil {
		return fmt.Errorf("wait for table %s: %w", tableName, err)
	}
	return nil
}
