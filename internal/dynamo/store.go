package dynamo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"terptracker/internal/config"
	"terptracker/internal/core"
	"terptracker/internal/log"
)

// ErrUserExists reports a conditional insert that lost to an existing item.
var ErrUserExists = errors.New("user already exists")

// Store wraps the DynamoDB client with the application's table operations.
type Store struct {
	client       *dynamodb.Client
	loginTable   string
	expenseTable string
	logger       *log.Logger
}

// NewStore builds a Store over the given client using the configured table
// names.
func NewStore(client *dynamodb.Client, cfg config.Config, logger *log.Logger) *Store {
	return &Store{
		client:       client,
		loginTable:   cfg.LoginTable,
		expenseTable: cfg.ExpenseTable,
		logger:       logger.WithComponent(log.ComponentDynamo),
	}
}

// PutUser inserts a credential record. The write is conditional on the
// user_id key being free, so racing inserts cannot clobber each other.
// Email uniqueness is enforced by the caller via GetUserByEmail since a
// condition expression cannot reach the email index.
func (s *Store) PutUser(ctx context.Context, cred core.Credential) error {
	item, err := attributevalue.MarshalMap(cred)
	if err != nil {
		return fmt.Errorf("marshal credential: %w", err)
	}

	cond := expression.AttributeNotExists(expression.Name("user_id"))
	expr, err := expression.NewBuilder().WithCondition(cond).Build()
	if err != nil {
		return fmt.Errorf("build condition: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                 aws.String(s.loginTable),
		Item:                      item,
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		var ccfe *types.ConditionalCheckFailedException
		if errors.As(err, &ccfe) {
			return ErrUserExists
		}
		return fmt.Errorf("put user: %w", err)
	}

	s.logger.InfoContext(ctx, "User stored",
		log.FieldOperation, log.OpPut,
		log.FieldUserID, cred.UserID,
		log.FieldUserEmail, cred.Email)
	return nil
}

// GetUser fetches a credential by its user_id. Returns (nil, nil) when the
// user does not exist.
func (s *Store) GetUser(ctx context.Context, userID string) (*core.Credential, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.loginTable),
		Key: map[string]types.AttributeValue{
			"user_id": &types.AttributeValueMemberS{Value: userID},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if out.Item == nil {
		return nil, nil
	}

	var cred core.Credential
	if err := attributevalue.UnmarshalMap(out.Item, &cred); err != nil {
		return nil, fmt.Errorf("unmarshal credential: %w", err)
	}
	return &cred, nil
}

// GetUserByEmail looks a credential up through the email index. Returns
// (nil, nil) when no user carries the email.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*core.Credential, error) {
	keyCond := expression.Key("email").Equal(expression.Value(email))
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return nil, fmt.Errorf("build key condition: %w", err)
	}

	out, err := s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(s.loginTable),
		IndexName:                 aws.String(LoginEmailIndex),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		Limit:                     aws.Int32(1),
	})
	if err != nil {
		return nil, fmt.Errorf("query user by email: %w", err)
	}
	if len(out.Items) == 0 {
		return nil, nil
	}

	var cred core.Credential
	if err := attributevalue.UnmarshalMap(out.Items[0], &cred); err != nil {
		return nil, fmt.Errorf("unmarshal credential: %w", err)
	}
	return &cred, nil
}

// PutExpense stores an expense record. Two submissions by the same user in
// the same microsecond share a key; the later write wins, which matches the
// user's intent of correcting the entry.
func (s *Store) PutExpense(ctx context.Context, rec core.ExpenseRecord) error {
	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return fmt.Errorf("marshal expense: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.expenseTable),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("put expense: %w", err)
	}

	s.logger.InfoContext(ctx, "Expense stored",
		log.FieldOperation, log.OpPut,
		log.FieldUserEmail, rec.UserEmail,
		log.FieldTimestamp, rec.Timestamp,
		log.FieldCategory, rec.Category,
		log.FieldAmount, rec.Amount)
	return nil
}

// GetExpense fetches a single expense by its composite key. Returns
// (nil, nil) when the item does not exist.
func (s *Store) GetExpense(ctx context.Context, userEmail, timestamp string) (*core.ExpenseRecord, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.expenseTable),
		Key: map[string]types.AttributeValue{
			"userEmail":        &types.AttributeValueMemberS{Value: userEmail},
			"expenseTimestamp": &types.AttributeValueMemberS{Value: timestamp},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("get expense: %w", err)
	}
	if out.Item == nil {
		return nil, nil
	}

	var rec core.ExpenseRecord
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal expense: %w", err)
	}
	return &rec, nil
}

// QueryMonth returns the user's expenses inside the given month window,
// oldest first. The window bounds are fixed-width epoch strings, so the
// BETWEEN on the string sort key selects exactly the month.
func (s *Store) QueryMonth(ctx context.Context, userEmail string, window core.MonthWindow) ([]core.ExpenseRecord, error) {
	keyCond := expression.Key("userEmail").Equal(expression.Value(userEmail)).
		And(expression.Key("expenseTimestamp").Between(
			expression.Value(window.Start),
			expression.Value(window.End)))
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return nil, fmt.Errorf("build key condition: %w", err)
	}

	out, err := s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(s.expenseTable),
		IndexName:                 aws.String(ExpenseTimestampIndex),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		return nil, fmt.Errorf("query month: %w", err)
	}

	records := make([]core.ExpenseRecord, 0, len(out.Items))
	for _, item := range out.Items {
		var rec core.ExpenseRecord
		if err := attributevalue.UnmarshalMap(item, &rec); err != nil {
			return nil, fmt.Errorf("unmarshal expense: %w", err)
		}
		records = append(records, rec)
	}

	s.logger.InfoContext(ctx, "Month queried",
		log.FieldOperation, log.OpQuery,
		log.FieldUserEmail, userEmail,
		"count", len(records))
	return records, nil
}

// WritePost content-addresses the text and inserts it for the user into
// the named table. A duplicate of an already stored post is a silent
// no-op; every other failure is surfaced to the caller.
func (s *Store) WritePost(ctx context.Context, tableName, username, text string) error {
	post := core.Post{
		Username:  username,
		PostHash:  core.StableHash(text),
		Text:      text,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}
	item, err := attributevalue.MarshalMap(post)
	if err != nil {
		return fmt.Errorf("marshal post: %w", err)
	}

	cond := expression.AttributeNotExists(expression.Name("bskyUsername")).
		And(expression.AttributeNotExists(expression.Name("bskyPostHash")))
	expr, err := expression.NewBuilder().WithCondition(cond).Build()
	if err != nil {
		return fmt.Errorf("build condition: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                 aws.String(tableName),
		Item:                      item,
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		var ccfe *types.ConditionalCheckFailedException
		if errors.As(err, &ccfe) {
			s.logger.InfoContext(ctx, "Post already stored, skipping",
				log.FieldOperation, log.OpPut,
				log.FieldUserID, username)
			return nil
		}
		return fmt.Errorf("write post: %w", err)
	}
	return nil
}

// BatchWritePosts writes each post in turn and reports how many landed.
// A failed write is logged and does not stop the batch.
func (s *Store) BatchWritePosts(ctx context.Context, tableName, username string, texts []string) int {
	success := 0
	for _, text := range texts {
		if err := s.WritePost(ctx, tableName, username, text); err != nil {
			s.logger.ErrorContext(ctx, "Post write failed",
				log.FieldOperation, log.OpBatchPut,
				log.FieldUserID, username,
				log.FieldError, err)
			continue
		}
		success++
	}
	s.logger.InfoContext(ctx, "Batch write finished",
		log.FieldOperation, log.OpBatchPut,
		log.FieldUserID, username,
		"written", success,
		"total", len(texts))
	return success
}
