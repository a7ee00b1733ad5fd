package worker

import (
	"context"
	"fmt"

	"terptracker/internal/amqp"
	"terptracker/internal/core"
	"terptracker/internal/log"
	"terptracker/internal/sheets"
)

// ExpenseReader loads a stored expense by its composite key. A (nil, nil)
// return means the expense does not exist.
type ExpenseReader interface {
	GetExpense(ctx context.Context, userEmail, timestamp string) (*core.ExpenseRecord, error)
}

// ExportWorker copies submitted expenses from DynamoDB to Google Sheets.
type ExportWorker struct {
	store  ExpenseReader
	sheets sheets.ExpenseWriter
	logger *log.Logger
}

func NewExportWorker(store ExpenseReader, writer sheets.ExpenseWriter, logger *log.Logger) *ExportWorker {
	return &ExportWorker{
		store:  store,
		sheets: writer,
		logger: logger.WithComponent(log.ComponentWorker),
	}
}

// HandleExportMessage processes a single export message. The message holds
// only the expense key; the record itself is fetched fresh from the store.
// An expense missing from the store is dropped rather than requeued, since
// a retry cannot make it appear.
func (w *ExportWorker) HandleExportMessage(ctx context.Context, msg *amqp.ExpenseExportMessage) error {
	rec, err := w.store.GetExpense(ctx, msg.UserEmail, msg.ExpenseTimestamp)
	if err != nil {
		return fmt.Errorf("get expense from store: %w", err)
	}
	if rec == nil {
		w.logger.WarnContext(ctx, "Expense not found, dropping message",
			log.FieldOperation, log.OpExport,
			log.FieldUserEmail, msg.UserEmail,
			log.FieldTimestamp, msg.ExpenseTimestamp)
		return nil
	}

	ref, err := w.sheets.Append(ctx, *rec)
	if err != nil {
		return fmt.Errorf("append to sheets: %w", err)
	}

	w.logger.InfoContext(ctx, "Exported expense",
		log.FieldOperation, log.OpExport,
		log.FieldUserEmail, rec.UserEmail,
		log.FieldTimestamp, rec.Timestamp,
		log.FieldSheetsRef, ref,
		log.FieldAmount, rec.Amount)
	return nil
}
