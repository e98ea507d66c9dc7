// backend/src/model/archive.go
package model

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/username/bankfolio/backend/src/models"
)

// InsertArchivedTransaction upserts one converted transaction into the local
// archive. Re-ingesting the same upstream row is a no-op (INSERT OR IGNORE
// on the upstream transaction id).
func InsertArchivedTransaction(db *sql.DB, tx models.Transaction) error {
	_, err := db.Exec(`
		INSERT OR IGNORE INTO archived_transactions
			(id, iban, amount, direction, value_date, description, currency, account_ref, archived_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.ID,
		tx.IBAN,
		tx.Amount.String(),
		string(tx.Direction),
		tx.ValueDate.UTC().Format(time.RFC3339Nano),
		tx.Description,
		tx.Currency,
		tx.AccountRef,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to insert archived transaction %s: %w", tx.ID, err)
	}
	return nil
}

// ListArchivedTransactions returns archived transactions, value-date
// descending. limit caps the result (0 = no cap).
func ListArchivedTransactions(db *sql.DB, limit int) ([]models.Transaction, error) {
	query := `
		SELECT id, iban, amount, direction, value_date, description, currency, account_ref
		FROM archived_transactions
		ORDER BY value_date DESC`
	args := []interface{}{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query archived transactions: %w", err)
	}
	defer rows.Close()

	var txs []models.Transaction
	for rows.Next() {
		var (
			tx        models.Transaction
			amount    string
			direction string
			valueDate string
		)
		if err := rows.Scan(&tx.ID, &tx.IBAN, &amount, &direction, &valueDate, &tx.Description, &tx.Currency, &tx.AccountRef); err != nil {
			return nil, fmt.Errorf("failed to scan archived transaction: %w", err)
		}
		tx.Amount, err = decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("corrupt amount %q in archive row %s: %w", amount, tx.ID, err)
		}
		tx.Direction = models.Direction(direction)
		tx.ValueDate, err = time.Parse(time.RFC3339Nano, valueDate)
		if err != nil {
			return nil, fmt.Errorf("corrupt value date %q in archive row %s: %w", valueDate, tx.ID, err)
		}
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}

// CountArchivedTransactions returns the number of archived rows.
func CountArchivedTransactions(db *sql.DB) (int, error) {
	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM archived_transactions").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count archived transactions: %w", err)
	}
	return count, nil
}
