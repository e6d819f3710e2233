package attemptstore

import (
	"time"

	"github.com/uptrace/bun"

	"github.com/koshlabs/stellar-evm-bridge/pkg/bridge"
)

// AttemptDao is a data access object that maps directly to the
// 'bridge_attempts' table in PostgreSQL.
type AttemptDao struct {
	bun.BaseModel `bun:"table:bridge_attempts,alias:ba"`
	ID            string     `bun:"id,pk,type:uuid"`
	Status        string     `bun:"status,notnull,type:varchar(16)"`
	Stage         string     `bun:"stage,notnull,type:varchar(32)"`
	Progress      int        `bun:"progress,notnull"`
	UserAddress   string     `bun:"user_address,notnull,type:varchar(56)"`
	FromToken     string     `bun:"from_token,notnull,type:varchar(16)"`
	DestToken     string     `bun:"dest_token,notnull,type:varchar(32)"`
	DestChain     string     `bun:"dest_chain,notnull,type:varchar(16)"`
	Recipient     string     `bun:"recipient,notnull,type:varchar(42)"`
	Amount        string     `bun:"amount,notnull,type:numeric(38,7)"`
	LockTxHash    *string    `bun:"lock_tx_hash,type:varchar(64)"`
	DestTxHash    *string    `bun:"dest_tx_hash,type:varchar(66)"`
	ErrorKind     *string    `bun:"error_kind,type:varchar(32)"`
	ErrorMessage  *string    `bun:"error_message,type:text"`
	CreatedAt     time.Time  `bun:"created_at,nullzero,default:current_timestamp"`
	UpdatedAt     time.Time  `bun:"updated_at,nullzero,default:current_timestamp"`
	CompletedAt   *time.Time `bun:"completed_at"`
}

// toAttemptDao converts a bridge.Attempt to AttemptDao.
func toAttemptDao(attempt *bridge.Attempt) *AttemptDao {
	return &AttemptDao{
		ID:           attempt.ID,
		Status:       string(attempt.Status),
		Stage:        string(attempt.Stage),
		Progress:     attempt.Progress,
		UserAddress:  attempt.UserAddress,
		FromToken:    attempt.FromToken,
		DestToken:    attempt.DestToken,
		DestChain:    attempt.DestChain,
		Recipient:    attempt.Recipient,
		Amount:       attempt.Amount,
		LockTxHash:   attempt.LockTxHash,
		DestTxHash:   attempt.DestTxHash,
		ErrorKind:    attempt.ErrorKind,
		ErrorMessage: attempt.ErrorMessage,
		CreatedAt:    attempt.CreatedAt,
		UpdatedAt:    attempt.UpdatedAt,
		CompletedAt:  attempt.CompletedAt,
	}
}

// toAttempt converts an AttemptDao to bridge.Attempt.
func toAttempt(dao *AttemptDao) *bridge.Attempt {
	return &bridge.Attempt{
		ID:           dao.ID,
		Status:       bridge.AttemptStatus(dao.Status),
		Stage:        bridge.Stage(dao.Stage),
		Progress:     dao.Progress,
		UserAddress:  dao.UserAddress,
		FromToken:    dao.FromToken,
		DestToken:    dao.DestToken,
		DestChain:    dao.DestChain,
		Recipient:    dao.Recipient,
		Amount:       dao.Amount,
		LockTxHash:   dao.LockTxHash,
		DestTxHash:   dao.DestTxHash,
		ErrorKind:    dao.ErrorKind,
		ErrorMessage: dao.ErrorMessage,
		CreatedAt:    dao.CreatedAt,
		UpdatedAt:    dao.UpdatedAt,
		CompletedAt:  dao.CompletedAt,
	}
}
