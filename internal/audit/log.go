package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"tradegate/internal/pending"
	"tradegate/internal/store"
)

// ResultRecord 是执行结果的审计视图。
type ResultRecord struct {
	Success      bool
	VenueOrderID string
	Status       string
	ErrorCode    string
	ErrorMessage string
	Raw          string
}

// Log 将每条操作的生命周期持久化到 SQLite。
// 只追加和更新，从不删除；执行路径的正确性不依赖它。
type Log struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewLog 初始化审计日志并创建表结构。
func NewLog(st *store.Store, logger *zap.Logger) (*Log, error) {
	if st == nil {
		return nil, errors.New("audit: store 不能为空")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	l := &Log{db: st.DB(), logger: logger}
	if err := l.initSchema(); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *Log) initSchema() error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS audit_records (
			operation_id TEXT PRIMARY KEY,
			owner_id INTEGER NOT NULL,
			external_owner_id TEXT,
			kind TEXT NOT NULL,
			venue TEXT NOT NULL,
			payload TEXT NOT NULL,
			risk_level TEXT NOT NULL,
			description TEXT NOT NULL,
			confirmed_at TEXT,
			success INTEGER,
			venue_order_id TEXT,
			error_code TEXT,
			error_message TEXT,
			result_payload TEXT,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_audit_owner ON audit_records(owner_id);`,
		`CREATE INDEX IF NOT EXISTS idx_audit_created ON audit_records(created_at);`,
	}

	for _, stmt := range schema {
		if _, err := l.db.Exec(stmt); err != nil {
			return fmt.Errorf("audit: 初始化表结构失败: %w", err)
		}
	}
	return nil
}

// RecordStaged 在暂存时写入未确认记录，含完整的操作快照。
func (l *Log) RecordStaged(ctx context.Context, staged pending.Staged) error {
	payload, err := json.Marshal(staged.Operation)
	if err != nil {
		return fmt.Errorf("audit: 序列化操作快照失败: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	_, err = l.db.ExecContext(ctx,
		`INSERT INTO audit_records
			(operation_id, owner_id, external_owner_id, kind, venue, payload,
			 risk_level, description, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		staged.OperationID,
		staged.OwnerID,
		staged.ExternalOwnerID,
		string(staged.Operation.Kind),
		staged.Operation.Venue,
		string(payload),
		string(staged.RiskLevel),
		staged.Description,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("audit: 写入暂存记录失败: %w", err)
	}
	return nil
}

// RecordConfirmed 写入确认时间戳。
func (l *Log) RecordConfirmed(ctx context.Context, operationID string) error {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := l.db.ExecContext(ctx,
		`UPDATE audit_records SET confirmed_at = ?, updated_at = ? WHERE operation_id = ?`,
		now, now, operationID,
	)
	if err != nil {
		return fmt.Errorf("audit: 写入确认时间失败: %w", err)
	}
	return nil
}

// RecordResult 写入执行结果，成功与失败都是合法的终态。
func (l *Log) RecordResult(ctx context.Context, operationID string, result ResultRecord) error {
	success := 0
	if result.Success {
		success = 1
	}

	now := time.Now().UTC().Format(time.RFC3339)
	_, err := l.db.ExecContext(ctx,
		`UPDATE audit_records
		 SET success = ?, venue_order_id = ?, error_code = ?, error_message = ?,
		     result_payload = ?, updated_at = ?
		 WHERE operation_id = ?`,
		success,
		result.VenueOrderID,
		result.ErrorCode,
		result.ErrorMessage,
		result.Raw,
		now,
		operationID,
	)
	if err != nil {
		return fmt.Errorf("audit: 写入执行结果失败: %w", err)
	}
	return nil
}
