package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-sql-driver/mysql"
)

// SnapshotStore 把自动保存的快照追加进 MySQL，作为文件存储之外的备份历史
type SnapshotStore struct{ db *sql.DB }

func NewSnapshotStore(db *sql.DB) *SnapshotStore {
	return &SnapshotStore{db: db}
}

func (s *SnapshotStore) SaveDocumentSnapshot(ctx context.Context, docID string, rev uint64, content string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO document_snapshots (document_id, revision, content)
		VALUES (?, ?, ?)`,
		docID,
		rev,
		content,
	)
	if err != nil {
		var mysqlErr *mysql.MySQLError
		// 同版本快照已存在（1062 重复键）视为成功
		if errors.As(err, &mysqlErr) && mysqlErr.Number == 1062 {
			return nil
		}
		return err
	}
	return nil
}
