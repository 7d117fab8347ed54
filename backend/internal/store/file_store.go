package store

import (
	"context"
	"os"
	"path/filepath"
)

// FileStore：每个文档一个扁平文本文件，文件名就是 docID（不存额外元数据）。
// 写入走“临时文件 + rename”，保证落盘原子性。
type FileStore struct {
	dir string
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(docID string) string {
	// 防止 docID 里带路径分隔符逃出存储目录
	return filepath.Join(s.dir, filepath.Base(docID)+".md")
}

func (s *FileStore) Persist(ctx context.Context, docID, content string, revision uint64) error {
	path := s.path(docID)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(content), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Load 读取文档内容；文件不存在返回空串（新文档）
func (s *FileStore) Load(docID string) (string, error) {
	b, err := os.ReadFile(s.path(docID))
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}
	return string(b), nil
}

func (s *FileStore) Path(docID string) string { return s.path(docID) }
