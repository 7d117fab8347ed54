package cache

import "fmt"

// 键语义：
// - roomKey(docID):    房间在线订阅者（ZSet<userId, expireAtUnix>，score=expireAt）
// - namesKey(docID):   房间内 userId→username 映射（Hash）
// - contentKey(docID): 文档全文读穿缓存（String，短 TTL）

const (
	keyRoomFmt    = "presence:room:{docID:%s}"       // ZSet<userId, expireAtUnix>
	keyNamesFmt   = "presence:room:names:{docID:%s}" // Hash<userId -> username>
	keyContentFmt = "doc:content:{docID:%s}"         // String
)

func roomKey(docID string) string    { return fmt.Sprintf(keyRoomFmt, docID) }
func namesKey(docID string) string   { return fmt.Sprintf(keyNamesFmt, docID) }
func contentKey(docID string) string { return fmt.Sprintf(keyContentFmt, docID) }
