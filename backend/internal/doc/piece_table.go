package doc

/*
结构示例

初始文档内容 `"Hello world"`：

- original buffer 内容：`"Hello world"`
- add buffer 为空 (`""`)
- piece 表：

[ (orig, offset=0, length=11) ]  // 整个文档

在位置 5 插入 `" collaborative"`：
- 在 **add buffer** 末尾追加 `" collaborative"`
- piece 表从一条拆成三条：

[
  (orig, offset=0, length=5),       // "Hello"
  (add,  offset=0, length=13),      // " collaborative"
  (orig, offset=5, length=6),       // " world"
]
*/

type bufferKind int

const (
	bufOriginal bufferKind = iota
	bufAdd
)

type piece struct {
	// 指针标签，表示从 original 还是 add 切片上偏移
	buf    bufferKind
	offset int
	length int
}

type PieceTable struct {
	// 原始文本切片
	original []rune
	// 新增文本切片
	add []rune
	// 分片列表
	pieces []piece
}

func NewPieceTable(initial string) *PieceTable {
	r := []rune(initial)
	return &PieceTable{
		original: r,
		pieces:   []piece{{buf: bufOriginal, offset: 0, length: len(r)}},
	}
}

func (pt *PieceTable) Len() int {
	n := 0
	for _, p := range pt.pieces {
		n += p.length
	}
	return n
}

func (pt *PieceTable) String() string {
	var res string
	for _, p := range pt.pieces {
		switch p.buf {
		case bufOriginal:
			res += string(pt.original[p.offset : p.offset+p.length])
		case bufAdd:
			res += string(pt.add[p.offset : p.offset+p.length])
		}
	}
	return res
}

// ApplyEdit 是位置寻址的编辑入口：在 pos 处先删 deleteLen 个字符，再插入 insert。
// 越界参数一律收敛（clamp）到 [0, Len()]，不会 panic 也不会返回错误，
// 这样一条畸形操作最多变成空操作，不会把整批编辑带崩。
func (pt *PieceTable) ApplyEdit(pos int, insert string, deleteLen int) error {
	n := pt.Len()
	if pos < 0 {
		pos = 0
	}
	if pos > n {
		pos = n
	}
	if deleteLen < 0 {
		deleteLen = 0
	}
	if pos+deleteLen > n {
		deleteLen = n - pos
	}

	if deleteLen > 0 {
		pt.deleteAt(pos, deleteLen)
	}
	if insert != "" {
		pt.insertAt(pos, insert)
	}
	return nil
}

func (pt *PieceTable) insertAt(pos int, text string) {
	r := []rune(text)
	start := len(pt.add)
	pt.add = append(pt.add, r...)
	length := len(r)

	idx, offset := pt.locate(pos)
	newPiece := piece{buf: bufAdd, offset: start, length: length}

	if idx < len(pt.pieces) {
		cur := pt.pieces[idx]
		leftPiece := piece{buf: cur.buf, offset: cur.offset, length: offset}
		rightPiece := piece{buf: cur.buf, offset: cur.offset + offset, length: cur.length - offset}

		newPieces := make([]piece, 0, len(pt.pieces)+2)
		newPieces = append(newPieces, pt.pieces[:idx]...)
		if leftPiece.length > 0 {
			newPieces = append(newPieces, leftPiece)
		}
		newPieces = append(newPieces, newPiece)
		if rightPiece.length > 0 {
			newPieces = append(newPieces, rightPiece)
		}
		newPieces = append(newPieces, pt.pieces[idx+1:]...)
		// 只动目标 piece，其他 piece 不动，减少 append 开销
		pt.pieces = newPieces
	} else {
		pt.pieces = append(pt.pieces, newPiece)
	}
}

func (pt *PieceTable) deleteAt(pos int, count int) {
	// 要删的剩余长度
	remain := count
	idx, offset := pt.locate(pos)

	for remain > 0 && idx < len(pt.pieces) {
		cur := &pt.pieces[idx]
		// 这个 piece 里还剩多少可删
		can := cur.length - offset
		if can <= 0 {
			idx++
			offset = 0
			continue
		}

		// 本轮实际要删多少
		take := remain
		if take > can {
			take = can
		}

		// 整个 piece 都删掉
		if offset == 0 && take == cur.length {
			pt.pieces = append(pt.pieces[:idx], pt.pieces[idx+1:]...)
			// idx 不动（现在这个位置是删完后的下一个 piece）
			offset = 0
		} else {
			// 只删中间一段：从 offset 开始删 take 个，拆成 左 / 右 两段
			leftLen := offset
			rightLen := cur.length - offset - take

			newPieces := make([]piece, 0, len(pt.pieces)+1)
			newPieces = append(newPieces, pt.pieces[:idx]...)
			if leftLen > 0 {
				newPieces = append(newPieces, piece{
					buf:    cur.buf,
					offset: cur.offset,
					length: leftLen,
				})
			}
			if rightLen > 0 {
				newPieces = append(newPieces, piece{
					buf:    cur.buf,
					offset: cur.offset + offset + take,
					length: rightLen,
				})
			}
			newPieces = append(newPieces, pt.pieces[idx+1:]...)
			pt.pieces = newPieces

			// 保留了左段时，下一个待删 piece 在 idx+1；否则仍在 idx
			if leftLen > 0 {
				idx++
			}
			offset = 0
		}

		remain -= take
	}
}

// 根据逻辑位置 pos，找到对应的 piece 下标 idx 和在该 piece 内的偏移 offset
func (pt *PieceTable) locate(pos int) (idx int, offset int) {
	cur := 0
	for i, p := range pt.pieces {
		if pos < cur+p.length {
			return i, pos - cur
		}
		cur += p.length
	}
	return len(pt.pieces), 0
}
