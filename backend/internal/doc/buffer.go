package doc

// 抽象文档内容缓冲区接口。
// 外部协同引擎（CRDT）也通过同样的接口接入，这个核心只按字符偏移量读写，
// 不关心底层是 piece table 还是别的结构。
type Buffer interface {
	Len() int
	String() string
	// ApplyEdit 在 pos 处先删除 deleteLen 个字符，再插入 insert。
	// 越界的参数在实现内部收敛到合法范围，永远不会报错中断。
	ApplyEdit(pos int, insert string, deleteLen int) error
}
