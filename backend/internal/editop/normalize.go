package editop

import "sort"

// Normalize 把一批编辑意图重排成可以安全连续应用的顺序：按锚点位置降序
// （锚点相同再按 from 降序）。因为所有偏移都是针对编辑前的缓冲区算的，
// 从后往前应用时，前面一条编辑不会让后面一条的偏移失效。
//
// 这是设计不变式而不是优化：一批里超过一条操作时，不排序会改坏无关文本。
// Normalize 是纯函数，不修改入参，也永远不会失败；
// 畸形的操作留到应用阶段按单条降级成空操作。
func Normalize(ops []Operation) []Operation {
	out := make([]Operation, len(ops))
	copy(out, ops)
	sort.SliceStable(out, func(i, j int) bool {
		ai, aj := out[i].anchor(), out[j].anchor()
		if ai != aj {
			return ai > aj
		}
		fi, _ := out[i].bounds()
		fj, _ := out[j].bounds()
		return fi > fj
	})
	return out
}
