package matrix

// Index 是标识符与矩阵下标之间的双向映射，按首次出现顺序分配下标。
// 一个 Index 只对与它同批构建的矩阵有效；矩阵重建时必须连同 Index 一起重建。
type Index struct {
	toIdx map[string]int
	toID  []string
}

// NewIndex 创建空映射。
func NewIndex() *Index {
	return &Index{toIdx: make(map[string]int)}
}

// Put 登记一个标识符，返回其下标；重复登记返回已有下标。
func (ix *Index) Put(id string) int {
	if i, ok := ix.toIdx[id]; ok {
		return i
	}
	i := len(ix.toID)
	ix.toIdx[id] = i
	ix.toID = append(ix.toID, id)
	return i
}

// Lookup 查询标识符的下标。
func (ix *Index) Lookup(id string) (int, bool) {
	i, ok := ix.toIdx[id]
	return i, ok
}

// ID 返回下标对应的标识符；越界返回空串。
func (ix *Index) ID(i int) string {
	if i < 0 || i >= len(ix.toID) {
		return ""
	}
	return ix.toID[i]
}

// Len 返回已登记的标识符数量。
func (ix *Index) Len() int { return len(ix.toID) }

// IDs 返回按下标顺序（即首次出现顺序）排列的全部标识符。
// 返回内部切片，调用方不得修改。
func (ix *Index) IDs() []string { return ix.toID }

// Equal 判断两个映射内容与顺序完全一致（用于重建确定性校验/测试）。
func (ix *Index) Equal(other *Index) bool {
	if other == nil || len(ix.toID) != len(other.toID) {
		return false
	}
	for i, id := range ix.toID {
		if other.toID[i] != id {
			return false
		}
	}
	return true
}
