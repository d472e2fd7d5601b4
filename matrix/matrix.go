// Package matrix 负责把原始交互事件转换为稠密的 用户×物品 加权交互矩阵。
//
// 设计要点：
//   - 矩阵用扁平 []float64 存储（行优先），避免二维切片的逐行分配
//   - 所有矩阵项 >= 0（权重只做累加，不做覆盖）
//   - 索引映射与矩阵同批构建、同批发布，不允许跨版本混用
package matrix

// Dense 是行优先存储的稠密 float64 矩阵。
// 零行/零列的空矩阵是合法值，调用方负责在归一化等环节规避除零。
type Dense struct {
	rows, cols int
	data       []float64
}

// NewDense 创建 rows×cols 的零值矩阵。
func NewDense(rows, cols int) *Dense {
	return &Dense{
		rows: rows,
		cols: cols,
		data: make([]float64, rows*cols),
	}
}

func (m *Dense) Rows() int { return m.rows }
func (m *Dense) Cols() int { return m.cols }

// At 读取 (r, c) 处的值。
func (m *Dense) At(r, c int) float64 {
	return m.data[r*m.cols+c]
}

// Add 在 (r, c) 处累加 v（交互权重是可叠加信号，不覆盖）。
func (m *Dense) Add(r, c int, v float64) {
	m.data[r*m.cols+c] += v
}

// Set 写入 (r, c) 处的值。
func (m *Dense) Set(r, c int, v float64) {
	m.data[r*m.cols+c] = v
}

// Row 返回第 r 行的切片视图（只读用途，修改会影响矩阵本身）。
func (m *Dense) Row(r int) []float64 {
	return m.data[r*m.cols : (r+1)*m.cols]
}

// ColSums 返回每列的和（热度向量的原始形态）。
func (m *Dense) ColSums() []float64 {
	sums := make([]float64, m.cols)
	for r := 0; r < m.rows; r++ {
		row := m.Row(r)
		for c, v := range row {
			sums[c] += v
		}
	}
	return sums
}

// Equal 判断两个矩阵形状与内容完全一致（用于重建确定性校验/测试）。
func (m *Dense) Equal(other *Dense) bool {
	if other == nil || m.rows != other.rows || m.cols != other.cols {
		return false
	}
	for i, v := range m.data {
		if v != other.data[i] {
			return false
		}
	}
	return true
}
