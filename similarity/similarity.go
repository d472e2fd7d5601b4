// Package similarity 从交互矩阵派生 物品×物品 余弦相似度矩阵与物品元数据。
//
// 生命周期：相似度矩阵由交互矩阵确定性派生；交互矩阵重建时必须同批重建，
// 不允许与旧版本索引混用（由 engine 的整体换装保证）。
package similarity

import (
	"math"

	"github.com/custkit/custkit/core"
	"github.com/custkit/custkit/matrix"
)

// normEpsilon 防止零交互物品列归一化时除零；
// 零列归一化后仍为零向量，与任何物品的相似度为 0 而不是 NaN。
const normEpsilon = 1e-9

// Index 是一次构建产出的相似度索引：相似度矩阵 + 物品元数据。
type Index struct {
	// Sim 是对称的 物品×物品 余弦相似度矩阵。
	// 对角线是自相似（调整前为 1），排序候选时自身物品总会因
	// "已交互"被过滤，故对角线不参与候选打分。
	Sim *matrix.Dense

	// Meta 按物品标识符保存展示元数据（事件表中首次出现的名称/类目）。
	Meta map[string]core.ItemMeta
}

// Build 由交互矩阵与事件表构建相似度索引。
//
// 算法：每个物品列向量除以其欧氏范数（加 epsilon 防除零），
// 然后对归一化列两两计算点积，得到完整余弦相似度矩阵。
// 空矩阵（0 物品）产出 0×0 相似度矩阵。
func Build(r *matrix.Dense, events []core.Event) *Index {
	return &Index{
		Sim:  Cosine(r),
		Meta: ExtractMeta(events),
	}
}

// Cosine 计算列归一化后的完整 物品×物品 余弦相似度矩阵。
func Cosine(r *matrix.Dense) *matrix.Dense {
	rows, cols := r.Rows(), r.Cols()

	// 列范数
	norms := make([]float64, cols)
	for i := 0; i < rows; i++ {
		row := r.Row(i)
		for j, v := range row {
			norms[j] += v * v
		}
	}
	for j := range norms {
		norms[j] = math.Sqrt(norms[j]) + normEpsilon
	}

	// 归一化列之间的点积。sim 对称，只算上三角再镜像。
	sim := matrix.NewDense(cols, cols)
	for a := 0; a < cols; a++ {
		for b := a; b < cols; b++ {
			var dot float64
			for i := 0; i < rows; i++ {
				row := r.Row(i)
				dot += row[a] * row[b]
			}
			v := dot / (norms[a] * norms[b])
			sim.Set(a, b, v)
			sim.Set(b, a, v)
		}
	}
	return sim
}

// ExtractMeta 按物品分组事件，取首次出现的名称/类目作为展示元数据。
func ExtractMeta(events []core.Event) map[string]core.ItemMeta {
	meta := make(map[string]core.ItemMeta)
	for _, ev := range events {
		if ev.ItemID == "" {
			continue
		}
		if _, ok := meta[ev.ItemID]; ok {
			continue
		}
		meta[ev.ItemID] = core.ItemMeta{
			Name:     ev.ItemName,
			Category: ev.Category,
		}
	}
	return meta
}
