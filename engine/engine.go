package engine

import (
	"sort"
	"sync"

	"github.com/custkit/custkit/core"
	"github.com/custkit/custkit/matrix"
)

// 混合打分默认参数。0.7/0.3 与冷启动平滑 0.1 来自线上调参经验，
// 没有推导依据，保留为可配置项而不是硬常量。
const (
	DefaultSimWeight          = 0.7
	DefaultPopWeight          = 0.3
	DefaultColdStartSmoothing = 0.1

	rangeEpsilon = 1e-9 // min-max 归一化的零区间保护
)

// Options 是引擎的可调参数。零值可用，未设置的字段取默认值。
type Options struct {
	// SimWeight / PopWeight 是个性化相似度与全局热度的混合权重。
	// 两者都未设置时取默认 0.7 / 0.3。
	SimWeight float64
	PopWeight float64

	// ColdStartSmoothing 是冷启动热度打分的加性常量，
	// 防止无人交互的物品全为零分并保证确定性的稳定排序。
	ColdStartSmoothing float64

	// RebuildEvery 表示每摄入多少条新事件触发一次全量重建；
	// <= 1 时每个摄入批次都重建。触发策略是可调参数，不是硬契约。
	RebuildEvery int

	// Builder 覆盖矩阵构建参数（事件权重、衰减等）。
	Builder matrix.Builder
}

func (o Options) simWeight() float64 {
	if o.SimWeight <= 0 && o.PopWeight <= 0 {
		return DefaultSimWeight
	}
	return o.SimWeight
}

func (o Options) popWeight() float64 {
	if o.SimWeight <= 0 && o.PopWeight <= 0 {
		return DefaultPopWeight
	}
	return o.PopWeight
}

func (o Options) smoothing() float64 {
	if o.ColdStartSmoothing <= 0 {
		return DefaultColdStartSmoothing
	}
	return o.ColdStartSmoothing
}

// Engine 持有事件表（append-only）与当前目录状态。
//
// 并发模型：打分路径只读当前状态指针，状态本身发布后不可变；
// 重建在旁路构建新的 CatalogState，完成后在锁内整体换装，
// 读取方不会观察到半成品或跨版本混搭。无取消/超时语义，
// 重建是有界的同步批处理。
type Engine struct {
	mu      sync.RWMutex
	events  []core.Event
	pending int // 上次重建以来新摄入的事件数
	state   *CatalogState
	opts    Options
}

// New 创建引擎并（可选）摄入初始事件表。
func New(opts Options, events ...core.Event) *Engine {
	e := &Engine{opts: opts}
	if len(events) > 0 {
		e.Ingest(events)
	} else {
		e.Rebuild()
	}
	return e
}

// Ingest 追加一批事件。缺失 user/item id 的行被静默丢弃。
// 返回实际接收的事件数。达到重建阈值时同步触发全量重建。
func (e *Engine) Ingest(events []core.Event) int {
	e.mu.Lock()
	defer e.mu.Unlock()

	added := 0
	for _, ev := range events {
		if !ev.Valid() {
			continue
		}
		e.events = append(e.events, ev)
		added++
	}
	e.pending += added

	threshold := e.opts.RebuildEvery
	if threshold <= 1 || e.pending >= threshold || e.state == nil {
		e.rebuildLocked()
	}
	return added
}

// Rebuild 强制全量重建派生状态。
func (e *Engine) Rebuild() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rebuildLocked()
}

// rebuildLocked 在持锁状态下构建并发布新状态。
// 矩阵、索引映射、相似度、元数据作为一个整体换装。
func (e *Engine) rebuildLocked() {
	e.state = BuildState(e.events, &e.opts.Builder)
	e.pending = 0
}

// snapshot 取当前状态指针（状态不可变，取到即可在锁外使用）。
func (e *Engine) snapshot() *CatalogState {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state
}

// Recommend 为用户产出至多 k 条去重排序后的推荐。
//
// 两个分支：
//   - 已知且有交互历史的用户：个性化相似度 + min-max 归一化热度按权重混合，
//     已交互物品在排序前从候选集整体剔除（按下标成员过滤，不是分数压制）
//   - 未知用户或无历史用户（冷启动）：纯热度打分（列和 + 平滑常量），
//     不是错误而是一种模式
//
// 公共尾部：按分数降序稳定排序（同分按首次出现的下标序，保证可测的确定性），
// 取前 k，原始分映射为 [0,100] 展示分并附加元数据。
//
// k <= 0 返回空列表。返回错误仅发生在状态一致性校验失败时（拒绝服务）。
func (e *Engine) Recommend(userID string, k int) ([]core.Recommendation, error) {
	if k <= 0 {
		return []core.Recommendation{}, nil
	}

	st := e.snapshot()
	if err := st.Validate(); err != nil {
		return nil, err
	}

	numItems := st.Items.Len()
	if numItems == 0 {
		return []core.Recommendation{}, nil
	}

	interacted := st.interactedSet(userID)

	var scores []float64
	if len(interacted) > 0 {
		scores = e.personalizedScores(st, interacted)
	} else {
		scores = e.coldStartScores(st)
	}

	// 候选集按首次出现顺序收集，已交互物品在此处整体剔除
	candidates := make([]int, 0, numItems)
	for j := 0; j < numItems; j++ {
		if interacted[j] {
			continue
		}
		candidates = append(candidates, j)
	}
	if len(candidates) == 0 {
		return []core.Recommendation{}, nil
	}

	sort.SliceStable(candidates, func(a, b int) bool {
		return scores[candidates[a]] > scores[candidates[b]]
	})
	if len(candidates) > k {
		candidates = candidates[:k]
	}

	recs := make([]core.Recommendation, 0, len(candidates))
	for _, j := range candidates {
		itemID := st.Items.ID(j)
		meta := st.metaFor(itemID)
		raw := scores[j]
		recs = append(recs, core.Recommendation{
			ItemID:   itemID,
			ItemName: meta.Name,
			Category: meta.Category,
			Score:    core.NormalizeScore(raw),
			RawScore: raw,
		})
	}
	return recs, nil
}

// personalizedScores 计算已知用户的混合打分：
// sim_scores[j] = Σ(用户已交互物品 i 的 sim[i][j])，
// 热度为列和的 min-max 归一化，二者按权重混合。
func (e *Engine) personalizedScores(st *CatalogState, interacted map[int]bool) []float64 {
	numItems := st.Items.Len()

	// 按物品下标序累加，保证浮点求和顺序固定，
	// 同样的输入必须产出比特级一致的 RawScore
	simScores := make([]float64, numItems)
	for i := 0; i < numItems; i++ {
		if !interacted[i] {
			continue
		}
		row := st.Sim.Row(i)
		for j, v := range row {
			simScores[j] += v
		}
	}

	pop := st.R.ColSums()
	minV, maxV := pop[0], pop[0]
	for _, v := range pop {
		if v < minV {
			minV = v
		}
		if v > maxV {
			maxV = v
		}
	}
	span := maxV - minV + rangeEpsilon

	simW, popW := e.opts.simWeight(), e.opts.popWeight()
	scores := make([]float64, numItems)
	for j := range scores {
		popNorm := (pop[j] - minV) / span
		scores[j] = simW*simScores[j] + popW*popNorm
	}
	return scores
}

// coldStartScores 计算冷启动打分：全局热度（列和）加平滑常量，
// 避免无人交互的物品全为零分打平。
func (e *Engine) coldStartScores(st *CatalogState) []float64 {
	scores := st.R.ColSums()
	smoothing := e.opts.smoothing()
	for j := range scores {
		scores[j] += smoothing
	}
	return scores
}

// EventCount 返回事件表当前长度（含尚未参与重建的新事件）。
func (e *Engine) EventCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.events)
}

// Events 返回事件表的副本（供画像/叙述等下游分析使用）。
func (e *Engine) Events() []core.Event {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]core.Event, len(e.events))
	copy(out, e.events)
	return out
}

// UserEvents 返回某个用户的全部事件（副本，按摄入顺序）。
func (e *Engine) UserEvents(userID string) []core.Event {
	e.mu.RLock()
	defer e.mu.RUnlock()
	var out []core.Event
	for _, ev := range e.events {
		if ev.UserID == userID {
			out = append(out, ev)
		}
	}
	return out
}

// Users 返回当前状态中按首次出现顺序排列的用户标识符。
func (e *Engine) Users() []string {
	st := e.snapshot()
	if st == nil {
		return nil
	}
	ids := st.Users.IDs()
	out := make([]string, len(ids))
	copy(out, ids)
	return out
}

// State 返回当前目录状态（不可变，只读使用）。
func (e *Engine) State() *CatalogState {
	return e.snapshot()
}
