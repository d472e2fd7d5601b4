package matrix

import (
	"time"

	"github.com/custkit/custkit/core"
)

// 默认权重常量。事件类型权重体现行为强度：view < cart < purchase。
const (
	DefaultViewWeight     = 1.0
	DefaultCartWeight     = 2.0
	DefaultPurchaseWeight = 3.0
	DefaultFallbackWeight = 1.0 // 未知事件类型

	DefaultRatingScale = 5.0 // 评分满分，rating_weight = rating / scale

	DefaultDecayFloor  = 0.1                 // 时间衰减下限
	DefaultDecayWindow = 365 * 24 * time.Hour // 衰减到下限所需时长（一年）
)

// Builder 把事件表构建为加权交互矩阵及配套索引映射。
// 零值可用：未设置的字段在 Build 时取默认值。
//
// 单条事件权重 = 事件类型权重 × 评分权重 × 时间衰减：
//   - 评分缺失时评分权重为 1.0（中性，不惩罚）
//   - 时间戳缺失/不可解析时衰减为 1.0（不惩罚，而不是罚为 0）
//   - 衰减随事件年龄线性下降，到 DecayWindow 时触底 DecayFloor
type Builder struct {
	// EventWeights 覆盖各事件类型的基础权重；nil 时用默认三档
	EventWeights map[core.EventType]float64

	// FallbackWeight 未知事件类型的权重；<= 0 时取 DefaultFallbackWeight
	FallbackWeight float64

	// RatingScale 评分满分；<= 0 时取 DefaultRatingScale
	RatingScale float64

	// DecayFloor 时间衰减下限；<= 0 时取 DefaultDecayFloor
	DecayFloor float64

	// DecayWindow 衰减窗口；<= 0 时取 DefaultDecayWindow
	DecayWindow time.Duration

	// Now 取当前时间，便于测试注入；nil 时用 time.Now
	Now func() time.Time
}

// Interactions 是一次构建的产物：矩阵与两侧索引映射是同一版本的整体。
type Interactions struct {
	R     *Dense
	Users *Index
	Items *Index
}

// Build 扫描事件表构建交互矩阵。
//
// 算法：
//  1. 按首次出现顺序收集用户/物品标识符，分配从 0 开始的下标
//  2. 分配零值矩阵 R (num_users × num_items)
//  3. 对每条事件计算权重并累加 R[u,i] += w
//
// 缺失 user/item id 的事件在索引前被丢弃；空事件表产出 0×0 矩阵，
// 调用方须能处理零维矩阵（不做除零）。
func (b *Builder) Build(events []core.Event) *Interactions {
	users := NewIndex()
	items := NewIndex()

	valid := make([]core.Event, 0, len(events))
	for _, ev := range events {
		if !ev.Valid() {
			continue
		}
		users.Put(ev.UserID)
		items.Put(ev.ItemID)
		valid = append(valid, ev)
	}

	r := NewDense(users.Len(), items.Len())
	now := time.Now()
	if b.Now != nil {
		now = b.Now()
	}

	for _, ev := range valid {
		u, _ := users.Lookup(ev.UserID)
		i, _ := items.Lookup(ev.ItemID)
		r.Add(u, i, b.weight(ev, now))
	}

	return &Interactions{R: r, Users: users, Items: items}
}

// weight 计算单条事件的标量权重。
func (b *Builder) weight(ev core.Event, now time.Time) float64 {
	w := b.baseWeight(ev.Type)
	w *= b.ratingWeight(ev.Rating)
	w *= b.timeDecay(ev, now)
	return w
}

func (b *Builder) baseWeight(t core.EventType) float64 {
	if b.EventWeights != nil {
		if w, ok := b.EventWeights[t]; ok {
			return w
		}
	} else {
		switch t {
		case core.EventView:
			return DefaultViewWeight
		case core.EventCart:
			return DefaultCartWeight
		case core.EventPurchase:
			return DefaultPurchaseWeight
		}
	}
	if b.FallbackWeight > 0 {
		return b.FallbackWeight
	}
	return DefaultFallbackWeight
}

func (b *Builder) ratingWeight(rating *float64) float64 {
	if rating == nil {
		return 1.0
	}
	scale := b.RatingScale
	if scale <= 0 {
		scale = DefaultRatingScale
	}
	return *rating / scale
}

func (b *Builder) timeDecay(ev core.Event, now time.Time) float64 {
	if !ev.HasTimestamp() {
		return 1.0
	}
	floor := b.DecayFloor
	if floor <= 0 {
		floor = DefaultDecayFloor
	}
	window := b.DecayWindow
	if window <= 0 {
		window = DefaultDecayWindow
	}

	age := now.Sub(ev.Timestamp)
	if age < 0 {
		// 未来时间戳按"刚发生"处理
		age = 0
	}
	decay := 1.0 - float64(age)/float64(window)
	if decay < floor {
		return floor
	}
	return decay
}
