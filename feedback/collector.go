// Package feedback 负责回收推荐结果的下发记录（曝光日志）。
// 下发记录写入 KeyValueStore（内存或 Redis），dashboard 端按分数读回 TopN，
// 用于观察"推了什么、推得多强"。
package feedback

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/custkit/custkit/core"
)

// Impression 是一次推荐下发的记录（轻量级，只含必要信息）。
type Impression struct {
	ID        string  `json:"id"`
	UserID    string  `json:"user_id"`
	ItemID    string  `json:"item_id"`
	Position  int     `json:"position"`  // 物品在下发列表中的位置
	Score     float64 `json:"score"`     // 展示分
	RawScore  float64 `json:"raw_score"` // 原始混合分
	Timestamp int64   `json:"timestamp"` // Unix 时间戳（秒）
}

// Collector 是曝光收集器接口。
type Collector interface {
	// RecordServe 记录一次推荐下发（整个列表）
	RecordServe(ctx context.Context, userID string, recs []core.Recommendation) error

	// TopServed 读取累计下发分数最高的 TopN 物品标识符
	TopServed(ctx context.Context, n int64) ([]string, error)

	// ServeCount 读取某用户累计收到的下发条数
	ServeCount(ctx context.Context, userID string) (int64, error)
}

// 存储 key 约定：
//   - 物品累计下发分：zset  {prefix}:served
//   - 用户下发明细：  hash  {prefix}:user:{userID}，field 为曝光 ID
const defaultKeyPrefix = "feedback"

// StoreCollector 是基于 core.KeyValueStore 的收集器实现。
// 内存后端用于开发/测试，Redis 后端用于生产。
type StoreCollector struct {
	Store core.KeyValueStore

	// KeyPrefix 是存储 key 的前缀，默认 "feedback"
	KeyPrefix string

	// Now 取当前时间，便于测试注入；nil 时用 time.Now
	Now func() time.Time
}

func NewStoreCollector(store core.KeyValueStore, keyPrefix string) *StoreCollector {
	if keyPrefix == "" {
		keyPrefix = defaultKeyPrefix
	}
	return &StoreCollector{Store: store, KeyPrefix: keyPrefix}
}

func (c *StoreCollector) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

func (c *StoreCollector) RecordServe(ctx context.Context, userID string, recs []core.Recommendation) error {
	if c.Store == nil || len(recs) == 0 {
		return nil
	}

	servedKey := c.KeyPrefix + ":served"
	userKey := c.KeyPrefix + ":user:" + userID
	ts := c.now().Unix()

	for pos, rec := range recs {
		imp := Impression{
			ID:        uuid.NewString(),
			UserID:    userID,
			ItemID:    rec.ItemID,
			Position:  pos,
			Score:     rec.Score,
			RawScore:  rec.RawScore,
			Timestamp: ts,
		}

		// 物品维度：累计下发分（同一物品多次下发分数叠加）
		prev, err := c.Store.ZScore(ctx, servedKey, rec.ItemID)
		if err != nil && !core.IsStoreNotFound(err) {
			return err
		}
		if err := c.Store.ZAdd(ctx, servedKey, prev+rec.Score, rec.ItemID); err != nil {
			return err
		}

		// 用户维度：下发明细
		data, err := json.Marshal(imp)
		if err != nil {
			return err
		}
		if err := c.Store.HSet(ctx, userKey, imp.ID, data); err != nil {
			return err
		}
	}
	return nil
}

func (c *StoreCollector) TopServed(ctx context.Context, n int64) ([]string, error) {
	if c.Store == nil || n <= 0 {
		return nil, nil
	}
	return c.Store.ZRange(ctx, c.KeyPrefix+":served", 0, n-1)
}

func (c *StoreCollector) ServeCount(ctx context.Context, userID string) (int64, error) {
	if c.Store == nil {
		return 0, nil
	}
	all, err := c.Store.HGetAll(ctx, c.KeyPrefix+":user:"+userID)
	if err != nil {
		return 0, err
	}
	return int64(len(all)), nil
}

var _ Collector = (*StoreCollector)(nil)
