package core

import "context"

// Narrator 是推荐理由生成器的领域接口。
// 引擎只依赖签名：给定用户与一条推荐，返回一句非空说明文案。
// 文案纯展示用途，没有数值契约；实现见 narrator 包（规则式）。
type Narrator interface {
	// Narrate 为 user 的一条推荐生成一句说明
	Narrate(ctx context.Context, userID string, rec Recommendation) string
}
