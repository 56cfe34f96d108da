package game

import (
	"math/rand"
	"sync"
	"time"

	apperrors "github.com/wfunc/adventure-server/internal/errors"
)

// Teleporter 传送目的地选择器
// 随机源可注入种子，测试用固定种子可复现传送序列。
type Teleporter struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewTeleporter 创建传送器，seed为0时使用时间种子
func NewTeleporter(seed int64) *Teleporter {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Teleporter{
		rng: rand.New(rand.NewSource(seed)),
	}
}

// Pick 从目的地集合中随机选择一个房间ID
// 集合为空说明传送房间配置不完整，调用方不得改变玩家位置。
func (t *Teleporter) Pick(destinationIDs []uint) (uint, error) {
	if len(destinationIDs) == 0 {
		return 0, apperrors.New(apperrors.ErrTeleportMisconfigured, "传送门没有配置目的地！")
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	return destinationIDs[t.rng.Intn(len(destinationIDs))], nil
}
