package game

import (
	"sync"

	"go.uber.org/zap"
)

// SessionStore 会话存储，按用户ID索引
// 只做内存索引，不负责超时判断：过期由引擎在访问时按用户的
// last_active_at 惰性判定，见 Engine.validateSession。
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[uint]*Session
	logger   *zap.Logger
}

// NewSessionStore 创建会话存储
func NewSessionStore(logger *zap.Logger) *SessionStore {
	return &SessionStore{
		sessions: make(map[uint]*Session),
		logger:   logger,
	}
}

// Get 获取会话
func (st *SessionStore) Get(userID uint) (*Session, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	s, ok := st.sessions[userID]
	return s, ok
}

// GetOrCreate 获取会话，不存在则用build构建
// 双重检查：并发恢复同一用户时只有一个build结果生效。
func (st *SessionStore) GetOrCreate(userID uint, build func() (*Session, error)) (*Session, error) {
	st.mu.RLock()
	s, ok := st.sessions[userID]
	st.mu.RUnlock()
	if ok {
		return s, nil
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	if s, ok = st.sessions[userID]; ok {
		return s, nil
	}

	s, err := build()
	if err != nil {
		return nil, err
	}
	st.sessions[userID] = s

	st.logger.Info("创建游戏会话",
		zap.Uint("user_id", userID),
		zap.String("token", s.Token))
	return s, nil
}

// Put 放入会话（登录时替换旧会话）
func (st *SessionStore) Put(userID uint, s *Session) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.sessions[userID] = s
}

// Remove 移除会话
func (st *SessionStore) Remove(userID uint) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if _, ok := st.sessions[userID]; ok {
		delete(st.sessions, userID)
		st.logger.Info("移除游戏会话", zap.Uint("user_id", userID))
	}
}

// Len 活跃会话数
func (st *SessionStore) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}
