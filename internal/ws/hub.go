package ws

import (
	"errors"
	"log"
	"sync"

	domainErrors "wikiedit-go-server/domain/errors"
)

// ========== Actor Model: Hub 是生死的唯一仲裁者 ==========
// Hub 不处理任何业务消息，只管理 CollabPad 房间的生命周期

// Hub 维护协同房间目录，房间按虚拟页面标题索引
type Hub struct {
	rooms      map[string]*Room
	mu         sync.RWMutex
	idleRoom   chan *Room // Room 空闲信号（请求销毁）
	docService DocService
}

// DocService 接口，用于协同文档的数据库操作
type DocService interface {
	// GetDocState 返回文档状态，如果文档不存在返回 (nil, 0, ErrDocNotFound)
	GetDocState(title string) ([]byte, int64, error)
	// DocExists 检查文档是否存在
	DocExists(title string) (bool, error)
	// SaveDocState 保存文档状态（支持版本跳跃）
	// oldVersion: 上次持久化的版本（用于乐观锁检查）
	// newVersion: 当前内存中的版本（要写入 DB）
	SaveDocState(title string, state []byte, oldVersion, newVersion int64) error
}

// NewHub 创建 Hub 实例
func NewHub(docService DocService) *Hub {
	return &Hub{
		rooms:      make(map[string]*Room),
		idleRoom:   make(chan *Room, 16),
		docService: docService,
	}
}

// Run Hub 事件循环
func (h *Hub) Run() {
	log.Println("[Hub] 🚀 Hub 已启动（生死仲裁者）")

	for room := range h.idleRoom {
		// ✅ 使用 goroutine 避免阻塞 Hub 事件循环
		// 因为 handleIdleRoom 会阻塞等待刷盘完成
		go h.handleIdleRoom(room)
	}
}

// handleIdleRoom 处理空闲房间（双重检查后决定是否销毁）
// ⚠️ 先刷盘，再从 Hub 移除，并检查指针同一性
func (h *Hub) handleIdleRoom(room *Room) {
	// 双重检查：Room 可能在我们处理期间又有人加入了
	if room.ClientCount() > 0 {
		log.Printf("[Hub] 🔄 房间 %s 已有新用户，取消销毁", room.Title)
		return
	}

	// ✅ 先停止房间（阻塞等待刷盘完成）
	room.Stop()

	// ✅ 安全删除：检查指针同一性，防止误删新创建的房间
	h.mu.Lock()
	defer h.mu.Unlock()

	// ⚠️ 关键：检查 Map 里的房间是不是当初那个房间
	// 防止 GetOrCreateRoom 在刷盘期间创建了新房间，结果被我们删了
	if currentRoom, ok := h.rooms[room.Title]; ok && currentRoom == room {
		delete(h.rooms, room.Title)
		log.Printf("[Hub] 🗑️ 房间 %s 已销毁", room.Title)
	} else {
		log.Printf("[Hub] ⚠️ 房间 %s 销毁时发现已被替换或移除，跳过删除", room.Title)
	}
}

// GetRoom 只读获取房间，不创建（供 HTTP GET 请求使用）
// ✅ 只要房间在内存，就返回它，因为内存数据永远比 DB 新
// 即使房间正在 Stopping，它的状态仍然是可读的（有 stateMu 保护）
func (h *Hub) GetRoom(title string) *Room {
	h.mu.RLock()
	defer h.mu.RUnlock()

	room, exists := h.rooms[title]
	if exists {
		return room
	}
	return nil
}

// GetOrCreateRoom 线程安全地获取或创建房间
// ⚠️ 只有在数据库中存在的协同文档才会创建房间（Pre-creation 模式）
// 返回值: (*Room, error) - 如果文档不存在，返回 ErrDocNotFound
func (h *Hub) GetOrCreateRoom(title string) (*Room, error) {
	// 先尝试读锁快速路径
	h.mu.RLock()
	room, exists := h.rooms[title]
	h.mu.RUnlock()

	if exists {
		// ⚠️ 如果房间存在但正在停止，返回错误让客户端重试
		if room.IsStopping() {
			log.Printf("[Hub] ⏳ 房间 %s 正在关闭，请客户端重试", title)
			return nil, domainErrors.ErrRoomClosing
		}
		return room, nil
	}

	// 不存在，加写锁创建
	h.mu.Lock()
	defer h.mu.Unlock()

	// 双重检查
	room, exists = h.rooms[title]
	if exists {
		if room.IsStopping() {
			log.Printf("[Hub] ⏳ 房间 %s 正在关闭，请客户端重试", title)
			return nil, domainErrors.ErrRoomClosing
		}
		return room, nil
	}

	// ⚠️ 从数据库加载状态，如果文档不存在，拒绝创建幽灵房间
	state, version, err := h.docService.GetDocState(title)
	if err != nil {
		if errors.Is(err, domainErrors.ErrDocNotFound) {
			log.Printf("[Hub] ❌ 协同文档 %s 不存在，拒绝创建房间", title)
			return nil, domainErrors.ErrDocNotFound
		}
		// 其他数据库错误
		log.Printf("[Hub] ⚠️ 加载协同文档 %s 失败: %v", title, err)
		return nil, err
	}

	// 创建房间
	room = NewRoom(title, state, version, h.docService, h)
	h.rooms[title] = room

	log.Printf("[Hub] 🏠 创建房间 %s，版本: %d", title, version)
	return room, nil
}

// NotifyIdle 供 Room 调用，通知 Hub 房间空闲
func (h *Hub) NotifyIdle(room *Room) {
	h.idleRoom <- room
}

// CloseRoom 强制关闭房间（供 API 删除页面时调用）
// ⚠️ 这是"处决"流程的第一步：先关闭房间并刷盘，后删数据库
func (h *Hub) CloseRoom(title string) {
	h.mu.Lock()
	room, exists := h.rooms[title]
	if !exists {
		h.mu.Unlock()
		log.Printf("[Hub] ℹ️ 房间 %s 不存在于内存中，无需关闭", title)
		return
	}
	// 先从 map 中移除（防止新用户加入）
	delete(h.rooms, title)
	h.mu.Unlock()

	// ✅ 停止房间并刷盘（StopWithReason 是阻塞的）
	room.StopWithReason(ErrDocDeleted, "文档已被删除")

	log.Printf("[Hub] 💀 强制关闭房间 %s（文档被删除）", title)
}
