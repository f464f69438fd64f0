package ws

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	jsonpatch "github.com/evanphx/json-patch/v5"
)

// ========== Actor Model: Room 是完全自治的独立单元 ==========
// clients map 只在 run() 循环内访问，无需锁！

// Room 对应一个 CollabPad 虚拟页面的协同会话
type Room struct {
	Title        string // 虚拟页面标题（Special:CollabPad/xxx）
	CurrentState []byte // 文档 JSON 模型
	Version      int64

	// 私有 clients map - 只在 run() 内访问，无需锁
	clients map[*Client]bool
	// 在线人数镜像，供 Hub 在循环外读取
	clientCount atomic.Int64

	// 事件通道：所有操作都变成消息
	broadcast  chan *RoomBroadcast // 广播消息
	register   chan *Client        // 加入请求
	unregister chan *Client        // 退出请求
	stopChan   chan struct{}       // 停止信号
	stopped    chan struct{}       // 事件循环退出信号（Stop 阻塞等它）

	// 状态锁 - 只用于保护 CurrentState/Version 的并发读写
	stateMu  sync.RWMutex
	stopping bool // 正在关闭标记，受 stateMu 保护

	// 关闭原因，StopWithReason 设置后在关闭帧里带给客户端
	closeCode ErrorCode
	closeMsg  string

	// 刷盘相关
	lastPersistedVersion int64
	flushTicker          *time.Ticker
	docService           DocService

	// 反向引用：房间销毁时通知 Hub
	hub *Hub
}

// RoomBroadcast 广播消息结构
type RoomBroadcast struct {
	Message    []byte
	Sender     *Client
	IsCritical bool
}

// 刷盘配置
const (
	FlushInterval  = 30 * time.Second
	FlushThreshold = 50
)

// NewRoom 创建房间并启动事件循环
func NewRoom(title string, initialState []byte, version int64, docService DocService, hub *Hub) *Room {
	r := &Room{
		Title:                title,
		CurrentState:         initialState,
		Version:              version,
		lastPersistedVersion: version,
		clients:              make(map[*Client]bool),
		broadcast:            make(chan *RoomBroadcast, 256),
		register:             make(chan *Client),
		unregister:           make(chan *Client),
		stopChan:             make(chan struct{}),
		stopped:              make(chan struct{}),
		flushTicker:          time.NewTicker(FlushInterval),
		docService:           docService,
		hub:                  hub,
	}

	go r.run() // 启动房间事件循环

	log.Printf("[Room %s] 🚀 已创建并启动", title)
	return r
}

// run 是房间的主宰，所有逻辑都在这里串行处理，所以 clients map 不需要锁！
func (r *Room) run() {
	defer func() {
		r.flushTicker.Stop()
		r.flushToDB("销毁前")

		// 给还在线的客户端发关闭通知（强制关闭场景）
		if r.closeMsg != "" {
			r.notifyClosing()
		}
		for client := range r.clients {
			delete(r.clients, client)
			close(client.send)
		}
		r.clientCount.Store(0)

		close(r.stopped)
		log.Printf("[Room %s] 🛑 事件循环已停止", r.Title)
	}()

	for {
		select {
		// 1. 处理客户端注册 (无锁！)
		case client := <-r.register:
			r.clients[client] = true
			r.clientCount.Store(int64(len(r.clients)))
			client.Room = r
			r.sendSyncToClient(client)
			log.Printf("[Room %s] 👋 用户 [%s] 加入，当前人数: %d",
				r.Title, client.UserInfo.UserName, len(r.clients))

		// 2. 处理客户端注销 (无锁！)
		case client := <-r.unregister:
			if _, ok := r.clients[client]; ok {
				delete(r.clients, client)
				r.clientCount.Store(int64(len(r.clients)))
				close(client.send)
				log.Printf("[Room %s] 👋 用户 [%s] 离开，剩余人数: %d",
					r.Title, client.UserInfo.UserName, len(r.clients))

				// 房间空了，向 Hub 申请销毁
				if len(r.clients) == 0 && r.hub != nil {
					r.hub.NotifyIdle(r)
				}
			}

		// 3. 处理广播 (核心热路径 - 无锁！)
		case msg := <-r.broadcast:
			for client := range r.clients {
				if msg.Sender != nil && client == msg.Sender {
					continue
				}

				select {
				case client.send <- msg.Message:
					// 发送成功
				default:
					// 缓冲区满
					if msg.IsCritical {
						log.Printf("[Room %s] ⚠️ 关键消息阻塞，踢出 [%s]",
							r.Title, client.UserInfo.UserName)
						delete(r.clients, client)
						r.clientCount.Store(int64(len(r.clients)))
						close(client.send)
					}
					// 非关键消息直接丢弃
				}
			}

		// 4. 定时刷盘
		case <-r.flushTicker.C:
			r.flushToDB("定时")

		// 5. 停止信号
		case <-r.stopChan:
			return
		}
	}
}

// sendSyncToClient 发送全量同步消息给新用户
func (r *Room) sendSyncToClient(client *Client) {
	snapshot, version := r.GetSnapshot()

	// 收集房间内其他用户信息
	users := make([]UserInfo, 0, len(r.clients))
	for c := range r.clients {
		if c != client {
			users = append(users, c.UserInfo)
		}
	}

	syncPayload := SyncPayload{
		Doc:     snapshot,
		Version: version,
		Users:   users,
	}

	payload, _ := json.Marshal(syncPayload)
	msg := WSMessage{
		Type:      TypeSync,
		SenderID:  "server",
		Payload:   payload,
		Timestamp: time.Now().UnixMilli(),
	}

	data, _ := json.Marshal(msg)
	client.send <- data

	log.Printf("[Room %s] 📤 已发送 Sync 给 [%s], 版本: %d",
		r.Title, client.UserInfo.UserName, version)
}

// notifyClosing 向所有客户端广播关闭原因（尽力而为）
func (r *Room) notifyClosing() {
	payload, _ := json.Marshal(ErrorPayload{Code: r.closeCode, Message: r.closeMsg})
	msg := WSMessage{
		Type:      TypeError,
		SenderID:  "server",
		Payload:   payload,
		Timestamp: time.Now().UnixMilli(),
	}
	data, _ := json.Marshal(msg)
	for client := range r.clients {
		select {
		case client.send <- data:
		default:
		}
	}
}

// ========== 对外暴露的接口 ==========

// Register 注册客户端到房间
func (r *Room) Register(client *Client) {
	r.register <- client
}

// Unregister 注销客户端
func (r *Room) Unregister(client *Client) {
	r.unregister <- client
}

// Broadcast 广播消息
func (r *Room) Broadcast(message []byte, sender *Client, isCritical bool) {
	r.broadcast <- &RoomBroadcast{
		Message:    message,
		Sender:     sender,
		IsCritical: isCritical,
	}
}

// ClientCount 当前在线人数（Hub 销毁前双重检查用）
// ⚠️ 近似值：clients map 属于 run() 循环，这里读的是原子镜像
func (r *Room) ClientCount() int {
	return int(r.clientCount.Load())
}

// IsStopping 房间是否正在关闭
func (r *Room) IsStopping() bool {
	r.stateMu.RLock()
	defer r.stateMu.RUnlock()
	return r.stopping
}

// Stop 停止房间（由 Hub 调用，阻塞到刷盘完成）
func (r *Room) Stop() {
	r.stateMu.Lock()
	if r.stopping {
		r.stateMu.Unlock()
		<-r.stopped
		return
	}
	r.stopping = true
	r.stateMu.Unlock()

	close(r.stopChan)
	<-r.stopped
}

// StopWithReason 带原因停止房间（删除文档时调用，阻塞到刷盘完成）
func (r *Room) StopWithReason(code ErrorCode, message string) {
	r.stateMu.Lock()
	r.closeCode = code
	r.closeMsg = message
	r.stateMu.Unlock()

	r.Stop()
}

// ========== 需要锁保护的状态操作 ==========

// ApplyPatch 应用 RFC 6902 Patch（需要锁保护 CurrentState）
func (r *Room) ApplyPatch(patchBytes []byte, expectedVersion int64) error {
	r.stateMu.Lock()
	defer r.stateMu.Unlock()

	if r.Version != expectedVersion {
		return &VersionConflictError{
			CurrentVersion:  r.Version,
			ExpectedVersion: expectedVersion,
		}
	}

	patch, err := jsonpatch.DecodePatch(patchBytes)
	if err != nil {
		return &PatchError{Reason: fmt.Sprintf("patch 解析失败: %v", err)}
	}

	modified, err := patch.Apply(r.CurrentState)
	if err != nil {
		return &PatchError{Reason: fmt.Sprintf("patch 应用失败: %v", err)}
	}

	r.CurrentState = modified
	r.Version++

	// 阈值刷盘
	if r.Version-r.lastPersistedVersion >= FlushThreshold {
		go r.flushToDB("阈值触发")
	}

	return nil
}

// GetSnapshot 获取当前快照
func (r *Room) GetSnapshot() ([]byte, int64) {
	r.stateMu.RLock()
	defer r.stateMu.RUnlock()

	snapshot := make([]byte, len(r.CurrentState))
	copy(snapshot, r.CurrentState)

	return snapshot, r.Version
}

// flushToDB 刷盘（支持版本跳跃：一次写入积累的多个版本）
func (r *Room) flushToDB(reason string) {
	r.stateMu.RLock()
	if r.Version == r.lastPersistedVersion {
		r.stateMu.RUnlock()
		return
	}

	snapshot := make([]byte, len(r.CurrentState))
	copy(snapshot, r.CurrentState)
	version := r.Version
	lastPersisted := r.lastPersistedVersion
	r.stateMu.RUnlock()

	if err := r.docService.SaveDocState(r.Title, snapshot, lastPersisted, version); err != nil {
		log.Printf("[Room %s] ⚠️ %s刷盘失败: %v", r.Title, reason, err)
		return
	}

	r.stateMu.Lock()
	if version > r.lastPersistedVersion {
		r.lastPersistedVersion = version
		log.Printf("[Room %s] ✅ %s刷盘, 版本: %d", r.Title, reason, version)
	}
	r.stateMu.Unlock()
}
