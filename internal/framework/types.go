package framework

// Message 消息结构（框架内部流转）
type Message struct {
	ID      string // 消息 ID（广播通道没有消息 ID，由框架生成）
	Channel string // 通道/队列名称
	Data    []byte // 原始消息数据
}
