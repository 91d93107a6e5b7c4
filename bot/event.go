package bot

// EventKind 入站事件类型
type EventKind string

const (
	KindCommand   EventKind = "command"
	KindText      EventKind = "text"
	KindSelection EventKind = "selection"
)

// Event 已解码的入站事件，与聊天平台的报文格式无关
type Event struct {
	ID          string    `json:"id"`
	IdentityID  int64     `json:"identity_id" binding:"required"`
	DisplayName string    `json:"display_name"`
	Username    string    `json:"username"`
	Kind        EventKind `json:"kind" binding:"required,oneof=command text selection"`
	Payload     string    `json:"payload"`
}

// Outcome 事件处理结果分类
type Outcome string

const (
	OutcomeOK               Outcome = "ok"
	OutcomeValidationFailed Outcome = "validation_failed"
	OutcomeNotFound         Outcome = "not_found"
	OutcomeDenied           Outcome = "denied"
	OutcomeStorageFailed    Outcome = "storage_failed"
	OutcomeConflict         Outcome = "conflict"
)

// Option 供调用方渲染为按钮的选项，选中后以 selection 事件回传 Value
type Option struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Response 出站响应：纯文本加可选项
type Response struct {
	Text    string   `json:"text"`
	Options []Option `json:"options,omitempty"`
	Outcome Outcome  `json:"outcome"`
}

func ok(text string, opts []Option) Response {
	return Response{Text: text, Options: opts, Outcome: OutcomeOK}
}
