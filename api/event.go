package api

import (
	"context"

	"budgetbot/bot"
	"budgetbot/logger"
	"budgetbot/middleware"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Dispatcher 处理已解码的入站事件
type Dispatcher interface {
	Dispatch(ctx context.Context, ev bot.Event) bot.Response
}

// EventHandler 网关事件入口
type EventHandler struct {
	dispatcher Dispatcher
}

// NewEventHandler 创建事件处理器
func NewEventHandler(d Dispatcher) *EventHandler {
	return &EventHandler{dispatcher: d}
}

// EventResult 事件处理结果
type EventResult struct {
	EventID  string       `json:"event_id"`
	Response bot.Response `json:"response"`
}

// Handle 处理一个入站事件
// @Summary 提交聊天事件
// @Description 网关把聊天平台的命令、文本或按钮选择解码后提交，返回需要回复给用户的文本和选项。业务结果通过 outcome 区分，HTTP 状态码只反映请求本身是否合法
// @Tags 事件
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body bot.Event true "入站事件"
// @Success 200 {object} Response{data=EventResult} "处理完成"
// @Failure 400 {object} Response "请求参数错误"
// @Failure 401 {object} Response "未授权"
// @Failure 429 {object} Response "请求过于频繁"
// @Router /api/v1/events [post]
func (h *EventHandler) Handle(c *gin.Context) {
	var ev bot.Event
	if err := c.ShouldBindJSON(&ev); err != nil {
		BadRequest(c, "参数错误: "+SafeErrorMessage(err, "事件格式不正确"))
		return
	}
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	logger.Get().Debug("收到事件",
		zap.String("event_id", ev.ID),
		zap.String("client", middleware.GetCurrentClient(c)),
		zap.Int64("identity_id", ev.IdentityID),
	)

	resp := h.dispatcher.Dispatch(c.Request.Context(), ev)
	Success(c, EventResult{EventID: ev.ID, Response: resp})
}
