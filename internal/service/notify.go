package service

import (
	"context"
	"fmt"
	"time"

	ics "github.com/arran4/golang-ical"
	"go.uber.org/zap"

	"github.com/Manchinn/CSLogbook-sub002/internal/model"
)

// ── 通知协作方 ──
//
// 通知投递是外部协作方：本服务只调用 Notify，投递失败绝不
// 使核心事务失败（fire-and-forget）。

// Notification 一条待投递的通知
type Notification struct {
	Recipients []string // 收件人邮箱
	Subject    string
	Body       string
	ICSInvite  []byte // 可选的日历邀请附件（答辩排期）
}

// Notifier 通知协作方接口
type Notifier interface {
	Notify(ctx context.Context, n *Notification) error
}

// NopNotifier 空实现 — 未配置通知通道时使用
type NopNotifier struct{}

// Notify 丢弃通知
func (NopNotifier) Notify(_ context.Context, _ *Notification) error { return nil }

// bestEffortNotifier 尽力而为包装器：投递失败只记日志不上抛
type bestEffortNotifier struct {
	inner  Notifier
	logger *zap.Logger
}

// NewBestEffortNotifier 包装任意 Notifier 为尽力而为语义
func NewBestEffortNotifier(inner Notifier, logger *zap.Logger) Notifier {
	if inner == nil {
		inner = NopNotifier{}
	}
	return &bestEffortNotifier{inner: inner, logger: logger}
}

func (n *bestEffortNotifier) Notify(ctx context.Context, notification *Notification) error {
	if err := n.inner.Notify(ctx, notification); err != nil {
		n.logger.Warn("通知投递失败（已忽略）",
			zap.String("subject", notification.Subject),
			zap.Int("recipients", len(notification.Recipients)),
			zap.Error(err))
	}
	return nil
}

// ── 答辩日历邀请 ──

const defenseDefaultDuration = time.Hour

// buildDefenseInvite 为已排期的答辩生成 iCalendar 邀请内容
func buildDefenseInvite(project *model.Project, request *model.DefenseRequest) ([]byte, error) {
	if request.ScheduledAt == nil {
		return nil, fmt.Errorf("答辩尚未排期")
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodRequest)
	cal.SetProductId("-//CSLogbook//Defense Scheduler//TH")

	event := cal.AddEvent(fmt.Sprintf("defense-%s@cslogbook", request.RequestID))
	event.SetCreatedTime(time.Now())
	event.SetDtStampTime(time.Now())
	event.SetStartAt(*request.ScheduledAt)
	event.SetEndAt(request.ScheduledAt.Add(defenseDefaultDuration))
	event.SetLocation(request.Location)

	title := project.TitleTH
	if title == "" {
		title = project.TitleEN
	}
	if request.DefenseType == model.DefenseTypeThesis {
		event.SetSummary(fmt.Sprintf("สอบป้องกันปริญญานิพนธ์: %s", title))
	} else {
		event.SetSummary(fmt.Sprintf("สอบหัวข้อโครงงานพิเศษ: %s", title))
	}
	event.SetDescription(fmt.Sprintf("Project: %s / %s", project.TitleTH, project.TitleEN))

	return []byte(cal.Serialize()), nil
}

// ── 资格协作方 ──

// EligibilityChecker 资格协作方接口：学生能否建立/注册项目
// 由外部系统（学分、注册状态）判定，本服务直接信任其结论
type EligibilityChecker interface {
	CanRegister(ctx context.Context, studentID string) (bool, error)
}

// AllowAllEligibility 默认实现：全部放行（资格判定停用时使用）
type AllowAllEligibility struct{}

// CanRegister 恒为 true
func (AllowAllEligibility) CanRegister(_ context.Context, _ string) (bool, error) { return true, nil }
