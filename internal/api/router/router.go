package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Manchinn/CSLogbook-sub002/config"
	"github.com/Manchinn/CSLogbook-sub002/internal/api/handler"
	"github.com/Manchinn/CSLogbook-sub002/internal/api/middleware"
	"github.com/Manchinn/CSLogbook-sub002/pkg/jwt"
	"github.com/Manchinn/CSLogbook-sub002/pkg/redis"
)

// 请求体大小上限（答辩申请附件以路径引用，正文不应超过 1 MiB）
const maxBodyBytes = 1 << 20

// Setup 初始化并返回 Gin 路由引擎
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, rdb *redis.Client, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(maxBodyBytes))

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 认证模块（无需认证）
		auth := v1.Group("/auth")
		{
			auth.POST("/login", middleware.RateLimit(rdb, 10, time.Minute), h.Auth.Login)
			auth.POST("/refresh", h.Auth.RefreshToken)
		}

		// 需要认证的路由
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(jwtMgr, rdb))
		{
			// 认证模块（需要认证）
			authorized.POST("/auth/logout", h.Auth.Logout)
			authorized.GET("/auth/me", h.Auth.GetCurrentUser)

			// 项目模块
			projects := authorized.Group("/projects")
			{
				projects.POST("", middleware.RoleAuth("student"), h.Project.Create)
				projects.GET("/mine", middleware.RoleAuth("student"), h.Project.ListMine)
				projects.GET("/:id", h.Project.Get)
				projects.PUT("/:id", h.Project.Update) // 成员或系办（Service 层鉴权）
				projects.POST("/:id/members", middleware.RoleAuth("student"), h.Project.AddMember)
				projects.POST("/:id/activate", middleware.RoleAuth("staff", "admin"), h.Project.Activate)
				projects.POST("/:id/archive", middleware.RoleAuth("staff", "admin"), h.Project.Archive)
				projects.POST("/:id/exam-results", middleware.RoleAuth("staff", "admin"), h.Project.RecordExamResult)
				projects.POST("/:id/exam-results/acknowledge", middleware.RoleAuth("student"), h.Project.AcknowledgeExamResult)
				projects.POST("/:id/defense-requests", middleware.RoleAuth("student"), h.Defense.Submit)
				projects.GET("/:id/meetings", h.Meeting.ListByProject)
			}

			// 答辩申请模块
			defenseRequests := authorized.Group("/defense-requests")
			{
				defenseRequests.GET("/:id", h.Defense.Get)
				defenseRequests.PUT("/:id", middleware.RoleAuth("student"), h.Defense.Amend)
				defenseRequests.POST("/:id/advisor-decision", middleware.RoleAuth("advisor"), h.Defense.AdvisorDecision)
				defenseRequests.POST("/:id/staff-verify", middleware.RoleAuth("staff", "admin"), h.Defense.StaffVerify)
				defenseRequests.POST("/:id/schedule", middleware.RoleAuth("staff", "admin"), h.Defense.Schedule)
				defenseRequests.POST("/:id/cancel", h.Defense.Cancel) // 提交人或系办（Service 层鉴权）
			}

			// 指导会议模块
			meetings := authorized.Group("/meetings")
			{
				meetings.POST("", middleware.RoleAuth("advisor"), h.Meeting.CreateMeeting)
				meetings.GET("/:id", h.Meeting.GetMeeting)
				meetings.PUT("/:id/attendance", middleware.RoleAuth("advisor"), h.Meeting.RecordAttendance)
				meetings.POST("/:id/logs", middleware.RoleAuth("student"), h.Meeting.SubmitLog)
			}
			authorized.POST("/meeting-logs/:id/approve", middleware.RoleAuth("advisor"), h.Meeting.ApproveLog)

			// 工作流进度模块
			authorized.GET("/workflows/me", middleware.RoleAuth("student"), h.Workflow.GetMyActivities)
			authorized.GET("/students/:id/workflows", middleware.RoleAuth("advisor", "staff", "admin"), h.Workflow.GetStudentActivities)

			// 导出模块
			export := authorized.Group("/export")
			{
				export.GET("/defense-schedule", middleware.RoleAuth("staff", "admin"), h.Export.ExportDefenseSchedule)
			}
		}
	}

	return r
}
