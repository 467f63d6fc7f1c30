package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/Manchinn/CSLogbook-sub002/internal/model"
	"github.com/Manchinn/CSLogbook-sub002/internal/repository"
)

// ── 错误定义 ──

var (
	ErrExportForbidden = errors.New("没有权限导出答辩排期")
	ErrExportRange     = errors.New("导出时间范围无效")
)

// ExportService 答辩排期导出服务接口
type ExportService interface {
	// ExportDefenseSchedule 导出时间窗口内的答辩排期为 xlsx，
	// 返回文件内容与建议文件名
	ExportDefenseSchedule(ctx context.Context, actorRole, defenseType string, from, to time.Time) ([]byte, string, error)
}

type exportService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(repo *repository.Repository, logger *zap.Logger) ExportService {
	return &exportService{repo: repo, logger: logger}
}

const exportSheet = "Defense Schedule"

var exportHeaders = []string{
	"ลำดับ", "วันเวลาสอบ", "สถานที่", "ประเภท",
	"ชื่อโครงงาน (TH)", "ชื่อโครงงาน (EN)", "สมาชิก", "อาจารย์ที่ปรึกษา",
}

func (s *exportService) ExportDefenseSchedule(ctx context.Context, actorRole, defenseType string, from, to time.Time) ([]byte, string, error) {
	if actorRole != model.RoleStaff && actorRole != model.RoleAdmin {
		return nil, "", ErrExportForbidden
	}
	if !to.After(from) {
		return nil, "", ErrExportRange
	}

	requests, err := s.repo.DefenseRequest.ListScheduled(ctx, defenseType, from, to)
	if err != nil {
		return nil, "", fmt.Errorf("查询排期失败: %w", err)
	}

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			s.logger.Warn("关闭导出文件失败", zap.Error(err))
		}
	}()

	index, err := f.NewSheet(exportSheet)
	if err != nil {
		return nil, "", err
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	for col, header := range exportHeaders {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellValue(exportSheet, cell, header); err != nil {
			return nil, "", err
		}
	}

	for i, request := range requests {
		project, err := s.repo.Project.GetByID(ctx, request.ProjectID)
		if err != nil {
			s.logger.Warn("导出时加载项目失败",
				zap.String("project_id", request.ProjectID), zap.Error(err))
			continue
		}

		memberNames := make([]string, 0, len(project.Members))
		for j := range project.Members {
			if project.Members[j].Student != nil {
				memberNames = append(memberNames, project.Members[j].Student.Name)
			}
		}
		advisorName := ""
		if project.Advisor != nil {
			advisorName = project.Advisor.Name
		}

		row := []interface{}{
			i + 1,
			request.ScheduledAt.Format("2006-01-02 15:04"),
			request.Location,
			request.DefenseType,
			project.TitleTH,
			project.TitleEN,
			strings.Join(memberNames, ", "),
			advisorName,
		}
		for col, value := range row {
			cell, _ := excelize.CoordinatesToCellName(col+1, i+2)
			if err := f.SetCellValue(exportSheet, cell, value); err != nil {
				return nil, "", err
			}
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, "", fmt.Errorf("写出导出文件失败: %w", err)
	}

	filename := fmt.Sprintf("defense_schedule_%s_%s.xlsx",
		from.Format("20060102"), to.Format("20060102"))
	return buf.Bytes(), filename, nil
}
