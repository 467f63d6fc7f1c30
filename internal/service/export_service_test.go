package service

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/Manchinn/CSLogbook-sub002/internal/model"
)

func TestExportDefenseSchedule(t *testing.T) {
	store := newMemStore()
	svc := NewExportService(newTestRepo(store), testLogger())

	advisor := store.addUser("อ.สมชาย", "T001", model.RoleAdvisor)
	s1 := store.addUser("นักศึกษา A", "64001", model.RoleStudent)
	project := store.addProject(model.ProjectStatusInProgress, &advisor.UserID)
	store.addMember(project.ProjectID, s1.UserID, model.MemberRoleLeader)

	scheduledAt := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)
	store.requests["def-1"] = &model.DefenseRequest{
		RequestID: "def-1", ProjectID: project.ProjectID,
		DefenseType: model.DefenseTypeProject1, Status: model.DefenseStatusScheduled,
		ScheduledAt: &scheduledAt, Location: "CSB1201",
		SubmittedBy: s1.UserID, VersionedModel: model.VersionedModel{Version: 1},
	}

	from := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC)
	data, filename, err := svc.ExportDefenseSchedule(context.Background(), model.RoleStaff, "", from, to)
	if err != nil {
		t.Fatalf("导出失败: %v", err)
	}
	if filename != "defense_schedule_20261001_20261101.xlsx" {
		t.Errorf("文件名不符: %s", filename)
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("导出内容不是合法 xlsx: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(exportSheet)
	if err != nil {
		t.Fatalf("读取工作表失败: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("期望表头 + 1 行数据，实际=%d 行", len(rows))
	}
	if rows[1][2] != "CSB1201" {
		t.Errorf("期望地点 CSB1201，实际=%s", rows[1][2])
	}
	if rows[1][5] != "Logbook System" {
		t.Errorf("期望英文题目，实际=%s", rows[1][5])
	}
}

func TestExportDefenseSchedule_Forbidden(t *testing.T) {
	store := newMemStore()
	svc := NewExportService(newTestRepo(store), testLogger())

	from := time.Now()
	to := from.Add(24 * time.Hour)
	if _, _, err := svc.ExportDefenseSchedule(context.Background(), model.RoleStudent, "", from, to); !errors.Is(err, ErrExportForbidden) {
		t.Errorf("期望 ErrExportForbidden，实际=%v", err)
	}
	if _, _, err := svc.ExportDefenseSchedule(context.Background(), model.RoleStaff, "", to, from); !errors.Is(err, ErrExportRange) {
		t.Errorf("期望 ErrExportRange，实际=%v", err)
	}
}
