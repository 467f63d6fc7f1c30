package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Manchinn/CSLogbook-sub002/internal/model"
	"github.com/Manchinn/CSLogbook-sub002/internal/repository"
	pkgerrors "github.com/Manchinn/CSLogbook-sub002/pkg/errors"
)

// memStore 内存数据存储 — 所有 mock repository 共享同一份数据
type memStore struct {
	seq          int
	users        map[string]*model.User
	projects     map[string]*model.Project
	members      []*model.ProjectMember
	meetings     map[string]*model.Meeting
	participants []*model.MeetingParticipant
	logs         map[string]*model.MeetingLog
	requests     map[string]*model.DefenseRequest
	examResults  []*model.ExamResult
	activities   []*model.WorkflowActivity

	// 错误注入（聚合降级测试用）
	meetingErr     error
	participantErr error
	logErr         error
}

func newMemStore() *memStore {
	return &memStore{
		users:    make(map[string]*model.User),
		projects: make(map[string]*model.Project),
		meetings: make(map[string]*model.Meeting),
		logs:     make(map[string]*model.MeetingLog),
		requests: make(map[string]*model.DefenseRequest),
	}
}

func (s *memStore) newID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%04d", prefix, s.seq)
}

// newTestRepo 构造绑定到内存存储的 Repository。
// db 为 nil，BeginTx 返回空事务，WithTx 原样返回
func newTestRepo(store *memStore) *repository.Repository {
	return &repository.Repository{
		User:             &mockUserRepo{store},
		Project:          &mockProjectRepo{store},
		Member:           &mockMemberRepo{store},
		Meeting:          &mockMeetingRepo{store},
		Participant:      &mockParticipantRepo{store},
		MeetingLog:       &mockMeetingLogRepo{store},
		DefenseRequest:   &mockDefenseRequestRepo{store},
		ExamResult:       &mockExamResultRepo{store},
		WorkflowActivity: &mockWorkflowActivityRepo{store},
	}
}

func testLogger() *zap.Logger { return zap.NewNop() }

// ── 测试数据构造辅助 ──

func (s *memStore) addUser(name, code, role string) *model.User {
	u := &model.User{
		UserID:                 s.newID("user"),
		Name:                   name,
		StudentCode:            code,
		Email:                  code + "@example.ac.th",
		Role:                   role,
		ProjectLifecycleStatus: model.LifecycleNotStarted,
	}
	s.users[u.UserID] = u
	return u
}

func (s *memStore) addProject(status string, advisorID *string) *model.Project {
	p := &model.Project{
		ProjectID:    s.newID("proj"),
		TitleTH:      "ระบบสมุดบันทึก",
		TitleEN:      "Logbook System",
		Status:       status,
		AdvisorID:    advisorID,
		AcademicYear: 2568,
		Semester:     1,
	}
	s.projects[p.ProjectID] = p
	return p
}

func (s *memStore) addMember(projectID, studentID, role string) *model.ProjectMember {
	m := &model.ProjectMember{
		MemberID:  s.newID("member"),
		ProjectID: projectID,
		StudentID: studentID,
		Role:      role,
	}
	s.members = append(s.members, m)
	return m
}

// addApprovedLogs 为学生构造 n 次已出席会议，每次会议一条已批准记录
func (s *memStore) addApprovedLogs(projectID, advisorID, studentID, phase string, n int) {
	base := time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		meeting := &model.Meeting{
			MeetingID: s.newID("meeting"),
			ProjectID: projectID,
			Phase:     phase,
			Topic:     fmt.Sprintf("ครั้งที่ %d", i+1),
			MeetingAt: base.AddDate(0, 0, 7*i),
			AdvisorID: advisorID,
		}
		s.meetings[meeting.MeetingID] = meeting
		s.participants = append(s.participants, &model.MeetingParticipant{
			ParticipantID:    s.newID("part"),
			MeetingID:        meeting.MeetingID,
			UserID:           studentID,
			AttendanceStatus: model.AttendancePresent,
		})
		approvedAt := meeting.MeetingAt.Add(2 * time.Hour)
		log := &model.MeetingLog{
			LogID:          s.newID("log"),
			MeetingID:      meeting.MeetingID,
			Content:        "บันทึกการประชุม",
			ApprovalStatus: model.LogApprovalApproved,
			ApprovedAt:     &approvedAt,
			SubmittedBy:    studentID,
		}
		s.logs[log.LogID] = log
	}
}

// ── UserRepository ──

type mockUserRepo struct{ store *memStore }

func (r *mockUserRepo) Create(_ context.Context, user *model.User) error {
	if user.UserID == "" {
		user.UserID = r.store.newID("user")
	}
	r.store.users[user.UserID] = user
	return nil
}

func (r *mockUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	u, ok := r.store.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *mockUserRepo) GetByStudentCode(_ context.Context, code string) (*model.User, error) {
	for _, u := range r.store.users {
		if u.StudentCode == code {
			cp := *u
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *mockUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range r.store.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *mockUserRepo) ListByIDs(_ context.Context, ids []string) ([]model.User, error) {
	var users []model.User
	for _, id := range ids {
		if u, ok := r.store.users[id]; ok {
			users = append(users, *u)
		}
	}
	return users, nil
}

func (r *mockUserRepo) Update(_ context.Context, user *model.User) error {
	if _, ok := r.store.users[user.UserID]; !ok {
		return gorm.ErrRecordNotFound
	}
	cp := *user
	r.store.users[user.UserID] = &cp
	return nil
}

func (r *mockUserRepo) UpdateLifecycleFlags(_ context.Context, userID string, enrolled bool, status string) error {
	u, ok := r.store.users[userID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	u.ProjectEnrolled = enrolled
	u.ProjectLifecycleStatus = status
	return nil
}

// ── ProjectRepository ──

type mockProjectRepo struct{ store *memStore }

func (r *mockProjectRepo) Create(_ context.Context, project *model.Project) error {
	if project.ProjectID == "" {
		project.ProjectID = r.store.newID("proj")
	}
	cp := *project
	r.store.projects[project.ProjectID] = &cp
	return nil
}

// assemble 组装关联（模拟 Preload）
func (r *mockProjectRepo) assemble(p *model.Project) *model.Project {
	cp := *p
	cp.Members = nil
	cp.DefenseRequests = nil
	cp.ExamResults = nil
	for _, m := range r.store.members {
		if m.ProjectID == p.ProjectID {
			mc := *m
			if student, ok := r.store.users[m.StudentID]; ok {
				sc := *student
				mc.Student = &sc
			}
			cp.Members = append(cp.Members, mc)
		}
	}
	sort.Slice(cp.Members, func(i, j int) bool { return cp.Members[i].Role < cp.Members[j].Role })
	for _, req := range r.store.requests {
		if req.ProjectID == p.ProjectID {
			cp.DefenseRequests = append(cp.DefenseRequests, *req)
		}
	}
	for _, res := range r.store.examResults {
		if res.ProjectID == p.ProjectID {
			cp.ExamResults = append(cp.ExamResults, *res)
		}
	}
	if p.AdvisorID != nil {
		if advisor, ok := r.store.users[*p.AdvisorID]; ok {
			ac := *advisor
			cp.Advisor = &ac
		}
	}
	return &cp
}

func (r *mockProjectRepo) GetByID(_ context.Context, id string) (*model.Project, error) {
	p, ok := r.store.projects[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return r.assemble(p), nil
}

func (r *mockProjectRepo) GetByIDForUpdate(ctx context.Context, id string) (*model.Project, error) {
	return r.GetByID(ctx, id)
}

func (r *mockProjectRepo) Update(_ context.Context, project *model.Project) error {
	stored, ok := r.store.projects[project.ProjectID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	stored.TitleTH = project.TitleTH
	stored.TitleEN = project.TitleEN
	stored.Status = project.Status
	stored.ExamResult = project.ExamResult
	stored.ExamResultAt = project.ExamResultAt
	stored.StudentAcknowledgedAt = project.StudentAcknowledgedAt
	stored.AdvisorID = project.AdvisorID
	stored.CoAdvisorID = project.CoAdvisorID
	stored.AcademicYear = project.AcademicYear
	stored.Semester = project.Semester
	stored.ArchivedAt = project.ArchivedAt
	stored.UpdatedBy = project.UpdatedBy
	return nil
}

func (r *mockProjectRepo) ListActiveByStudent(_ context.Context, studentID string) ([]model.Project, error) {
	var projects []model.Project
	for _, m := range r.store.members {
		if m.StudentID != studentID {
			continue
		}
		if p, ok := r.store.projects[m.ProjectID]; ok && p.Status != model.ProjectStatusArchived {
			projects = append(projects, *p)
		}
	}
	return projects, nil
}

func (r *mockProjectRepo) ListUnacknowledgedFailedByStudent(_ context.Context, studentID string) ([]model.Project, error) {
	var projects []model.Project
	for _, m := range r.store.members {
		if m.StudentID != studentID {
			continue
		}
		p, ok := r.store.projects[m.ProjectID]
		if !ok {
			continue
		}
		if p.Status == model.ProjectStatusArchived &&
			p.ExamResult != nil && *p.ExamResult == model.ProjectExamFailed &&
			p.StudentAcknowledgedAt == nil {
			projects = append(projects, *p)
		}
	}
	return projects, nil
}

// ── MemberRepository ──

type mockMemberRepo struct{ store *memStore }

func (r *mockMemberRepo) Create(_ context.Context, member *model.ProjectMember) error {
	if member.MemberID == "" {
		member.MemberID = r.store.newID("member")
	}
	cp := *member
	r.store.members = append(r.store.members, &cp)
	return nil
}

func (r *mockMemberRepo) GetByProjectAndStudent(_ context.Context, projectID, studentID string) (*model.ProjectMember, error) {
	for _, m := range r.store.members {
		if m.ProjectID == projectID && m.StudentID == studentID {
			cp := *m
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *mockMemberRepo) ListByProject(_ context.Context, projectID string) ([]model.ProjectMember, error) {
	var members []model.ProjectMember
	for _, m := range r.store.members {
		if m.ProjectID == projectID {
			members = append(members, *m)
		}
	}
	return members, nil
}

func (r *mockMemberRepo) ListByStudentForUpdate(_ context.Context, studentID string) ([]model.ProjectMember, error) {
	var members []model.ProjectMember
	for _, m := range r.store.members {
		if m.StudentID == studentID {
			members = append(members, *m)
		}
	}
	return members, nil
}

func (r *mockMemberRepo) CountActiveByStudent(_ context.Context, studentID string) (int64, error) {
	var count int64
	for _, m := range r.store.members {
		if m.StudentID != studentID {
			continue
		}
		if p, ok := r.store.projects[m.ProjectID]; ok && p.Status != model.ProjectStatusArchived {
			count++
		}
	}
	return count, nil
}

// ── MeetingRepository ──

type mockMeetingRepo struct{ store *memStore }

func (r *mockMeetingRepo) Create(_ context.Context, meeting *model.Meeting) error {
	if meeting.MeetingID == "" {
		meeting.MeetingID = r.store.newID("meeting")
	}
	cp := *meeting
	r.store.meetings[meeting.MeetingID] = &cp
	return nil
}

func (r *mockMeetingRepo) GetByID(_ context.Context, id string) (*model.Meeting, error) {
	m, ok := r.store.meetings[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *m
	for _, p := range r.store.participants {
		if p.MeetingID == id {
			cp.Participants = append(cp.Participants, *p)
		}
	}
	for _, l := range r.store.logs {
		if l.MeetingID == id {
			cp.Logs = append(cp.Logs, *l)
		}
	}
	return &cp, nil
}

func (r *mockMeetingRepo) ListByProject(_ context.Context, projectID string, phases ...string) ([]model.Meeting, error) {
	if r.store.meetingErr != nil {
		return nil, r.store.meetingErr
	}
	var meetings []model.Meeting
	for _, m := range r.store.meetings {
		if m.ProjectID != projectID {
			continue
		}
		if len(phases) > 0 {
			matched := false
			for _, phase := range phases {
				if m.Phase == phase {
					matched = true
					break
				}
			}
			if !matched {
				continue
			}
		}
		meetings = append(meetings, *m)
	}
	sort.Slice(meetings, func(i, j int) bool { return meetings[i].MeetingAt.Before(meetings[j].MeetingAt) })
	return meetings, nil
}

// ── ParticipantRepository ──

type mockParticipantRepo struct{ store *memStore }

func (r *mockParticipantRepo) BatchCreate(_ context.Context, participants []model.MeetingParticipant) error {
	for i := range participants {
		p := participants[i]
		if p.ParticipantID == "" {
			p.ParticipantID = r.store.newID("part")
		}
		r.store.participants = append(r.store.participants, &p)
	}
	return nil
}

func (r *mockParticipantRepo) Upsert(_ context.Context, participant *model.MeetingParticipant) error {
	for _, p := range r.store.participants {
		if p.MeetingID == participant.MeetingID && p.UserID == participant.UserID {
			p.AttendanceStatus = participant.AttendanceStatus
			return nil
		}
	}
	cp := *participant
	cp.ParticipantID = r.store.newID("part")
	r.store.participants = append(r.store.participants, &cp)
	return nil
}

func (r *mockParticipantRepo) ListAttending(_ context.Context, meetingIDs, userIDs []string) ([]model.MeetingParticipant, error) {
	if r.store.participantErr != nil {
		return nil, r.store.participantErr
	}
	inSet := func(values []string, v string) bool {
		for _, candidate := range values {
			if candidate == v {
				return true
			}
		}
		return false
	}
	var participants []model.MeetingParticipant
	for _, p := range r.store.participants {
		if inSet(meetingIDs, p.MeetingID) && inSet(userIDs, p.UserID) &&
			p.AttendanceStatus != model.AttendanceAbsent {
			participants = append(participants, *p)
		}
	}
	return participants, nil
}

// ── MeetingLogRepository ──

type mockMeetingLogRepo struct{ store *memStore }

func (r *mockMeetingLogRepo) Create(_ context.Context, log *model.MeetingLog) error {
	if log.LogID == "" {
		log.LogID = r.store.newID("log")
	}
	cp := *log
	r.store.logs[log.LogID] = &cp
	return nil
}

func (r *mockMeetingLogRepo) GetByID(_ context.Context, id string) (*model.MeetingLog, error) {
	l, ok := r.store.logs[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *l
	return &cp, nil
}

func (r *mockMeetingLogRepo) Update(_ context.Context, log *model.MeetingLog) error {
	if _, ok := r.store.logs[log.LogID]; !ok {
		return gorm.ErrRecordNotFound
	}
	cp := *log
	r.store.logs[log.LogID] = &cp
	return nil
}

func (r *mockMeetingLogRepo) ListApprovedByMeetings(_ context.Context, meetingIDs []string) ([]model.MeetingLog, error) {
	if r.store.logErr != nil {
		return nil, r.store.logErr
	}
	var logs []model.MeetingLog
	for _, l := range r.store.logs {
		if l.ApprovalStatus != model.LogApprovalApproved {
			continue
		}
		for _, id := range meetingIDs {
			if l.MeetingID == id {
				logs = append(logs, *l)
				break
			}
		}
	}
	// 按批准时间倒序
	sort.Slice(logs, func(i, j int) bool {
		return logs[i].ApprovedAt.After(*logs[j].ApprovedAt)
	})
	return logs, nil
}

func (r *mockMeetingLogRepo) ListByMeeting(_ context.Context, meetingID string) ([]model.MeetingLog, error) {
	var logs []model.MeetingLog
	for _, l := range r.store.logs {
		if l.MeetingID == meetingID {
			logs = append(logs, *l)
		}
	}
	return logs, nil
}

// ── DefenseRequestRepository ──

type mockDefenseRequestRepo struct{ store *memStore }

func (r *mockDefenseRequestRepo) Create(_ context.Context, request *model.DefenseRequest) error {
	if request.RequestID == "" {
		request.RequestID = r.store.newID("def")
	}
	if request.Version == 0 {
		request.Version = 1
	}
	cp := *request
	r.store.requests[request.RequestID] = &cp
	return nil
}

func (r *mockDefenseRequestRepo) GetByID(_ context.Context, id string) (*model.DefenseRequest, error) {
	req, ok := r.store.requests[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *req
	return &cp, nil
}

func (r *mockDefenseRequestRepo) GetByIDForUpdate(ctx context.Context, id string) (*model.DefenseRequest, error) {
	return r.GetByID(ctx, id)
}

func (r *mockDefenseRequestRepo) GetActiveByProjectAndType(_ context.Context, projectID, defenseType string) (*model.DefenseRequest, error) {
	for _, req := range r.store.requests {
		if req.ProjectID == projectID && req.DefenseType == defenseType &&
			req.Status != model.DefenseStatusCancelled {
			cp := *req
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *mockDefenseRequestRepo) ListByProject(_ context.Context, projectID string) ([]model.DefenseRequest, error) {
	var requests []model.DefenseRequest
	for _, req := range r.store.requests {
		if req.ProjectID == projectID {
			requests = append(requests, *req)
		}
	}
	return requests, nil
}

func (r *mockDefenseRequestRepo) ListScheduled(_ context.Context, defenseType string, from, to time.Time) ([]model.DefenseRequest, error) {
	var requests []model.DefenseRequest
	for _, req := range r.store.requests {
		if req.Status != model.DefenseStatusScheduled || req.ScheduledAt == nil {
			continue
		}
		if defenseType != "" && req.DefenseType != defenseType {
			continue
		}
		if req.ScheduledAt.Before(from) || !req.ScheduledAt.Before(to) {
			continue
		}
		requests = append(requests, *req)
	}
	sort.Slice(requests, func(i, j int) bool {
		return requests[i].ScheduledAt.Before(*requests[j].ScheduledAt)
	})
	return requests, nil
}

// Update 模拟乐观锁：版本不匹配返回 ErrOptimisticLock
func (r *mockDefenseRequestRepo) Update(_ context.Context, request *model.DefenseRequest) error {
	stored, ok := r.store.requests[request.RequestID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if stored.Version != request.Version {
		return pkgerrors.ErrOptimisticLock
	}
	cp := *request
	cp.Version = request.Version + 1
	r.store.requests[request.RequestID] = &cp
	request.Version = cp.Version
	return nil
}

// ── ExamResultRepository ──

type mockExamResultRepo struct{ store *memStore }

func (r *mockExamResultRepo) Create(_ context.Context, result *model.ExamResult) error {
	if result.ResultID == "" {
		result.ResultID = r.store.newID("exam")
	}
	cp := *result
	r.store.examResults = append(r.store.examResults, &cp)
	return nil
}

func (r *mockExamResultRepo) GetByProjectAndType(_ context.Context, projectID, examType string) (*model.ExamResult, error) {
	for _, res := range r.store.examResults {
		if res.ProjectID == projectID && res.ExamType == examType {
			cp := *res
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *mockExamResultRepo) ListByProject(_ context.Context, projectID string) ([]model.ExamResult, error) {
	var results []model.ExamResult
	for _, res := range r.store.examResults {
		if res.ProjectID == projectID {
			results = append(results, *res)
		}
	}
	return results, nil
}

func (r *mockExamResultRepo) Update(_ context.Context, result *model.ExamResult) error {
	for i, res := range r.store.examResults {
		if res.ResultID == result.ResultID {
			cp := *result
			r.store.examResults[i] = &cp
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

// ── WorkflowActivityRepository ──

type mockWorkflowActivityRepo struct{ store *memStore }

func (r *mockWorkflowActivityRepo) GetByStudentAndType(_ context.Context, studentID, workflowType string) (*model.WorkflowActivity, error) {
	for _, a := range r.store.activities {
		if a.StudentID == studentID && a.WorkflowType == workflowType {
			cp := *a
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *mockWorkflowActivityRepo) ListByStudent(_ context.Context, studentID string) ([]model.WorkflowActivity, error) {
	var activities []model.WorkflowActivity
	for _, a := range r.store.activities {
		if a.StudentID == studentID {
			activities = append(activities, *a)
		}
	}
	return activities, nil
}

func (r *mockWorkflowActivityRepo) Create(_ context.Context, activity *model.WorkflowActivity) error {
	if activity.ActivityID == "" {
		activity.ActivityID = r.store.newID("act")
	}
	cp := *activity
	r.store.activities = append(r.store.activities, &cp)
	return nil
}

func (r *mockWorkflowActivityRepo) Update(_ context.Context, activity *model.WorkflowActivity) error {
	for i, a := range r.store.activities {
		if a.ActivityID == activity.ActivityID {
			cp := *activity
			r.store.activities[i] = &cp
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}
