// Package access 计算每个请求的访问策略。
//
// 策略在认证之后由中间件一次性算出并交给服务层，服务层据此判断
// 调用者能否查看课程内容。教师的课程集合只用于列表类读取，
// 修改操作的所有权判断始终以课程记录上的 teacher_id 为准。
package access

import (
	"manhaj_backend/internal/model"
)

type Policy struct {
	UserID uint
	Role   model.UserRole

	owned    map[uint]struct{}
	enrolled map[uint]struct{}
}

// Anonymous 未登录调用者
func Anonymous() *Policy {
	return &Policy{}
}

// New 构造策略。owned 为教师拥有的课程，enrolled 为学生状态为 confirmed/free 的课程
func New(userID uint, role model.UserRole, owned, enrolled []uint) *Policy {
	p := &Policy{
		UserID:   userID,
		Role:     role,
		owned:    make(map[uint]struct{}, len(owned)),
		enrolled: make(map[uint]struct{}, len(enrolled)),
	}
	for _, id := range owned {
		p.owned[id] = struct{}{}
	}
	for _, id := range enrolled {
		p.enrolled[id] = struct{}{}
	}
	return p
}

func (p *Policy) Authenticated() bool {
	return p != nil && p.UserID != 0
}

func (p *Policy) IsSuperAdmin() bool {
	return p.Authenticated() && p.Role == model.SuperAdmin
}

func (p *Policy) IsTeacher() bool {
	return p.Authenticated() && p.Role == model.Teacher
}

func (p *Policy) IsStudent() bool {
	return p.Authenticated() && p.Role == model.Student
}

// OwnsCourse 教师且为课程的创建者
func (p *Policy) OwnsCourse(course *model.Course) bool {
	return p.IsTeacher() && course.TeacherID == p.UserID
}

// CanManageCourse 课程所有者或超级管理员
func (p *Policy) CanManageCourse(course *model.Course) bool {
	return p.IsSuperAdmin() || p.OwnsCourse(course)
}

// IsEnrolled 学生的报名状态允许观看
func (p *Policy) IsEnrolled(courseID uint) bool {
	if !p.IsStudent() {
		return false
	}
	_, ok := p.enrolled[courseID]
	return ok
}

// CanViewContent 超级管理员、课程所有者、或报名状态为 confirmed/free 的学生
func (p *Policy) CanViewContent(course *model.Course) bool {
	switch {
	case p.IsSuperAdmin():
		return true
	case p.IsTeacher():
		return p.OwnsCourse(course)
	case p.IsStudent():
		return p.IsEnrolled(course.ID)
	}
	return false
}

// OwnedCourseIDs 请求开始时教师拥有的课程
func (p *Policy) OwnedCourseIDs() []uint {
	ids := make([]uint, 0, len(p.owned))
	for id := range p.owned {
		ids = append(ids, id)
	}
	return ids
}

// Grant 在同一请求中授予新的访问权，例如免费课程报名之后
func (p *Policy) Grant(courseID uint) {
	if p.enrolled == nil {
		p.enrolled = make(map[uint]struct{})
	}
	p.enrolled[courseID] = struct{}{}
}
