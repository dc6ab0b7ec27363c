package access

import (
	"manhaj_backend/internal/model"

	"github.com/gin-gonic/gin"
)

const contextKey = "policy"

type CourseIDSource interface {
	IDsByTeacher(teacherID uint) ([]uint, error)
}

type EnrollmentSource interface {
	AccessibleCourseIDs(studentID uint) ([]uint, error)
}

// Loader 从数据库计算策略
type Loader struct {
	Courses     CourseIDSource
	Enrollments EnrollmentSource
}

func NewLoader(courses CourseIDSource, enrollments EnrollmentSource) *Loader {
	return &Loader{Courses: courses, Enrollments: enrollments}
}

func (l *Loader) Load(userID uint, role model.UserRole) (*Policy, error) {
	switch role {
	case model.Teacher:
		owned, err := l.Courses.IDsByTeacher(userID)
		if err != nil {
			return nil, err
		}
		return New(userID, role, owned, nil), nil
	case model.Student:
		enrolled, err := l.Enrollments.AccessibleCourseIDs(userID)
		if err != nil {
			return nil, err
		}
		return New(userID, role, nil, enrolled), nil
	}
	return New(userID, role, nil, nil), nil
}

func SetPolicy(c *gin.Context, p *Policy) {
	c.Set(contextKey, p)
}

// FromContext 未设置时返回匿名策略
func FromContext(c *gin.Context) *Policy {
	if v, ok := c.Get(contextKey); ok {
		if p, ok := v.(*Policy); ok {
			return p
		}
	}
	return Anonymous()
}
