package access

import (
	"errors"
	"testing"

	"manhaj_backend/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func course(id, teacherID uint) *model.Course {
	c := &model.Course{TeacherID: teacherID}
	c.ID = id
	return c
}

func TestCanViewContent(t *testing.T) {
	c := course(10, 2)

	tests := []struct {
		name   string
		policy *Policy
		want   bool
	}{
		{"anonymous", Anonymous(), false},
		{"superadmin", New(1, model.SuperAdmin, nil, nil), true},
		{"owner teacher", New(2, model.Teacher, []uint{10}, nil), true},
		{"other teacher", New(3, model.Teacher, nil, nil), false},
		{"teacher with stale owned list", New(3, model.Teacher, []uint{10}, nil), false},
		{"enrolled student", New(4, model.Student, nil, []uint{10}), true},
		{"student without access", New(5, model.Student, nil, []uint{11}), false},
		{"student id equal to teacher id", New(2, model.Student, nil, nil), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.policy.CanViewContent(c))
		})
	}
}

func TestCanManageCourse(t *testing.T) {
	c := course(10, 2)

	assert.True(t, New(1, model.SuperAdmin, nil, nil).CanManageCourse(c))
	assert.True(t, New(2, model.Teacher, nil, nil).CanManageCourse(c))
	assert.False(t, New(3, model.Teacher, nil, nil).CanManageCourse(c))
	assert.False(t, New(4, model.Student, nil, []uint{10}).CanManageCourse(c))
}

func TestGrant(t *testing.T) {
	p := New(4, model.Student, nil, nil)
	c := course(10, 2)
	require.False(t, p.CanViewContent(c))

	p.Grant(10)
	assert.True(t, p.CanViewContent(c))
}

type stubCourses struct{ ids []uint }

func (s stubCourses) IDsByTeacher(uint) ([]uint, error) { return s.ids, nil }

type stubEnrollments struct {
	ids []uint
	err error
}

func (s stubEnrollments) AccessibleCourseIDs(uint) ([]uint, error) { return s.ids, s.err }

func TestLoader(t *testing.T) {
	loader := NewLoader(stubCourses{ids: []uint{7}}, stubEnrollments{ids: []uint{8}})

	teacher, err := loader.Load(2, model.Teacher)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint{7}, teacher.OwnedCourseIDs())
	assert.False(t, teacher.IsEnrolled(8))

	student, err := loader.Load(3, model.Student)
	require.NoError(t, err)
	assert.True(t, student.IsEnrolled(8))

	failing := NewLoader(stubCourses{}, stubEnrollments{err: errors.New("db down")})
	_, err = failing.Load(3, model.Student)
	assert.Error(t, err)
}
