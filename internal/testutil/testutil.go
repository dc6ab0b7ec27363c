package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"

	"manhaj_backend/internal/model"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

var dbSeq int64

// DB 每个测试一个独立的内存 SQLite 库，外键约束开启
func DB(tb testing.TB) *gorm.DB {
	tb.Helper()

	name := fmt.Sprintf("file:manhaj_test_%d?mode=memory&cache=shared&_foreign_keys=1", atomic.AddInt64(&dbSeq, 1))
	db, err := gorm.Open(sqlite.Open(name), &gorm.Config{
		Logger:         gormLogger.Default.LogMode(gormLogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		tb.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(model.AllModels()...); err != nil {
		tb.Fatalf("migrate: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		tb.Fatalf("sql db: %v", err)
	}
	// 单连接，避免共享缓存模式下的表锁
	sqlDB.SetMaxOpenConns(1)
	tb.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func CreateUser(tb testing.TB, db *gorm.DB, role model.UserRole, email string) *model.User {
	tb.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		tb.Fatalf("hash: %v", err)
	}
	u := &model.User{FullName: email, Email: email, Password: string(hashed), Role: role}
	if err := db.Create(u).Error; err != nil {
		tb.Fatalf("create user: %v", err)
	}
	return u
}

func CreateCategory(tb testing.TB, db *gorm.DB) *model.Category {
	tb.Helper()
	seq := atomic.AddInt64(&dbSeq, 1)
	c := &model.Category{NameEn: "Programming", NameAr: "برمجة", Slug: fmt.Sprintf("programming-%d", seq)}
	if err := db.Create(c).Error; err != nil {
		tb.Fatalf("create category: %v", err)
	}
	return c
}

// CreateCourse price 为 nil 表示免费课程
func CreateCourse(tb testing.TB, db *gorm.DB, teacher *model.User, price *float64) *model.Course {
	tb.Helper()
	cat := CreateCategory(tb, db)
	seq := atomic.AddInt64(&dbSeq, 1)
	c := &model.Course{
		Title:      fmt.Sprintf("Course %d", seq),
		Slug:       fmt.Sprintf("course-slug-%d", seq),
		TeacherID:  teacher.ID,
		CategoryID: cat.ID,
		IsFree:     price == nil,
		Price:      price,
	}
	if err := db.Create(c).Error; err != nil {
		tb.Fatalf("create course: %v", err)
	}
	return c
}

func CreateLesson(tb testing.TB, db *gorm.DB, course *model.Course, order int) *model.Lesson {
	tb.Helper()
	duration := 600
	l := &model.Lesson{
		CourseID:    course.ID,
		Title:       fmt.Sprintf("Lesson %d", order),
		VideoURL:    fmt.Sprintf("https://player.vimeo.com/video/%d", 1000+order),
		Duration:    &duration,
		LessonOrder: order,
	}
	if err := db.Create(l).Error; err != nil {
		tb.Fatalf("create lesson: %v", err)
	}
	return l
}

func Enroll(tb testing.TB, db *gorm.DB, student *model.User, course *model.Course, status model.EnrollmentStatus) *model.Enrollment {
	tb.Helper()
	e := &model.Enrollment{StudentID: student.ID, CourseID: course.ID, Status: status}
	if err := db.Create(e).Error; err != nil {
		tb.Fatalf("enroll: %v", err)
	}
	return e
}

func Price(v float64) *float64 { return &v }

func CreateQuiz(tb testing.TB, db *gorm.DB, lesson *model.Lesson) *model.Quiz {
	tb.Helper()
	q := &model.Quiz{LessonID: lesson.ID, Title: "Quiz for " + lesson.Title, IsActive: true}
	if err := db.Create(q).Error; err != nil {
		tb.Fatalf("create quiz: %v", err)
	}
	return q
}
