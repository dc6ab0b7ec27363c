package service

import (
	"errors"
	"fmt"
	"strings"

	"manhaj_backend/internal/access"
	"manhaj_backend/internal/model"
	"manhaj_backend/internal/repository"
	"manhaj_backend/internal/util"

	"gorm.io/gorm"
)

const maxCommentLength = 5000

type CommentService struct {
	DB          *gorm.DB
	LessonRepo  *repository.LessonRepository
	CommentRepo *repository.CommentRepository
	Notifier    *NotificationService
}

func NewCommentService(db *gorm.DB, lessonRepo *repository.LessonRepository, commentRepo *repository.CommentRepository, notifier *NotificationService) *CommentService {
	return &CommentService{DB: db, LessonRepo: lessonRepo, CommentRepo: commentRepo, Notifier: notifier}
}

// VisibleComments 教师与超级管理员看到全部评论；
// 学生只看到自己的评论，以及对自己提出的问题的回复
func VisibleComments(comments []model.LessonComment, viewerID uint, role model.UserRole) []model.LessonComment {
	if role == model.Teacher || role == model.SuperAdmin {
		return comments
	}

	mine := make(map[uint]struct{})
	for _, c := range comments {
		if c.UserID == viewerID && c.IsTopLevel() {
			mine[c.ID] = struct{}{}
		}
	}

	visible := make([]model.LessonComment, 0, len(comments))
	for _, c := range comments {
		if c.UserID == viewerID {
			visible = append(visible, c)
			continue
		}
		if c.ParentCommentID != nil {
			if _, ok := mine[*c.ParentCommentID]; ok {
				visible = append(visible, c)
			}
		}
	}
	return visible
}

func (s *CommentService) lessonWithAccess(p *access.Policy, lessonID uint) (*model.Lesson, error) {
	lesson, err := s.LessonRepo.FindByID(lessonID)
	if err != nil {
		return nil, util.Normalize(err)
	}
	if !p.CanViewContent(lesson.Course) {
		return nil, util.NewForbiddenError("You do not have access to this lesson")
	}
	return lesson, nil
}

func (s *CommentService) List(p *access.Policy, lessonID uint) ([]model.LessonComment, error) {
	if _, err := s.lessonWithAccess(p, lessonID); err != nil {
		return nil, err
	}
	comments, err := s.CommentRepo.ListByLesson(lessonID)
	if err != nil {
		return nil, err
	}
	return VisibleComments(comments, p.UserID, p.Role), nil
}

func cleanContent(content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", util.NewValidationError("content is required")
	}
	if len([]rune(content)) > maxCommentLength {
		return "", util.NewValidationError(fmt.Sprintf("content exceeds %d characters", maxCommentLength))
	}
	return content, nil
}

// Ask 学生在有权限的课时下提问，通知课程教师
func (s *CommentService) Ask(p *access.Policy, lessonID uint, content string) (*model.LessonComment, error) {
	if !p.IsStudent() {
		return nil, util.NewForbiddenError("Only students can ask questions")
	}
	lesson, err := s.lessonWithAccess(p, lessonID)
	if err != nil {
		return nil, err
	}
	content, err = cleanContent(content)
	if err != nil {
		return nil, err
	}

	comment := &model.LessonComment{LessonID: lessonID, UserID: p.UserID, Content: content}
	err = s.Notifier.InTx(s.DB, func(tx *gorm.DB) error {
		if err := s.CommentRepo.WithTx(tx).Create(comment); err != nil {
			return err
		}
		return s.Notifier.Notify(tx, []uint{lesson.Course.TeacherID},
			"New question",
			fmt.Sprintf("A student asked a question on \"%s\"", lesson.Title),
			model.QuestionPayload{CourseID: lesson.CourseID, LessonID: lesson.ID, CommentID: comment.ID})
	})
	if err != nil {
		return nil, err
	}
	return comment, nil
}

// Reply 只有课程所有者可以回复，且只能回复同一课时下的顶层问题
func (s *CommentService) Reply(p *access.Policy, lessonID, parentID uint, content string) (*model.LessonComment, error) {
	lesson, err := s.LessonRepo.FindByID(lessonID)
	if err != nil {
		return nil, util.Normalize(err)
	}
	if !p.OwnsCourse(lesson.Course) {
		return nil, util.NewForbiddenError("Only the course teacher can reply")
	}
	parent, err := s.CommentRepo.FindByID(parentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.NewValidationError("parent comment does not exist")
		}
		return nil, err
	}
	if !parent.IsTopLevel() || parent.LessonID != lessonID {
		return nil, util.NewValidationError("replies must target a question on the same lesson")
	}
	content, err = cleanContent(content)
	if err != nil {
		return nil, err
	}

	comment := &model.LessonComment{
		LessonID:        lessonID,
		UserID:          p.UserID,
		Content:         content,
		ParentCommentID: &parent.ID,
	}
	err = s.Notifier.InTx(s.DB, func(tx *gorm.DB) error {
		if err := s.CommentRepo.WithTx(tx).Create(comment); err != nil {
			return err
		}
		return s.Notifier.Notify(tx, []uint{parent.UserID},
			"New reply",
			fmt.Sprintf("The teacher replied to your question on \"%s\"", lesson.Title),
			model.ReplyPayload{CourseID: lesson.CourseID, LessonID: lesson.ID, CommentID: comment.ID})
	})
	if err != nil {
		return nil, err
	}
	return comment, nil
}

// Delete 作者本人或超级管理员；删除问题时一并删除其回复
func (s *CommentService) Delete(p *access.Policy, commentID uint) error {
	comment, err := s.CommentRepo.FindByID(commentID)
	if err != nil {
		return util.Normalize(err)
	}
	if comment.UserID != p.UserID && !p.IsSuperAdmin() {
		return util.NewForbiddenError("You can only delete your own comments")
	}
	return s.DB.Transaction(func(tx *gorm.DB) error {
		return s.CommentRepo.WithTx(tx).Delete(commentID)
	})
}
