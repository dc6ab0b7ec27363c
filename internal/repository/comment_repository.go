package repository

import (
	"manhaj_backend/internal/model"

	"gorm.io/gorm"
)

type CommentRepository struct {
	DB *gorm.DB
}

func NewCommentRepository(db *gorm.DB) *CommentRepository {
	return &CommentRepository{DB: db}
}

func (r *CommentRepository) WithTx(tx *gorm.DB) *CommentRepository {
	return &CommentRepository{DB: tx}
}

func (r *CommentRepository) Create(comment *model.LessonComment) error {
	return r.DB.Create(comment).Error
}

func (r *CommentRepository) FindByID(id uint) (*model.LessonComment, error) {
	var comment model.LessonComment
	err := r.DB.First(&comment, id).Error
	return &comment, err
}

// ListByLesson 按时间正序返回课时下的全部评论
func (r *CommentRepository) ListByLesson(lessonID uint) ([]model.LessonComment, error) {
	var comments []model.LessonComment
	err := r.DB.Preload("User").
		Where("lesson_id = ?", lessonID).
		Order("created_at ASC, id ASC").
		Find(&comments).Error
	return comments, err
}

// Delete 删除评论及其回复
func (r *CommentRepository) Delete(id uint) error {
	if err := r.DB.Where("parent_comment_id = ?", id).Delete(&model.LessonComment{}).Error; err != nil {
		return err
	}
	return r.DB.Delete(&model.LessonComment{}, id).Error
}
