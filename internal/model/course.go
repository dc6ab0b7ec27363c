package model

// swagger:model Category
type Category struct {
	BaseModel
	NameEn string `gorm:"size:100;not null" json:"nameEn"`
	NameAr string `gorm:"size:100;not null" json:"nameAr"`
	Slug   string `gorm:"size:120;uniqueIndex;not null" json:"slug"`
}

func (Category) TableName() string {
	return "categories"
}

// swagger:model Course
type Course struct {
	BaseModel
	Title        string    `gorm:"size:255;not null" json:"title"`
	Slug         string    `gorm:"size:191;uniqueIndex" json:"slug"`
	Description  string    `gorm:"type:text" json:"description"`
	ThumbnailURL string    `gorm:"size:500" json:"thumbnailUrl"`
	TeacherID    uint      `gorm:"index;not null" json:"teacherId"`
	Teacher      *User     `gorm:"foreignKey:TeacherID;constraint:OnDelete:CASCADE" json:"teacher,omitempty"`
	CategoryID   uint      `gorm:"index;not null" json:"categoryId"`
	Category     *Category `gorm:"constraint:OnDelete:RESTRICT" json:"category,omitempty"`
	IsFree       bool      `gorm:"default:false" json:"isFree"`
	Price        *float64  `gorm:"type:decimal(10,2)" json:"price"`
}

func (Course) TableName() string {
	return "courses"
}

// RequiresPayment isFree 为真时价格被忽略；价格为空或为零同样视为免费
func (c *Course) RequiresPayment() bool {
	if c.IsFree || c.Price == nil {
		return false
	}
	return *c.Price > 0
}

// EffectivePrice 对外展示的价格
func (c *Course) EffectivePrice() float64 {
	if !c.RequiresPayment() {
		return 0
	}
	return *c.Price
}

// swagger:model Lesson
type Lesson struct {
	BaseModel
	CourseID    uint    `gorm:"uniqueIndex:idx_course_lesson_order;not null" json:"courseId"`
	Course      *Course `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Title       string  `gorm:"size:255;not null" json:"title"`
	Description string  `gorm:"type:text" json:"description"`
	VideoURL    string  `gorm:"size:500;not null" json:"-"`
	Duration    *int    `json:"duration"`
	LessonOrder int     `gorm:"uniqueIndex:idx_course_lesson_order;not null" json:"lessonOrder"`
}

func (Lesson) TableName() string {
	return "lessons"
}

// swagger:model CourseReview
type CourseReview struct {
	BaseModel
	CourseID  uint    `gorm:"uniqueIndex:idx_review_student_course;not null" json:"courseId"`
	Course    *Course `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	StudentID uint    `gorm:"uniqueIndex:idx_review_student_course;not null" json:"studentId"`
	Student   *User   `gorm:"foreignKey:StudentID;constraint:OnDelete:CASCADE" json:"student,omitempty"`
	Rating    int     `gorm:"not null" json:"rating"`
	Comment   string  `gorm:"type:text" json:"comment"`
}

func (CourseReview) TableName() string {
	return "course_reviews"
}

// swagger:model CourseAnnouncement
type CourseAnnouncement struct {
	BaseModel
	CourseID  uint    `gorm:"index;not null" json:"courseId"`
	Course    *Course `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	TeacherID uint    `gorm:"index;not null" json:"teacherId"`
	Title     string  `gorm:"size:255;not null" json:"title"`
	Content   string  `gorm:"type:text;not null" json:"content"`
}

func (CourseAnnouncement) TableName() string {
	return "course_announcements"
}
