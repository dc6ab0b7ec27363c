package model

const (
	SettingWhatsAppNumber = "whatsapp_number"
	SettingSiteNameEn     = "site_name_en"
	SettingSiteNameAr     = "site_name_ar"
	SettingSupportEmail   = "support_email"
)

// KnownSettings 允许超级管理员修改的设置项
var KnownSettings = []string{
	SettingWhatsAppNumber,
	SettingSiteNameEn,
	SettingSiteNameAr,
	SettingSupportEmail,
}

type PlatformSetting struct {
	BaseModel
	Key   string `gorm:"size:64;uniqueIndex;not null" json:"key"`
	Value string `gorm:"type:text" json:"value"`
}

func (PlatformSetting) TableName() string {
	return "platform_settings"
}
