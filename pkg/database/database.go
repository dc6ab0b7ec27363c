package database

import (
	"errors"
	"fmt"
	"log"
	"time"

	"manhaj_backend/internal/config"
	"manhaj_backend/internal/model"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func InitDB(cfg *config.Config) (*gorm.DB, error) {
	dbCfg := cfg.Database
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=%t&loc=UTC",
		dbCfg.User,
		dbCfg.Password,
		dbCfg.Host,
		dbCfg.Port,
		dbCfg.DBName,
		dbCfg.Charset,
		dbCfg.ParseTime,
	)

	logLevel := logger.Warn
	if cfg.Server.Mode == "debug" {
		logLevel = logger.Info
	}

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logLevel),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(time.Hour)

	log.Println("Database connection established")
	return db, nil
}

// Migrate 建表并写入默认数据
func Migrate(db *gorm.DB, cfg *config.Config) error {
	if err := db.AutoMigrate(model.AllModels()...); err != nil {
		return err
	}
	log.Println("Database migration completed")

	if err := seedSettings(db, &cfg.Platform); err != nil {
		return err
	}
	return seedSuperAdmin(db, &cfg.Bootstrap)
}

func seedSettings(db *gorm.DB, p *config.PlatformConfig) error {
	defaults := map[string]string{
		model.SettingWhatsAppNumber: p.WhatsAppNumber,
		model.SettingSiteNameEn:     p.SiteNameEn,
		model.SettingSiteNameAr:     p.SiteNameAr,
		model.SettingSupportEmail:   p.SupportEmail,
	}
	for key, value := range defaults {
		setting := model.PlatformSetting{Key: key, Value: value}
		if err := db.Where(model.PlatformSetting{Key: key}).FirstOrCreate(&setting).Error; err != nil {
			return err
		}
	}
	return nil
}

// seedSuperAdmin 没有任何超级管理员时根据配置创建一个
func seedSuperAdmin(db *gorm.DB, b *config.BootstrapConfig) error {
	var count int64
	if err := db.Model(&model.User{}).Where("role = ?", model.SuperAdmin).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	if b.AdminEmail == "" || b.AdminPassword == "" {
		log.Println("No superadmin configured, skipping bootstrap")
		return nil
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(b.AdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	name := b.AdminName
	if name == "" {
		name = "Administrator"
	}
	admin := &model.User{
		FullName: name,
		Email:    b.AdminEmail,
		Password: string(hashed),
		Role:     model.SuperAdmin,
	}
	if err := db.Create(admin).Error; err != nil && !errors.Is(err, gorm.ErrDuplicatedKey) {
		return err
	}
	log.Printf("Bootstrapped superadmin %s", b.AdminEmail)
	return nil
}
