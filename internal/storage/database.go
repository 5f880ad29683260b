package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"sky-gradient/internal/session"
	"sky-gradient/internal/sky"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var ErrNoSamples = errors.New("no gradient samples recorded")

type Database struct {
	db *gorm.DB
}

func NewDatabase(path string) (*Database, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.AutoMigrate(&GradientSample{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Database{db: db}, nil
}

func (d *Database) SaveSample(ctx context.Context, g sky.Gradient, origin session.Origin, at time.Time) error {
	sample := &GradientSample{
		RenderedAt:   at,
		Minutes:      int(g.Minutes),
		Clock:        g.Minutes.String(),
		Top:          g.Top.Hex(),
		Bottom:       g.Bottom.Hex(),
		CSS:          g.CSS(),
		FromKeyframe: g.From,
		ToKeyframe:   g.To,
		Factor:       g.Factor,
		Origin:       string(origin),
	}
	return d.db.WithContext(ctx).Create(sample).Error
}

// Render records the gradient, which makes the database a session renderer.
func (d *Database) Render(ctx context.Context, g sky.Gradient, origin session.Origin) error {
	return d.SaveSample(ctx, g, origin, time.Now())
}

func (d *Database) GetLatestSample() (*GradientSample, error) {
	var sample GradientSample
	result := d.db.Order("rendered_at desc").First(&sample)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, ErrNoSamples
	}
	if result.Error != nil {
		return nil, result.Error
	}
	return &sample, nil
}

func (d *Database) GetSamplesWithLimit(limit int) ([]GradientSample, error) {
	var samples []GradientSample
	result := d.db.Order("rendered_at desc").Limit(limit).Find(&samples)
	if result.Error != nil {
		return nil, result.Error
	}
	return samples, nil
}

func (d *Database) GetSamplesByRange(from, to time.Time) ([]GradientSample, error) {
	var samples []GradientSample
	result := d.db.Where("rendered_at BETWEEN ? AND ?", from, to).
		Order("rendered_at desc").
		Find(&samples)
	if result.Error != nil {
		return nil, result.Error
	}
	return samples, nil
}

func (d *Database) CountSamples() (int64, error) {
	var n int64
	err := d.db.Model(&GradientSample{}).Count(&n).Error
	return n, err
}

func (d *Database) CleanOldSamples(olderThan time.Duration) error {
	cutoff := time.Now().Add(-olderThan)
	return d.db.Unscoped().Where("rendered_at < ?", cutoff).Delete(&GradientSample{}).Error
}

func (d *Database) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
