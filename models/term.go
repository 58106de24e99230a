package models

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/mmdatafocus/syncdb_backend/config"
	"gorm.io/gorm"
)

const (
	VocabularyProgram  = "program"
	VocabularyLanguage = "language"
	VocabularyRevision = "revision"
)

// Term is a classification term (program, language, revision). Terms are
// created on demand while mapping remote records and are never deleted by
// the sync engine.
type Term struct {
	ID                int       `gorm:"primary_key" json:"id"`
	Vocabulary        string    `gorm:"uniqueIndex:idx_terms_vocab_name,priority:1;size:50;not null" json:"vocabulary"`
	Name              string    `gorm:"uniqueIndex:idx_terms_vocab_name,priority:2;size:255;not null" json:"name"`
	RemoteProgramCode string    `gorm:"index;size:50" json:"remote_program_code"`
	CreatedAt         time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// GetOrCreateTermByName matches a term by {vocabulary, name}.
func GetOrCreateTermByName(ctx context.Context, vocabulary string, name string) (*Term, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("term name is required")
	}
	db := config.GetDB()

	var term Term
	err := db.WithContext(ctx).
		Where("vocabulary = ? AND name = ?", vocabulary, name).
		Take(&term).Error
	if err == nil {
		return &term, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	term = Term{Vocabulary: vocabulary, Name: name}
	if err := db.WithContext(ctx).Create(&term).Error; err != nil {
		return nil, err
	}
	return &term, nil
}

// GetOrCreateTermByProgramCode matches a program term by its remote code,
// creating one named after the code when absent.
func GetOrCreateTermByProgramCode(ctx context.Context, vocabulary string, programCode string) (*Term, error) {
	programCode = strings.TrimSpace(programCode)
	if programCode == "" {
		return nil, errors.New("program code is required")
	}
	db := config.GetDB()

	var term Term
	err := db.WithContext(ctx).
		Where("vocabulary = ? AND remote_program_code = ?", vocabulary, programCode).
		Take(&term).Error
	if err == nil {
		return &term, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	term = Term{Vocabulary: vocabulary, Name: programCode, RemoteProgramCode: programCode}
	if err := db.WithContext(ctx).Create(&term).Error; err != nil {
		return nil, err
	}
	return &term, nil
}
