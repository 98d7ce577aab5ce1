package app

import (
	"gorm.io/gorm"

	diaryrepo "github.com/yungbote/studentdiary-backend/internal/data/repos/diary"
	"github.com/yungbote/studentdiary-backend/internal/platform/logger"
)

type Repos struct {
	Entry diaryrepo.EntryRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Entry: diaryrepo.NewEntryRepo(db, log),
	}
}
