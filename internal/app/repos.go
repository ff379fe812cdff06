package app

import (
	"gorm.io/gorm"

	repos "github.com/yungbote/briefs-backend/internal/data/repos/briefs"
	"github.com/yungbote/briefs-backend/internal/pkg/logger"
)

type Repos struct {
	BriefVersion repos.BriefVersionRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		BriefVersion: repos.NewBriefVersionRepo(db, log),
	}
}
