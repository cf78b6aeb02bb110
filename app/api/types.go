package api

import (
	"github.com/lysyi3m/mirassol-cal/app/config"
	"github.com/lysyi3m/mirassol-cal/app/database"
)

// SnapshotReader serves the raw ICS snapshot bytes
type SnapshotReader interface {
	Read() ([]byte, error)
}

type Handler struct {
	clubConfig *config.ClubConfig
	snapshot   SnapshotReader
	runs       database.RunRepository
}
