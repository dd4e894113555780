package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

////////////////////////
// DATABASE STRUCTURES //
////////////////////////

// DatabaseModels is a list of all the structs exported here which represent tables in the database schema
var DatabaseModels = []interface{}{
	&AppInfo{},
	&Session{},
	&Selection{},
	&Classification{},
	&OverlaySnapshot{},
}

////////////////////////
// SYSTEM MODELS
////////////////////////

// AppInfo identifies the journal owner
type AppInfo struct {
	gorm.Model
	AppName     string `json:"appName" gorm:"size:127"`
	Description string `json:"description" gorm:"size:255"`
	Website     string `json:"website" gorm:"size:255"`
}

func (*AppInfo) TableName() string {
	return "app_infos"
}

////////////////////////
// JOURNAL MODELS
////////////////////////

// Session is one run of the map client
type Session struct {
	gorm.Model
	ViewerTZ    string    `json:"viewerTz" gorm:"size:64"`
	OffsetHours float64   `json:"offsetHours"`
	Coordinator string    `json:"coordinator" gorm:"size:255"`
	StartedAt   time.Time `json:"startedAt" gorm:"index:idx_sessions_started_at"`
}

func (*Session) TableName() string {
	return "sessions"
}

// Selection is a committed, restored or cleared selection window
type Selection struct {
	ID        uint      `json:"id" gorm:"primarykey;autoIncrement;"`
	Time      time.Time `json:"time" gorm:"index:idx_selections_time"`
	SessionID uint      `json:"sessionId" gorm:"index:idx_selections_session_id"`
	Source    string    `json:"source" gorm:"size:16"`
	AFrac     float64   `json:"aFrac"`
	BFrac     float64   `json:"bFrac"`
}

func (*Selection) TableName() string {
	return "selections"
}

// Classification is one applied availability update
type Classification struct {
	ID                   uint           `json:"id" gorm:"primarykey;autoIncrement;"`
	Time                 time.Time      `json:"time" gorm:"index:idx_classifications_time"`
	SessionID            uint           `json:"sessionId" gorm:"index:idx_classifications_session_id"`
	Statuses             datatypes.JSON `json:"statuses"`
	HighlightedTimezones datatypes.JSON `json:"highlightedTimezones"`
	Working              int            `json:"working"`
	Edge                 int            `json:"edge"`
	Off                  int            `json:"off"`
	Unset                int            `json:"unset"`
}

func (*Classification) TableName() string {
	return "classifications"
}

// OverlaySnapshot is a drawn night overlay
type OverlaySnapshot struct {
	ID                uint           `json:"id" gorm:"primarykey;autoIncrement;"`
	Time              time.Time      `json:"time" gorm:"index:idx_overlay_snapshots_time"`
	SessionID         uint           `json:"sessionId" gorm:"index:idx_overlay_snapshots_session_id"`
	NightSide         string         `json:"nightSide" gorm:"size:8"`
	DeclinationDeg    float64        `json:"declinationDeg"`
	EquationOfTimeMin float64        `json:"equationOfTimeMin"`
	Points            int            `json:"points"`
	Feature           datatypes.JSON `json:"feature"`
}

func (*OverlaySnapshot) TableName() string {
	return "overlay_snapshots"
}
