package model

// App is a sellable application in the `apps` table.  Inactive apps cannot
// have tokens issued against them.
type App struct {
	ID       uint64 // apps.id
	Name     string // apps.name
	Domain   string // apps.domain (returned to buyers with issued tokens)
	IsActive bool   // apps.is_active
}

// SubApp is an optional subdivision of an app (editions, tiers) in the
// `sub_apps` table.  A token issued with a sub-app id must reference a
// mapping that actually belongs to the app.
type SubApp struct {
	ID    uint64 // sub_apps.id
	AppID uint64 // sub_apps.app_id
	Name  string // sub_apps.name
}
