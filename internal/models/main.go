package models

// ModelRegistry lists every model handled by gorm AutoMigrate.
var ModelRegistry = []interface{}{
	&WaitlistRecord{},
}
