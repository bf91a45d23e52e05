package models

// All returns every model for AutoMigrate, in dependency order.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Subscription{},
		&CatalogDevice{},
		&Item{},
		&Defect{},
		&Part{},
		&FixPath{},
		&ToolLibrary{},
		&LibraryTool{},
		&LibraryToolLink{},
		&SystemLog{},
	}
}
