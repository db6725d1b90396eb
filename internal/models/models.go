package models

// All 返回需要 AutoMigrate 的全部模型
func All() []any {
	return []any{
		&File{},
		&ShareLink{},
		&DownloadAttempt{},
		&DownloadLog{},
	}
}
