package config

const (
	// Database errors
	ErrInitializeDatabaseFmt = "Failed to initialize database: %v"
	ErrGetPostsFmt           = "Failed to get posts: %v"

	// Storage backends
	ErrDraftStoreFmt = "Failed to create draft store: %v"
	ErrImageStoreFmt = "Failed to create image store: %v"

	ErrInternalServerError = "Internal server error"

	// Config errors
	ErrWriteConfigContentFmt = "Failed to write config content: %v"
	ErrCreateTempFileFmt     = "Failed to create temp file: %v"

	ErrReloadingPosts = "Error reloading posts"
)
