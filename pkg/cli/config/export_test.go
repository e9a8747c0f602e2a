package config

// NewSlackForTest creates a Slack config for testing purposes
func NewSlackForTest(botToken, toastChannel, caseURL string) *Slack {
	return &Slack{
		botToken:     botToken,
		toastChannel: toastChannel,
		caseURL:      caseURL,
	}
}

// NewLoggerForTest creates a Logger config for testing purposes
func NewLoggerForTest(level, format, output string) *Logger {
	return &Logger{
		level:  level,
		format: format,
		output: output,
	}
}

// NewLexiConnectForTest creates a LexiConnect config for testing purposes
func NewLexiConnectForTest(baseURL, token string) *LexiConnect {
	return &LexiConnect{
		baseURL: baseURL,
		token:   token,
	}
}

// NewRepositoryForTest creates a Repository config for testing purposes
func NewRepositoryForTest(backend string) *Repository {
	return &Repository{backend: backend}
}

// WithRedisURL sets the redis URL of a test Repository config
func (r *Repository) WithRedisURL(url string) *Repository {
	r.redisURL = url
	return r
}

// WithSQLitePath sets the sqlite path of a test Repository config
func (r *Repository) WithSQLitePath(path string) *Repository {
	r.sqlitePath = path
	return r
}

// NewAppForTest creates an App config for testing purposes
func NewAppForTest(path, viewerID string) *App {
	return &App{path: path, viewerID: viewerID}
}
