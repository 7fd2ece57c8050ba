package config

const (
	PlatformNative = "native"
	PlatformWeb    = "web"
	PlatformServer = "server"
	PlatformMemory = "memory"
)

type Store struct {
	src source
}

var _ StoreConfig = Store{}

func (s Store) GetPlatform() string {
	return s.src.get("SESSION_PLATFORM", PlatformNative)
}

func (s Store) GetSessionKey() string {
	return s.src.get("SESSION_KEY", "auth_session")
}

func (s Store) GetDataFolder() string {
	return s.src.get("FOLDER", "./data")
}

func (s Store) GetEncryptionPassphrase() string {
	return s.src.get("SESSION_PASSPHRASE", "")
}

func (s Store) GetRedisAddr() string {
	return s.src.get("REDIS_ADDR", "localhost:6379")
}

func (s Store) GetRedisPassword() string {
	return s.src.get("REDIS_PASSWORD", "")
}

func (s Store) GetRedisDB() int {
	return s.src.getInt("REDIS_DB", 0)
}

func (s Store) GetRedisPrefix() string {
	return s.src.get("REDIS_PREFIX", "session")
}

func (s Store) GetDatabaseURL() string {
	return s.src.get("DATABASE_URL", "")
}
