package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ListenAddr string
	DBPath     string

	PhotoBackend string
	PhotoPath    string

	S3Endpoint     string
	S3Region       string
	S3Bucket       string
	S3AccessKey    string
	S3SecretKey    string
	S3UsePathStyle bool

	SessionSecret string
	SessionTTL    time.Duration
	SecureCookies bool

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	LoginRatePerMinute int
	LoginBurst         int
	TrustProxyHeaders  bool

	LogLevel string
	LogFile  string
	TestMode bool
}

// Load reads configuration from the environment. A .env file in the working
// directory, if present, is loaded first; real environment variables win.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to load .env file", "error", err)
	}

	return &Config{
		ListenAddr:         getEnv("LISTEN_ADDR", ":8080"),
		DBPath:             getEnv("DB_PATH", "/data/wishlist.db"),
		PhotoBackend:       getEnv("PHOTO_BACKEND", "local"),
		PhotoPath:          getEnv("PHOTO_LOCAL_PATH", "/data/media"),
		S3Endpoint:         getEnv("S3_ENDPOINT", ""),
		S3Region:           getEnv("S3_REGION", "us-east-1"),
		S3Bucket:           getEnv("S3_BUCKET", ""),
		S3AccessKey:        getEnv("S3_ACCESS_KEY", ""),
		S3SecretKey:        getEnv("S3_SECRET_KEY", ""),
		S3UsePathStyle:     getBool("S3_USE_PATH_STYLE", true),
		SessionSecret:      getEnv("SESSION_SECRET", ""),
		SessionTTL:         getDuration("SESSION_TTL", 24*time.Hour),
		SecureCookies:      getBool("SECURE_COOKIES", false),
		RedisAddr:          getEnv("REDIS_ADDR", ""),
		RedisPassword:      getEnv("REDIS_PASSWORD", ""),
		RedisDB:            getInt("REDIS_DB", 0),
		LoginRatePerMinute: getInt("LOGIN_RATE_PER_MINUTE", 10),
		LoginBurst:         getInt("LOGIN_BURST", 5),
		TrustProxyHeaders:  getBool("TRUST_PROXY_HEADERS", false),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		LogFile:            getEnv("LOG_FILE", ""),
		TestMode:           os.Getenv("WISHLIST_TEST_MODE") == "1",
	}
}

func getEnv(key, defaultVal string) string {
	if val, exists := os.LookupEnv(key); exists {
		return val
	}
	return defaultVal
}

func getInt(key string, defaultVal int) int {
	n, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return defaultVal
	}
	return n
}

func getBool(key string, defaultVal bool) bool {
	b, err := strconv.ParseBool(getEnv(key, ""))
	if err != nil {
		return defaultVal
	}
	return b
}

func getDuration(key string, defaultVal time.Duration) time.Duration {
	d, err := time.ParseDuration(getEnv(key, ""))
	if err != nil {
		return defaultVal
	}
	return d
}
